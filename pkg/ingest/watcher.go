package ingest

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the updates directory for new CSV exports and ingests
// them in ignore-conflict mode, so an incremental file never overwrites rows
// already replaced by a newer master load. After each successful ingest the
// onIngest hook runs; the server uses it to invalidate the filter-metadata
// cache.
type Watcher struct {
	dir      string
	loader   *Loader
	onIngest func()
}

func NewWatcher(dir string, loader *Loader, onIngest func()) *Watcher {
	return &Watcher{dir: dir, loader: loader, onIngest: onIngest}
}

// Start begins watching. It returns after registering the directory; events
// are handled on a background goroutine until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isExport(evt.Name) {
					w.ingest(ctx, evt.Name)
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.dir)
}

// Backfill ingests exports already sitting in the updates directory, oldest
// name first, matching the batch ordering of a directory scan.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, e := range entries {
		if isExport(e) {
			w.ingest(ctx, e)
		}
	}
	return nil
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if _, err := w.loader.LoadFile(ctx, path, ConflictIgnore); err != nil {
		log.Printf("watcher: ingest %s failed: %v", filepath.Base(path), err)
		return
	}
	if w.onIngest != nil {
		w.onIngest()
	}
}

func isExport(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".csv"
}
