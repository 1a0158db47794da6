package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"service-call-analytics/pkg/api"
	"service-call-analytics/pkg/config"
	"service-call-analytics/pkg/database"
	"service-call-analytics/pkg/ingest"
	"service-call-analytics/pkg/metrics"
	"service-call-analytics/pkg/repository"
	"service-call-analytics/pkg/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✓ Connected to database")

	// Initialize repository and services
	callRepo := repository.NewSQLiteCallRepository(db)
	callSvc := service.NewCallService(callRepo)
	metadataSvc := service.NewMetadataService(callRepo)

	// Incremental ingestion: watch the updates directory and invalidate the
	// filter-metadata cache whenever a batch lands.
	if cfg.EnableWatcher {
		loader := ingest.NewLoader(db)
		watcher := ingest.NewWatcher(cfg.UpdatesDir, loader, metadataSvc.Invalidate)
		if err := watcher.Start(ctx); err != nil {
			log.Printf("Updates watcher disabled: %v", err)
		} else {
			log.Printf("✓ Watching %s for new exports", cfg.UpdatesDir)
		}
	}

	// Setup router
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods("GET")

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")

	api.NewHandler(callSvc, metadataSvc).Register(r)

	// Start server
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("🚀 Server starting on http://localhost:%s", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
