package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"service-call-analytics/pkg/metrics"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/query"
)

// ConflictMode controls what happens when an incoming row collides with an
// existing call_id.
type ConflictMode string

const (
	// ConflictUpsert replaces the stored record entirely (master loads).
	ConflictUpsert ConflictMode = "upsert"
	// ConflictIgnore keeps the stored record (incremental updates).
	ConflictIgnore ConflictMode = "ignore"
)

// Loader ingests CSV exports of the service-call log into the store.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// LoadFile reads one CSV export, cleans and deduplicates its rows, writes
// them in a single transaction, and records the run in update_history. Once
// LoadFile returns, every row of the batch is visible to readers.
func (l *Loader) LoadFile(ctx context.Context, path string, mode ConflictMode) (*models.IngestResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer file.Close()

	records, err := readExport(file)
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read export %s: %w", filepath.Base(path), err)
	}

	result, err := l.insert(ctx, records, filepath.Base(path), mode)
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.IngestRunsTotal.WithLabelValues("ok").Inc()
	metrics.IngestRowsTotal.Add(float64(result.NewRows))
	log.Printf("ingest: %s rows=%d new=%d mode=%s", result.FileName, result.RowsProcessed, result.NewRows, mode)
	return result, nil
}

// readExport parses the CSV, validates the header against the known export
// columns, and returns cleaned records deduplicated by call_id (last row
// wins, matching the replace semantics of re-exported calls).
func readExport(r io.Reader) ([]models.ServiceCallRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("export is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		column, ok := headerRenames[name]
		if !ok {
			// Unknown columns are carried by some exports; skip them.
			continue
		}
		columns[i] = column
		seen[column] = true
	}
	var missing []string
	for _, column := range headerRenames {
		if !seen[column] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("export missing required columns: %v", missing)
	}

	byID := make(map[int64]int)
	var records []models.ServiceCallRecord
	line := 1
	for {
		row, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", line, err)
		}

		cells := make(map[string]string, len(columns))
		for i, column := range columns {
			if column == "" || i >= len(row) {
				continue
			}
			cells[column] = row[i]
		}

		rec, ok := buildRecord(cells)
		if !ok {
			// Rows without a call_id cannot be keyed; drop them.
			continue
		}
		if idx, dup := byID[rec.CallID]; dup {
			records[idx] = rec
			continue
		}
		byID[rec.CallID] = len(records)
		records = append(records, rec)
	}
	return records, nil
}

func (l *Loader) insert(ctx context.Context, records []models.ServiceCallRecord, fileName string, mode ConflictMode) (*models.IngestResult, error) {
	stmt, err := insertStatement(mode)
	if err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer prepared.Close()

	newRows := 0
	for _, rec := range records {
		res, err := prepared.ExecContext(ctx, recordArgs(rec)...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert call %d: %w", rec.CallID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to count affected rows: %w", err)
		}
		newRows += int(affected)
	}

	result := &models.IngestResult{
		BatchID:       uuid.New().String(),
		FileName:      fileName,
		RowsProcessed: len(records),
		NewRows:       newRows,
		UpdatedAt:     time.Now().UTC().Format("2006-01-02 15:04:05"),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_history (batch_id, file_name, rows_processed, new_rows, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, result.BatchID, result.FileName, result.RowsProcessed, result.NewRows, result.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record update history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}
	return result, nil
}

func insertStatement(mode ConflictMode) (string, error) {
	columns := strings.Split(query.CallColumns, ", ")
	placeholders := strings.Repeat("?, ", len(columns)-1) + "?"
	base := fmt.Sprintf("INSERT INTO service_calls (%s) VALUES (%s)", query.CallColumns, placeholders)

	switch mode {
	case ConflictUpsert:
		assignments := make([]string, 0, len(columns)-1)
		for _, column := range columns {
			if column == "call_id" {
				continue
			}
			assignments = append(assignments, column+"=excluded."+column)
		}
		return base + " ON CONFLICT(call_id) DO UPDATE SET " + strings.Join(assignments, ", "), nil
	case ConflictIgnore:
		return base + " ON CONFLICT(call_id) DO NOTHING", nil
	default:
		return "", fmt.Errorf("unsupported conflict mode: %s", mode)
	}
}

func recordArgs(rec models.ServiceCallRecord) []interface{} {
	return []interface{}{
		rec.CallID,
		rec.CustomerName,
		rec.Address,
		rec.State,
		rec.GeoLocLat,
		rec.GeoLocLon,
		rec.GeoLocPincode,
		rec.Model,
		rec.InstrumentSerialNo,
		rec.WarrantyExpiryDate,
		rec.Zone,
		rec.Priority,
		rec.VisitedEngineerName,
		rec.TicketNo,
		rec.CallEntryDatetime,
		rec.StartCallDatetime,
		rec.CallSolvedDatetime,
		rec.CallAging,
		rec.ResponseTime,
		rec.RecoveryTime,
		rec.CustomerComplaint,
		rec.CallType,
		rec.NatureOfComplaint,
		rec.ComplaintDescription,
		rec.CallStatus,
		rec.Status,
		rec.VisitorRemarks,
		rec.ForwardEmployeeName,
		rec.InstrumentStatus,
	}
}
