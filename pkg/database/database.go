package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite store at path, configures it for
// concurrent-read-safe operation (WAL journal) and applies the schema.
// The caller owns the returned handle and closes it on shutdown.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the service_calls and update_history tables if missing.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS service_calls (
			call_id INTEGER PRIMARY KEY,
			customer_name TEXT,
			address TEXT,
			state TEXT,
			geo_loc_lat REAL,
			geo_loc_lon REAL,
			geo_loc_pincode TEXT,
			model TEXT,
			instrument_serial_no TEXT,
			warranty_expiry_date TEXT,
			zone TEXT,
			priority TEXT,
			visited_engineer_name TEXT,
			ticket_no INTEGER,
			call_entry_datetime TEXT,
			start_call_datetime TEXT,
			call_solved_datetime TEXT,
			call_aging TEXT,
			response_time TEXT,
			recovery_time TEXT,
			customer_complaint TEXT,
			call_type TEXT,
			nature_of_complaint TEXT,
			complaint_description TEXT,
			call_status TEXT,
			status TEXT,
			visitor_remarks TEXT,
			forward_employee_name TEXT,
			instrument_status TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_calls_entry
			ON service_calls(call_entry_datetime);`,
		`CREATE TABLE IF NOT EXISTS update_history (
			batch_id TEXT PRIMARY KEY,
			file_name TEXT,
			rows_processed INTEGER,
			new_rows INTEGER,
			updated_at TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
