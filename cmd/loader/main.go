package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"service-call-analytics/pkg/database"
	"service-call-analytics/pkg/ingest"
)

func main() {
	// Define flags
	source := flag.String("source", "", "CSV export to load (required)")
	dbPath := flag.String("database", "./service_calls.db", "SQLite database file")
	mode := flag.String("mode", "upsert", "Conflict mode: upsert|ignore")

	flag.Parse()

	if *source == "" {
		fmt.Println("Error: -source flag is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	conflictMode := ingest.ConflictMode(*mode)
	if conflictMode != ingest.ConflictUpsert && conflictMode != ingest.ConflictIgnore {
		fmt.Printf("Error: mode must be upsert or ignore (got: %s)\n", *mode)
		os.Exit(1)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	result, err := ingest.NewLoader(db).LoadFile(context.Background(), *source, conflictMode)
	if err != nil {
		fmt.Printf("Error loading export: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %s: %d rows processed, %d written (batch %s)\n",
		result.FileName, result.RowsProcessed, result.NewRows, result.BatchID)
}
