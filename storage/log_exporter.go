package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ExportLogData reads the EpisodeSnapshots table from the SQLite database at
// dbPath and writes it as CSV to outputPath (stdout if empty). Only the
// "csv" format is currently supported, matching the teacher's logutil
// exporter.
func ExportLogData(dbPath, format, outputPath string) error {
	if format != "csv" {
		return fmt.Errorf("unsupported format '%s', only 'csv' is currently supported", format)
	}

	db, err := sql.Open("sqlite3", dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open SQLite database at %s: %w", dbPath, err)
	}
	defer db.Close()

	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database at %s: %w", dbPath, err)
	}

	var out io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		defer file.Close()
		out = file
	}

	writer := csv.NewWriter(out)
	defer writer.Flush()

	headers := []string{
		"SnapshotID", "Timestamp", "StepCount", "OutputLength", "ErrorRate",
		"LearningRate", "NodeCount", "EdgeCount", "PatternCount", "SelectionConfidence",
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	rows, err := db.Query(`SELECT SnapshotID, Timestamp, StepCount, OutputLength, ErrorRate,
		LearningRate, NodeCount, EdgeCount, PatternCount, SelectionConfidence
		FROM EpisodeSnapshots ORDER BY SnapshotID`)
	if err != nil {
		return fmt.Errorf("failed to query EpisodeSnapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r [10]sql.NullString
		if err := rows.Scan(&r[0], &r[1], &r[2], &r[3], &r[4], &r[5], &r[6], &r[7], &r[8], &r[9]); err != nil {
			return fmt.Errorf("failed to scan row from EpisodeSnapshots: %w", err)
		}
		record := make([]string, len(r))
		for i, v := range r {
			if v.Valid {
				record[i] = v.String
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return rows.Err()
}
