package storage_test

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"melvingraph/graph"
	"melvingraph/storage"
)

func tableExistsAndHasColumns(db *sql.DB, tableName string, expectedCols []string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s);", tableName))
	if err != nil {
		return false, fmt.Errorf("querying table_info for %s: %w", tableName, err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, typeStr string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typeStr, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scanning table_info row for %s: %w", tableName, err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	if len(found) == 0 {
		return false, nil
	}
	for _, col := range expectedCols {
		if !found[col] {
			return false, fmt.Errorf("expected column %q not found in %q", col, tableName)
		}
	}
	return true, nil
}

func TestNewSQLiteLogger_InMemory(t *testing.T) {
	logger, err := storage.NewSQLiteLogger(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLogger(:memory:) failed: %v", err)
	}
	defer logger.Close()

	if logger.DBForTest() == nil {
		t.Fatal("logger DB not initialized")
	}

	expectedCols := []string{"SnapshotID", "Timestamp", "StepCount", "OutputLength", "ErrorRate", "NodeCount", "EdgeCount", "PatternCount", "SelectionConfidence"}
	ok, err := tableExistsAndHasColumns(logger.DBForTest(), "EpisodeSnapshots", expectedCols)
	if err != nil {
		t.Fatalf("checking EpisodeSnapshots: %v", err)
	}
	if !ok {
		t.Error("EpisodeSnapshots table was not created with expected columns")
	}
}

func TestSQLiteLogger_LogEpisode(t *testing.T) {
	logger, err := storage.NewSQLiteLogger(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLogger failed: %v", err)
	}
	defer logger.Close()

	g := graph.Create(graph.DefaultOptions())
	for i := 0; i < 30; i++ {
		if err := g.RunEpisode([]byte("cat"), []byte("cat")); err != nil {
			t.Fatalf("RunEpisode (training) failed: %v", err)
		}
	}
	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("RunEpisode (generation) failed: %v", err)
	}

	if err := logger.LogEpisode(g, 3); err != nil {
		t.Fatalf("LogEpisode failed: %v", err)
	}

	var stepCount, outputLen int
	var errorRate float64
	err = logger.DBForTest().QueryRow(
		"SELECT StepCount, OutputLength, ErrorRate FROM EpisodeSnapshots WHERE SnapshotID = 1",
	).Scan(&stepCount, &outputLen, &errorRate)
	if err != nil {
		t.Fatalf("querying EpisodeSnapshots: %v", err)
	}
	if stepCount != 3 {
		t.Errorf("expected StepCount 3, got %d", stepCount)
	}
	if outputLen != len(g.GetOutput()) {
		t.Errorf("expected OutputLength %d, got %d", len(g.GetOutput()), outputLen)
	}
}

func TestSQLiteLogger_Close(t *testing.T) {
	loggerMem, err := storage.NewSQLiteLogger(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteLogger(:memory:) failed: %v", err)
	}
	if err := loggerMem.Close(); err != nil {
		t.Errorf("Close() on in-memory DB failed: %v", err)
	}
	if err := loggerMem.Close(); err != nil {
		t.Errorf("repeated Close() on in-memory DB failed: %v", err)
	}

	tempDir := t.TempDir()
	dbFilePath := filepath.Join(tempDir, "test_close.db")

	loggerFile, err := storage.NewSQLiteLogger(dbFilePath)
	if err != nil {
		t.Fatalf("NewSQLiteLogger (file) failed: %v", err)
	}
	if _, errStat := os.Stat(dbFilePath); os.IsNotExist(errStat) {
		t.Fatalf("DB file %s was not created", dbFilePath)
	}
	if err := loggerFile.Close(); err != nil {
		t.Errorf("Close() on file DB failed: %v", err)
	}
}
