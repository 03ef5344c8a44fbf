// Package storage provides host-side observability around the MelvinGraph
// engine: a SQLite episode log and a CSV exporter for it. spec.md keeps
// "logging and debug channels" out of the core's scope (§1); package graph
// never imports database/sql, and this package never reaches back into
// graph's per-step math, only its already-computed SystemState and output.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"melvingraph/graph"
)

// SQLiteLogger records one row per RunEpisode call to an EpisodeSnapshots
// table: step count, output length, error rate, node/edge/pattern counts,
// and selection confidence, mirroring the teacher's per-cycle
// NetworkSnapshots logger scaled to MelvinGraph's per-episode granularity.
type SQLiteLogger struct {
	db *sql.DB
}

// NewSQLiteLogger opens (creating if necessary) a SQLite database at
// dataSourceName and ensures the EpisodeSnapshots table exists.
func NewSQLiteLogger(dataSourceName string) (*SQLiteLogger, error) {
	dbConn, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %s: %w", dataSourceName, err)
	}
	if err = dbConn.Ping(); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to ping SQLite database at %s: %w", dataSourceName, err)
	}

	logger := &SQLiteLogger{db: dbConn}
	if err = logger.createTables(); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return logger, nil
}

func (sl *SQLiteLogger) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS EpisodeSnapshots (
		SnapshotID INTEGER PRIMARY KEY AUTOINCREMENT,
		Timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		StepCount INTEGER NOT NULL,
		OutputLength INTEGER NOT NULL,
		ErrorRate REAL,
		LearningRate REAL,
		NodeCount INTEGER,
		EdgeCount INTEGER,
		PatternCount INTEGER,
		SelectionConfidence REAL
	);`
	_, err := sl.db.Exec(schema)
	return err
}

// DBForTest exposes the underlying connection for test assertions.
func (sl *SQLiteLogger) DBForTest() *sql.DB {
	return sl.db
}

// LogEpisode inserts one EpisodeSnapshots row reflecting g's state after an
// episode has just run. stepCount is the number of steps the EpisodeDriver
// loop took to produce the current output.
func (sl *SQLiteLogger) LogEpisode(g *graph.Graph, stepCount int) error {
	if sl.db == nil {
		return fmt.Errorf("sqlite logger not initialized")
	}
	_, err := sl.db.Exec(`INSERT INTO EpisodeSnapshots
		(Timestamp, StepCount, OutputLength, ErrorRate, LearningRate, NodeCount, EdgeCount, PatternCount, SelectionConfidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now(),
		stepCount,
		len(g.GetOutput()),
		g.GetErrorRate(),
		g.State.LearningRate,
		g.State.ActiveNodeCount,
		g.State.ActiveEdgeCount,
		g.State.ActivePatternCount,
		g.State.SelectionConfidence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert EpisodeSnapshots row: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (sl *SQLiteLogger) Close() error {
	if sl.db != nil {
		return sl.db.Close()
	}
	return nil
}
