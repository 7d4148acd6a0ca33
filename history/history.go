// Package history keeps a sqlite journal of harmony runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one journal entry
type Run struct {
	ID            int64
	StartedAt     time.Time
	Input         string
	Output        string
	Key           string
	KeyConfidence float64
	KeySource     string
	Harmonies     []string
	Shifter       string
	PitchEngine   string
	Elapsed       time.Duration
	Status        string // "ok" or "failed"
	FailedStage   string
	Error         string
}

// Journal stores runs in a sqlite database
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at INTEGER NOT NULL,
	input TEXT NOT NULL,
	output TEXT NOT NULL DEFAULT '',
	key_name TEXT NOT NULL DEFAULT '',
	key_confidence REAL NOT NULL DEFAULT 0,
	key_source TEXT NOT NULL DEFAULT '',
	harmonies TEXT NOT NULL DEFAULT '',
	shifter TEXT NOT NULL DEFAULT '',
	pitch_engine TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens or creates the journal at path
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends run and returns its id
func (j *Journal) Record(ctx context.Context, run Run) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, input, output, key_name, key_confidence, key_source,
			harmonies, shifter, pitch_engine, elapsed_ms, status, failed_stage, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UnixMilli(), run.Input, run.Output, run.Key, run.KeyConfidence, run.KeySource,
		strings.Join(run.Harmonies, ","), run.Shifter, run.PitchEngine, run.Elapsed.Milliseconds(),
		run.Status, run.FailedStage, run.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// List returns up to limit runs, newest first
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, input, output, key_name, key_confidence, key_source,
			harmonies, shifter, pitch_engine, elapsed_ms, status, failed_stage, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, elapsed int64
		var harmonies string
		if err := rows.Scan(&r.ID, &started, &r.Input, &r.Output, &r.Key, &r.KeyConfidence, &r.KeySource,
			&harmonies, &r.Shifter, &r.PitchEngine, &elapsed, &r.Status, &r.FailedStage, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		if harmonies != "" {
			r.Harmonies = strings.Split(harmonies, ",")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
