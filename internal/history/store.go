// Package history persists run summaries and per-file results to a local
// SQLite database, so past batches can be inspected without digging
// through log files.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/ocrbatch/internal/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	profile     TEXT NOT NULL,
	input_dir   TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_files (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	path         TEXT NOT NULL,
	output_path  TEXT NOT NULL DEFAULT '',
	sidecar_path TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	exit_code    INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL,
	diagnostics  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_files_run_id ON run_files(run_id);
`

// Run is one recorded batch run.
type Run struct {
	ID        string
	Profile   string
	InputDir  string
	StartedAt time.Time
	Elapsed   time.Duration
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Store wraps the SQLite run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists a finished run and its per-file results in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, results []runner.FileResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, profile, input_dir, started_at, elapsed_ms, total, succeeded, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Profile, run.InputDir, run.StartedAt.UTC(), run.Elapsed.Milliseconds(),
		run.Total, run.Succeeded, run.Failed, run.Skipped)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_files (run_id, path, output_path, sidecar_path, status, exit_code, duration_ms, diagnostics)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		diagnostics := ""
		if res.Status == runner.StatusFailed {
			diagnostics = res.Output
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, res.Item.Path, res.Item.OutputPath, res.Item.SidecarPath,
			string(res.Status), res.ExitCode,
			res.Duration.Milliseconds(), diagnostics); err != nil {
			return fmt.Errorf("insert file result: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile, input_dir, started_at, elapsed_ms, total, succeeded, failed, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var elapsedMS int64
		if err := rows.Scan(&run.ID, &run.Profile, &run.InputDir, &run.StartedAt,
			&elapsedMS, &run.Total, &run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// FileResults returns the per-file outcomes recorded for one run.
func (s *Store) FileResults(ctx context.Context, runID string) ([]runner.FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, output_path, sidecar_path, status, exit_code, duration_ms, diagnostics
		 FROM run_files WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query file results: %w", err)
	}
	defer rows.Close()

	var results []runner.FileResult
	for rows.Next() {
		var res runner.FileResult
		var status string
		var durationMS int64
		if err := rows.Scan(&res.Item.Path, &res.Item.OutputPath, &res.Item.SidecarPath,
			&status, &res.ExitCode, &durationMS, &res.Output); err != nil {
			return nil, fmt.Errorf("scan file result: %w", err)
		}
		res.Status = runner.FileStatus(status)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}

	return results, rows.Err()
}
