// Package history keeps a SQLite log of cleaning runs so past deletions can
// be listed after the fact.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/destclean/internal/cleaner"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLimit is the number of runs ListRuns returns when limit <= 0.
const DefaultLimit = 20

// Run is one recorded cleaning run
type Run struct {
	ID           int64
	RunID        string
	Destination  string
	Source       string
	DryRun       bool
	Success      bool
	Files        int
	PatternCount int
	Deleted      []string
	ErrorMessage string
	Duration     time.Duration
	StartedAt    time.Time
}

// FromReport builds a Run from a stage report. A non-nil runErr marks the
// run as failed.
func FromReport(report *cleaner.Report, source string, runErr error) *Run {
	run := &Run{
		RunID:        report.RunID,
		Destination:  report.Destination,
		Source:       source,
		DryRun:       report.DryRun,
		Success:      runErr == nil,
		Files:        report.Files,
		PatternCount: len(report.Patterns),
		Deleted:      report.Deleted,
		Duration:     report.Duration,
		StartedAt:    report.StartedAt,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	return run
}

// Store manages the run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement, backing off on "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun inserts run and sets its ID.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("record run: nil run")
	}
	if run.RunID == "" {
		return fmt.Errorf("record run: missing run id")
	}

	deleted := run.Deleted
	if deleted == nil {
		deleted = []string{}
	}
	deletedJSON, err := json.Marshal(deleted)
	if err != nil {
		return fmt.Errorf("marshal deleted paths: %w", err)
	}

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	query := `INSERT INTO clean_runs
		(run_id, destination, source, dry_run, success, files, pattern_count, deleted_count, deleted, error_message, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Destination,
		run.Source,
		run.DryRun,
		run.Success,
		run.Files,
		run.PatternCount,
		len(deleted),
		string(deletedJSON),
		run.ErrorMessage,
		run.Duration.Milliseconds(),
		startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty destination
// lists runs for every destination.
func (s *Store) ListRuns(ctx context.Context, destination string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, run_id, destination, source, dry_run, success, files, pattern_count, deleted, error_message, duration_ms, started_at
		FROM clean_runs`
	args := []interface{}{}
	if destination != "" {
		query += ` WHERE destination = ?`
		args = append(args, destination)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var deletedJSON string
		var durationMs int64
		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.Destination,
			&run.Source,
			&run.DryRun,
			&run.Success,
			&run.Files,
			&run.PatternCount,
			&deletedJSON,
			&run.ErrorMessage,
			&durationMs,
			&run.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if err := json.Unmarshal([]byte(deletedJSON), &run.Deleted); err != nil {
			return nil, fmt.Errorf("unmarshal deleted paths: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}
