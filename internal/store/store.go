// Package store persists statement results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/firecheck/internal/model"
)

// ErrNotFound is returned when a run ID is unknown
var ErrNotFound = errors.New("run not found")

// Store handles SQLite persistence of check runs.
// All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// RunSummary is the listing view of a stored run
type RunSummary struct {
	RunID          string               `json:"run_id"`
	Statement      string               `json:"statement"`
	OverallVerdict model.OverallVerdict `json:"overall_verdict"`
	Confidence     float64              `json:"confidence"`
	Claims         int                  `json:"claims"`
	Errors         int                  `json:"errors"`
	StartedAt      time.Time            `json:"started_at"`
	Duration       time.Duration        `json:"duration_ns"`
}

// ListOptions filters List
type ListOptions struct {
	Limit   int                  // Default 50
	Verdict model.OverallVerdict // Empty matches all
}

// Open creates a Store at dbPath, creating tables if needed.
// ":memory:" opens a shared in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps every caller on the same in-memory database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		statement TEXT NOT NULL,
		overall_verdict TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		claim_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_verdict ON runs(overall_verdict);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Save stores result, replacing any run with the same ID
func (s *Store) Save(ctx context.Context, result *model.StatementResult) error {
	if result == nil || result.RunID == "" {
		return errors.New("save run: missing run ID")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, statement, overall_verdict, confidence, claim_count,
			error_count, started_at, duration_ns, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Statement,
		string(result.OverallVerdict),
		result.Confidence,
		len(result.Judgments),
		result.ErrorCount(),
		result.StartedAt.UTC(),
		int64(result.Duration),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get returns the full result of a stored run
func (s *Store) Get(ctx context.Context, runID string) (*model.StatementResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var result model.StatementResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &result, nil
}

// List returns run summaries, newest first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT run_id, statement, overall_verdict, confidence, claim_count,
		error_count, started_at, duration_ns FROM runs`
	args := []any{}
	if opts.Verdict != "" {
		query += ` WHERE overall_verdict = ?`
		args = append(args, string(opts.Verdict))
	}
	query += ` ORDER BY started_at DESC, run_id LIMIT ?`
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r        RunSummary
			verdict  string
			duration int64
		)
		if err := rows.Scan(&r.RunID, &r.Statement, &verdict, &r.Confidence, &r.Claims,
			&r.Errors, &r.StartedAt, &duration); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.OverallVerdict = model.OverallVerdict(verdict)
		r.Duration = time.Duration(duration)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Count returns the number of stored runs
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
