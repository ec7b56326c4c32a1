// Package store persists run audit trails in SQLite. Every step of every
// run is recorded so converged formulations and failure histories can be
// inspected after the fact. Uses the pure-Go sqlite driver; no cgo.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/refine"
)

// RunStore is a SQLite-backed audit trail. SQLite allows one writer at a
// time; writes serialize on a mutex.
type RunStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	status      TEXT NOT NULL,
	steps       INTEGER NOT NULL,
	consumed    INTEGER NOT NULL,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id      TEXT NOT NULL,
	step_index  INTEGER NOT NULL,
	domain      TEXT NOT NULL,
	status      TEXT NOT NULL,
	source      TEXT NOT NULL,
	violations  TEXT NOT NULL,
	free_retry  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (run_id, step_index)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_steps_run ON run_steps(run_id);
`

// Open opens (creating if needed) the run store at path.
func Open(path string) (*RunStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logging.Store("run store open at %s", path)
	return &RunStore{db: db}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordStep persists one iteration of a run.
func (s *RunStore) RecordStep(ctx context.Context, runID uuid.UUID, domainName string, step refine.Step) error {
	violations, err := json.Marshal(step.Report.Violations)
	if err != nil {
		return fmt.Errorf("encode violations: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_steps
			(run_id, step_index, domain, status, source, violations, free_retry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), step.Index, domainName, string(step.Report.Status),
		step.Candidate.SourceText, string(violations),
		boolInt(step.FreeRetry), step.Candidate.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	logging.StoreDebug("recorded step %d of run %s", step.Index, runID)
	return nil
}

// RecordRun persists (or updates) a run's terminal record.
func (s *RunStore) RecordRun(ctx context.Context, res refine.Result) error {
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	var finished sql.NullString
	if !res.Finished.IsZero() {
		finished = sql.NullString{String: res.Finished.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, domain, status, steps, consumed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.Domain, string(res.Status),
		len(res.Steps), res.ConsumedIterations(), errText,
		res.Started.UTC().Format(time.RFC3339Nano), finished,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	logging.Store("recorded run %s: %s", res.ID, res.Status)
	return nil
}

// RunRecord is a stored run summary.
type RunRecord struct {
	ID       string
	Domain   string
	Status   string
	Steps    int
	Consumed int
	Error    string
	Started  time.Time
	Finished time.Time
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, status, steps, consumed, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var errText, started, finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Domain, &r.Status, &r.Steps, &r.Consumed, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Error = errText.String
		if started.Valid {
			r.Started, _ = time.Parse(time.RFC3339Nano, started.String)
		}
		if finished.Valid {
			r.Finished, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StepRecord is one stored iteration.
type StepRecord struct {
	RunID     string
	Index     int
	Status    string
	Source    string
	FreeRetry bool
	Created   time.Time
}

// ListSteps returns a run's steps in order.
func (s *RunStore) ListSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step_index, status, source, free_retry, created_at
		FROM run_steps WHERE run_id = ? ORDER BY step_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var r StepRecord
		var free int
		var created string
		if err := rows.Scan(&r.RunID, &r.Index, &r.Status, &r.Source, &free, &created); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		r.FreeRetry = free != 0
		r.Created, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
