package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// store for CLI use, where each invocation opens the same local file.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS breaker_state (
	name       TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	failures   INTEGER NOT NULL DEFAULT 0,
	opened_at  DATETIME,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS scoring_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	lead_id        TEXT NOT NULL UNIQUE,
	run_id         TEXT,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	cause          TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL,
	last_failed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scoring_runs_status ON scoring_runs(status);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_created_at ON scoring_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_dlq_error_type ON dead_letter_queue(error_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Breaker state

func (s *SQLiteStore) SaveBreaker(ctx context.Context, name string, snap resilience.BreakerSnapshot) error {
	var openedAt sql.NullTime
	if !snap.OpenedAt.IsZero() {
		openedAt = sql.NullTime{Time: snap.OpenedAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO breaker_state (name, state, failures, opened_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   state = excluded.state, failures = excluded.failures,
		   opened_at = excluded.opened_at, updated_at = excluded.updated_at`,
		name, snap.State.String(), snap.Failures, openedAt, s.nowFunc(),
	)
	return eris.Wrapf(err, "sqlite: save breaker %s", name)
}

// LoadBreaker returns nil, nil when no snapshot has been saved.
func (s *SQLiteStore) LoadBreaker(ctx context.Context, name string) (*resilience.BreakerSnapshot, error) {
	var state string
	var snap resilience.BreakerSnapshot
	var openedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT state, failures, opened_at FROM breaker_state WHERE name = ?`, name,
	).Scan(&state, &snap.Failures, &openedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load breaker %s", name)
	}

	snap.State = resilience.ParseCircuitState(state)
	if openedAt.Valid {
		snap.OpenedAt = openedAt.Time
	}
	return &snap, nil
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.ScoringRun, error) {
	id := uuid.New().String()
	now := s.nowFunc()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scoring_runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.ScoringRun{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON sql.NullString
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scoring_runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), summaryJSON, s.nowFunc(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScoringRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM scoring_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoringRun, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM scoring_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	limit := defaultLimit(filter.Limit)
	var runs []model.ScoringRun
	for rows.Next() && len(runs) < limit {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Dead letter queue

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := s.nowFunc()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastFailedAt.IsZero() {
		entry.LastFailedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue
		 (id, lead_id, run_id, error, error_type, cause, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (lead_id) DO UPDATE SET
		   run_id = excluded.run_id, error = excluded.error, error_type = excluded.error_type,
		   cause = excluded.cause, next_retry_at = excluded.next_retry_at,
		   last_failed_at = excluded.last_failed_at`,
		entry.ID, entry.LeadID, entry.RunID, entry.Error, entry.ErrorType, entry.Cause,
		entry.RetryCount, entry.MaxRetries, entry.NextRetryAt.UTC(),
		entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: enqueue dlq %s", entry.LeadID)
}

// DequeueDLQ returns entries that are due for a retry, oldest due first.
func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	all, err := s.queryDLQ(ctx, filter.ErrorType, `ORDER BY next_retry_at ASC`)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	limit := defaultLimit(filter.Limit)
	var due []resilience.DLQEntry
	for _, e := range all {
		if len(due) >= limit {
			break
		}
		if e.Due(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

// ListDLQ returns all entries, most recent failure first.
func (s *SQLiteStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	all, err := s.queryDLQ(ctx, filter.ErrorType, `ORDER BY last_failed_at DESC`)
	if err != nil {
		return nil, err
	}
	if limit := defaultLimit(filter.Limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *SQLiteStore) queryDLQ(ctx context.Context, errorType, order string) ([]resilience.DLQEntry, error) {
	query := `SELECT id, lead_id, run_id, error, error_type, cause, retry_count, max_retries,
	          next_retry_at, created_at, last_failed_at FROM dead_letter_queue WHERE 1=1`
	var args []any
	if errorType != "" {
		query += ` AND error_type = ?`
		args = append(args, errorType)
	}
	query += " " + order

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query dlq")
	}
	defer rows.Close() //nolint:errcheck

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var runID, cause sql.NullString
		if err := rows.Scan(&e.ID, &e.LeadID, &runID, &e.Error, &e.ErrorType, &cause,
			&e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		e.RunID = runID.String
		e.Cause = cause.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: query dlq iterate")
}

func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, leadID string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE lead_id = ?`,
		nextRetryAt.UTC(), lastErr, s.nowFunc(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", leadID)
	}
	return checkRowsAffected(res, "dlq entry", leadID)
}

// RemoveDLQ deletes the entry for leadID. Removing a missing entry is not an
// error, so callers can clear the queue after any successful score.
func (s *SQLiteStore) RemoveDLQ(ctx context.Context, leadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE lead_id = ?`, leadID)
	return eris.Wrapf(err, "sqlite: remove dlq %s", leadID)
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ScoringRun, error) {
	var r model.ScoringRun
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid && summaryJSON.String != "" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
