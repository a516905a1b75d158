package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scorer/internal/db"
	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

// PostgresStore implements Store using a pgx pool. It lets several scorer
// instances (CLI and serve) share breaker state and the DLQ.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS breaker_state (
	name       TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	failures   INTEGER NOT NULL DEFAULT 0,
	opened_at  TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scoring_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id        TEXT NOT NULL UNIQUE,
	run_id         TEXT,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	cause          TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scoring_runs_status ON scoring_runs(status);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_created_at ON scoring_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_dlq_error_type ON dead_letter_queue(error_type);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Breaker state

func (s *PostgresStore) SaveBreaker(ctx context.Context, name string, snap resilience.BreakerSnapshot) error {
	var openedAt *time.Time
	if !snap.OpenedAt.IsZero() {
		t := snap.OpenedAt.UTC()
		openedAt = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO breaker_state (name, state, failures, opened_at, updated_at) VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (name) DO UPDATE SET
		   state = EXCLUDED.state, failures = EXCLUDED.failures,
		   opened_at = EXCLUDED.opened_at, updated_at = now()`,
		name, snap.State.String(), snap.Failures, openedAt,
	)
	return eris.Wrapf(err, "postgres: save breaker %s", name)
}

// LoadBreaker returns nil, nil when no snapshot has been saved.
func (s *PostgresStore) LoadBreaker(ctx context.Context, name string) (*resilience.BreakerSnapshot, error) {
	var state string
	var snap resilience.BreakerSnapshot
	var openedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT state, failures, opened_at FROM breaker_state WHERE name = $1`, name,
	).Scan(&state, &snap.Failures, &openedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load breaker %s", name)
	}

	snap.State = resilience.ParseCircuitState(state)
	if openedAt != nil {
		snap.OpenedAt = *openedAt
	}
	return &snap, nil
}

// Runs

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.ScoringRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scoring_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.ScoringRun{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON []byte
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scoring_runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ScoringRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM scoring_runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoringRun, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM scoring_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ScoringRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.ScoringRun, error) {
	var r model.ScoringRun
	var status string
	var summaryJSON []byte

	if err := row.Scan(&r.ID, &status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(summaryJSON) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

// Dead letter queue

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastFailedAt.IsZero() {
		entry.LastFailedAt = now
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue
		 (id, lead_id, run_id, error, error_type, cause, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (lead_id) DO UPDATE SET
		   run_id = $3, error = $4, error_type = $5, cause = $6,
		   next_retry_at = $9, last_failed_at = $11`,
		entry.ID, entry.LeadID, entry.RunID, entry.Error, entry.ErrorType, entry.Cause,
		entry.RetryCount, entry.MaxRetries, entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrapf(err, "postgres: enqueue dlq %s", entry.LeadID)
}

const dlqColumns = `id, lead_id, run_id, error, error_type, cause, retry_count, max_retries, next_retry_at, created_at, last_failed_at`

// DequeueDLQ returns entries that are due for a retry, oldest due first.
func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	return s.queryDLQ(ctx, query, filter, `ORDER BY next_retry_at ASC`)
}

// ListDLQ returns all entries, most recent failure first.
func (s *PostgresStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue WHERE true`
	return s.queryDLQ(ctx, query, filter, `ORDER BY last_failed_at DESC`)
}

func (s *PostgresStore) queryDLQ(ctx context.Context, query string, filter resilience.DLQFilter, order string) ([]resilience.DLQEntry, error) {
	args := []any{}
	argIdx := 1

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}
	query += " " + order
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, defaultLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var runID, cause *string
		if err := rows.Scan(&e.ID, &e.LeadID, &runID, &e.Error, &e.ErrorType, &cause,
			&e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if runID != nil {
			e.RunID = *runID
		}
		if cause != nil {
			e.Cause = *cause
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: query dlq iterate")
}

func (s *PostgresStore) IncrementDLQRetry(ctx context.Context, leadID string, nextRetryAt time.Time, lastErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = $1, error = $2, last_failed_at = now()
		 WHERE lead_id = $3`,
		nextRetryAt, lastErr, leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment dlq retry %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "dlq entry %s", leadID)
	}
	return nil
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, leadID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE lead_id = $1`, leadID)
	return eris.Wrapf(err, "postgres: remove dlq %s", leadID)
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}
