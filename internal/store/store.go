// Package store persists local operational state: the ledger breaker
// snapshot, batch run history and the dead letter queue of failed leads.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// LedgerBreaker is the breaker name used for the lead ledger.
const LedgerBreaker = "ledger"

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for scoring state.
type Store interface {
	// Breaker state
	SaveBreaker(ctx context.Context, name string, snap resilience.BreakerSnapshot) error
	LoadBreaker(ctx context.Context, name string) (*resilience.BreakerSnapshot, error)

	// Runs
	CreateRun(ctx context.Context) (*model.ScoringRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.ScoringRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoringRun, error)

	// Dead letter queue, one entry per lead
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, leadID string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, leadID string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// defaultLimit applies the listing default.
func defaultLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
