package ledger

import (
	"context"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

// Guarded wraps a Ledger with the retry policy and the circuit breaker. A
// call is retried on transient errors first; only the final outcome of the
// retried call is recorded by the breaker, whatever the failure kind. The
// exception is a ValidationError about stored lead data: the ledger answered,
// so the breaker records the call as a success.
type Guarded struct {
	inner   Ledger
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewGuarded returns a guarded ledger. The breaker is owned by the caller so
// it can be inspected, persisted and reset.
func NewGuarded(inner Ledger, breaker *resilience.CircuitBreaker, retry resilience.RetryConfig) *Guarded {
	return &Guarded{inner: inner, breaker: breaker, retry: retry}
}

// Breaker returns the breaker guarding this ledger.
func (g *Guarded) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

func (g *Guarded) FetchBaseline(ctx context.Context, leadID string) (*model.BaselineFacts, error) {
	return guard(ctx, g, "fetch_baseline", leadID, func(ctx context.Context) (*model.BaselineFacts, error) {
		return g.inner.FetchBaseline(ctx, leadID)
	})
}

func (g *Guarded) FetchEnrichment(ctx context.Context, leadID string) (*model.EnrichmentFacts, error) {
	return guard(ctx, g, "fetch_enrichment", leadID, func(ctx context.Context) (*model.EnrichmentFacts, error) {
		return g.inner.FetchEnrichment(ctx, leadID)
	})
}

func (g *Guarded) WriteScore(ctx context.Context, leadID string, result *model.ScoringResult) error {
	_, err := guard(ctx, g, "write_score", leadID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.WriteScore(ctx, leadID, result)
	})
	return err
}

// WriteStatus is a single attempt gated on the breaker being ready. Its
// outcome is not recorded, so marking a failed lead never counts as a
// second breaker failure for the same lead.
func (g *Guarded) WriteStatus(ctx context.Context, leadID string, status model.ScoringStatus) error {
	if err := g.breaker.Ready(); err != nil {
		return err
	}
	return g.inner.WriteStatus(ctx, leadID, status)
}

// ListLeadIDs is retried but not breaker-gated: listing is an operator
// action, not a per-lead scoring step.
func (g *Guarded) ListLeadIDs(ctx context.Context, opts ListOptions) ([]string, error) {
	cfg := g.retry
	cfg.OnRetry = resilience.RetryLogger("list_leads", "")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]string, error) {
		return g.inner.ListLeadIDs(ctx, opts)
	})
}

func guard[T any](ctx context.Context, g *Guarded, op, leadID string, fn func(context.Context) (T, error)) (T, error) {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(op, leadID)
	}
	var invalid error
	val, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (T, error) {
		v, err := resilience.DoVal(ctx, cfg, fn)
		if scoring.IsValidation(err) {
			invalid = err
			return v, nil
		}
		return v, err
	})
	if invalid != nil {
		return val, invalid
	}
	return val, err
}
