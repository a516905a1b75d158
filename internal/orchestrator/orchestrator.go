// Package orchestrator runs the fetch, score and persist sequence for one
// lead under a hard time budget, and drives sequential batches of leads.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/ledger"
	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/scoring"
	"github.com/sells-group/lead-scorer/internal/store"
)

// DefaultTimeout is the wall-clock budget for scoring one lead.
const DefaultTimeout = 5 * time.Second

// statusWriteTimeout bounds the Failed status write that follows a failed
// attempt. It runs outside the per-lead budget.
const statusWriteTimeout = 2 * time.Second

// DefaultDLQMaxRetries is the retry budget given to new DLQ entries.
const DefaultDLQMaxRetries = 3

// Orchestrator composes the guarded ledger and the calculator. One
// Orchestrator may be shared by concurrent callers; all mutable state lives
// in the breaker.
type Orchestrator struct {
	ledger        ledger.Ledger
	breaker       *resilience.CircuitBreaker
	calc          *scoring.Calculator
	store         store.Store
	timeout       time.Duration
	dlqMaxRetries int
	nowFunc       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore attaches a store for run history, the DLQ and breaker
// persistence.
func WithStore(st store.Store) Option {
	return func(o *Orchestrator) { o.store = st }
}

// WithTimeout overrides the per-lead budget.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCalculator overrides the calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.calc = c
		}
	}
}

// WithDLQMaxRetries sets the retry budget of new DLQ entries.
func WithDLQMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.dlqMaxRetries = n
		}
	}
}

// New creates an orchestrator over a guarded ledger. The ledger's breaker
// is the one reported by BreakerStatus and cleared by ResetBreaker.
func New(g *ledger.Guarded, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:        g,
		breaker:       g.Breaker(),
		calc:          scoring.NewCalculator(nil),
		timeout:       DefaultTimeout,
		dlqMaxRetries: DefaultDLQMaxRetries,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Timeout returns the per-lead budget.
func (o *Orchestrator) Timeout() time.Duration {
	return o.timeout
}

// ScoreOne fetches both fact sets for leadID, scores them and writes the
// result back, all under the per-lead budget. On timeout it returns a
// *scoring.TimeoutError and no score is written; like any other failure that reached
// the lead, it is followed by a Failed status write. While the breaker is open it
// returns a *resilience.BreakerOpenError without touching the ledger.
func (o *Orchestrator) ScoreOne(ctx context.Context, leadID string) (*model.ScoringResult, error) {
	if leadID == "" {
		return nil, &scoring.ValidationError{Field: "lead_id", Msg: "is empty"}
	}
	log := zap.L().With(zap.String("lead_id", leadID))

	if err := o.breaker.Ready(); err != nil {
		log.Warn("orchestrator: breaker open, skipping lead", zap.Error(err))
		return nil, err
	}

	start := o.nowFunc()
	result, err := o.scoreWithin(ctx, leadID, start)
	o.persistBreaker(ctx)

	elapsed := o.nowFunc().Sub(start)
	if err != nil {
		switch Classify(err) {
		case CauseTimeout:
			log.Error("orchestrator: scoring timed out",
				zap.Duration("elapsed", elapsed), zap.Duration("limit", o.timeout))
		case CauseCircuitBreaker:
			log.Error("orchestrator: breaker blocked scoring", zap.Error(err))
		default:
			log.Error("orchestrator: scoring failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		}
		o.markFailed(ctx, leadID, err)
		return nil, err
	}

	log.Info("orchestrator: scored lead",
		zap.Int("lead_score", result.LeadScore),
		zap.String("tier", string(result.Tier)),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (o *Orchestrator) scoreWithin(parent context.Context, leadID string, start time.Time) (*model.ScoringResult, error) {
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	defer cancel()

	baseline, err := o.ledger.FetchBaseline(ctx, leadID)
	if err != nil {
		return nil, o.deadlineOr(ctx, leadID, start, eris.Wrap(err, "orchestrator: fetch baseline"))
	}
	enrichment, err := o.ledger.FetchEnrichment(ctx, leadID)
	if err != nil {
		return nil, o.deadlineOr(ctx, leadID, start, eris.Wrap(err, "orchestrator: fetch enrichment"))
	}

	result, err := o.calc.Score(model.NewScoringInput(leadID, baseline, enrichment))
	if err != nil {
		return nil, err
	}

	// The write is skipped once the budget is spent.
	if ctx.Err() != nil {
		return nil, o.deadlineOr(ctx, leadID, start, ctx.Err())
	}
	if err := o.ledger.WriteScore(ctx, leadID, result); err != nil {
		return nil, o.deadlineOr(ctx, leadID, start, eris.Wrap(err, "orchestrator: write score"))
	}
	return result, nil
}

// deadlineOr converts err into a TimeoutError when the per-lead deadline
// has passed.
func (o *Orchestrator) deadlineOr(ctx context.Context, leadID string, start time.Time, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &scoring.TimeoutError{
			LeadID:  leadID,
			Budget:  o.timeout,
			Elapsed: o.nowFunc().Sub(start),
			Err:     err,
		}
	}
	return err
}

// markFailed records Scoring Status = Failed for a lead whose attempt
// failed, leaving every score field as it was. Breaker-open and not-found
// failures are skipped: the first never reached the ledger and the second
// has no page to mark. Errors are logged only.
func (o *Orchestrator) markFailed(ctx context.Context, leadID string, cause error) {
	if Classify(cause) == CauseCircuitBreaker || errors.Is(cause, scoring.ErrLeadNotFound) {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err := o.ledger.WriteStatus(wctx, leadID, model.ScoringStatusFailed); err != nil {
		zap.L().Warn("orchestrator: failed to record failed scoring status",
			zap.String("lead_id", leadID), zap.Error(err))
	}
}

// TriggerAfterEnrichment scores a lead right after its enrichment
// completed. Scoring is advisory relative to enrichment, so every failure
// is logged and swallowed and a nil result is returned.
func (o *Orchestrator) TriggerAfterEnrichment(ctx context.Context, leadID string) *model.ScoringResult {
	log := zap.L().With(zap.String("lead_id", leadID), zap.String("trigger", "enrichment"))
	log.Info("orchestrator: auto-scoring enriched lead")

	result, err := o.ScoreOne(ctx, leadID)
	if err != nil {
		log.Warn("orchestrator: auto-score failed, lead can be rescored later",
			zap.String("cause", string(Classify(err))),
			zap.Error(err),
		)
		o.enqueueDLQ(ctx, "", leadID, err)
		return nil
	}
	o.resolveDLQ(ctx, leadID)
	return result
}

// BreakerStatus reports the ledger breaker.
func (o *Orchestrator) BreakerStatus() resilience.BreakerStatus {
	return o.breaker.Status()
}

// ResetBreaker closes the ledger breaker and persists the cleared state.
func (o *Orchestrator) ResetBreaker(ctx context.Context) {
	zap.L().Info("orchestrator: resetting ledger breaker")
	o.breaker.Reset()
	o.persistBreaker(ctx)
}

// persistBreaker saves the breaker snapshot so later CLI invocations see
// the same state. Failures are logged only.
func (o *Orchestrator) persistBreaker(ctx context.Context) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveBreaker(context.WithoutCancel(ctx), store.LedgerBreaker, o.breaker.Snapshot()); err != nil {
		zap.L().Warn("orchestrator: failed to persist breaker state", zap.Error(err))
	}
}

func (o *Orchestrator) enqueueDLQ(ctx context.Context, runID, leadID string, cause error) {
	if o.store == nil {
		return
	}
	now := o.nowFunc().UTC()
	entry := resilience.DLQEntry{
		LeadID:       leadID,
		RunID:        runID,
		Error:        cause.Error(),
		ErrorType:    resilience.ClassifyError(cause),
		Cause:        string(Classify(cause)),
		MaxRetries:   o.dlqMaxRetries,
		NextRetryAt:  now.Add(resilience.NextRetryDelay(0)),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := o.store.EnqueueDLQ(context.WithoutCancel(ctx), entry); err != nil {
		zap.L().Warn("orchestrator: failed to enqueue dlq entry",
			zap.String("lead_id", leadID), zap.Error(err))
	}
}

func (o *Orchestrator) resolveDLQ(ctx context.Context, leadID string) {
	if o.store == nil {
		return
	}
	if err := o.store.RemoveDLQ(context.WithoutCancel(ctx), leadID); err != nil {
		zap.L().Warn("orchestrator: failed to clear dlq entry",
			zap.String("lead_id", leadID), zap.Error(err))
	}
}
