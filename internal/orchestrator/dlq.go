package orchestrator

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/resilience"
)

// DLQRetryReport summarizes one RetryDLQ pass.
type DLQRetryReport struct {
	Attempted int  `json:"attempted"`
	Resolved  int  `json:"resolved"`
	Failed    int  `json:"failed"`
	Aborted   bool `json:"aborted"`
}

// RetryDLQ rescores the DLQ entries that are due, oldest first. A resolved
// entry is removed; a failed one is rescheduled with a longer delay until
// its retry budget is spent. An open breaker stops the pass; the entry it
// blocked never reached the ledger, so it is not counted and keeps its
// retry budget.
func (o *Orchestrator) RetryDLQ(ctx context.Context, filter resilience.DLQFilter) (*DLQRetryReport, error) {
	if o.store == nil {
		return nil, eris.New("orchestrator: dlq retry needs a store")
	}
	entries, err := o.store.DequeueDLQ(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: dequeue dlq")
	}

	report := &DLQRetryReport{}
	for _, e := range entries {
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}
		_, err := o.ScoreOne(ctx, e.LeadID)
		if err != nil && Classify(err) == CauseCircuitBreaker {
			report.Aborted = true
			break
		}
		report.Attempted++

		if err != nil {
			report.Failed++
			next := o.nowFunc().Add(resilience.NextRetryDelay(e.RetryCount + 1))
			if ierr := o.store.IncrementDLQRetry(context.WithoutCancel(ctx), e.LeadID, next, err.Error()); ierr != nil {
				zap.L().Warn("orchestrator: failed to reschedule dlq entry",
					zap.String("lead_id", e.LeadID), zap.Error(ierr))
			}
			continue
		}

		report.Resolved++
		o.resolveDLQ(ctx, e.LeadID)
	}

	zap.L().Info("orchestrator: dlq retry complete",
		zap.Int("attempted", report.Attempted),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed),
		zap.Bool("aborted", report.Aborted),
	)
	return report, nil
}
