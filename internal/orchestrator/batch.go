package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/model"
)

// MaxReportedErrors caps the error details printed in a batch summary.
const MaxReportedErrors = 5

// BatchOptions controls ScoreBatch.
type BatchOptions struct {
	// ContinueOnError keeps going after a timeout, validation or generic
	// failure. A breaker-open failure always stops the batch.
	ContinueOnError bool
}

// ItemError is one failed lead in a batch.
type ItemError struct {
	LeadID  string `json:"lead_id"`
	Cause   Cause  `json:"error_type"`
	Message string `json:"error"`
}

// BatchReport aggregates one ScoreBatch call.
type BatchReport struct {
	RunID   string                 `json:"run_id,omitempty"`
	Summary model.RunSummary       `json:"summary"`
	Results []*model.ScoringResult `json:"results"`
	Errors  []ItemError            `json:"errors"`
}

// FirstErrors returns at most n errors in batch order.
func (r *BatchReport) FirstErrors(n int) []ItemError {
	if len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// Status is the run status recorded for this batch.
func (r *BatchReport) Status() model.RunStatus {
	if r.Summary.Aborted {
		return model.RunStatusAborted
	}
	return model.RunStatusComplete
}

// ScoreBatch scores leadIDs strictly one after another. A breaker-open
// failure aborts the remainder; other failures stop the batch unless
// opts.ContinueOnError is set. Cancelling ctx also aborts the remainder.
// Total is always len(leadIDs), so skipped leads show up as the gap between
// Total and Succeeded+Failed.
func (o *Orchestrator) ScoreBatch(ctx context.Context, leadIDs []string, opts BatchOptions) *BatchReport {
	start := o.nowFunc()
	report := &BatchReport{
		Summary: model.RunSummary{
			Total:        len(leadIDs),
			Distribution: make(map[model.PriorityTier]int),
		},
	}
	log := zap.L().With(zap.String("component", "orchestrator.batch"))

	if o.store != nil {
		run, err := o.store.CreateRun(ctx)
		if err != nil {
			log.Warn("orchestrator: failed to record run", zap.Error(err))
		} else {
			report.RunID = run.ID
			log = log.With(zap.String("run_id", run.ID))
		}
	}
	log.Info("orchestrator: starting batch", zap.Int("total", len(leadIDs)))

	for i, id := range leadIDs {
		if ctx.Err() != nil {
			log.Warn("orchestrator: batch interrupted", zap.Int("remaining", len(leadIDs)-i))
			report.Summary.Aborted = true
			break
		}
		log.Debug("orchestrator: scoring lead",
			zap.Int("index", i+1), zap.Int("total", len(leadIDs)), zap.String("lead_id", id))

		result, err := o.ScoreOne(ctx, id)
		if err == nil {
			report.Summary.Succeeded++
			report.Summary.Distribution[result.Tier]++
			report.Results = append(report.Results, result)
			o.resolveDLQ(ctx, id)
			continue
		}

		cause := Classify(err)
		report.Summary.Failed++
		report.Errors = append(report.Errors, ItemError{LeadID: id, Cause: cause, Message: err.Error()})
		o.enqueueDLQ(ctx, report.RunID, id, err)

		switch cause {
		case CauseTimeout:
			report.Summary.TimedOut++
		case CauseCircuitBreaker:
			report.Summary.BreakerBlocked++
		}

		if cause == CauseCircuitBreaker {
			log.Error("orchestrator: breaker open, aborting batch",
				zap.Int("remaining", len(leadIDs)-i-1))
			report.Summary.Aborted = true
			break
		}
		if !opts.ContinueOnError {
			log.Warn("orchestrator: stopping batch on first error", zap.String("lead_id", id))
			break
		}
	}

	report.Summary.DurationMs = o.nowFunc().Sub(start).Milliseconds()
	o.finishRun(ctx, report)

	log.Info("orchestrator: batch complete",
		zap.Int("total", report.Summary.Total),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("timed_out", report.Summary.TimedOut),
		zap.Int("breaker_blocked", report.Summary.BreakerBlocked),
		zap.Bool("aborted", report.Summary.Aborted),
		zap.Duration("duration", time.Duration(report.Summary.DurationMs)*time.Millisecond),
	)
	return report
}

func (o *Orchestrator) finishRun(ctx context.Context, report *BatchReport) {
	if o.store == nil || report.RunID == "" {
		return
	}
	summary := report.Summary
	if err := o.store.FinishRun(context.WithoutCancel(ctx), report.RunID, report.Status(), &summary); err != nil {
		zap.L().Warn("orchestrator: failed to finish run",
			zap.String("run_id", report.RunID), zap.Error(err))
	}
}
