// Package monitoring collects scoring health metrics from the state store
// and the ledger breaker, and posts alerts to a webhook when thresholds are
// breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/store"
)

// MetricsSnapshot holds a point-in-time view of scoring health.
type MetricsSnapshot struct {
	// Batch runs (within lookback window).
	RunsTotal    int `json:"runs_total"`
	RunsComplete int `json:"runs_complete"`
	RunsAborted  int `json:"runs_aborted"`
	RunsRunning  int `json:"runs_running"`

	// Leads across finished runs (within lookback window).
	LeadsSucceeded int     `json:"leads_succeeded"`
	LeadsFailed    int     `json:"leads_failed"`
	LeadsTimedOut  int     `json:"leads_timed_out"`
	LeadFailRate   float64 `json:"lead_fail_rate"`

	// DLQ depth.
	DLQDepth int `json:"dlq_depth"`

	// Ledger breaker.
	BreakerState    string `json:"breaker_state"`
	BreakerFailures int    `json:"breaker_failures"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// BreakerSource reports the ledger breaker. The orchestrator satisfies it.
type BreakerSource interface {
	BreakerStatus() resilience.BreakerStatus
}

// Collector gathers metrics from the store and the breaker.
type Collector struct {
	store   store.Store
	breaker BreakerSource
}

// NewCollector creates a new metrics collector. breaker may be nil.
func NewCollector(st store.Store, breaker BreakerSource) *Collector {
	return &Collector{store: st, breaker: breaker}
}

// Collect gathers a snapshot of scoring metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusAborted:
			snap.RunsAborted++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if r.Summary != nil {
			snap.LeadsSucceeded += r.Summary.Succeeded
			snap.LeadsFailed += r.Summary.Failed
			snap.LeadsTimedOut += r.Summary.TimedOut
		}
	}
	if finished := snap.LeadsSucceeded + snap.LeadsFailed; finished > 0 {
		snap.LeadFailRate = float64(snap.LeadsFailed) / float64(finished)
	}

	dlqCount, err := c.store.CountDLQ(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count dlq")
	}
	snap.DLQDepth = dlqCount

	if c.breaker != nil {
		status := c.breaker.BreakerStatus()
		snap.BreakerState = status.State.String()
		snap.BreakerFailures = status.Failures
	}

	return snap, nil
}
