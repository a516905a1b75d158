package model

import "time"

// RunStatus represents the state of a batch scoring run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
	RunStatusFailed   RunStatus = "failed"
)

// ScoringRun is the stored record of one batch invocation.
type ScoringRun struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the aggregate counts of a finished batch.
type RunSummary struct {
	Total          int                  `json:"total"`
	Succeeded      int                  `json:"succeeded"`
	Failed         int                  `json:"failed"`
	TimedOut       int                  `json:"timed_out"`
	BreakerBlocked int                  `json:"breaker_blocked"`
	Aborted        bool                 `json:"aborted"`
	Distribution   map[PriorityTier]int `json:"distribution,omitempty"`
	DurationMs     int64                `json:"duration_ms"`
}

// FailRate returns failed / total, or 0 for an empty run.
func (s *RunSummary) FailRate() float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Total)
}
