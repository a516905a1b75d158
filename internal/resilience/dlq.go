package resilience

import (
	"time"
)

// Error type labels stored on DLQ entries.
const (
	ErrorTypeTransient = "transient"
	ErrorTypePermanent = "permanent"
)

// DLQEntry is a lead whose scoring failed and can be rescored later.
type DLQEntry struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id"`
	RunID        string    `json:"run_id,omitempty"`
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"`
	Cause        string    `json:"cause,omitempty"`
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	NextRetryAt  time.Time `json:"next_retry_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry is below its retry budget.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// Due reports whether the entry may be retried at now.
func (e *DLQEntry) Due(now time.Time) bool {
	return e.CanRetry() && !now.Before(e.NextRetryAt)
}

// ClassifyError labels err as transient or permanent for the DLQ. Breaker
// rejections are transient: the lead itself is fine.
func ClassifyError(err error) string {
	if IsTransient(err) || IsBreakerOpen(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// NextRetryDelay is the backoff before retry n (0-based) of a DLQ entry.
func NextRetryDelay(retryCount int) time.Duration {
	return computeBackoff(retryCount, RetryConfig{
		InitialBackoff: time.Minute,
		MaxBackoff:     time.Hour,
		Multiplier:     2.0,
	})
}
