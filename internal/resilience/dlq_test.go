package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDLQEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"below max", 0, 3, true},
		{"at max", 3, 3, false},
		{"above max", 5, 3, false},
		{"one below max", 2, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := DLQEntry{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			assert.Equal(t, tt.want, e.CanRetry())
		})
	}
}

func TestDLQEntry_Due(t *testing.T) {
	now := time.Now()
	e := DLQEntry{LeadID: "lead-1", MaxRetries: 3, NextRetryAt: now.Add(time.Minute)}

	assert.False(t, e.Due(now))
	assert.True(t, e.Due(now.Add(time.Minute)))

	e.RetryCount = 3
	assert.False(t, e.Due(now.Add(time.Hour)))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transient error", NewTransientError(errors.New("503"), 503), ErrorTypeTransient},
		{"permanent error", errors.New("invalid input"), ErrorTypePermanent},
		{"connection reset", errors.New("connection reset by peer"), ErrorTypeTransient},
		{"breaker open", &BreakerOpenError{Failures: 5, Threshold: 5}, ErrorTypeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestNextRetryDelay(t *testing.T) {
	first := NextRetryDelay(0)
	assert.Equal(t, time.Minute, first)
	assert.Equal(t, 4*time.Minute, NextRetryDelay(2))
	assert.Equal(t, time.Hour, NextRetryDelay(20))
}
