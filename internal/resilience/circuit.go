// Package resilience provides the circuit breaker and retry policy that guard
// calls to the lead ledger.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state. Calls flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has elapsed.
	CircuitOpen
	// CircuitHalfOpen admits a single trial call after the cooldown.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ParseCircuitState is the inverse of CircuitState.String. Unknown values
// parse as closed.
func ParseCircuitState(s string) CircuitState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return CircuitOpen
	case "half-open", "half_open", "halfopen":
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerOpenError is returned instead of calling the dependency while the
// breaker is open. It unwraps to ErrCircuitOpen.
type BreakerOpenError struct {
	Failures  int
	Threshold int
	Cooldown  time.Duration
	RetryIn   time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open (%d/%d consecutive failures, retry in %s)",
		e.Failures, e.Threshold, e.RetryIn.Round(time.Second))
}

func (e *BreakerOpenError) Unwrap() error {
	return ErrCircuitOpen
}

// IsBreakerOpen reports whether err (or any error in its chain) is a
// breaker rejection.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before a trial is
	// admitted. Default: 60s.
	Cooldown time.Duration

	// OnStateChange is called when the circuit transitions between states.
	// It runs with the breaker lock held and must not call back into the
	// breaker.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the ledger defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
	}
}

// BreakerStatus is a point-in-time view of a breaker.
type BreakerStatus struct {
	State     CircuitState  `json:"-"`
	StateName string        `json:"state"`
	Failures  int           `json:"consecutive_failures"`
	Threshold int           `json:"threshold"`
	Cooldown  time.Duration `json:"cooldown"`
	OpenedAt  *time.Time    `json:"opened_at,omitempty"`
	RetryIn   time.Duration `json:"retry_in,omitempty"`
}

// BreakerSnapshot is the persistable part of breaker state.
type BreakerSnapshot struct {
	State    CircuitState
	Failures int
	OpenedAt time.Time
}

// CircuitBreaker counts consecutive failures of one dependency. Every
// read-modify-write of its state happens under mu, so one breaker may be
// shared by concurrent callers.
type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	mu    sync.Mutex
	state CircuitState

	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		cfg:     cfg,
		state:   CircuitClosed,
		nowFunc: time.Now,
	}
}

// Execute runs fn through the circuit breaker. It returns a
// *BreakerOpenError without calling fn while the circuit is open. Any error
// from fn counts as a failure; any success resets the counter.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.Record(err)
	return err
}

// ExecuteVal is like Execute but preserves a return value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.Allow(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	cb.Record(err)
	return val, err
}

// Allow reports whether a call may proceed. Once the cooldown has elapsed an
// open circuit moves to half-open with the counter zeroed, and exactly one
// trial is admitted until its result is recorded.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		elapsed := cb.nowFunc().Sub(cb.openedAt)
		if elapsed < cb.cfg.Cooldown {
			return cb.openErr(cb.cfg.Cooldown - elapsed)
		}
		cb.transition(CircuitHalfOpen)
		cb.consecutiveFailures = 0
		cb.trialInFlight = true
		return nil
	case CircuitHalfOpen:
		if cb.trialInFlight {
			return cb.openErr(0)
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// Ready is a read-only pre-check. It returns a *BreakerOpenError while the
// circuit is open and the cooldown has not elapsed, without consuming the
// half-open trial.
func (cb *CircuitBreaker) Ready() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if elapsed := cb.nowFunc().Sub(cb.openedAt); elapsed < cb.cfg.Cooldown {
			return cb.openErr(cb.cfg.Cooldown - elapsed)
		}
	}
	return nil
}

// Record updates the breaker with the outcome of an admitted call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialInFlight = false

	if err == nil {
		cb.consecutiveFailures = 0
		cb.openedAt = time.Time{}
		if cb.state != CircuitClosed {
			cb.transition(CircuitClosed)
		}
		return
	}

	cb.consecutiveFailures++

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.openedAt = cb.nowFunc()
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// A failed trial reopens with a fresh cooldown.
		cb.openedAt = cb.nowFunc()
		cb.transition(CircuitOpen)
	}
}

// State returns the current circuit state. An open circuit whose cooldown has
// elapsed reports half-open, since the next call will be admitted as a trial.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.effectiveState()
}

// Status returns a snapshot suitable for display.
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := cb.effectiveState()
	status := BreakerStatus{
		State:     st,
		StateName: st.String(),
		Failures:  cb.consecutiveFailures,
		Threshold: cb.cfg.FailureThreshold,
		Cooldown:  cb.cfg.Cooldown,
	}
	if !cb.openedAt.IsZero() {
		opened := cb.openedAt
		status.OpenedAt = &opened
		if st == CircuitOpen {
			status.RetryIn = cb.cfg.Cooldown - cb.nowFunc().Sub(cb.openedAt)
		}
	}
	return status
}

// Reset forces the circuit back to closed. Used for manual recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.openedAt = time.Time{}
	cb.trialInFlight = false
	if cb.state != CircuitClosed {
		cb.transition(CircuitClosed)
	}
}

// Counters returns the current failure count and state for observability.
func (cb *CircuitBreaker) Counters() (consecutiveFailures int, state CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures, cb.state
}

// Snapshot returns the persistable breaker state.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:    cb.state,
		Failures: cb.consecutiveFailures,
		OpenedAt: cb.openedAt,
	}
}

// Restore replaces the breaker state with a previously taken snapshot. A
// restored half-open state has no trial in flight.
func (cb *CircuitBreaker) Restore(s BreakerSnapshot) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = s.State
	cb.consecutiveFailures = max(s.Failures, 0)
	cb.openedAt = s.OpenedAt
	cb.trialInFlight = false
	if cb.state == CircuitOpen && cb.openedAt.IsZero() {
		cb.openedAt = cb.nowFunc()
	}
}

// Config returns the breaker configuration.
func (cb *CircuitBreaker) Config() CircuitBreakerConfig {
	return cb.cfg
}

func (cb *CircuitBreaker) effectiveState() CircuitState {
	if cb.state == CircuitOpen && cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		return CircuitHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) openErr(retryIn time.Duration) error {
	return &BreakerOpenError{
		Failures:  cb.consecutiveFailures,
		Threshold: cb.cfg.FailureThreshold,
		Cooldown:  cb.cfg.Cooldown,
		RetryIn:   retryIn,
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
