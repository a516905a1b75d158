package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// ErrLeadNotFound is returned when either ledger read finds no record.
var ErrLeadNotFound = eris.New("lead not found")

// ValidationError reports a malformed ScoringInput. Inputs are rejected
// before any scoring math runs and are never clamped.
type ValidationError struct {
	LeadID string
	Field  string
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid scoring input for %q: %s", e.LeadID, e.Msg)
	}
	return fmt.Sprintf("invalid scoring input for %q: %s %s", e.LeadID, e.Field, e.Msg)
}

// TimeoutError reports that a single lead exceeded its scoring budget.
type TimeoutError struct {
	LeadID  string
	Budget  time.Duration
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scoring timeout for lead %s after %s (limit %s)",
		e.LeadID, e.Elapsed.Round(time.Millisecond), e.Budget)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether err (or any error in its chain) is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
