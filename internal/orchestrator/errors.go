package orchestrator

import (
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

// Cause tags a per-lead failure in batch reports and the DLQ.
type Cause string

const (
	CauseTimeout        Cause = "timeout"
	CauseCircuitBreaker Cause = "circuit_breaker"
	CauseValidation     Cause = "validation"
	CauseGeneral        Cause = "general"
)

// Classify maps a scoring error to its cause tag. Nil maps to "".
func Classify(err error) Cause {
	switch {
	case err == nil:
		return ""
	case scoring.IsTimeout(err):
		return CauseTimeout
	case resilience.IsBreakerOpen(err):
		return CauseCircuitBreaker
	case scoring.IsValidation(err):
		return CauseValidation
	default:
		return CauseGeneral
	}
}
