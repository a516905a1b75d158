package scoring

import (
	"fmt"

	"github.com/sells-group/lead-scorer/internal/model"
)

// DefaultConfidence is assumed when the ledger carries no confidence value.
// Absent confidence is not penalized.
const DefaultConfidence = model.ConfidenceHigh

// MaxLeadScore caps the final, post-penalty score.
const MaxLeadScore = 120

var confidenceMultipliers = map[model.ConfidenceLevel]float64{
	model.ConfidenceHigh:   1.0,
	model.ConfidenceMedium: 0.9,
	model.ConfidenceLow:    0.7,
}

// ResolveConfidence returns the effective level and its multiplier.
func ResolveConfidence(level model.ConfidenceLevel) (model.ConfidenceLevel, float64) {
	if level == model.ConfidenceAbsent {
		level = DefaultConfidence
	}
	m, ok := confidenceMultipliers[level]
	if !ok {
		return DefaultConfidence, confidenceMultipliers[DefaultConfidence]
	}
	return level, m
}

// ApplyConfidence applies the multiplier once to the component total,
// truncates toward zero, and caps at MaxLeadScore.
func ApplyConfidence(totalBefore int, multiplier float64) int {
	total := int(float64(totalBefore) * multiplier)
	if total > MaxLeadScore {
		total = MaxLeadScore
	}
	if total < 0 {
		total = 0
	}
	return total
}

// ConfidenceFlags lists data-quality warnings. Flags are independent of the
// multiplier and all of them may appear together.
func ConfidenceFlags(in model.ScoringInput, level model.ConfidenceLevel) []string {
	flags := []string{}

	switch level {
	case model.ConfidenceLow:
		flags = append(flags, fmt.Sprintf("Low confidence enrichment data (penalty: %.1fx)", confidenceMultipliers[model.ConfidenceLow]))
	case model.ConfidenceMedium:
		flags = append(flags, fmt.Sprintf("Medium confidence enrichment data (penalty: %.1fx)", confidenceMultipliers[model.ConfidenceMedium]))
	}

	if in.Enrichment.VetCount == nil {
		flags = append(flags, "Missing vet count - practice size not scored")
	}
	if !in.HasDecisionMakerName() {
		flags = append(flags, "No decision maker identified")
	}
	if in.Baseline.Rating == nil || *in.Baseline.Rating == 0 {
		flags = append(flags, "Missing Google rating")
	}

	return flags
}
