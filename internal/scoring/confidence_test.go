package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-scorer/internal/model"
)

func TestResolveConfidence(t *testing.T) {
	tests := []struct {
		in        model.ConfidenceLevel
		wantLevel model.ConfidenceLevel
		wantMult  float64
	}{
		{model.ConfidenceHigh, model.ConfidenceHigh, 1.0},
		{model.ConfidenceMedium, model.ConfidenceMedium, 0.9},
		{model.ConfidenceLow, model.ConfidenceLow, 0.7},
		{model.ConfidenceAbsent, model.ConfidenceHigh, 1.0},
		{"bogus", model.ConfidenceHigh, 1.0},
	}

	for _, tt := range tests {
		level, mult := ResolveConfidence(tt.in)
		assert.Equal(t, tt.wantLevel, level, "input %q", tt.in)
		assert.Equal(t, tt.wantMult, mult, "input %q", tt.in)
	}
}

func TestApplyConfidence(t *testing.T) {
	assert.Equal(t, 70, ApplyConfidence(100, 0.7))
	assert.Equal(t, 90, ApplyConfidence(100, 0.9))
	assert.Equal(t, 120, ApplyConfidence(130, 1.0))
	assert.Equal(t, 91, ApplyConfidence(130, 0.7))
	assert.Equal(t, 0, ApplyConfidence(0, 0.7))
	// Truncation, not rounding.
	assert.Equal(t, 20, ApplyConfidence(29, 0.7))
}

func TestConfidenceFlags(t *testing.T) {
	t.Run("clean input has no flags", func(t *testing.T) {
		assert.Empty(t, ConfidenceFlags(fullInput(), model.ConfidenceHigh))
	})

	t.Run("all flags coexist", func(t *testing.T) {
		in := model.ScoringInput{LeadID: "x"}
		flags := ConfidenceFlags(in, model.ConfidenceLow)

		assert.Equal(t, []string{
			"Low confidence enrichment data (penalty: 0.7x)",
			"Missing vet count - practice size not scored",
			"No decision maker identified",
			"Missing Google rating",
		}, flags)
	})

	t.Run("medium flag", func(t *testing.T) {
		flags := ConfidenceFlags(fullInput(), model.ConfidenceMedium)
		assert.Equal(t, []string{"Medium confidence enrichment data (penalty: 0.9x)"}, flags)
	})

	t.Run("zero rating treated as missing", func(t *testing.T) {
		in := fullInput()
		in.Baseline.Rating = floatPtr(0)
		assert.Contains(t, ConfidenceFlags(in, model.ConfidenceHigh), "Missing Google rating")
	})
}
