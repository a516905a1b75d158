package ledger

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

func leadProps() notionapi.Properties {
	return notionapi.Properties{
		PropGoogleRating:      &notionapi.NumberProperty{Number: 4.7},
		PropGoogleReviewCount: &notionapi.NumberProperty{Number: 312},
		PropWebsite:           &notionapi.URLProperty{URL: " https://happypaws.example "},
		PropMultipleLocations: &notionapi.CheckboxProperty{Checkbox: true},
		PropVetCount:          &notionapi.NumberProperty{Number: 5},
		PropVetCountConf:      &notionapi.SelectProperty{Select: notionapi.Option{Name: "High"}},
		PropEmergency:         &notionapi.CheckboxProperty{Checkbox: true},
		PropOnlineBooking:     &notionapi.CheckboxProperty{Checkbox: true},
		PropPatientPortal:     &notionapi.CheckboxProperty{Checkbox: false},
		PropTelemedicine:      &notionapi.CheckboxProperty{Checkbox: true},
		PropSpecialtyServices: &notionapi.MultiSelectProperty{MultiSelect: []notionapi.Option{
			{Name: "Dentistry"}, {Name: ""}, {Name: "Surgery"},
		}},
		PropDecisionMaker: &notionapi.RichTextProperty{RichText: []notionapi.RichText{
			{PlainText: "Dr. Jane "}, {PlainText: "Smith"},
		}},
		PropDecisionMakerMail: &notionapi.EmailProperty{Email: "jane@happypaws.example"},
		PropEnrichmentStatus:  &notionapi.StatusProperty{Status: notionapi.Status{Name: "Completed"}},
	}
}

func TestParseBaseline(t *testing.T) {
	b, err := parseBaseline("lead-1", leadProps())
	require.NoError(t, err)

	require.NotNil(t, b.Rating)
	assert.InDelta(t, 4.7, *b.Rating, 1e-9)
	require.NotNil(t, b.ReviewCount)
	assert.Equal(t, 312, *b.ReviewCount)
	assert.Equal(t, "https://happypaws.example", b.Website)
	assert.True(t, b.MultipleLocations)
}

func TestParseBaseline_EmptyProperties(t *testing.T) {
	b, err := parseBaseline("lead-1", notionapi.Properties{})
	require.NoError(t, err)

	assert.Nil(t, b.Rating)
	assert.Nil(t, b.ReviewCount)
	assert.Empty(t, b.Website)
	assert.False(t, b.MultipleLocations)
}

func TestParseBaseline_ZeroNumberIsPresent(t *testing.T) {
	b, err := parseBaseline("lead-1", notionapi.Properties{
		PropGoogleRating:      &notionapi.NumberProperty{Number: 0},
		PropGoogleReviewCount: &notionapi.NumberProperty{Number: 0},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Rating)
	assert.Zero(t, *b.Rating)
	require.NotNil(t, b.ReviewCount)
	assert.Equal(t, 0, *b.ReviewCount)
}

func TestParseBaseline_FractionalReviewCount(t *testing.T) {
	_, err := parseBaseline("lead-1", notionapi.Properties{
		PropGoogleReviewCount: &notionapi.NumberProperty{Number: 12.5},
	})
	require.Error(t, err)
	assert.True(t, scoring.IsValidation(err))

	var ve *scoring.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "review_count", ve.Field)
	assert.Equal(t, "lead-1", ve.LeadID)
}

func TestParseEnrichment(t *testing.T) {
	e, err := parseEnrichment("lead-1", leadProps())
	require.NoError(t, err)

	require.NotNil(t, e.VetCount)
	assert.Equal(t, 5, *e.VetCount)
	assert.Equal(t, model.ConfidenceHigh, e.Confidence)
	assert.True(t, e.Emergency24x7)
	assert.True(t, e.OnlineBooking)
	assert.False(t, e.PatientPortal)
	assert.True(t, e.Telemedicine)
	assert.Equal(t, []string{"Dentistry", "Surgery"}, e.SpecialtyServices)
	assert.Equal(t, "Dr. Jane Smith", e.DecisionMakerName)
	assert.Equal(t, "jane@happypaws.example", e.DecisionMakerEmail)
	assert.Equal(t, "Completed", e.EnrichmentStatus)
}

func TestParseEnrichment_WrongPropertyTypesIgnored(t *testing.T) {
	e, err := parseEnrichment("lead-1", notionapi.Properties{
		PropVetCount:     &notionapi.RichTextProperty{},
		PropEmergency:    &notionapi.NumberProperty{Number: 1},
		PropVetCountConf: &notionapi.CheckboxProperty{Checkbox: true},
	})
	require.NoError(t, err)
	assert.Nil(t, e.VetCount)
	assert.False(t, e.Emergency24x7)
	assert.Equal(t, model.ConfidenceAbsent, e.Confidence)
}

func TestParseEnrichment_ZeroVetCountIsPresent(t *testing.T) {
	e, err := parseEnrichment("lead-1", notionapi.Properties{
		PropVetCount: &notionapi.NumberProperty{Number: 0},
	})
	require.NoError(t, err)
	require.NotNil(t, e.VetCount)
	assert.Equal(t, 0, *e.VetCount)
}

func TestParseEnrichment_FractionalVetCount(t *testing.T) {
	_, err := parseEnrichment("lead-7", notionapi.Properties{
		PropVetCount: &notionapi.NumberProperty{Number: 50.7},
	})
	require.Error(t, err)

	var ve *scoring.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "vet_count", ve.Field)
	assert.Contains(t, ve.Msg, "50.7")
}

func TestRichTextProp_AcceptsTitle(t *testing.T) {
	props := notionapi.Properties{
		PropDecisionMaker: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Dr. Lee"}}},
	}
	assert.Equal(t, "Dr. Lee", richTextProp(props, PropDecisionMaker))
}

func TestScoreProperties(t *testing.T) {
	size := model.SizeSweetSpot
	result := &model.ScoringResult{
		LeadID:          "lead-1",
		LeadScore:       94,
		Tier:            model.TierHot,
		Size:            &size,
		ConfidenceFlags: []string{"Missing decision maker email", "Low, unverified"},
		Status:          model.ScoringStatusScored,
		Breakdown: model.ScoreBreakdown{
			PracticeSize:          model.ScoreComponent{Score: 40, Max: 40},
			TotalBeforeConfidence: 94,
			ConfidenceMultiplier:  1.0,
			TotalAfterConfidence:  94,
		},
	}
	scoredAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	props, err := scoreProperties(result, scoredAt)
	require.NoError(t, err)
	assert.Len(t, props, 7)

	score, ok := props[PropLeadScore].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, float64(94), score.Number)

	tier, ok := props[PropPriorityTier].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Hot", tier.Select.Name)

	practice, ok := props[PropPracticeSize].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Sweet Spot", practice.Select.Name)

	flags, ok := props[PropConfidenceFlags].(notionapi.MultiSelectProperty)
	require.True(t, ok)
	require.Len(t, flags.MultiSelect, 2)
	assert.Equal(t, "Low; unverified", flags.MultiSelect[1].Name)

	status, ok := props[PropScoringStatus].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Scored", status.Select.Name)

	last, ok := props[PropLastScored].(notionapi.DateProperty)
	require.True(t, ok)
	require.NotNil(t, last.Date)
	require.NotNil(t, last.Date.Start)
	assert.True(t, time.Time(*last.Date.Start).Equal(scoredAt))

	rt, ok := props[PropScoreBreakdown].(notionapi.RichTextProperty)
	require.True(t, ok)
	var sb strings.Builder
	for _, r := range rt.RichText {
		sb.WriteString(r.Text.Content)
	}
	var decoded model.ScoreBreakdown
	require.NoError(t, json.Unmarshal([]byte(sb.String()), &decoded))
	assert.Equal(t, 94, decoded.TotalAfterConfidence)
	assert.Equal(t, 40, decoded.PracticeSize.Score)
}

func TestScoreProperties_NoSizeLeavesPracticeSizeUntouched(t *testing.T) {
	result := &model.ScoringResult{
		LeadID: "lead-2",
		Tier:   model.TierPendingEnrichment,
		Status: model.ScoringStatusScored,
	}
	props, err := scoreProperties(result, time.Now())
	require.NoError(t, err)

	_, present := props[PropPracticeSize]
	assert.False(t, present)
	assert.Len(t, props, 6)
}

func TestChunkRichText(t *testing.T) {
	assert.Empty(t, chunkRichText(""))

	runs := chunkRichText(strings.Repeat("a", 4500))
	require.Len(t, runs, 3)
	assert.Len(t, runs[0].Text.Content, 2000)
	assert.Len(t, runs[1].Text.Content, 2000)
	assert.Len(t, runs[2].Text.Content, 500)
}

func TestChunkRichText_MultiByteRunes(t *testing.T) {
	s := strings.Repeat("é", 2500)
	runs := chunkRichText(s)
	require.Len(t, runs, 2)
	assert.Equal(t, 2000, utf8.RuneCountInString(runs[0].Text.Content))
	assert.Equal(t, 500, utf8.RuneCountInString(runs[1].Text.Content))
	assert.True(t, utf8.ValidString(runs[0].Text.Content))
}

func TestChunkRichText_RunCap(t *testing.T) {
	runs := chunkRichText(strings.Repeat("x", maxRichTextLen*(maxRichTextRuns+3)))
	assert.Len(t, runs, maxRichTextRuns)
}

func TestSanitizeOption(t *testing.T) {
	assert.Equal(t, "a; b", sanitizeOption("a, b"))
	long := strings.Repeat("z", 150)
	assert.Equal(t, 100, utf8.RuneCountInString(sanitizeOption(long)))
}
