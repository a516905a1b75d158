package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

// maxRichTextLen is the Notion limit on a single rich text run.
const maxRichTextLen = 2000

// maxRichTextRuns is the Notion limit on runs in one rich text property.
const maxRichTextRuns = 100

func parseBaseline(leadID string, props notionapi.Properties) (*model.BaselineFacts, error) {
	reviews, err := intProp(leadID, props, PropGoogleReviewCount, "review_count")
	if err != nil {
		return nil, err
	}
	return &model.BaselineFacts{
		Rating:            numberProp(props, PropGoogleRating),
		ReviewCount:       reviews,
		Website:           urlProp(props, PropWebsite),
		MultipleLocations: checkboxProp(props, PropMultipleLocations),
	}, nil
}

func parseEnrichment(leadID string, props notionapi.Properties) (*model.EnrichmentFacts, error) {
	vets, err := intProp(leadID, props, PropVetCount, "vet_count")
	if err != nil {
		return nil, err
	}
	return &model.EnrichmentFacts{
		VetCount:           vets,
		Confidence:         model.ParseConfidence(selectProp(props, PropVetCountConf)),
		Emergency24x7:      checkboxProp(props, PropEmergency),
		OnlineBooking:      checkboxProp(props, PropOnlineBooking),
		PatientPortal:      checkboxProp(props, PropPatientPortal),
		Telemedicine:       checkboxProp(props, PropTelemedicine),
		SpecialtyServices:  multiSelectProp(props, PropSpecialtyServices),
		DecisionMakerName:  richTextProp(props, PropDecisionMaker),
		DecisionMakerEmail: emailProp(props, PropDecisionMakerMail),
		EnrichmentStatus:   selectProp(props, PropEnrichmentStatus),
	}, nil
}

// numberProp returns nil for a missing number. notion.Client.GetPage drops
// empty numbers from the page, so a present property always holds a value
// and 0 is a real zero.
func numberProp(props notionapi.Properties, name string) *float64 {
	if np, ok := props[name].(*notionapi.NumberProperty); ok {
		v := np.Number
		return &v
	}
	return nil
}

// intProp reads a count. A fractional value is rejected, not truncated.
func intProp(leadID string, props notionapi.Properties, name, field string) (*int, error) {
	f := numberProp(props, name)
	if f == nil {
		return nil, nil
	}
	if *f != math.Trunc(*f) {
		return nil, &scoring.ValidationError{LeadID: leadID, Field: field, Msg: fmt.Sprintf("%g is not a whole number", *f)}
	}
	v := int(*f)
	return &v, nil
}

func urlProp(props notionapi.Properties, name string) string {
	if up, ok := props[name].(*notionapi.URLProperty); ok {
		return strings.TrimSpace(up.URL)
	}
	return ""
}

func emailProp(props notionapi.Properties, name string) string {
	if ep, ok := props[name].(*notionapi.EmailProperty); ok {
		return strings.TrimSpace(ep.Email)
	}
	return ""
}

func checkboxProp(props notionapi.Properties, name string) bool {
	if cp, ok := props[name].(*notionapi.CheckboxProperty); ok {
		return cp.Checkbox
	}
	return false
}

// selectProp also accepts a status property, which Notion databases often
// use for workflow fields such as Enrichment Status.
func selectProp(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.SelectProperty:
		return p.Select.Name
	case *notionapi.StatusProperty:
		return p.Status.Name
	}
	return ""
}

func multiSelectProp(props notionapi.Properties, name string) []string {
	msp, ok := props[name].(*notionapi.MultiSelectProperty)
	if !ok {
		return nil
	}
	var out []string
	for _, opt := range msp.MultiSelect {
		if opt.Name != "" {
			out = append(out, opt.Name)
		}
	}
	return out
}

func richTextProp(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	}
	return ""
}

// plainText concatenates the plain_text values from a slice of RichText.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

// scoreProperties builds the partial update for a scoring result.
func scoreProperties(result *model.ScoringResult, scoredAt time.Time) (notionapi.Properties, error) {
	breakdown, err := json.Marshal(result.Breakdown)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: marshal score breakdown")
	}

	flags := make([]notionapi.Option, 0, len(result.ConfidenceFlags))
	for _, f := range result.ConfidenceFlags {
		flags = append(flags, notionapi.Option{Name: sanitizeOption(f)})
	}

	date := notionapi.Date(scoredAt)
	props := notionapi.Properties{
		PropLeadScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(result.LeadScore),
		},
		PropPriorityTier: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(result.Tier)},
		},
		PropScoreBreakdown: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: chunkRichText(string(breakdown)),
		},
		PropConfidenceFlags: notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: flags,
		},
		PropScoringStatus: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(result.Status)},
		},
		PropLastScored: notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &date},
		},
	}
	if label := result.SizeLabel(); label != "" {
		props[PropPracticeSize] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: label},
		}
	}
	return props, nil
}

// chunkRichText splits s into runs no longer than maxRichTextLen runes,
// never splitting a rune. Text beyond maxRichTextRuns runs is dropped.
func chunkRichText(s string) []notionapi.RichText {
	var runs []notionapi.RichText
	for len(s) > 0 && len(runs) < maxRichTextRuns {
		n := 0
		end := 0
		for end < len(s) && n < maxRichTextLen {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			n++
		}
		runs = append(runs, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s[:end]},
		})
		s = s[end:]
	}
	return runs
}

// sanitizeOption makes a flag usable as a multi-select option name, which
// Notion rejects when it contains a comma or exceeds 100 characters.
func sanitizeOption(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	if utf8.RuneCountInString(s) > 100 {
		s = string([]rune(s)[:100])
	}
	return s
}
