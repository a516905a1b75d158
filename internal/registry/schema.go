// Package registry holds the registry of Notion properties the scorer reads
// and writes, and checks a lead database against it.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/ledger"
	"github.com/sells-group/lead-scorer/pkg/notion"
)

// Kind is a Notion property type as it appears on a page.
type Kind string

const (
	KindNumber      Kind = "number"
	KindURL         Kind = "url"
	KindEmail       Kind = "email"
	KindCheckbox    Kind = "checkbox"
	KindSelect      Kind = "select"
	KindStatus      Kind = "status"
	KindMultiSelect Kind = "multi_select"
	KindRichText    Kind = "rich_text"
	KindTitle       Kind = "title"
	KindDate        Kind = "date"
	KindOther       Kind = "other"
)

// Access says whether the scorer reads or writes a property.
type Access string

const (
	Read  Access = "read"
	Write Access = "write"
)

// Property is one registry entry. Accepted lists every kind the ledger
// parses for the property, preferred kind first.
type Property struct {
	Name     string
	Access   Access
	Accepted []Kind
}

// LeadProperties is the registry of lead database properties.
var LeadProperties = []Property{
	{ledger.PropGoogleRating, Read, []Kind{KindNumber}},
	{ledger.PropGoogleReviewCount, Read, []Kind{KindNumber}},
	{ledger.PropWebsite, Read, []Kind{KindURL}},
	{ledger.PropMultipleLocations, Read, []Kind{KindCheckbox}},
	{ledger.PropVetCount, Read, []Kind{KindNumber}},
	{ledger.PropVetCountConf, Read, []Kind{KindSelect, KindStatus}},
	{ledger.PropEmergency, Read, []Kind{KindCheckbox}},
	{ledger.PropOnlineBooking, Read, []Kind{KindCheckbox}},
	{ledger.PropPatientPortal, Read, []Kind{KindCheckbox}},
	{ledger.PropTelemedicine, Read, []Kind{KindCheckbox}},
	{ledger.PropSpecialtyServices, Read, []Kind{KindMultiSelect}},
	{ledger.PropDecisionMaker, Read, []Kind{KindRichText, KindTitle}},
	{ledger.PropDecisionMakerMail, Read, []Kind{KindEmail}},
	{ledger.PropEnrichmentStatus, Read, []Kind{KindSelect, KindStatus}},

	{ledger.PropLeadScore, Write, []Kind{KindNumber}},
	{ledger.PropPriorityTier, Write, []Kind{KindSelect}},
	{ledger.PropPracticeSize, Write, []Kind{KindSelect}},
	{ledger.PropScoreBreakdown, Write, []Kind{KindRichText}},
	{ledger.PropConfidenceFlags, Write, []Kind{KindMultiSelect}},
	{ledger.PropScoringStatus, Write, []Kind{KindSelect}},
	{ledger.PropLastScored, Write, []Kind{KindDate}},
}

// Problem is one registry property that is missing or has the wrong type.
type Problem struct {
	Property string `json:"property"`
	Access   Access `json:"access"`
	Want     string `json:"want"`
	Got      Kind   `json:"got,omitempty"`
}

func (p Problem) String() string {
	if p.Got == "" {
		return fmt.Sprintf("%s (%s): missing, want %s", p.Property, p.Access, p.Want)
	}
	return fmt.Sprintf("%s (%s): type %s, want %s", p.Property, p.Access, p.Got, p.Want)
}

// SchemaReport is the result of CheckLeadSchema.
type SchemaReport struct {
	SamplePage string    `json:"sample_page"`
	Checked    int       `json:"checked"`
	Problems   []Problem `json:"problems"`
}

// OK reports whether every registry property was found with an accepted type.
func (r *SchemaReport) OK() bool {
	return len(r.Problems) == 0
}

// CheckLeadSchema samples the first page of the lead database and checks
// it against LeadProperties. Notion returns every database property on
// every page, empty or not, so one page is enough.
func CheckLeadSchema(ctx context.Context, client notion.Client, dbID string) (*SchemaReport, error) {
	resp, err := client.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{PageSize: 1})
	if err != nil {
		return nil, eris.Wrap(err, "registry: sample lead database")
	}
	if len(resp.Results) == 0 {
		return nil, eris.Errorf("registry: lead database %s has no pages to sample", dbID)
	}

	page := resp.Results[0]
	report := CheckProperties(page.Properties)
	report.SamplePage = string(page.ID)

	zap.L().Debug("registry: checked lead schema",
		zap.String("sample_page", report.SamplePage),
		zap.Int("problems", len(report.Problems)),
	)
	return report, nil
}

// CheckProperties checks a page's properties against LeadProperties.
func CheckProperties(props notionapi.Properties) *SchemaReport {
	report := &SchemaReport{Checked: len(LeadProperties)}
	for _, p := range LeadProperties {
		want := joinKinds(p.Accepted)
		prop, ok := props[p.Name]
		if !ok {
			report.Problems = append(report.Problems, Problem{Property: p.Name, Access: p.Access, Want: want})
			continue
		}
		if got := kindOf(prop); !slices.Contains(p.Accepted, got) {
			report.Problems = append(report.Problems, Problem{Property: p.Name, Access: p.Access, Want: want, Got: got})
		}
	}
	return report
}

func kindOf(prop notionapi.Property) Kind {
	switch prop.(type) {
	case *notionapi.NumberProperty:
		return KindNumber
	case *notionapi.URLProperty:
		return KindURL
	case *notionapi.EmailProperty:
		return KindEmail
	case *notionapi.CheckboxProperty:
		return KindCheckbox
	case *notionapi.SelectProperty:
		return KindSelect
	case *notionapi.StatusProperty:
		return KindStatus
	case *notionapi.MultiSelectProperty:
		return KindMultiSelect
	case *notionapi.RichTextProperty:
		return KindRichText
	case *notionapi.TitleProperty:
		return KindTitle
	case *notionapi.DateProperty:
		return KindDate
	}
	return KindOther
}

func joinKinds(kinds []Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, " or ")
}
