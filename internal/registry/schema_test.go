package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/ledger"
	notionmocks "github.com/sells-group/lead-scorer/pkg/notion/mocks"
)

func init() {
	// Replace global logger with no-op for tests.
	zap.ReplaceGlobals(zap.NewNop())
}

// fullSchema returns page properties matching every registry entry with
// its preferred kind.
func fullSchema() notionapi.Properties {
	props := notionapi.Properties{}
	for _, p := range LeadProperties {
		props[p.Name] = propertyOf(p.Accepted[0])
	}
	return props
}

func propertyOf(k Kind) notionapi.Property {
	switch k {
	case KindNumber:
		return &notionapi.NumberProperty{}
	case KindURL:
		return &notionapi.URLProperty{}
	case KindEmail:
		return &notionapi.EmailProperty{}
	case KindCheckbox:
		return &notionapi.CheckboxProperty{}
	case KindSelect:
		return &notionapi.SelectProperty{}
	case KindStatus:
		return &notionapi.StatusProperty{}
	case KindMultiSelect:
		return &notionapi.MultiSelectProperty{}
	case KindRichText:
		return &notionapi.RichTextProperty{}
	case KindTitle:
		return &notionapi.TitleProperty{}
	case KindDate:
		return &notionapi.DateProperty{}
	}
	return nil
}

func TestCheckProperties_Complete(t *testing.T) {
	report := CheckProperties(fullSchema())
	assert.True(t, report.OK())
	assert.Equal(t, len(LeadProperties), report.Checked)
}

func TestCheckProperties_AlternateKindsAccepted(t *testing.T) {
	props := fullSchema()
	props[ledger.PropEnrichmentStatus] = &notionapi.StatusProperty{}
	props[ledger.PropDecisionMaker] = &notionapi.TitleProperty{}

	assert.True(t, CheckProperties(props).OK())
}

func TestCheckProperties_MissingAndWrongType(t *testing.T) {
	props := fullSchema()
	delete(props, ledger.PropVetCount)
	props[ledger.PropLeadScore] = &notionapi.RichTextProperty{}

	report := CheckProperties(props)
	require.Len(t, report.Problems, 2)

	byName := map[string]Problem{}
	for _, p := range report.Problems {
		byName[p.Property] = p
	}

	missing := byName[ledger.PropVetCount]
	assert.Equal(t, Read, missing.Access)
	assert.Empty(t, missing.Got)
	assert.Contains(t, missing.String(), "missing")

	wrong := byName[ledger.PropLeadScore]
	assert.Equal(t, Write, wrong.Access)
	assert.Equal(t, KindRichText, wrong.Got)
	assert.Equal(t, "number", wrong.Want)
	assert.Contains(t, wrong.String(), "type rich_text, want number")
}

func TestCheckLeadSchema_SamplesFirstPage(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "db-leads", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.PageSize == 1
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "page-1", Properties: fullSchema()}},
	}, nil).Once()

	report, err := CheckLeadSchema(ctx, mc, "db-leads")
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "page-1", report.SamplePage)
}

func TestCheckLeadSchema_EmptyDatabase(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "db-leads", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()

	_, err := CheckLeadSchema(ctx, mc, "db-leads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pages")
}

func TestCheckLeadSchema_QueryError(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "db-leads", mock.Anything).
		Return(nil, errors.New("unauthorized")).Once()

	_, err := CheckLeadSchema(ctx, mc, "db-leads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
