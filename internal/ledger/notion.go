package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/scoring"
	"github.com/sells-group/lead-scorer/pkg/notion"
)

// NotionLedger implements Ledger on a Notion lead database. Each lead is a
// page; the page id is the lead id.
type NotionLedger struct {
	client  notion.Client
	dbID    string
	nowFunc func() time.Time
}

// NewNotionLedger returns a ledger over the given lead database.
func NewNotionLedger(client notion.Client, leadDB string) *NotionLedger {
	return &NotionLedger{
		client:  client,
		dbID:    leadDB,
		nowFunc: time.Now,
	}
}

// FetchBaseline reads the listing fields of a lead page.
func (l *NotionLedger) FetchBaseline(ctx context.Context, leadID string) (*model.BaselineFacts, error) {
	page, err := l.getPage(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: fetch baseline")
	}
	facts, err := parseBaseline(leadID, page.Properties)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: fetch baseline")
	}

	zap.L().Debug("ledger: fetched baseline",
		zap.String("lead_id", leadID),
		zap.Any("rating", facts.Rating),
		zap.Any("review_count", facts.ReviewCount),
	)
	return facts, nil
}

// FetchEnrichment reads the enrichment fields of a lead page.
func (l *NotionLedger) FetchEnrichment(ctx context.Context, leadID string) (*model.EnrichmentFacts, error) {
	page, err := l.getPage(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: fetch enrichment")
	}
	facts, err := parseEnrichment(leadID, page.Properties)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: fetch enrichment")
	}

	zap.L().Debug("ledger: fetched enrichment",
		zap.String("lead_id", leadID),
		zap.Any("vet_count", facts.VetCount),
		zap.String("enrichment_status", facts.EnrichmentStatus),
	)
	return facts, nil
}

// WriteScore updates only the scoring properties of the lead page.
func (l *NotionLedger) WriteScore(ctx context.Context, leadID string, result *model.ScoringResult) error {
	if result == nil {
		return eris.New("ledger: nil scoring result")
	}
	props, err := scoreProperties(result, l.nowFunc())
	if err != nil {
		return err
	}

	if _, err := l.client.UpdatePage(ctx, leadID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		if notion.IsNotFound(err) {
			return eris.Wrap(scoring.ErrLeadNotFound, fmt.Sprintf("ledger: write score %s", leadID))
		}
		return eris.Wrap(err, fmt.Sprintf("ledger: write score %s", leadID))
	}

	zap.L().Info("ledger: wrote score",
		zap.String("lead_id", leadID),
		zap.Int("lead_score", result.LeadScore),
		zap.String("tier", string(result.Tier)),
	)
	return nil
}

// WriteStatus updates only the Scoring Status property of the lead page.
func (l *NotionLedger) WriteStatus(ctx context.Context, leadID string, status model.ScoringStatus) error {
	props := notionapi.Properties{
		PropScoringStatus: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(status)},
		},
	}
	if _, err := l.client.UpdatePage(ctx, leadID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		if notion.IsNotFound(err) {
			return eris.Wrap(scoring.ErrLeadNotFound, fmt.Sprintf("ledger: write status %s", leadID))
		}
		return eris.Wrap(err, fmt.Sprintf("ledger: write status %s", leadID))
	}

	zap.L().Info("ledger: wrote scoring status",
		zap.String("lead_id", leadID),
		zap.String("status", string(status)),
	)
	return nil
}

// ListLeadIDs lists lead page ids in database order.
func (l *NotionLedger) ListLeadIDs(ctx context.Context, opts ListOptions) ([]string, error) {
	var filter notionapi.Filter
	if opts.EnrichedOnly {
		filter = notionapi.OrCompoundFilter{
			enrichmentStatusIs(model.EnrichmentCompleted),
			enrichmentStatusIs(model.EnrichmentPartial),
		}
	}

	ids, err := notion.QueryPageIDs(ctx, l.client, l.dbID, filter, opts.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: list leads")
	}
	return ids, nil
}

func (l *NotionLedger) getPage(ctx context.Context, leadID string) (*notionapi.Page, error) {
	page, err := l.client.GetPage(ctx, leadID)
	if err != nil {
		if notion.IsNotFound(err) {
			return nil, eris.Wrap(scoring.ErrLeadNotFound, leadID)
		}
		return nil, err
	}
	return page, nil
}

func enrichmentStatusIs(status string) notionapi.PropertyFilter {
	return notionapi.PropertyFilter{
		Property: PropEnrichmentStatus,
		Select:   &notionapi.SelectFilterCondition{Equals: status},
	}
}
