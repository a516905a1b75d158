// Package ledger reads lead facts from, and writes scoring results to, the
// Notion lead database.
package ledger

import (
	"context"

	"github.com/sells-group/lead-scorer/internal/model"
)

// Ledger is the record store holding per-lead baseline, enrichment and
// scoring fields.
type Ledger interface {
	// FetchBaseline returns the public-listing facts of a lead.
	FetchBaseline(ctx context.Context, leadID string) (*model.BaselineFacts, error)
	// FetchEnrichment returns the website-derived facts of a lead.
	FetchEnrichment(ctx context.Context, leadID string) (*model.EnrichmentFacts, error)
	// WriteScore performs a partial update of the scoring fields only.
	WriteScore(ctx context.Context, leadID string, result *model.ScoringResult) error
	// WriteStatus records a scoring status without touching any score
	// field. It marks leads whose scoring attempt failed.
	WriteStatus(ctx context.Context, leadID string, status model.ScoringStatus) error
	// ListLeadIDs returns lead ids in ledger order.
	ListLeadIDs(ctx context.Context, opts ListOptions) ([]string, error)
}

// ListOptions narrows ListLeadIDs.
type ListOptions struct {
	// Limit caps the number of ids returned. Zero means no limit.
	Limit int
	// EnrichedOnly restricts the listing to leads whose enrichment status
	// is Completed or Partial.
	EnrichedOnly bool
}

// Read properties.
const (
	PropGoogleRating      = "Google Rating"
	PropGoogleReviewCount = "Google Review Count"
	PropWebsite           = "Website"
	PropMultipleLocations = "Has Multiple Locations"
	PropVetCount          = "Vet Count"
	PropVetCountConf      = "Vet Count Confidence"
	PropEmergency         = "24/7 Emergency Services"
	PropOnlineBooking     = "Online Booking"
	PropPatientPortal     = "Patient Portal"
	PropTelemedicine      = "Telemedicine"
	PropSpecialtyServices = "Specialty Services"
	PropDecisionMaker     = "Decision Maker Name"
	PropDecisionMakerMail = "Decision Maker Email"
	PropEnrichmentStatus  = "Enrichment Status"
)

// Written properties. WriteScore touches nothing else.
const (
	PropLeadScore       = "Lead Score"
	PropPriorityTier    = "Priority Tier"
	PropPracticeSize    = "Practice Size"
	PropScoreBreakdown  = "Score Breakdown"
	PropConfidenceFlags = "Confidence Flags"
	PropScoringStatus   = "Scoring Status"
	PropLastScored      = "Last Scored"
)
