package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// ConfidenceLevel is the enrichment collaborator's confidence in the vet count.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
	// ConfidenceAbsent means the ledger carried no confidence value.
	ConfidenceAbsent ConfidenceLevel = ""
)

// Enrichment status labels written by the enrichment workflow. Any other
// non-empty label means the lead has not been enriched yet.
const (
	EnrichmentCompleted = "Completed"
	EnrichmentPartial   = "Partial"
)

// foldLabel normalizes a ledger label for comparison. A Caser is stateful, so
// one is built per call.
func foldLabel(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ParseConfidence maps a ledger label ("High", "medium", " LOW ") to a
// ConfidenceLevel. Unknown or empty labels yield ConfidenceAbsent.
func ParseConfidence(label string) ConfidenceLevel {
	switch foldLabel(label) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	default:
		return ConfidenceAbsent
	}
}

// SameLabel reports whether two ledger labels are equal ignoring case and
// surrounding whitespace.
func SameLabel(a, b string) bool {
	return foldLabel(a) == foldLabel(b)
}

// BaselineFacts are the public-listing fields of a lead (ledger read #1).
type BaselineFacts struct {
	Rating            *float64 `json:"rating,omitempty"`
	ReviewCount       *int     `json:"review_count,omitempty"`
	Website           string   `json:"website,omitempty"`
	MultipleLocations bool     `json:"multiple_locations"`
}

// EnrichmentFacts are the website-derived fields of a lead (ledger read #2).
type EnrichmentFacts struct {
	VetCount           *int            `json:"vet_count,omitempty"`
	Confidence         ConfidenceLevel `json:"confidence,omitempty"`
	Emergency24x7      bool            `json:"emergency_24_7"`
	OnlineBooking      bool            `json:"online_booking"`
	PatientPortal      bool            `json:"patient_portal"`
	Telemedicine       bool            `json:"telemedicine"`
	SpecialtyServices  []string        `json:"specialty_services,omitempty"`
	DecisionMakerName  string          `json:"decision_maker_name,omitempty"`
	DecisionMakerEmail string          `json:"decision_maker_email,omitempty"`
	EnrichmentStatus   string          `json:"enrichment_status,omitempty"`
}

// ScoringInput is the immutable value one scoring attempt works from.
type ScoringInput struct {
	LeadID     string          `json:"lead_id"`
	Baseline   BaselineFacts   `json:"baseline"`
	Enrichment EnrichmentFacts `json:"enrichment"`
}

// NewScoringInput combines the two ledger reads for a lead.
func NewScoringInput(leadID string, baseline *BaselineFacts, enrichment *EnrichmentFacts) ScoringInput {
	in := ScoringInput{LeadID: leadID}
	if baseline != nil {
		in.Baseline = *baseline
	}
	if enrichment != nil {
		in.Enrichment = *enrichment
		in.Enrichment.SpecialtyServices = append([]string(nil), enrichment.SpecialtyServices...)
	}
	return in
}

// HasWebsite reports whether the listing carries a website URL.
func (in ScoringInput) HasWebsite() bool {
	return strings.TrimSpace(in.Baseline.Website) != ""
}

// HasDecisionMakerName reports whether a decision maker name is known.
func (in ScoringInput) HasDecisionMakerName() bool {
	return strings.TrimSpace(in.Enrichment.DecisionMakerName) != ""
}

// HasDecisionMakerEmail reports whether a decision maker email is known.
func (in ScoringInput) HasDecisionMakerEmail() bool {
	return strings.TrimSpace(in.Enrichment.DecisionMakerEmail) != ""
}
