package model

// PriorityTier is the outreach priority assigned to a scored lead.
type PriorityTier string

const (
	TierHot               PriorityTier = "Hot"
	TierWarm              PriorityTier = "Warm"
	TierCold              PriorityTier = "Cold"
	TierOutOfScope        PriorityTier = "Out of Scope"
	TierPendingEnrichment PriorityTier = "Pending Enrichment"
)

// SizeCategory buckets a practice by veterinarian headcount.
type SizeCategory string

const (
	SizeSolo      SizeCategory = "Solo"
	SizeSmall     SizeCategory = "Small"
	SizeSweetSpot SizeCategory = "Sweet Spot"
	SizeLarge     SizeCategory = "Large"
	SizeCorporate SizeCategory = "Corporate"
)

// ScoringStatus is written alongside every scoring result.
type ScoringStatus string

const (
	ScoringStatusScored ScoringStatus = "Scored"
	ScoringStatusFailed ScoringStatus = "Failed"
)

// ScoreComponent is one of the five sub-scores.
type ScoreComponent struct {
	Score        int      `json:"score"`
	Max          int      `json:"max_possible"`
	Detail       string   `json:"detail"`
	Contributing []string `json:"contributing_factors"`
	Missing      []string `json:"missing_factors"`
}

// ScoreBreakdown holds all five components and the confidence adjustment.
type ScoreBreakdown struct {
	PracticeSize          ScoreComponent  `json:"practice_size"`
	CallVolume            ScoreComponent  `json:"call_volume"`
	Technology            ScoreComponent  `json:"technology"`
	Baseline              ScoreComponent  `json:"baseline"`
	DecisionMaker         ScoreComponent  `json:"decision_maker"`
	TotalBeforeConfidence int             `json:"total_before_confidence"`
	ConfidenceMultiplier  float64         `json:"confidence_multiplier"`
	TotalAfterConfidence  int             `json:"total_after_confidence"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level"`
	ConfidenceFlags       []string        `json:"confidence_flags"`
}

// Components returns the five components keyed by name, in scoring order.
func (b ScoreBreakdown) Components() []NamedComponent {
	return []NamedComponent{
		{Name: "practice_size", ScoreComponent: b.PracticeSize},
		{Name: "call_volume", ScoreComponent: b.CallVolume},
		{Name: "technology", ScoreComponent: b.Technology},
		{Name: "baseline", ScoreComponent: b.Baseline},
		{Name: "decision_maker", ScoreComponent: b.DecisionMaker},
	}
}

// NamedComponent pairs a component with its breakdown key.
type NamedComponent struct {
	Name string `json:"name"`
	ScoreComponent
}

// ScoringResult is the outcome of one successful scoring attempt. A rescore
// produces a new value; results are never updated in place.
type ScoringResult struct {
	LeadID          string         `json:"lead_id"`
	LeadScore       int            `json:"lead_score"`
	Tier            PriorityTier   `json:"priority_tier"`
	Size            *SizeCategory  `json:"practice_size_category,omitempty"`
	Breakdown       ScoreBreakdown `json:"score_breakdown"`
	ConfidenceFlags []string       `json:"confidence_flags"`
	Status          ScoringStatus  `json:"scoring_status"`
	Notes           string         `json:"notes,omitempty"`
	TargetICP       bool           `json:"target_icp"`
	Recommendation  string         `json:"recommendation,omitempty"`
}

// SizeLabel returns the size category or "" when the vet count was unknown.
func (r *ScoringResult) SizeLabel() string {
	if r.Size == nil {
		return ""
	}
	return string(*r.Size)
}

// ToMap returns a flat summary suitable for logs and JSON responses.
func (r *ScoringResult) ToMap() map[string]any {
	var size any
	if r.Size != nil {
		size = string(*r.Size)
	}
	return map[string]any{
		"lead_id":                r.LeadID,
		"lead_score":             r.LeadScore,
		"priority_tier":          string(r.Tier),
		"practice_size_category": size,
		"confidence_flags":       r.ConfidenceFlags,
		"scoring_status":         string(r.Status),
		"target_icp":             r.TargetICP,
		"breakdown": map[string]any{
			"practice_size":           r.Breakdown.PracticeSize.Score,
			"call_volume":             r.Breakdown.CallVolume.Score,
			"technology":              r.Breakdown.Technology.Score,
			"baseline":                r.Breakdown.Baseline.Score,
			"decision_maker":          r.Breakdown.DecisionMaker.Score,
			"total_before_confidence": r.Breakdown.TotalBeforeConfidence,
			"confidence_multiplier":   r.Breakdown.ConfidenceMultiplier,
			"total_after_confidence":  r.Breakdown.TotalAfterConfidence,
		},
	}
}
