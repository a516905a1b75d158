// Package scoring computes ICP fit scores for veterinary practice leads.
//
// A lead is scored on five independent components (practice size, call
// volume, technology, baseline quality, decision maker) for 0-130 points.
// A single confidence multiplier is then applied to the total and the
// result is capped at 120. Everything in this package is pure.
package scoring

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/model"
)

// Component maximums.
const (
	MaxPracticeSize  = 40
	MaxCallVolume    = 40
	MaxTechnology    = 20
	MaxBaseline      = 20
	MaxDecisionMaker = 10
)

// Practice size points.
const (
	sweetSpotScore     = 25
	nearSweetSpotScore = 15
	offTargetSizeScore = 5
	emergencyBonus     = 15
)

// Call volume points.
const (
	reviewsHighThreshold   = 100
	reviewsHighScore       = 20
	reviewsMediumThreshold = 50
	reviewsMediumScore     = 12
	reviewsLowThreshold    = 20
	reviewsLowScore        = 5
	multiLocationBonus     = 10
	highValueServiceBonus  = 10
)

// Technology points.
const (
	onlineBookingScore        = 10
	portalOrTelemedicineScore = 5
)

// Baseline points. Reviews are scored once, in call volume.
const (
	ratingHighThreshold        = 4.5
	ratingHighScore            = 10
	ratingMediumThreshold      = 4.0
	ratingMediumScore          = 6
	ratingLowThreshold         = 3.5
	ratingLowScore             = 3
	websiteScore               = 6
	baselineMultiLocationScore = 4
)

// Decision maker points.
const (
	decisionMakerFullScore    = 10
	decisionMakerPartialScore = 5
)

// Input bounds.
const (
	MaxVetCount = 50
	MaxRating   = 5.0
)

// Calculator scores a ScoringInput.
type Calculator struct {
	classifier *Classifier
}

// NewCalculator returns a Calculator using the given classifier, or a
// default one when nil.
func NewCalculator(classifier *Classifier) *Calculator {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Calculator{classifier: classifier}
}

// Classifier returns the classifier used for size and tier decisions.
func (c *Calculator) Classifier() *Classifier {
	return c.classifier
}

// Score validates the input and computes the full ScoringResult. The same
// input always produces the same result.
func (c *Calculator) Score(in model.ScoringInput) (*model.ScoringResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	breakdown := model.ScoreBreakdown{
		PracticeSize:  scorePracticeSize(in),
		CallVolume:    scoreCallVolume(in),
		Technology:    scoreTechnology(in),
		Baseline:      scoreBaseline(in),
		DecisionMaker: scoreDecisionMaker(in),
	}
	breakdown.TotalBeforeConfidence = breakdown.PracticeSize.Score +
		breakdown.CallVolume.Score +
		breakdown.Technology.Score +
		breakdown.Baseline.Score +
		breakdown.DecisionMaker.Score

	level, multiplier := ResolveConfidence(in.Enrichment.Confidence)
	breakdown.ConfidenceLevel = level
	breakdown.ConfidenceMultiplier = multiplier
	breakdown.TotalAfterConfidence = ApplyConfidence(breakdown.TotalBeforeConfidence, multiplier)
	breakdown.ConfidenceFlags = ConfidenceFlags(in, level)

	size := c.classifier.Size(in.Enrichment.VetCount)
	tier := c.classifier.Tier(breakdown.TotalAfterConfidence, in.Enrichment.EnrichmentStatus)

	result := &model.ScoringResult{
		LeadID:          in.LeadID,
		LeadScore:       breakdown.TotalAfterConfidence,
		Tier:            tier,
		Size:            size,
		Breakdown:       breakdown,
		ConfidenceFlags: append([]string(nil), breakdown.ConfidenceFlags...),
		Status:          model.ScoringStatusScored,
		TargetICP:       c.classifier.IsTargetICP(size, tier),
		Recommendation:  c.classifier.OutreachRecommendation(tier),
	}

	zap.L().Debug("scoring: lead scored",
		zap.String("lead_id", in.LeadID),
		zap.Int("total_before_confidence", breakdown.TotalBeforeConfidence),
		zap.Float64("confidence_multiplier", multiplier),
		zap.Int("lead_score", result.LeadScore),
		zap.String("tier", string(tier)),
	)

	return result, nil
}

// Validate rejects inputs outside their declared ranges.
func Validate(in model.ScoringInput) error {
	if strings.TrimSpace(in.LeadID) == "" {
		return &ValidationError{Field: "lead_id", Msg: "is required"}
	}
	if v := in.Enrichment.VetCount; v != nil && (*v < 0 || *v > MaxVetCount) {
		return &ValidationError{LeadID: in.LeadID, Field: "vet_count", Msg: fmt.Sprintf("%d out of range 0-%d", *v, MaxVetCount)}
	}
	if r := in.Baseline.Rating; r != nil && (*r < 0 || *r > MaxRating) {
		return &ValidationError{LeadID: in.LeadID, Field: "rating", Msg: fmt.Sprintf("%.2f out of range 0.0-%.1f", *r, MaxRating)}
	}
	if rc := in.Baseline.ReviewCount; rc != nil && *rc < 0 {
		return &ValidationError{LeadID: in.LeadID, Field: "review_count", Msg: fmt.Sprintf("%d is negative", *rc)}
	}
	return nil
}

func scorePracticeSize(in model.ScoringInput) model.ScoreComponent {
	comp := newComponent(MaxPracticeSize)

	if in.Enrichment.VetCount == nil {
		comp.Missing = append(comp.Missing, "Vet count (missing data)")
		comp.Detail = "Vet count unknown - cannot score practice size"
		return comp
	}

	n := *in.Enrichment.VetCount
	switch {
	case n >= sweetSpotMin && n <= sweetSpotMax:
		comp.Score += sweetSpotScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d vets (sweet spot: +%d pts)", n, sweetSpotScore))
	case n == sweetSpotMin-1 || n == sweetSpotMax+1:
		comp.Score += nearSweetSpotScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d vets (near sweet spot: +%d pts)", n, nearSweetSpotScore))
	default:
		comp.Score += offTargetSizeScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d vets (solo/corporate: +%d pts)", n, offTargetSizeScore))
	}

	if in.Enrichment.Emergency24x7 {
		comp.Score += emergencyBonus
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("24/7 emergency services (+%d pts)", emergencyBonus))
	} else {
		comp.Missing = append(comp.Missing, "24/7 emergency services")
	}

	comp.Detail = fmt.Sprintf("%d vets, emergency=%t", n, in.Enrichment.Emergency24x7)
	return capComponent(comp)
}

func scoreCallVolume(in model.ScoringInput) model.ScoreComponent {
	comp := newComponent(MaxCallVolume)

	reviews := 0
	if in.Baseline.ReviewCount != nil {
		reviews = *in.Baseline.ReviewCount
	}
	switch {
	case reviews >= reviewsHighThreshold:
		comp.Score += reviewsHighScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d reviews (+%d pts)", reviews, reviewsHighScore))
	case reviews >= reviewsMediumThreshold:
		comp.Score += reviewsMediumScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d reviews (+%d pts)", reviews, reviewsMediumScore))
	case reviews >= reviewsLowThreshold:
		comp.Score += reviewsLowScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("%d reviews (+%d pts)", reviews, reviewsLowScore))
	default:
		comp.Missing = append(comp.Missing, fmt.Sprintf("Insufficient reviews (%d < %d)", reviews, reviewsLowThreshold))
	}

	if in.Baseline.MultipleLocations {
		comp.Score += multiLocationBonus
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Multiple locations (+%d pts)", multiLocationBonus))
	} else {
		comp.Missing = append(comp.Missing, "Multiple locations")
	}

	// Boarding is one of the specialty labels, so any non-empty list earns
	// the single bonus.
	services := nonEmpty(in.Enrichment.SpecialtyServices)
	if len(services) > 0 {
		comp.Score += highValueServiceBonus
		shown := services
		if len(shown) > 2 {
			shown = shown[:2]
		}
		comp.Contributing = append(comp.Contributing,
			fmt.Sprintf("High-value services (%s) (+%d pts)", strings.Join(shown, ", "), highValueServiceBonus))
	} else {
		comp.Missing = append(comp.Missing, "Boarding or specialty services")
	}

	comp.Detail = fmt.Sprintf("%d reviews, %d services, multiple_locations=%t",
		reviews, len(services), in.Baseline.MultipleLocations)
	return capComponent(comp)
}

func scoreTechnology(in model.ScoringInput) model.ScoreComponent {
	comp := newComponent(MaxTechnology)

	if in.Enrichment.OnlineBooking {
		comp.Score += onlineBookingScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Online booking (+%d pts)", onlineBookingScore))
	} else {
		comp.Missing = append(comp.Missing, "Online booking")
	}

	switch {
	case in.Enrichment.PatientPortal:
		comp.Score += portalOrTelemedicineScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Patient portal (+%d pts)", portalOrTelemedicineScore))
	case in.Enrichment.Telemedicine:
		comp.Score += portalOrTelemedicineScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Telemedicine (+%d pts)", portalOrTelemedicineScore))
	default:
		comp.Missing = append(comp.Missing, "Patient portal or telemedicine")
	}

	comp.Detail = fmt.Sprintf("booking=%t, portal=%t, tele=%t",
		in.Enrichment.OnlineBooking, in.Enrichment.PatientPortal, in.Enrichment.Telemedicine)
	return capComponent(comp)
}

func scoreBaseline(in model.ScoringInput) model.ScoreComponent {
	comp := newComponent(MaxBaseline)

	ratingLabel := "none"
	if r := in.Baseline.Rating; r != nil {
		rating := *r
		ratingLabel = fmt.Sprintf("%.1f", rating)
		switch {
		case rating >= ratingHighThreshold:
			comp.Score += ratingHighScore
			comp.Contributing = append(comp.Contributing, fmt.Sprintf("%.1f★ rating (+%d pts)", rating, ratingHighScore))
		case rating >= ratingMediumThreshold:
			comp.Score += ratingMediumScore
			comp.Contributing = append(comp.Contributing, fmt.Sprintf("%.1f★ rating (+%d pts)", rating, ratingMediumScore))
		case rating >= ratingLowThreshold:
			comp.Score += ratingLowScore
			comp.Contributing = append(comp.Contributing, fmt.Sprintf("%.1f★ rating (+%d pts)", rating, ratingLowScore))
		default:
			comp.Missing = append(comp.Missing, fmt.Sprintf("Low rating (%.1f★ < %.1f)", rating, ratingLowThreshold))
		}
	} else {
		comp.Missing = append(comp.Missing, "Google rating")
	}

	if in.HasWebsite() {
		comp.Score += websiteScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Has website (+%d pts)", websiteScore))
	} else {
		comp.Missing = append(comp.Missing, "Website")
	}

	if in.Baseline.MultipleLocations {
		comp.Score += baselineMultiLocationScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Multiple locations (+%d pts)", baselineMultiLocationScore))
	} else {
		comp.Missing = append(comp.Missing, "Multiple locations")
	}

	comp.Detail = fmt.Sprintf("rating=%s, website=%t, multi_loc=%t",
		ratingLabel, in.HasWebsite(), in.Baseline.MultipleLocations)
	return capComponent(comp)
}

func scoreDecisionMaker(in model.ScoringInput) model.ScoreComponent {
	comp := newComponent(MaxDecisionMaker)
	name := strings.TrimSpace(in.Enrichment.DecisionMakerName)

	switch {
	case in.HasDecisionMakerName() && in.HasDecisionMakerEmail():
		comp.Score = decisionMakerFullScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Decision maker identified: %s <%s> (+%d pts)",
			name, strings.TrimSpace(in.Enrichment.DecisionMakerEmail), decisionMakerFullScore))
		comp.Detail = "Name + email: " + name
	case in.HasDecisionMakerName():
		comp.Score = decisionMakerPartialScore
		comp.Contributing = append(comp.Contributing, fmt.Sprintf("Decision maker name only: %s (+%d pts)",
			name, decisionMakerPartialScore))
		comp.Missing = append(comp.Missing, "Decision maker email")
		comp.Detail = "Name only: " + name
	default:
		comp.Missing = append(comp.Missing, "Decision maker name and email")
		comp.Detail = "No decision maker identified"
	}

	return capComponent(comp)
}

func newComponent(max int) model.ScoreComponent {
	return model.ScoreComponent{
		Max:          max,
		Contributing: []string{},
		Missing:      []string{},
	}
}

func capComponent(c model.ScoreComponent) model.ScoreComponent {
	if c.Score > c.Max {
		c.Score = c.Max
	}
	return c
}

func nonEmpty(labels []string) []string {
	var out []string
	for _, l := range labels {
		if s := strings.TrimSpace(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}
