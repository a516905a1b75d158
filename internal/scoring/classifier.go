package scoring

import (
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/model"
)

// Tier breakpoints on the final, post-penalty score.
const (
	HotThreshold  = 80
	WarmThreshold = 50
	ColdThreshold = 20
)

// Size bands by veterinarian count.
const (
	soloMax      = 1
	smallMax     = 2
	sweetSpotMin = 3
	sweetSpotMax = 8
	largeMax     = 19
)

// Classifier maps vet counts to size categories and scores to priority tiers.
type Classifier struct{}

// NewClassifier returns a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Size classifies a practice by vet count. A nil count yields nil.
func (c *Classifier) Size(vetCount *int) *model.SizeCategory {
	if vetCount == nil {
		return nil
	}
	var size model.SizeCategory
	switch n := *vetCount; {
	case n <= soloMax:
		size = model.SizeSolo
	case n <= smallMax:
		size = model.SizeSmall
	case n <= sweetSpotMax:
		size = model.SizeSweetSpot
	case n <= largeMax:
		size = model.SizeLarge
	default:
		size = model.SizeCorporate
	}
	return &size
}

// Tier assigns a priority tier. A lead whose enrichment status is present
// but not Completed or Partial is PendingEnrichment whatever its score.
func (c *Classifier) Tier(score int, enrichmentStatus string) model.PriorityTier {
	if enrichmentStatus != "" && !enrichmentDone(enrichmentStatus) {
		zap.L().Debug("scoring: enrichment not complete, tier pending",
			zap.String("enrichment_status", enrichmentStatus),
			zap.Int("score", score),
		)
		return model.TierPendingEnrichment
	}

	switch {
	case score >= HotThreshold:
		return model.TierHot
	case score >= WarmThreshold:
		return model.TierWarm
	case score >= ColdThreshold:
		return model.TierCold
	default:
		return model.TierOutOfScope
	}
}

// IsTargetICP reports whether a practice is in the sweet spot and rated Hot
// or Warm. Advisory only.
func (c *Classifier) IsTargetICP(size *model.SizeCategory, tier model.PriorityTier) bool {
	if size == nil || *size != model.SizeSweetSpot {
		return false
	}
	return tier == model.TierHot || tier == model.TierWarm
}

// OutreachRecommendation returns the sales guidance for a tier.
func (c *Classifier) OutreachRecommendation(tier model.PriorityTier) string {
	switch tier {
	case model.TierHot:
		return "Call immediately - high ICP fit"
	case model.TierWarm:
		return "Schedule call soon - good ICP fit"
	case model.TierCold:
		return "Research further or defer - low ICP fit"
	case model.TierOutOfScope:
		return "Do not call - outside target ICP"
	case model.TierPendingEnrichment:
		return "Awaiting enrichment data - score after enrichment completes"
	default:
		return "Unknown priority tier"
	}
}

// SizeDescription returns a human-readable size label.
func (c *Classifier) SizeDescription(size *model.SizeCategory) string {
	if size == nil {
		return "Unknown size (vet count not available)"
	}
	switch *size {
	case model.SizeSolo:
		return "Solo practice (1 vet) - may lack decision-making complexity"
	case model.SizeSmall:
		return "Small practice (2 vets) - near target ICP"
	case model.SizeSweetSpot:
		return "Sweet spot (3-8 vets) - TARGET ICP"
	case model.SizeLarge:
		return "Large practice (9-19 vets) - near target ICP"
	case model.SizeCorporate:
		return "Corporate practice (20+ vets) - too large for target ICP"
	default:
		return "Unknown size category"
	}
}

func enrichmentDone(status string) bool {
	return model.SameLabel(status, model.EnrichmentCompleted) ||
		model.SameLabel(status, model.EnrichmentPartial)
}
