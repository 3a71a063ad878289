package core

type QualityTier string

const (
	TierGood   QualityTier = "good"
	TierMedium QualityTier = "medium"
	TierBad    QualityTier = "bad"
)

type Quality struct {
	Status string
	Tier   QualityTier
}

// QualityTrend grades a history of predictions by its share of healthy leaves.
func QualityTrend(predictions []Label) Quality {
	if len(predictions) == 0 {
		return Quality{Status: "N/A", Tier: TierBad}
	}

	healthy := 0
	for _, p := range predictions {
		if p == Healthy {
			healthy++
		}
	}

	ratio := float64(healthy) / float64(len(predictions))
	switch {
	case ratio > 0.7:
		return Quality{Status: "Good", Tier: TierGood}
	case ratio > 0.4:
		return Quality{Status: "Needs Improvement", Tier: TierMedium}
	default:
		return Quality{Status: "Bad", Tier: TierBad}
	}
}
