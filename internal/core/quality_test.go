package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeat(label Label, n int) []Label {
	out := make([]Label, n)
	for i := range out {
		out[i] = label
	}
	return out
}

func TestQualityTrend(t *testing.T) {
	tests := []struct {
		name        string
		predictions []Label
		want        Quality
	}{
		{"empty history", nil, Quality{Status: "N/A", Tier: TierBad}},
		{"three healthy one sick", append(repeat(Healthy, 3), LateBlight), Quality{Status: "Good", Tier: TierGood}},
		{"one healthy four sick", append(repeat(Healthy, 1), repeat(EarlyBlight, 4)...), Quality{Status: "Bad", Tier: TierBad}},
		{"half healthy", []Label{Healthy, LeafMold}, Quality{Status: "Needs Improvement", Tier: TierMedium}},
		{"exactly 0.7 is not good", append(repeat(Healthy, 7), repeat(TargetSpot, 3)...), Quality{Status: "Needs Improvement", Tier: TierMedium}},
		{"exactly 0.4 is bad", append(repeat(Healthy, 2), repeat(SpiderMites, 3)...), Quality{Status: "Bad", Tier: TierBad}},
		{"all healthy", repeat(Healthy, 5), Quality{Status: "Good", Tier: TierGood}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualityTrend(tt.predictions))
		})
	}
}
