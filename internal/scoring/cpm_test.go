package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicCPM(t *testing.T) {
	cases := []struct {
		name   string
		in     CPMInput
		cpm    float64
		min    float64
		max    float64
		reason string
	}{
		{
			name:   "single platform",
			in:     CPMInput{Platforms: []string{"tiktok"}, RequiredViews: 50000, Budget: 1000},
			cpm:    2.5, min: 2.0, max: 3.13,
			reason: "platform average",
		},
		{
			name:   "volume discount",
			in:     CPMInput{Platforms: []string{"youtube", "instagram"}, RequiredViews: 1_000_000},
			cpm:    4.5, min: 3.6, max: 5.63,
			reason: "platform average with volume discount",
		},
		{
			name:   "discount capped",
			in:     CPMInput{Platforms: []string{"tiktok"}, RequiredViews: 1_000_000_000},
			cpm:    1.75, min: 1.4, max: 2.19,
			reason: "platform average with volume discount",
		},
		{
			name:   "budget too small",
			in:     CPMInput{Platforms: []string{"x"}, RequiredViews: 100, Budget: 0.1},
			cpm:    1.8, min: 1.44, max: 2.25,
			reason: "platform average; budget only covers 1.00 per 1000 views",
		},
		{
			name:   "unknown platform uses default",
			in:     CPMInput{Platforms: []string{"myspace"}, RequiredViews: 1000},
			cpm:    3.0, min: 2.4, max: 3.75,
			reason: "platform average",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HeuristicCPM{}.Recommend(tc.in)
			assert.InDelta(t, tc.cpm, got.CPM, 0.011)
			assert.InDelta(t, tc.min, got.Min, 0.011)
			assert.InDelta(t, tc.max, got.Max, 0.011)
			assert.Equal(t, tc.reason, got.Reason)
			assert.LessOrEqual(t, got.Min, got.CPM)
			assert.GreaterOrEqual(t, got.Max, got.CPM)
		})
	}
}
