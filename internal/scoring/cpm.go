package scoring

import (
	"math"
	"strconv"
)

// CPMInput describes the campaign a CPM is recommended for.
type CPMInput struct {
	Platforms     []string `json:"platforms" validate:"required,min=1,max=4,unique,dive,platform"`
	RequiredViews int64    `json:"requiredViews" validate:"gt=0"`
	Budget        float64  `json:"budget" validate:"gte=0"`
}

type CPMRecommendation struct {
	CPM    float64 `json:"cpm"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Reason string  `json:"reason"`
}

type CPMRecommender interface {
	Recommend(in CPMInput) CPMRecommendation
}

var baseCPM = map[string]float64{
	"tiktok":    2.5,
	"instagram": 4.0,
	"youtube":   6.0,
	"x":         1.8,
}

const (
	minCPM = 0.5
	maxCPM = 50
)

// HeuristicCPM averages per-platform base rates and discounts large orders.
type HeuristicCPM struct{}

func (HeuristicCPM) Recommend(in CPMInput) CPMRecommendation {
	var sum float64
	n := 0
	for _, p := range in.Platforms {
		if b, ok := baseCPM[p]; ok {
			sum += b
			n++
		}
	}
	base := 3.0
	if n > 0 {
		base = sum / float64(n)
	}

	// volume discount: 10% per tenfold above 100k views, at most 30%
	factor := 1.0
	reason := "platform average"
	if in.RequiredViews > 100_000 {
		discount := math.Min(0.30, 0.10*math.Log10(float64(in.RequiredViews)/100_000))
		factor -= discount
		reason = "platform average with volume discount"
	}

	cpm := clampCPM(round2(base * factor))

	// budget cannot buy the requested views at this rate
	if in.Budget > 0 && in.RequiredViews > 0 {
		affordable := in.Budget / float64(in.RequiredViews) * 1000
		if affordable < cpm {
			reason += "; budget only covers " + formatCPM(affordable)
		}
	}

	return CPMRecommendation{
		CPM:    cpm,
		Min:    clampCPM(round2(cpm * 0.8)),
		Max:    clampCPM(round2(cpm * 1.25)),
		Reason: reason,
	}
}

func clampCPM(v float64) float64 { return math.Max(minCPM, math.Min(maxCPM, v)) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func formatCPM(v float64) string { return strconv.FormatFloat(round2(v), 'f', 2, 64) + " per 1000 views" }
