// Package scoring estimates how much of a post's reach is genuine and what a
// campaign should pay per thousand views. Both are pluggable: the heuristics
// here stand in for real models.
package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/garnizeh/clipmarket/internal/metrics"
)

// Metrics are the raw engagement figures of one post.
type Metrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	// WatchTime is the total watch time in seconds across all views.
	WatchTime float64 `json:"watchTime"`
	// ClickOffRate is the share of viewers who left early, 0..1.
	ClickOffRate float64 `json:"clickOffRate"`
}

func (m Metrics) Interactions() int64 { return m.Likes + m.Comments + m.Shares }

// Assessment is a scorer's verdict. Score is 0..100 where 0 means clean;
// ValidatedViews never exceeds the raw views.
type Assessment struct {
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
	ValidatedViews int64   `json:"validatedViews"`
}

type FraudScorer interface {
	Score(ctx context.Context, platform string, m Metrics) (Assessment, error)
}

const (
	minViewsForRatio     = 1000
	lowEngagementRatio   = 0.005
	shortWatchPerView    = 3.0
	highClickOffRate     = 0.7
	penaltyNoInteraction = 40
	penaltyLowEngagement = 35
	penaltyShortWatch    = 25
	penaltyClickOff      = 20
)

// HeuristicScorer adds a fixed penalty for every suspicious signal.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(_ context.Context, _ string, m Metrics) (Assessment, error) {
	if m.Views <= 0 {
		return Assessment{}, nil
	}

	var (
		score   float64
		reasons []string
	)

	ratio := float64(m.Interactions()) / float64(m.Views)
	switch {
	case m.Interactions() == 0:
		score += penaltyNoInteraction
		reasons = append(reasons, "views without any likes, comments or shares")
	case m.Views >= minViewsForRatio && ratio < lowEngagementRatio:
		score += penaltyLowEngagement
		reasons = append(reasons, "engagement rate below 0.5% of views")
	}

	if m.WatchTime/float64(m.Views) < shortWatchPerView {
		score += penaltyShortWatch
		reasons = append(reasons, "average watch time under 3 seconds")
	}

	if m.ClickOffRate > highClickOffRate {
		score += penaltyClickOff
		reasons = append(reasons, "click-off rate above 70%")
	}

	metrics.ObserveFraudScore("heuristic", score)
	return Finalize(score, strings.Join(reasons, "; "), m.Views), nil
}

// Finalize clamps score to 0..100 and discounts views by it.
func Finalize(score float64, reason string, views int64) Assessment {
	score = math.Max(0, math.Min(100, score))
	if views < 0 {
		views = 0
	}
	return Assessment{
		Score:          score,
		Reason:         reason,
		ValidatedViews: int64(float64(views) * (100 - score) / 100),
	}
}
