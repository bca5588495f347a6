package social

import (
	"context"
	"hash/fnv"
	"math/rand/v2"

	"github.com/garnizeh/clipmarket/internal/scoring"
)

// Fetched is what a platform reports for one post.
type Fetched struct {
	ExternalPostID string
	Author         string
	Metrics        scoring.Metrics
}

// EngagementFetcher reads a post's engagement figures from its platform.
type EngagementFetcher interface {
	Fetch(ctx context.Context, platform, postURL, accessToken string) (Fetched, error)
}

// StandInFetcher derives stable figures from the post URL instead of calling
// the platform APIs. The same URL always yields the same metrics.
type StandInFetcher struct{}

func (StandInFetcher) Fetch(ctx context.Context, platform, postURL, _ string) (Fetched, error) {
	if err := ctx.Err(); err != nil {
		return Fetched{}, err
	}

	id, author, err := ParsePostURL(platform, postURL)
	if err != nil {
		return Fetched{}, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(platform + "|" + id))
	r := rand.New(rand.NewPCG(h.Sum64(), 0x9e3779b97f4a7c15))

	views := int64(1000 + r.IntN(499_000))
	// a minority of posts look inorganic
	engagement := 0.02 + r.Float64()*0.08
	watchPerView := 4 + r.Float64()*20
	clickOff := 0.1 + r.Float64()*0.4
	if r.IntN(5) == 0 {
		engagement = r.Float64() * 0.004
		watchPerView = r.Float64() * 3
		clickOff = 0.6 + r.Float64()*0.35
	}

	interactions := float64(views) * engagement
	m := scoring.Metrics{
		Views:        views,
		Likes:        int64(interactions * 0.8),
		Comments:     int64(interactions * 0.12),
		Shares:       int64(interactions * 0.08),
		WatchTime:    float64(views) * watchPerView,
		ClickOffRate: clickOff,
	}
	return Fetched{ExternalPostID: id, Author: author, Metrics: m}, nil
}
