// Package submissions accepts creators' campaign posts, measures them and
// records how much of their reach is genuine.
package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/metrics"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

type SubmitInput struct {
	CampaignID int64  `json:"campaignId" validate:"gt=0"`
	Platform   string `json:"platform" validate:"required,platform"`
	PostURL    string `json:"postUrl" validate:"required,url,max=2048"`
}

type Service struct {
	store   repository.Store
	fetcher social.EngagementFetcher
	scorer  scoring.FraudScorer
	logger  *slog.Logger
}

func NewService(store repository.Store, fetcher social.EngagementFetcher, scorer scoring.FraudScorer, logger *slog.Logger) *Service {
	if fetcher == nil {
		fetcher = social.StandInFetcher{}
	}
	if scorer == nil {
		scorer = scoring.HeuristicScorer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, fetcher: fetcher, scorer: scorer, logger: logger}
}

// Submit records a post for a campaign the calling creator participates in,
// together with its measured engagement and, when suspicious, a fraud log.
func (s *Service) Submit(ctx context.Context, actor identity.Actor, in SubmitInput) (*models.PostDetail, error) {
	if !actor.IsCreator() {
		return nil, common.ErrUnauthorized
	}

	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.PostURL = strings.TrimSpace(in.PostURL)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	part, err := s.store.GetParticipant(ctx, in.CampaignID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if part == nil {
		return nil, common.ErrNotParticipant
	}

	camp, err := s.store.GetCampaign(ctx, in.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if camp == nil {
		return nil, common.ErrNotParticipant
	}
	if !slices.Contains(camp.Platforms, in.Platform) {
		return nil, common.NewValidationError("platform", "is not one of the campaign's platforms")
	}

	acct, err := s.store.GetSocialAccount(ctx, actor.UserID, in.Platform)
	if err != nil {
		return nil, fmt.Errorf("load social account: %w", err)
	}
	if acct == nil || acct.AccessToken == "" {
		return nil, common.ErrNoSocialAccount
	}

	fetched, err := s.fetcher.Fetch(ctx, in.Platform, in.PostURL, acct.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch engagement: %w", err)
	}

	a, err := s.scorer.Score(ctx, in.Platform, fetched.Metrics)
	if err != nil {
		return nil, fmt.Errorf("score engagement: %w", err)
	}

	out := &models.PostDetail{
		Post: models.Post{
			ParticipantID:  part.ID,
			Platform:       in.Platform,
			PostURL:        in.PostURL,
			ExternalPostID: fetched.ExternalPostID,
			Status:         models.PostPending,
		},
		Engagement: NewEngagement(fetched.Metrics, a),
		CreatorID:  actor.UserID,
		CampaignID: in.CampaignID,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		postID, err := tx.CreatePost(ctx, &out.Post)
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		out.Engagement.PostID = postID
		if err := tx.CreateEngagement(ctx, &out.Engagement); err != nil {
			return fmt.Errorf("create engagement: %w", err)
		}

		if a.Score > 0 {
			fl := &models.FraudLog{PostID: postID, Score: a.Score, Reason: a.Reason}
			if _, err := tx.CreateFraudLog(ctx, fl); err != nil {
				return fmt.Errorf("create fraud log: %w", err)
			}
			out.FraudLog = fl
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PostSubmitted(in.Platform)
	s.logger.Info("post submitted",
		slog.Int64("post_id", out.Post.ID),
		slog.Int64("campaign_id", in.CampaignID),
		slog.String("platform", in.Platform),
		slog.Float64("fraud_score", a.Score),
	)
	return out, nil
}

// ListForCampaign returns a campaign's posts: all of them for the owning
// brand, only their own for a creator.
func (s *Service) ListForCampaign(ctx context.Context, actor identity.Actor, campaignID int64) ([]models.PostDetail, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}

	camp, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if camp == nil || (actor.IsBrand() && camp.BrandID != actor.UserID) {
		return nil, common.ErrNotFound
	}

	posts, err := s.store.ListPostsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if actor.IsBrand() {
		return posts, nil
	}

	own := make([]models.PostDetail, 0, len(posts))
	for _, p := range posts {
		if p.CreatorID == actor.UserID {
			own = append(own, p)
		}
	}
	return own, nil
}

// NewEngagement combines fetched metrics with a scorer's verdict. Validated
// views stay within 0..raw views.
func NewEngagement(m scoring.Metrics, a scoring.Assessment) models.Engagement {
	return models.Engagement{
		RawViews:       m.Views,
		ValidatedViews: max(0, min(a.ValidatedViews, m.Views)),
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		WatchTime:      m.WatchTime,
		ClickOffRate:   m.ClickOffRate,
		FraudScore:     a.Score,
	}
}
