package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/internal/submissions"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// RefreshHandler re-measures every post a creator has on one platform. Each
// post's engagement is rewritten and a fraud log is added the first time the
// post scores above zero.
func RefreshHandler(store repository.Store, fetcher social.EngagementFetcher, scorer scoring.FraudScorer, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, j *models.BackgroundJob) error {
		var p social.RefreshPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
		}
		if p.CreatorID <= 0 || !validation.IsPlatform(p.Platform) {
			return fmt.Errorf("%w: bad payload %s", ErrPermanent, j.Payload)
		}

		acct, err := store.GetSocialAccount(ctx, p.CreatorID, p.Platform)
		if err != nil {
			return fmt.Errorf("load social account: %w", err)
		}
		if acct == nil || acct.AccessToken == "" {
			return fmt.Errorf("%w: creator %d has no %s account", ErrPermanent, p.CreatorID, p.Platform)
		}

		posts, err := store.ListPostsByCreatorPlatform(ctx, p.CreatorID, p.Platform)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}

		for _, pd := range posts {
			if err := refreshPost(ctx, store, fetcher, scorer, acct.AccessToken, pd.Post); err != nil {
				return fmt.Errorf("refresh post %d: %w", pd.Post.ID, err)
			}
		}

		logger.Info("engagement refreshed", slog.Int64("creator_id", p.CreatorID), slog.String("platform", p.Platform), slog.Int("posts", len(posts)))
		return nil
	}
}

func refreshPost(ctx context.Context, store repository.Store, fetcher social.EngagementFetcher, scorer scoring.FraudScorer, token string, post models.Post) error {
	fetched, err := fetcher.Fetch(ctx, post.Platform, post.PostURL, token)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	a, err := scorer.Score(ctx, post.Platform, fetched.Metrics)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	e := submissions.NewEngagement(fetched.Metrics, a)
	e.PostID = post.ID

	return store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.UpdateEngagement(ctx, &e); err != nil {
			return err
		}
		if a.Score <= 0 {
			return nil
		}

		existing, err := tx.GetFraudLog(ctx, post.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		_, err = tx.CreateFraudLog(ctx, &models.FraudLog{PostID: post.ID, Score: a.Score, Reason: a.Reason})
		return err
	})
}
