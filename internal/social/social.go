// Package social links creators to their platform accounts and reads post
// engagement from those platforms.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// RefreshJobType names the background job that re-reads engagement.
const RefreshJobType = "engagement.refresh"

// RefreshPayload is the body of a RefreshJobType job.
type RefreshPayload struct {
	CreatorID int64  `json:"creatorId"`
	Platform  string `json:"platform"`
}

// Enqueuer schedules background work.
type Enqueuer interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
}

type ConnectInput struct {
	Platform    string `json:"platform" validate:"required,platform"`
	Handle      string `json:"handle" validate:"required,max=100"`
	AccessToken string `json:"accessToken" validate:"required"`
}

type Service struct {
	accounts repository.SocialAccountRepo
	posts    repository.PostRepo
	queue    Enqueuer
	logger   *slog.Logger
}

func NewService(accounts repository.SocialAccountRepo, posts repository.PostRepo, queue Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, posts: posts, queue: queue, logger: logger}
}

// Connect links the calling creator to a platform account, replacing any
// previous link for that platform.
func (s *Service) Connect(ctx context.Context, actor identity.Actor, in ConnectInput) (*models.SocialAccount, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	if !actor.IsCreator() {
		return nil, common.ErrUnauthorized
	}

	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.Handle = strings.TrimSpace(in.Handle)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	a := &models.SocialAccount{
		UserID:      actor.UserID,
		Platform:    in.Platform,
		Handle:      in.Handle,
		AccessToken: in.AccessToken,
	}
	if _, err := s.accounts.UpsertSocialAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("upsert social account: %w", err)
	}

	s.logger.Info("social account connected", slog.Int64("user_id", actor.UserID), slog.String("platform", in.Platform))
	return a, nil
}

func (s *Service) Accounts(ctx context.Context, actor identity.Actor) ([]models.SocialAccount, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	as, err := s.accounts.ListSocialAccounts(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	return as, nil
}

// RequestRefresh asks for the caller's posts on platform to be measured
// again. The caller always gets success; scheduling problems are only logged.
func (s *Service) RequestRefresh(ctx context.Context, actor identity.Actor, platform string) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !actor.IsCreator() || !validation.IsPlatform(platform) || s.queue == nil {
		return
	}

	posts, err := s.posts.ListPostsByCreatorPlatform(ctx, actor.UserID, platform)
	if err != nil {
		s.logger.Error("refresh: list posts", slog.Int64("user_id", actor.UserID), slog.Any("err", err))
		return
	}
	if len(posts) == 0 {
		return
	}

	payload, err := json.Marshal(RefreshPayload{CreatorID: actor.UserID, Platform: platform})
	if err != nil {
		s.logger.Error("refresh: marshal payload", slog.Any("err", err))
		return
	}

	id, err := s.queue.Enqueue(ctx, &models.BackgroundJob{Type: RefreshJobType, Payload: payload})
	if err != nil {
		s.logger.Error("refresh: enqueue", slog.Int64("user_id", actor.UserID), slog.String("platform", platform), slog.Any("err", err))
		return
	}

	s.logger.Info("engagement refresh queued", slog.Int64("job_id", id), slog.Int64("user_id", actor.UserID), slog.String("platform", platform), slog.Int("posts", len(posts)))
}
