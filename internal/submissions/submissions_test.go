package submissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/db/dbtest"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/repository/sqlite"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/internal/submissions"
)

const postURL = "https://www.tiktok.com/@clipper/video/7234567890"

type fakeFetcher struct {
	m   scoring.Metrics
	err error
}

func (f fakeFetcher) Fetch(ctx context.Context, platform, url, token string) (social.Fetched, error) {
	if f.err != nil {
		return social.Fetched{}, f.err
	}
	return social.Fetched{ExternalPostID: "7234567890", Metrics: f.m}, nil
}

type fixedScorer struct{ score float64 }

func (s fixedScorer) Score(ctx context.Context, platform string, m scoring.Metrics) (scoring.Assessment, error) {
	return scoring.Finalize(s.score, "fixed", m.Views), nil
}

type fixture struct {
	repo     *sqlite.SQLiteRepo
	brand    identity.Actor
	creator  identity.Actor
	outsider identity.Actor
	campaign int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := sqlite.New(dbtest.Open(t), nil)

	actor := func(email string, typ models.AccountType) identity.Actor {
		id, err := repo.CreateUser(ctx, &models.User{Name: email, Email: email, AccountType: typ})
		require.NoError(t, err)
		return identity.Actor{UserID: id, Email: email, AccountType: typ}
	}
	f := &fixture{
		repo:     repo,
		brand:    actor("brand@example.com", models.AccountBrand),
		creator:  actor("creator@example.com", models.AccountCreator),
		outsider: actor("outsider@example.com", models.AccountCreator),
	}

	id, err := repo.CreateCampaign(ctx, &models.Campaign{
		BrandID: f.brand.UserID, Title: "Launch", Budget: 500, CPM: 4, RequiredViews: 10000,
		StartDate: "2026-01-01", EndDate: "2026-01-31", Platforms: []string{"tiktok", "youtube"},
		Status: models.CampaignActive, Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)
	f.campaign = id

	require.NoError(t, repo.JoinCampaign(ctx, id, f.creator.UserID))
	_, err = repo.UpsertSocialAccount(ctx, &models.SocialAccount{UserID: f.creator.UserID, Platform: "tiktok", Handle: "@clipper", AccessToken: "tok"})
	require.NoError(t, err)
	return f
}

func (f *fixture) service(fetcher social.EngagementFetcher, score float64) *submissions.Service {
	return submissions.NewService(f.repo, fetcher, fixedScorer{score: score}, nil)
}

var metrics = scoring.Metrics{Views: 10000, Likes: 400, Comments: 50, Shares: 20, WatchTime: 90000, ClickOffRate: 0.3}

func TestSubmitClean(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(fakeFetcher{m: metrics}, 0)

	got, err := svc.Submit(ctx, f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "TikTok", PostURL: postURL})
	require.NoError(t, err)
	assert.NotZero(t, got.Post.ID)
	assert.Equal(t, models.PostPending, got.Post.Status)
	assert.Equal(t, "7234567890", got.Post.ExternalPostID)
	assert.Equal(t, int64(10000), got.Engagement.RawViews)
	assert.Equal(t, int64(10000), got.Engagement.ValidatedViews)
	assert.Nil(t, got.FraudLog)

	fl, err := f.repo.GetFraudLog(ctx, got.Post.ID)
	require.NoError(t, err)
	assert.Nil(t, fl, "clean posts get no fraud log")
}

func TestSubmitSuspicious(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(fakeFetcher{m: metrics}, 40)

	got, err := svc.Submit(ctx, f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), got.Engagement.ValidatedViews)
	assert.Equal(t, 40.0, got.Engagement.FraudScore)
	require.NotNil(t, got.FraudLog)
	assert.Equal(t, "fixed", got.FraudLog.Reason)

	posts, err := f.repo.ListPostsByCampaign(ctx, f.campaign)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].FraudLog)
	assert.Equal(t, 40.0, posts[0].FraudLog.Score)
}

func TestSubmitRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(fakeFetcher{m: metrics}, 0)

	valid := submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL}

	cases := []struct {
		name  string
		actor identity.Actor
		in    submissions.SubmitInput
		want  error
	}{
		{"anonymous", identity.Actor{}, valid, common.ErrUnauthorized},
		{"brand", f.brand, valid, common.ErrUnauthorized},
		{"not a participant", f.outsider, valid, common.ErrNotParticipant},
		{"unknown campaign", f.creator, submissions.SubmitInput{CampaignID: 9999, Platform: "tiktok", PostURL: postURL}, common.ErrNotParticipant},
		{"platform outside campaign", f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "x", PostURL: postURL}, common.ErrValidation},
		{"no account for platform", f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "youtube", PostURL: "https://youtu.be/abc"}, common.ErrNoSocialAccount},
		{"bad url", f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: "clip"}, common.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	posts, err := f.repo.ListPostsByCampaign(ctx, f.campaign)
	require.NoError(t, err)
	assert.Empty(t, posts, "rejected submissions store nothing")
}

func TestSubmitEmptyToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.repo.UpsertSocialAccount(ctx, &models.SocialAccount{UserID: f.creator.UserID, Platform: "tiktok", Handle: "@clipper"})
	require.NoError(t, err)

	_, err = f.service(fakeFetcher{m: metrics}, 0).Submit(ctx, f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL})
	assert.ErrorIs(t, err, common.ErrNoSocialAccount)
}

func TestSubmitFetchFailureStoresNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	boom := errors.New("platform unavailable")

	_, err := f.service(fakeFetcher{err: boom}, 0).Submit(ctx, f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL})
	assert.ErrorIs(t, err, boom)

	posts, err := f.repo.ListPostsByCampaign(ctx, f.campaign)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSubmitWithStandInFetcher(t *testing.T) {
	f := setup(t)
	svc := submissions.NewService(f.repo, nil, nil, nil)

	got, err := svc.Submit(context.Background(), f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL})
	require.NoError(t, err)
	assert.LessOrEqual(t, got.Engagement.ValidatedViews, got.Engagement.RawViews)
	assert.GreaterOrEqual(t, got.Engagement.ValidatedViews, int64(0))
	assert.Equal(t, got.Engagement.FraudScore > 0, got.FraudLog != nil)
}

func TestListForCampaign(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(fakeFetcher{m: metrics}, 0)

	_, err := svc.Submit(ctx, f.creator, submissions.SubmitInput{CampaignID: f.campaign, Platform: "tiktok", PostURL: postURL})
	require.NoError(t, err)

	asBrand, err := svc.ListForCampaign(ctx, f.brand, f.campaign)
	require.NoError(t, err)
	assert.Len(t, asBrand, 1)

	asCreator, err := svc.ListForCampaign(ctx, f.creator, f.campaign)
	require.NoError(t, err)
	assert.Len(t, asCreator, 1)

	asOutsider, err := svc.ListForCampaign(ctx, f.outsider, f.campaign)
	require.NoError(t, err)
	assert.Empty(t, asOutsider)

	_, err = svc.ListForCampaign(ctx, identity.Actor{}, f.campaign)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	_, err = svc.ListForCampaign(ctx, f.brand, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewEngagementClampsValidatedViews(t *testing.T) {
	e := submissions.NewEngagement(scoring.Metrics{Views: 100}, scoring.Assessment{ValidatedViews: 500})
	assert.Equal(t, int64(100), e.ValidatedViews)

	e = submissions.NewEngagement(scoring.Metrics{Views: 100}, scoring.Assessment{ValidatedViews: -3})
	assert.Zero(t, e.ValidatedViews)
}
