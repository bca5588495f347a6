package contracts_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/contracts"
	"github.com/garnizeh/clipmarket/internal/db/dbtest"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/repository/sqlite"
)

type fixture struct {
	svc      *contracts.Service
	repo     *sqlite.SQLiteRepo
	brand    identity.Actor
	other    identity.Actor
	creator  identity.Actor
	creator2 identity.Actor
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
		svc:      contracts.NewService(repo, nil),
		repo:     repo,
		brand:    actor("brand@example.com", models.AccountBrand),
		other:    actor("other@example.com", models.AccountBrand),
		creator:  actor("creator@example.com", models.AccountCreator),
		creator2: actor("creator2@example.com", models.AccountCreator),
	}

	id, err := repo.CreateCampaign(ctx, &models.Campaign{
		BrandID: f.brand.UserID, Title: "Launch", Budget: 500, CPM: 4, RequiredViews: 10000,
		StartDate: "2026-01-01", EndDate: "2026-01-31", Platforms: []string{"tiktok"},
		Status: models.CampaignActive, Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)
	f.campaign = id
	return f
}

func (f *fixture) input() contracts.CreateInput {
	return contracts.CreateInput{
		CreatorID:    f.creator.UserID,
		CampaignID:   f.campaign,
		Amount:       250,
		Deliverables: []string{"one 30s clip", "story repost"},
	}
}

func (f *fixture) offer(t *testing.T) *models.Contract {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.brand, f.input())
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := f.input()
	in.Currency = " eur "
	in.DueDate = "2026-02-15"
	c, err := f.svc.Create(ctx, f.brand, in)
	require.NoError(t, err)
	assert.Equal(t, models.ContractPending, c.Status)
	assert.Equal(t, "EUR", c.Currency)
	require.NotNil(t, c.DueDate)

	stored, err := f.repo.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one 30s clip", "story repost"}, stored.Deliverables)
	assert.Equal(t, f.brand.UserID, stored.BrandID)

	c = f.offer(t)
	assert.Equal(t, "USD", c.Currency, "currency defaults to USD")
}

func TestCreateAuthorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, identity.Actor{}, f.input())
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = f.svc.Create(ctx, f.creator, f.input())
	assert.ErrorIs(t, err, common.ErrUnauthorized, "creators cannot offer")

	in := f.input()
	in.BrandID = f.other.UserID
	_, err = f.svc.Create(ctx, f.brand, in)
	assert.ErrorIs(t, err, common.ErrUnauthorized, "cannot offer on behalf of another brand")

	_, err = f.svc.Create(ctx, f.other, f.input())
	assert.ErrorIs(t, err, common.ErrNotFound, "campaign belongs to someone else")

	in = f.input()
	in.CreatorID = f.other.UserID
	_, err = f.svc.Create(ctx, f.brand, in)
	assert.ErrorIs(t, err, common.ErrNotFound, "recipient must be a creator")

	in = f.input()
	in.CampaignID = 9999
	_, err = f.svc.Create(ctx, f.brand, in)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name  string
		mut   func(*contracts.CreateInput)
		field string
	}{
		{"zero amount", func(in *contracts.CreateInput) { in.Amount = 0 }, "amount"},
		{"no deliverables", func(in *contracts.CreateInput) { in.Deliverables = nil }, "deliverables"},
		{"blank deliverable", func(in *contracts.CreateInput) { in.Deliverables = []string{"   "} }, "deliverables[0]"},
		{"unknown currency", func(in *contracts.CreateInput) { in.Currency = "XYZ" }, "currency"},
		{"bad due date", func(in *contracts.CreateInput) { in.DueDate = "soon" }, "dueDate"},
		{"missing creator", func(in *contracts.CreateInput) { in.CreatorID = 0 }, "creatorId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input()
			tc.mut(&in)
			_, err := f.svc.Create(context.Background(), f.brand, in)

			var verr *common.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestAccept(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.offer(t)

	_, err := f.svc.Accept(ctx, identity.Actor{}, c.ID)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = f.svc.Accept(ctx, f.creator2, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "only the named creator may accept")

	_, err = f.svc.Accept(ctx, f.creator, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := f.svc.Accept(ctx, f.creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractAccepted, got.Status)

	// accepting again is idempotent
	_, err = f.svc.Accept(ctx, f.creator, c.ID)
	require.NoError(t, err)

	n, err := f.repo.CountParticipants(ctx, f.campaign, f.creator.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.repo.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractAccepted, stored.Status)
}

func TestAcceptConcurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.offer(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(ctx, f.creator, c.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	n, err := f.repo.CountParticipants(ctx, f.campaign, f.creator.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c := f.offer(t)
	_, err := f.svc.Decline(ctx, f.creator2, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := f.svc.Decline(ctx, f.creator, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractDeclined, got.Status)

	_, err = f.svc.Decline(ctx, f.creator, c.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = f.svc.Accept(ctx, f.creator, c.ID)
	assert.ErrorIs(t, err, common.ErrConflict, "declined contracts cannot be accepted")

	n, err := f.repo.CountParticipants(ctx, f.campaign, f.creator.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)

	accepted := f.offer(t)
	_, err = f.svc.Accept(ctx, f.creator, accepted.ID)
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, f.creator, accepted.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.offer(t)
	second := f.offer(t)

	asBrand, err := f.svc.List(ctx, f.brand)
	require.NoError(t, err)
	require.Len(t, asBrand, 2)
	assert.Equal(t, second.ID, asBrand[0].ID)
	assert.Equal(t, first.ID, asBrand[1].ID)

	asCreator, err := f.svc.List(ctx, f.creator)
	require.NoError(t, err)
	assert.Len(t, asCreator, 2)

	none, err := f.svc.List(ctx, f.creator2)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.List(ctx, identity.Actor{})
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}
