// Package campaigns manages brand campaigns and the figures shown alongside
// them.
package campaigns

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const dateLayout = "2006-01-02"

type CreateInput struct {
	Title         string   `json:"title" validate:"required,min=3,max=120"`
	Description   string   `json:"description" validate:"max=2000"`
	Budget        float64  `json:"budget" validate:"gt=0"`
	CPM           float64  `json:"cpm" validate:"gt=0"`
	RequiredViews int64    `json:"requiredViews" validate:"gt=0"`
	StartDate     string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	Platforms     []string `json:"platforms" validate:"required,min=1,max=4,unique,dive,platform"`
	Status        string   `json:"status" validate:"omitempty,oneof=draft active paused completed"`
	Visibility    string   `json:"visibility" validate:"omitempty,oneof=public private"`
}

// View is a campaign with its computed display fields.
type View struct {
	models.Campaign
	Slug             string  `json:"slug"`
	ViewsDelivered   int64   `json:"viewsDelivered"`
	Spent            float64 `json:"spent"`
	Progress         float64 `json:"progress"`
	DaysRemaining    int     `json:"daysRemaining"`
	ParticipantCount int64   `json:"participantCount"`
}

type Service struct {
	store  repository.Store
	cpm    scoring.CPMRecommender
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCPMRecommender replaces the heuristic recommender.
func WithCPMRecommender(r scoring.CPMRecommender) Option {
	return func(s *Service) { s.cpm = r }
}

func NewService(store repository.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, cpm: scoring.HeuristicCPM{}, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*models.Campaign, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	if !actor.IsBrand() {
		return nil, common.ErrUnauthorized
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	start, _ := time.Parse(dateLayout, in.StartDate)
	end, _ := time.Parse(dateLayout, in.EndDate)
	if end.Before(start) {
		return nil, common.NewValidationError("endDate", "must not be before startDate")
	}

	c := &models.Campaign{
		BrandID:       actor.UserID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Budget:        in.Budget,
		CPM:           in.CPM,
		RequiredViews: in.RequiredViews,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Platforms:     in.Platforms,
		Status:        models.CampaignDraft,
		Visibility:    models.VisibilityPublic,
	}
	if in.Status != "" {
		c.Status = models.CampaignStatus(in.Status)
	}
	if in.Visibility != "" {
		c.Visibility = models.Visibility(in.Visibility)
	}

	if _, err := s.store.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	s.logger.Info("campaign created", slog.Int64("campaign_id", c.ID), slog.Int64("brand_id", c.BrandID))
	return c, nil
}

// ListForBrand returns every campaign of the calling brand, newest first.
func (s *Service) ListForBrand(ctx context.Context, actor identity.Actor) ([]View, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	if !actor.IsBrand() {
		return nil, common.ErrUnauthorized
	}

	cs, err := s.store.ListCampaignsByBrand(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list brand campaigns: %w", err)
	}
	return s.views(ctx, cs)
}

// ListVisible is the role-filtered listing: a brand sees its own campaigns,
// everyone else sees public ones whatever their status.
func (s *Service) ListVisible(ctx context.Context, actor identity.Actor) ([]View, error) {
	if actor.IsBrand() {
		return s.ListForBrand(ctx, actor)
	}

	cs, err := s.store.ListPublicCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public campaigns: %w", err)
	}
	return s.views(ctx, cs)
}

// GetBySlug finds a campaign the actor may see by its derived slug, or by
// numeric id when no slug matches.
func (s *Service) GetBySlug(ctx context.Context, actor identity.Actor, slug string) (*View, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, common.ErrNotFound
	}

	all, err := s.store.ListAllCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	var byID *models.Campaign
	id, idErr := strconv.ParseInt(slug, 10, 64)
	for i := range all {
		c := &all[i]
		if !canSee(actor, c) {
			continue
		}
		if Slug(c.Title) == slug {
			return s.view(ctx, c)
		}
		if idErr == nil && byID == nil && c.ID == id {
			byID = c
		}
	}

	if byID == nil {
		return nil, common.ErrNotFound
	}
	return s.view(ctx, byID)
}

// Delete removes a campaign owned by the calling brand.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id int64) error {
	if !actor.Authenticated() {
		return common.ErrUnauthenticated
	}
	if !actor.IsBrand() {
		return common.ErrUnauthorized
	}

	ok, err := s.store.DeleteCampaign(ctx, id, actor.UserID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if !ok {
		return common.ErrNotFound
	}

	s.logger.Info("campaign deleted", slog.Int64("campaign_id", id), slog.Int64("brand_id", actor.UserID))
	return nil
}

// RecommendCPM suggests a rate per thousand views for a planned campaign.
func (s *Service) RecommendCPM(in scoring.CPMInput) (scoring.CPMRecommendation, error) {
	if err := validation.Struct(in); err != nil {
		return scoring.CPMRecommendation{}, err
	}
	return s.cpm.Recommend(in), nil
}

func canSee(actor identity.Actor, c *models.Campaign) bool {
	if actor.IsBrand() && c.BrandID == actor.UserID {
		return true
	}
	return c.Visibility == models.VisibilityPublic
}

func (s *Service) view(ctx context.Context, c *models.Campaign) (*View, error) {
	vs, err := s.views(ctx, []models.Campaign{*c})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func (s *Service) views(ctx context.Context, cs []models.Campaign) ([]View, error) {
	out := make([]View, 0, len(cs))
	if len(cs) == 0 {
		return out, nil
	}

	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	stats, err := s.store.CampaignStats(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("campaign stats: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	for _, c := range cs {
		out = append(out, display(c, stats[c.ID], today))
	}
	return out, nil
}

func display(c models.Campaign, st models.CampaignStats, today time.Time) View {
	v := View{
		Campaign:         c,
		Slug:             Slug(c.Title),
		ViewsDelivered:   st.ValidatedViews,
		ParticipantCount: st.ParticipantCount,
	}

	v.Spent = math.Min(float64(v.ViewsDelivered)/1000*c.CPM, c.Budget)
	v.Spent = math.Round(v.Spent*100) / 100
	if c.RequiredViews > 0 {
		v.Progress = math.Min(100, float64(v.ViewsDelivered)/float64(c.RequiredViews)*100)
		v.Progress = math.Round(v.Progress*10) / 10
	}
	if end, err := time.Parse(dateLayout, c.EndDate); err == nil {
		v.DaysRemaining = max(0, int(end.Sub(today).Hours()/24))
	}
	return v
}

// Slug lower-cases title and collapses every run of characters other than
// letters and digits into a single hyphen.
func Slug(title string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
