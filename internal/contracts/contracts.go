// Package contracts implements the offer workflow between a brand and a
// creator.
package contracts

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
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const defaultCurrency = "USD"

type CreateInput struct {
	// BrandID is optional; when set it must be the caller.
	BrandID      int64    `json:"brandId" validate:"gte=0"`
	CreatorID    int64    `json:"creatorId" validate:"gt=0"`
	CampaignID   int64    `json:"campaignId" validate:"gt=0"`
	Amount       float64  `json:"amount" validate:"gt=0"`
	Currency     string   `json:"currency" validate:"omitempty,iso4217"`
	Deliverables []string `json:"deliverables" validate:"required,min=1,max=50,dive,required,max=500"`
	DueDate      string   `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

type Service struct {
	store  repository.Store
	logger *slog.Logger
}

func NewService(store repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create offers a contract from the calling brand to a creator for one of the
// brand's campaigns.
func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*models.Contract, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Deliverables = slices.Clone(in.Deliverables)
	for i, d := range in.Deliverables {
		in.Deliverables[i] = strings.TrimSpace(d)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if !actor.IsBrand() || (in.BrandID != 0 && in.BrandID != actor.UserID) {
		return nil, common.ErrUnauthorized
	}

	camp, err := s.store.GetCampaign(ctx, in.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if camp == nil || camp.BrandID != actor.UserID {
		return nil, common.ErrNotFound
	}

	creator, err := s.store.GetUserByID(ctx, in.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("load creator: %w", err)
	}
	if creator == nil || creator.AccountType != models.AccountCreator {
		return nil, common.ErrNotFound
	}

	c := &models.Contract{
		BrandID:      actor.UserID,
		CreatorID:    in.CreatorID,
		CampaignID:   in.CampaignID,
		Amount:       in.Amount,
		Currency:     in.Currency,
		Deliverables: in.Deliverables,
		Status:       models.ContractPending,
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if in.DueDate != "" {
		c.DueDate = &in.DueDate
	}

	if _, err := s.store.CreateContract(ctx, c); err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}

	metrics.ContractTransition(string(models.ContractPending))
	s.logger.Info("contract offered",
		slog.Int64("contract_id", c.ID),
		slog.Int64("campaign_id", c.CampaignID),
		slog.Int64("creator_id", c.CreatorID),
	)
	return c, nil
}

// Accept makes the calling creator a participant of the contract's campaign
// and marks the contract accepted, atomically. Accepting twice is a no-op.
func (s *Service) Accept(ctx context.Context, actor identity.Actor, contractID int64) (*models.Contract, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}

	var out *models.Contract
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := ownContract(ctx, tx, actor, contractID)
		if err != nil {
			return err
		}
		if c.Status == models.ContractDeclined {
			return common.ErrConflict
		}

		if err := tx.JoinCampaign(ctx, c.CampaignID, actor.UserID); err != nil {
			return fmt.Errorf("join campaign: %w", err)
		}
		if c.Status != models.ContractAccepted {
			if err := tx.UpdateContractStatus(ctx, c.ID, models.ContractAccepted); err != nil {
				return fmt.Errorf("update contract: %w", err)
			}
			c.Status = models.ContractAccepted
		}

		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ContractTransition(string(models.ContractAccepted))
	s.logger.Info("contract accepted", slog.Int64("contract_id", out.ID), slog.Int64("creator_id", actor.UserID))
	return out, nil
}

// Decline rejects a pending contract addressed to the calling creator.
func (s *Service) Decline(ctx context.Context, actor identity.Actor, contractID int64) (*models.Contract, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}

	var out *models.Contract
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := ownContract(ctx, tx, actor, contractID)
		if err != nil {
			return err
		}
		if c.Status != models.ContractPending {
			return common.ErrConflict
		}
		if err := tx.UpdateContractStatus(ctx, c.ID, models.ContractDeclined); err != nil {
			return fmt.Errorf("update contract: %w", err)
		}
		c.Status = models.ContractDeclined
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ContractTransition(string(models.ContractDeclined))
	s.logger.Info("contract declined", slog.Int64("contract_id", out.ID), slog.Int64("creator_id", actor.UserID))
	return out, nil
}

// List returns the contracts the caller is a party to, newest first.
func (s *Service) List(ctx context.Context, actor identity.Actor) ([]models.Contract, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	cs, err := s.store.ListContractsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return cs, nil
}

// ownContract loads a contract addressed to the actor. Contracts of other
// creators are reported as missing.
func ownContract(ctx context.Context, tx repository.Store, actor identity.Actor, id int64) (*models.Contract, error) {
	c, err := tx.GetContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if c == nil || c.CreatorID != actor.UserID {
		return nil, common.ErrNotFound
	}
	return c, nil
}
