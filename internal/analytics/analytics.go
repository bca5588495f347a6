// Package analytics serves the dashboard figures, the public directory and
// the finance export. Dashboard and export figures are fixed sample data.
package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

type MonthlyPoint struct {
	Month string  `json:"month"`
	Spend float64 `json:"spend"`
	Views int64   `json:"views"`
}

type Payment struct {
	ID      string  `json:"id"`
	Creator string  `json:"creator"`
	Amount  float64 `json:"amount"`
	Date    string  `json:"date"`
	Status  string  `json:"status"`
}

type BrandAnalytics struct {
	TotalSpend      float64        `json:"totalSpend"`
	ActiveCampaigns int            `json:"activeCampaigns"`
	TotalCampaigns  int            `json:"totalCampaigns"`
	ROI             float64        `json:"roi"`
	Impressions     int64          `json:"impressions"`
	EngagementRate  float64        `json:"engagementRate"`
	Monthly         []MonthlyPoint `json:"monthly"`
	RecentPayments  []Payment      `json:"recentPayments"`
}

type Directory struct {
	Creators []models.CreatorEntry `json:"creators"`
	Brands   []models.BrandEntry   `json:"brands"`
}

// FinanceHeader is the first line of every finance export.
var FinanceHeader = []string{"type", "name", "amount", "date", "status"}

type financeRow struct {
	typ, name string
	amount    float64
	date      string
	status    string
}

var financeRows = []financeRow{
	{"payout", "Maya Lopez", 1250.00, "2026-01-05", "paid"},
	{"payout", "Jordan Kim", 860.50, "2026-01-12", "paid"},
	{"campaign", "Summer Drop", 5000.00, "2026-01-15", "funded"},
	{"payout", "Sam Rivera", 430.25, "2026-01-28", "pending"},
	{"refund", "Winter Teaser", -300.00, "2026-02-02", "processed"},
}

type Service struct {
	dir repository.DirectoryRepo
}

func NewService(dir repository.DirectoryRepo) *Service {
	return &Service{dir: dir}
}

// BrandAnalytics returns the dashboard payload for brands and nil for every
// other account type.
func (s *Service) BrandAnalytics(ctx context.Context, actor identity.Actor) (*BrandAnalytics, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}
	if !actor.IsBrand() {
		return nil, nil
	}

	return &BrandAnalytics{
		TotalSpend:      24850.75,
		ActiveCampaigns: 4,
		TotalCampaigns:  11,
		ROI:             3.2,
		Impressions:     4_820_000,
		EngagementRate:  5.8,
		Monthly: []MonthlyPoint{
			{Month: "2025-10", Spend: 3200, Views: 610_000},
			{Month: "2025-11", Spend: 4100, Views: 790_000},
			{Month: "2025-12", Spend: 5600, Views: 1_050_000},
			{Month: "2026-01", Spend: 6450, Views: 1_240_000},
			{Month: "2026-02", Spend: 5500.75, Views: 1_130_000},
		},
		RecentPayments: []Payment{
			{ID: "pay_1042", Creator: "Maya Lopez", Amount: 1250, Date: "2026-02-05", Status: "paid"},
			{ID: "pay_1041", Creator: "Jordan Kim", Amount: 860.5, Date: "2026-02-03", Status: "paid"},
			{ID: "pay_1040", Creator: "Sam Rivera", Amount: 430.25, Date: "2026-01-28", Status: "pending"},
		},
	}, nil
}

func (s *Service) Directory(ctx context.Context) (*Directory, error) {
	creators, err := s.dir.ListCreators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list creators: %w", err)
	}
	brands, err := s.dir.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return &Directory{Creators: creators, Brands: brands}, nil
}

// FinanceExport writes the finance ledger as CSV to w.
func (s *Service) FinanceExport(ctx context.Context, actor identity.Actor, w io.Writer) error {
	if !actor.Authenticated() {
		return common.ErrUnauthenticated
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(FinanceHeader); err != nil {
		return err
	}
	for _, r := range financeRows {
		rec := []string{r.typ, r.name, strconv.FormatFloat(r.amount, 'f', 2, 64), r.date, r.status}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
