package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const campaignColumns = `id, brand_id, title, description, budget, cpm, required_views, start_date, end_date, status, visibility, created, updated`

func (r *SQLiteRepo) CreateCampaign(ctx context.Context, c *models.Campaign) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("campaign is nil")
	}

	var id int64
	err := r.WithTx(ctx, func(txs repository.Store) error {
		tx := txs.(*SQLiteRepo)
		ts := now()
		res, err := tx.conn.Exec(ctx, `INSERT INTO campaigns (brand_id, title, description, budget, cpm, required_views, start_date, end_date, status, visibility, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.BrandID, c.Title, c.Description, c.Budget, c.CPM, c.RequiredViews, c.StartDate, c.EndDate, string(c.Status), string(c.Visibility), ts, ts)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		for i, p := range c.Platforms {
			if _, err := tx.conn.Exec(ctx, `INSERT INTO campaign_platforms (campaign_id, position, platform) VALUES (?, ?, ?)`, id, i, p); err != nil {
				return err
			}
		}

		c.ID = id
		c.Created = ts
		c.Updated = ts
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	var c models.Campaign
	if err := r.conn.Get(ctx, &c, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	platforms, err := r.campaignPlatforms(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Platforms = platforms

	return &c, nil
}

func (r *SQLiteRepo) ListCampaignsByBrand(ctx context.Context, brandID int64) ([]models.Campaign, error) {
	return r.listCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE brand_id = ? ORDER BY created DESC, id DESC`, brandID)
}

func (r *SQLiteRepo) ListPublicCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return r.listCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE visibility = 'public' ORDER BY created DESC, id DESC`)
}

func (r *SQLiteRepo) ListAllCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return r.listCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created DESC, id DESC`)
}

func (r *SQLiteRepo) listCampaigns(ctx context.Context, query string, args ...any) ([]models.Campaign, error) {
	out := []models.Campaign{}
	if err := r.conn.Select(ctx, &out, query, args...); err != nil {
		return nil, err
	}

	for i := range out {
		platforms, err := r.campaignPlatforms(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Platforms = platforms
	}

	return out, nil
}

func (r *SQLiteRepo) campaignPlatforms(ctx context.Context, campaignID int64) ([]string, error) {
	platforms := []string{}
	if err := r.conn.Select(ctx, &platforms, `SELECT platform FROM campaign_platforms WHERE campaign_id = ? ORDER BY position`, campaignID); err != nil {
		return nil, err
	}
	return platforms, nil
}

// DeleteCampaign removes the campaign only when brandID owns it. Child rows go
// with it through ON DELETE CASCADE.
func (r *SQLiteRepo) DeleteCampaign(ctx context.Context, id, brandID int64) (bool, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM campaigns WHERE id = ? AND brand_id = ?`, id, brandID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteRepo) CampaignStats(ctx context.Context, ids []int64) (map[int64]models.CampaignStats, error) {
	out := make(map[int64]models.CampaignStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT cp.campaign_id AS campaign_id,
		COALESCE(SUM(e.validated_views), 0) AS validated_views,
		COUNT(DISTINCT cp.id) AS participant_count
		FROM campaign_participants cp
		LEFT JOIN posts p ON p.participant_id = cp.id
		LEFT JOIN engagements e ON e.post_id = p.id
		WHERE cp.campaign_id IN (?)
		GROUP BY cp.campaign_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	var rows []models.CampaignStats
	if err := r.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	for _, id := range ids {
		out[id] = models.CampaignStats{CampaignID: id}
	}
	for _, s := range rows {
		out[s.CampaignID] = s
	}

	return out, nil
}
