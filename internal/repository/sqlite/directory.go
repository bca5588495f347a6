package sqlite

import (
	"context"

	"github.com/garnizeh/clipmarket/internal/models"
)

func (r *SQLiteRepo) ListCreators(ctx context.Context) ([]models.CreatorEntry, error) {
	out := []models.CreatorEntry{}
	if err := r.conn.Select(ctx, &out, `SELECT u.id, u.name, COUNT(cp.id) AS joined_campaigns
		FROM users u
		LEFT JOIN campaign_participants cp ON cp.creator_id = u.id
		WHERE u.account_type = 'creator'
		GROUP BY u.id, u.name
		ORDER BY u.name, u.id`); err != nil {
		return nil, err
	}

	for i := range out {
		platforms := []string{}
		if err := r.conn.Select(ctx, &platforms, `SELECT platform FROM social_accounts WHERE user_id = ? ORDER BY platform`, out[i].ID); err != nil {
			return nil, err
		}
		out[i].Platforms = platforms
	}

	return out, nil
}

func (r *SQLiteRepo) ListBrands(ctx context.Context) ([]models.BrandEntry, error) {
	out := []models.BrandEntry{}
	if err := r.conn.Select(ctx, &out, `SELECT u.id, u.name, COUNT(c.id) AS active_campaigns
		FROM users u
		LEFT JOIN campaigns c ON c.brand_id = u.id AND c.status = 'active' AND c.visibility = 'public'
		WHERE u.account_type = 'brand'
		GROUP BY u.id, u.name
		ORDER BY u.name, u.id`); err != nil {
		return nil, err
	}
	return out, nil
}
