package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/clipmarket/internal/models"
)

func (r *SQLiteRepo) JoinCampaign(ctx context.Context, campaignID, creatorID int64) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO campaign_participants (campaign_id, creator_id, status, joined) VALUES (?, ?, ?, ?) ON CONFLICT(campaign_id, creator_id) DO NOTHING`,
		campaignID, creatorID, models.ParticipantJoined, now())
	return err
}

func (r *SQLiteRepo) GetParticipant(ctx context.Context, campaignID, creatorID int64) (*models.CampaignParticipant, error) {
	var p models.CampaignParticipant
	if err := r.conn.Get(ctx, &p, `SELECT id, campaign_id, creator_id, status, joined FROM campaign_participants WHERE campaign_id = ? AND creator_id = ?`, campaignID, creatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepo) CountParticipants(ctx context.Context, campaignID, creatorID int64) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM campaign_participants WHERE campaign_id = ? AND creator_id = ?`, campaignID, creatorID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
