package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/clipmarket/internal/models"
)

func (r *SQLiteRepo) CreatePost(ctx context.Context, p *models.Post) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("post is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO posts (participant_id, platform, post_url, external_post_id, status, created) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ParticipantID, p.Platform, p.PostURL, p.ExternalPostID, p.Status, ts)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.Created = ts

	return id, nil
}

func (r *SQLiteRepo) CreateEngagement(ctx context.Context, e *models.Engagement) error {
	if e == nil {
		return fmt.Errorf("engagement is nil")
	}

	e.Updated = now()
	_, err := r.conn.Exec(ctx, `INSERT INTO engagements (post_id, raw_views, validated_views, likes, comments, shares, watch_time, click_off_rate, fraud_score, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.PostID, e.RawViews, e.ValidatedViews, e.Likes, e.Comments, e.Shares, e.WatchTime, e.ClickOffRate, e.FraudScore, e.Updated)
	return err
}

func (r *SQLiteRepo) UpdateEngagement(ctx context.Context, e *models.Engagement) error {
	if e == nil {
		return fmt.Errorf("engagement is nil")
	}

	e.Updated = now()
	_, err := r.conn.Exec(ctx, `UPDATE engagements SET raw_views = ?, validated_views = ?, likes = ?, comments = ?, shares = ?, watch_time = ?, click_off_rate = ?, fraud_score = ?, updated = ? WHERE post_id = ?`,
		e.RawViews, e.ValidatedViews, e.Likes, e.Comments, e.Shares, e.WatchTime, e.ClickOffRate, e.FraudScore, e.Updated, e.PostID)
	return err
}

func (r *SQLiteRepo) CreateFraudLog(ctx context.Context, f *models.FraudLog) (int64, error) {
	if f == nil {
		return 0, fmt.Errorf("fraud log is nil")
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO fraud_logs (post_id, score, reason, created) VALUES (?, ?, ?, ?)`, f.PostID, f.Score, f.Reason, ts)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	f.Created = ts

	return id, nil
}

func (r *SQLiteRepo) GetFraudLog(ctx context.Context, postID int64) (*models.FraudLog, error) {
	var f models.FraudLog
	if err := r.conn.Get(ctx, &f, `SELECT id, post_id, score, reason, created FROM fraud_logs WHERE post_id = ?`, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// postRow is the flattened join of a post with its engagement and fraud log.
type postRow struct {
	models.Post
	CreatorID      int64           `db:"creator_id"`
	CampaignID     int64           `db:"campaign_id"`
	RawViews       int64           `db:"raw_views"`
	ValidatedViews int64           `db:"validated_views"`
	Likes          int64           `db:"likes"`
	Comments       int64           `db:"comments"`
	Shares         int64           `db:"shares"`
	WatchTime      float64         `db:"watch_time"`
	ClickOffRate   float64         `db:"click_off_rate"`
	FraudScore     float64         `db:"fraud_score"`
	EngUpdated     int64           `db:"eng_updated"`
	LogID          sql.NullInt64   `db:"log_id"`
	LogScore       sql.NullFloat64 `db:"log_score"`
	LogReason      sql.NullString  `db:"log_reason"`
	LogCreated     sql.NullInt64   `db:"log_created"`
}

const postDetailQuery = `SELECT p.id, p.participant_id, p.platform, p.post_url, p.external_post_id, p.status, p.created,
	cp.creator_id, cp.campaign_id,
	COALESCE(e.raw_views, 0) AS raw_views, COALESCE(e.validated_views, 0) AS validated_views,
	COALESCE(e.likes, 0) AS likes, COALESCE(e.comments, 0) AS comments, COALESCE(e.shares, 0) AS shares,
	COALESCE(e.watch_time, 0) AS watch_time, COALESCE(e.click_off_rate, 0) AS click_off_rate,
	COALESCE(e.fraud_score, 0) AS fraud_score, COALESCE(e.updated, 0) AS eng_updated,
	f.id AS log_id, f.score AS log_score, f.reason AS log_reason, f.created AS log_created
	FROM posts p
	JOIN campaign_participants cp ON cp.id = p.participant_id
	LEFT JOIN engagements e ON e.post_id = p.id
	LEFT JOIN fraud_logs f ON f.post_id = p.id`

func (r *SQLiteRepo) ListPostsByCampaign(ctx context.Context, campaignID int64) ([]models.PostDetail, error) {
	return r.listPosts(ctx, postDetailQuery+` WHERE cp.campaign_id = ? ORDER BY p.created DESC, p.id DESC`, campaignID)
}

func (r *SQLiteRepo) ListPostsByCreatorPlatform(ctx context.Context, creatorID int64, platform string) ([]models.PostDetail, error) {
	return r.listPosts(ctx, postDetailQuery+` WHERE cp.creator_id = ? AND p.platform = ? ORDER BY p.created DESC, p.id DESC`, creatorID, platform)
}

func (r *SQLiteRepo) listPosts(ctx context.Context, query string, args ...any) ([]models.PostDetail, error) {
	var rows []postRow
	if err := r.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]models.PostDetail, 0, len(rows))
	for _, row := range rows {
		d := models.PostDetail{
			Post:       row.Post,
			CreatorID:  row.CreatorID,
			CampaignID: row.CampaignID,
			Engagement: models.Engagement{
				PostID:         row.Post.ID,
				RawViews:       row.RawViews,
				ValidatedViews: row.ValidatedViews,
				Likes:          row.Likes,
				Comments:       row.Comments,
				Shares:         row.Shares,
				WatchTime:      row.WatchTime,
				ClickOffRate:   row.ClickOffRate,
				FraudScore:     row.FraudScore,
				Updated:        row.EngUpdated,
			},
		}
		if row.LogID.Valid {
			d.FraudLog = &models.FraudLog{
				ID:      row.LogID.Int64,
				PostID:  row.Post.ID,
				Score:   row.LogScore.Float64,
				Reason:  row.LogReason.String,
				Created: row.LogCreated.Int64,
			}
		}
		out = append(out, d)
	}

	return out, nil
}
