package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/clipmarket/internal/models"
)

const socialColumns = `id, user_id, platform, handle, access_token, created, updated`

// UpsertSocialAccount links a platform account, replacing handle and token
// when the user already linked that platform.
func (r *SQLiteRepo) UpsertSocialAccount(ctx context.Context, a *models.SocialAccount) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("social account is nil")
	}

	ts := now()
	var id int64
	err := r.conn.QueryRow(ctx, `INSERT INTO social_accounts (user_id, platform, handle, access_token, created, updated) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform) DO UPDATE SET handle = excluded.handle, access_token = excluded.access_token, updated = excluded.updated
		RETURNING id`, a.UserID, a.Platform, a.Handle, a.AccessToken, ts, ts).Scan(&id)
	if err != nil {
		return 0, err
	}

	a.ID = id
	return id, nil
}

func (r *SQLiteRepo) GetSocialAccount(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	var a models.SocialAccount
	if err := r.conn.Get(ctx, &a, `SELECT `+socialColumns+` FROM social_accounts WHERE user_id = ? AND platform = ?`, userID, platform); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *SQLiteRepo) ListSocialAccounts(ctx context.Context, userID int64) ([]models.SocialAccount, error) {
	out := []models.SocialAccount{}
	if err := r.conn.Select(ctx, &out, `SELECT `+socialColumns+` FROM social_accounts WHERE user_id = ? ORDER BY platform`, userID); err != nil {
		return nil, err
	}
	return out, nil
}
