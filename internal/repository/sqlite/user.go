package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const userColumns = `id, name, email, account_type, COALESCE(password_hash, '') AS password_hash, two_factor_enabled, two_factor_secret, created, updated`

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	var pw any
	if u.PasswordHash != "" {
		pw = u.PasswordHash
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (name, email, account_type, password_hash, created, updated) VALUES (?, ?, ?, ?, ?, ?)`, u.Name, u.Email, string(u.AccountType), pw, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepo) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := r.conn.Get(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	if u.TwoFactorEnabled {
		codes, err := r.backupCodes(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.TwoFactorBackupCodes = codes
	}

	return &u, nil
}

func (r *SQLiteRepo) backupCodes(ctx context.Context, userID int64) ([]string, error) {
	codes := []string{}
	if err := r.conn.Select(ctx, &codes, `SELECT code FROM two_factor_backup_codes WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *SQLiteRepo) EnableTwoFactor(ctx context.Context, userID int64, secret string, backupCodes []string) error {
	return r.WithTx(ctx, func(txs repository.Store) error {
		tx := txs.(*SQLiteRepo)
		if _, err := tx.conn.Exec(ctx, `UPDATE users SET two_factor_enabled = 1, two_factor_secret = ?, updated = ? WHERE id = ?`, secret, now(), userID); err != nil {
			return err
		}
		if _, err := tx.conn.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE user_id = ?`, userID); err != nil {
			return err
		}
		for _, code := range backupCodes {
			if _, err := tx.conn.Exec(ctx, `INSERT INTO two_factor_backup_codes (user_id, code) VALUES (?, ?)`, userID, code); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepo) DisableTwoFactor(ctx context.Context, userID int64) error {
	return r.WithTx(ctx, func(txs repository.Store) error {
		tx := txs.(*SQLiteRepo)
		if _, err := tx.conn.Exec(ctx, `UPDATE users SET two_factor_enabled = 0, two_factor_secret = NULL, updated = ? WHERE id = ?`, now(), userID); err != nil {
			return err
		}
		_, err := tx.conn.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE user_id = ?`, userID)
		return err
	})
}

func (r *SQLiteRepo) ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	// one row only: codes are drawn independently and may repeat
	res, err := r.conn.Exec(ctx, `DELETE FROM two_factor_backup_codes WHERE id = (SELECT id FROM two_factor_backup_codes WHERE user_id = ? AND code = ? LIMIT 1)`, userID, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepo) CountBackupCodes(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM two_factor_backup_codes WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
