package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const contractColumns = `id, brand_id, creator_id, campaign_id, amount, currency, due_date, status, created, updated`

func (r *SQLiteRepo) CreateContract(ctx context.Context, c *models.Contract) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("contract is nil")
	}

	var id int64
	err := r.WithTx(ctx, func(txs repository.Store) error {
		tx := txs.(*SQLiteRepo)
		ts := now()
		res, err := tx.conn.Exec(ctx, `INSERT INTO contracts (brand_id, creator_id, campaign_id, amount, currency, due_date, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.BrandID, c.CreatorID, c.CampaignID, c.Amount, c.Currency, c.DueDate, string(c.Status), ts, ts)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		for i, d := range c.Deliverables {
			if _, err := tx.conn.Exec(ctx, `INSERT INTO contract_deliverables (contract_id, position, deliverable) VALUES (?, ?, ?)`, id, i, d); err != nil {
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

func (r *SQLiteRepo) GetContract(ctx context.Context, id int64) (*models.Contract, error) {
	var c models.Contract
	if err := r.conn.Get(ctx, &c, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	d, err := r.deliverables(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Deliverables = d

	return &c, nil
}

// ListContractsForUser returns contracts where the user is either party.
func (r *SQLiteRepo) ListContractsForUser(ctx context.Context, userID int64) ([]models.Contract, error) {
	out := []models.Contract{}
	if err := r.conn.Select(ctx, &out, `SELECT `+contractColumns+` FROM contracts WHERE brand_id = ? OR creator_id = ? ORDER BY created DESC, id DESC`, userID, userID); err != nil {
		return nil, err
	}

	for i := range out {
		d, err := r.deliverables(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Deliverables = d
	}

	return out, nil
}

func (r *SQLiteRepo) deliverables(ctx context.Context, contractID int64) ([]string, error) {
	d := []string{}
	if err := r.conn.Select(ctx, &d, `SELECT deliverable FROM contract_deliverables WHERE contract_id = ? ORDER BY position`, contractID); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *SQLiteRepo) UpdateContractStatus(ctx context.Context, id int64, status models.ContractStatus) error {
	_, err := r.conn.Exec(ctx, `UPDATE contracts SET status = ?, updated = ? WHERE id = ?`, string(status), now(), id)
	return err
}
