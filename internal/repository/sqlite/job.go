package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// Job rows keep their timestamps in unix seconds.

type jobRow struct {
	ID          int64          `db:"id"`
	Type        string         `db:"type"`
	Payload     sql.NullString `db:"payload"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	Priority    int            `db:"priority"`
	ScheduledAt int64          `db:"scheduled_at"`
	NextTryAt   sql.NullInt64  `db:"next_try_at"`
	LastError   sql.NullString `db:"last_error"`
	Created     int64          `db:"created"`
	Updated     int64          `db:"updated"`
}

func (row jobRow) job() *models.BackgroundJob {
	j := &models.BackgroundJob{
		ID:          row.ID,
		Type:        row.Type,
		Status:      row.Status,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		Priority:    row.Priority,
		ScheduledAt: time.Unix(row.ScheduledAt, 0),
		LastError:   row.LastError.String,
		Created:     time.Unix(row.Created, 0),
		Updated:     time.Unix(row.Updated, 0),
	}
	if row.Payload.Valid {
		j.Payload = json.RawMessage(row.Payload.String)
	}
	if row.NextTryAt.Valid {
		t := time.Unix(row.NextTryAt.Int64, 0)
		j.NextTryAt = &t
	}
	return j
}

// Enqueue inserts a queued job and returns its id.
func (r *SQLiteRepo) Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}

	ts := time.Now().UTC().Unix()
	res, err := r.conn.Exec(ctx, `INSERT INTO jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES (?, ?, 'queued', ?, ?, ?, ?, ?, ?)`,
		j.Type, string(j.Payload), j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().Unix(), ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}

	return res.LastInsertId()
}

// FetchNext claims the most urgent runnable job by marking it running, or
// returns nil when none is due.
func (r *SQLiteRepo) FetchNext(ctx context.Context) (*models.BackgroundJob, error) {
	ts := time.Now().UTC().Unix()

	var row jobRow
	err := r.conn.Get(ctx, &row, `UPDATE jobs SET status = 'running', updated = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status IN ('queued', 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC
			LIMIT 1
		)
		RETURNING id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`, ts, ts, ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	return row.job(), nil
}

// UpdateJob persists status, attempts, retry time and last error.
func (r *SQLiteRepo) UpdateJob(ctx context.Context, j *models.BackgroundJob) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UTC().Unix()
	}

	_, err := r.conn.Exec(ctx, `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().Unix(), j.ID)
	return err
}

// MoveToDeadLetter copies a job into dead_letter_jobs and removes the
// original in one transaction.
func (r *SQLiteRepo) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error {
	return r.WithTx(ctx, func(txs repository.Store) error {
		tx := txs.(*SQLiteRepo)
		if _, err := tx.conn.Exec(ctx, `INSERT INTO dead_letter_jobs (job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?)`,
			j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().Unix()); err != nil {
			return err
		}

		_, err := tx.conn.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
		return err
	})
}

// CountDeadLetters reports how many jobs of typ were given up on.
func (r *SQLiteRepo) CountDeadLetters(ctx context.Context, typ string) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_jobs WHERE type = ?`, typ).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
