package sqlite

import (
	"context"
	"io"
	"time"

	"log/slog"

	"github.com/garnizeh/clipmarket/internal/db"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	root   *db.DB
	conn   db.Querier
	inTx   bool
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.Store = (*SQLiteRepo)(nil)
var _ repository.SchemaRepo = (*SQLiteRepo)(nil)
var _ repository.TemplateRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{root: conn, conn: conn, logger: logger}
}

// WithTx runs fn against a repository bound to a single transaction. Nested
// calls reuse the outer transaction.
func (r *SQLiteRepo) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.root.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		return fn(&SQLiteRepo{root: r.root, conn: tx, inTx: true, logger: r.logger})
	})
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
