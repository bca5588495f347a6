package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/clipmarket/internal/models"
)

func (r *SQLiteRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	var t models.Template
	if err := r.conn.Get(ctx, &t, `SELECT id, name, version, template_text, schema_version, metadata, created, updated FROM ai_templates WHERE name = ? AND version = ?`, name, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
