package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/clipmarket/internal/models"
)

const schemaColumns = `id, version, COALESCE(description, '') AS description, schema_json, created, updated`

// CreateSchema inserts a response schema or replaces the body of an existing
// version.
func (r *SQLiteRepo) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	ts := now()
	var id int64
	err := r.conn.QueryRow(ctx, `INSERT INTO ai_schemas (version, description, schema_json, created, updated) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET description = excluded.description, schema_json = excluded.schema_json, updated = excluded.updated
		RETURNING id`, version, description, schemaJSON, ts, ts).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepo) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	var s models.Schema
	if err := r.conn.Get(ctx, &s, `SELECT `+schemaColumns+` FROM ai_schemas WHERE version = ?`, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteRepo) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	out := []models.Schema{}
	if err := r.conn.Select(ctx, &out, `SELECT `+schemaColumns+` FROM ai_schemas ORDER BY version`); err != nil {
		return nil, err
	}
	return out, nil
}
