// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/clipmarket/db"
	"github.com/garnizeh/clipmarket/internal/db"
)

// Open returns a database in t's temp dir with every migration and seed
// applied. It is closed when the test ends.
func Open(t testing.TB) *db.DB {
	t.Helper()

	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles))
	return d
}
