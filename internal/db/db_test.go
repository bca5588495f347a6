package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/garnizeh/clipmarket/internal/db"
)

func openItems(t *testing.T) *dbpkg.DB {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "items.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`)
	require.NoError(t, err)
	return d
}

func countItems(t *testing.T, d *dbpkg.DB) int {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow(context.Background(), `SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "conn.db"), nil)
	require.NoError(t, err)
	require.NotNil(t, d.GetConn())

	var fk int
	require.NoError(t, d.QueryRow(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	assert.NoError(t, d.Close())
}

func TestExec_Get_Select(t *testing.T) {
	ctx := context.Background()
	d := openItems(t)

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?), (?)`, "foo", "bar")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var name string
	require.NoError(t, d.Get(ctx, &name, `SELECT name FROM items WHERE id = ?`, 1))
	assert.Equal(t, "foo", name)

	var names []string
	require.NoError(t, d.Select(ctx, &names, `SELECT name FROM items ORDER BY id`))
	assert.Equal(t, []string{"foo", "bar"}, names)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	d := openItems(t)

	err := d.WithTx(context.Background(), func(ctx context.Context, tx *dbpkg.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO items (name) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, d))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	d := openItems(t)
	boom := errors.New("boom")

	err := d.WithTx(context.Background(), func(ctx context.Context, tx *dbpkg.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO items (name) VALUES ('fail')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, d))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	d := openItems(t)

	assert.Panics(t, func() {
		_ = d.WithTx(context.Background(), func(ctx context.Context, tx *dbpkg.Tx) error {
			_, _ = tx.Exec(ctx, `INSERT INTO items (name) VALUES ('panic')`)
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countItems(t, d))
}
