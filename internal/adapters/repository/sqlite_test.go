package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ProfileStore {
		return newTestSQLite(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "artemis.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, "u1", sampleProfile(), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 130, rec.Profile.OverallIQ)
	assert.Equal(t, int64(1), rec.Version)
}

func TestSQLiteStore_ClockAndTable(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newTestSQLite(t, WithClock(func() time.Time { return fixed }), WithTable("kid_profiles"))
	ctx := context.Background()

	_, err := s.Save(ctx, "u1", sampleProfile(), 0)
	require.NoError(t, err)

	rec, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(rec.UpdatedAt))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kid_profiles`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_CorruptDocument(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, version, profile, updated_at) VALUES ('bad', 1, '{not json', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = s.Load(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
