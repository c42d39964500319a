package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func backends(t *testing.T) map[string]store.Store {
	t.Helper()

	sqlite, err := store.Open(store.Config{
		Backend: store.BackendSQLite,
		Path:    filepath.Join(t.TempDir(), "state.db"),
	}, logger.Nop())
	require.NoError(t, err)

	memSQLite, err := store.Open(store.Config{Backend: store.BackendSQLite, InMemory: true}, logger.Nop())
	require.NoError(t, err)

	bdg, err := store.Open(store.Config{Backend: store.BackendBadger, InMemory: true}, logger.Nop())
	require.NoError(t, err)

	out := map[string]store.Store{
		"sqlite":        sqlite,
		"sqlite_memory": memSQLite,
		"badger":        bdg,
	}
	t.Cleanup(func() {
		for _, s := range out {
			s.Close()
		}
	})
	return out
}

func TestCursor(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.LastSync(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			when := time.Date(2026, 3, 2, 9, 30, 15, 0, time.FixedZone("x", 3600))
			require.NoError(t, s.SetLastSync(ctx, when))

			got, ok, err := s.LastSync(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, when.Equal(got))
		})
	}
}

func TestSyncEnabledDefaultsTrue(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			enabled, err := s.SyncEnabled(ctx)
			require.NoError(t, err)
			assert.True(t, enabled)

			require.NoError(t, s.SetSyncEnabled(ctx, false))
			enabled, err = s.SyncEnabled(ctx)
			require.NoError(t, err)
			assert.False(t, enabled)
		})
	}
}

func TestPendingSupersedesAndDeletes(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SavePending(ctx, []health.DailyRecord{
				{Date: "2026-03-02", Steps: health.Ptr(100)},
				{Date: "2026-03-01", Steps: health.Ptr(50)},
			}))
			require.NoError(t, s.SavePending(ctx, []health.DailyRecord{
				{Date: "2026-03-02", Steps: health.Ptr(4000)},
			}))

			pending, err := s.Pending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 2)
			assert.Equal(t, "2026-03-01", pending[0].Date)
			assert.Equal(t, 4000, *pending[1].Steps)
			assert.Nil(t, pending[1].HeartRateAvg)

			require.NoError(t, s.DeletePending(ctx, []string{"2026-03-01"}))
			pending, err = s.Pending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "2026-03-02", pending[0].Date)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := store.Config{Backend: store.BackendSQLite, Path: filepath.Join(t.TempDir(), "state.db")}

	s, err := store.Open(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.SetSyncEnabled(ctx, false))
	require.NoError(t, s.Close())

	s, err = store.Open(cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	enabled, err := s.SyncEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSchemaMigrationBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE sync_state (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		INSERT INTO sync_state VALUES ('health_sync:enabled', 'false');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := store.Open(store.Config{Backend: store.BackendSQLite, Path: path}, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	enabled, err := s.SyncEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled, "state is reset by the migration")

	backups, err := filepath.Glob(filepath.Join(dir, "backups", "state_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, store.DefaultConfig().Validate())
	assert.Error(t, store.Config{Backend: "postgres", Path: "/tmp/x"}.Validate())
	assert.Error(t, store.Config{Backend: store.BackendSQLite}.Validate())
	assert.NoError(t, store.Config{Backend: store.BackendBadger, InMemory: true}.Validate())
}
