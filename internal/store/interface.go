package store

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/health"
)

// Persisted keys
const (
	KeyLastSync    = "health_sync:last_sync"
	KeySyncEnabled = "health_sync:enabled"
)

// Store is the durable local state: the sync cursor, the sync-enabled
// flag and records aggregated but not yet confirmed by the backend.
type Store interface {
	// LastSync returns the cursor; ok is false before the first success
	LastSync(ctx context.Context) (t time.Time, ok bool, err error)
	SetLastSync(ctx context.Context, t time.Time) error
	// SyncEnabled defaults to true when never set
	SyncEnabled(ctx context.Context) (bool, error)
	SetSyncEnabled(ctx context.Context, enabled bool) error

	// SavePending stores records keyed by date, replacing older
	// aggregations of the same day
	SavePending(ctx context.Context, records []health.DailyRecord) error
	// Pending returns stored records, oldest date first
	Pending(ctx context.Context) ([]health.DailyRecord, error)
	DeletePending(ctx context.Context, dates []string) error

	Close() error
}
