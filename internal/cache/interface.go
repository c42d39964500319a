package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a cached scan history page stays fresh
const DefaultTTL = 5 * time.Minute

// Store holds one payload per key. Stale entries are evicted lazily when
// read; nothing runs in the background.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T) error
	// Invalidate drops key. Callers must invalidate before any read that
	// should observe a mutation.
	Invalidate(ctx context.Context, key string) error
	InvalidateAll(ctx context.Context) error
}

// Observer is told about every lookup
type Observer func(hit bool)
