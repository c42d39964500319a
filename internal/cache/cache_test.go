package cache_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/healthsync/internal/cache"
	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestMemoryWithinTTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	c := cache.NewMemory[string](cache.DefaultTTL, clk, nil)

	require.NoError(t, c.Set(ctx, "u1", "history"))

	clk.Advance(4*time.Minute + 59*time.Second)
	got, ok := c.Get(ctx, "u1")
	assert.True(t, ok)
	assert.Equal(t, "history", got)
}

func TestMemoryEvictsStaleOnRead(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	c := cache.NewMemory[string](cache.DefaultTTL, clk, nil)

	require.NoError(t, c.Set(ctx, "u1", "history"))
	clk.Advance(5*time.Minute + time.Millisecond)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry is evicted by the read")
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory[int](cache.DefaultTTL, clock.NewManual(epoch), nil)

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))

	require.NoError(t, c.Invalidate(ctx, "a"))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestMemoryObserver(t *testing.T) {
	ctx := context.Background()
	var hits, misses int
	c := cache.NewMemory[int](cache.DefaultTTL, clock.NewManual(epoch), func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	c.Get(ctx, "x")
	require.NoError(t, c.Set(ctx, "x", 1))
	c.Get(ctx, "x")

	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestRedisUnreachableIsMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { rdb.Close() })

	c := cache.NewRedis[string](rdb, "test:", time.Minute, logger.Nop(), nil)
	assert.Equal(t, "test:u1", c.Key("u1"))

	_, ok := c.Get(context.Background(), "u1")
	assert.False(t, ok)
	assert.Error(t, c.Set(context.Background(), "u1", "v"))
}

func TestConfigValidate(t *testing.T) {
	cfg := cache.DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Backend = cache.BackendRedis
	assert.Error(t, cfg.Validate())

	cfg.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestNewMemoryBackend(t *testing.T) {
	store, closeFn, err := cache.New[string](cache.DefaultConfig(), clock.NewManual(epoch), logger.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, closeFn())
	_, ok := store.(*cache.Memory[string])
	assert.True(t, ok)
}
