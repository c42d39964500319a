package cache

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// Redis is a Store shared between processes. Expiry is delegated to the
// server through SET ... EX.
type Redis[T any] struct {
	rdb      *redis.Client
	prefix   string
	ttl      time.Duration
	logger   logger.Logger
	observer Observer
}

func NewRedis[T any](rdb *redis.Client, prefix string, ttl time.Duration, log logger.Logger, observer Observer) *Redis[T] {
	return &Redis[T]{
		rdb:      rdb,
		prefix:   prefix,
		ttl:      ttl,
		logger:   log,
		observer: observer,
	}
}

func (r *Redis[T]) Key(key string) string {
	return r.prefix + key
}

// Get treats backend failures as misses so a down cache never blocks reads
func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T

	data, err := r.rdb.Get(ctx, r.Key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("key", r.Key(key)).Msg("Cache read failed")
		}
		r.observe(false)
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		r.logger.Warn().Err(err).Str("key", r.Key(key)).Msg("Dropping undecodable cache entry")
		r.rdb.Del(ctx, r.Key(key))
		r.observe(false)
		return value, false
	}

	r.observe(true)
	return value, true
}

func (r *Redis[T]) Set(ctx context.Context, key string, value T) error {
	errFactory := errors.New()

	data, err := json.Marshal(value)
	if err != nil {
		return errFactory.Wrap(ErrEncode, err)
	}

	if err := r.rdb.Set(ctx, r.Key(key), data, r.ttl).Err(); err != nil {
		return errFactory.Wrap(ErrBackend, err)
	}
	return nil
}

func (r *Redis[T]) Invalidate(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.Key(key)).Err(); err != nil {
		return errors.New().Wrap(ErrBackend, err)
	}
	return nil
}

func (r *Redis[T]) InvalidateAll(ctx context.Context) error {
	errFactory := errors.New()

	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return errFactory.Wrap(ErrBackend, err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return errFactory.Wrap(ErrBackend, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *Redis[T]) observe(hit bool) {
	if r.observer != nil {
		r.observer(hit)
	}
}
