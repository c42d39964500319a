package cache

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	defaultPrefix = "healthsync:scan_history:"
	pingTimeout   = 5 * time.Second
)

type Config struct {
	Backend   string
	TTL       time.Duration
	RedisAddr string
	Prefix    string
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		TTL:     DefaultTTL,
		Prefix:  defaultPrefix,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.TTL <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "ttl must be positive")
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "redis backend requires an address")
		}
	default:
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "backend",
			Value: c.Backend,
		})
	}
	return nil
}

// New builds the configured Store. An unreachable redis server is logged
// and tolerated; reads fall through as misses until it comes back.
func New[T any](cfg Config, clk clock.Clock, log logger.Logger, observer Observer) (Store[T], func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Backend == BackendMemory {
		return NewMemory[T](cfg.TTL, clk, observer), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		MaxRetries:  3,
		PoolTimeout: 4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis connection failed")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	return NewRedis[T](rdb, prefix, cfg.TTL, log, observer), rdb.Close, nil
}
