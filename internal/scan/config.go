package scan

import (
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
)

const (
	DefaultHistoryLimit = 50
	trendsHistoryLimit  = 100

	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
)

type Config struct {
	HistoryLimit int
	// MaxAttempts and BaseBackoff drive WithRetry; the n-th retry waits
	// BaseBackoff * 2^(n-1)
	MaxAttempts int
	BaseBackoff time.Duration
	// Timezone decides which calendar day a scan belongs to in trends
	Timezone string
}

func DefaultConfig() Config {
	return Config{
		HistoryLimit: DefaultHistoryLimit,
		MaxAttempts:  DefaultMaxAttempts,
		BaseBackoff:  DefaultBaseBackoff,
		Timezone:     "UTC",
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.HistoryLimit < 1 {
		return errFactory.WithMessage(ErrInvalidConfig, "history limit must be positive")
	}
	if c.MaxAttempts < 1 {
		return errFactory.WithMessage(ErrInvalidConfig, "max attempts must be at least 1")
	}
	if c.BaseBackoff < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "backoff cannot be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errFactory.Wrap(ErrInvalidConfig, err)
	}
	return nil
}
