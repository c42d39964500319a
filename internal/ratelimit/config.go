package ratelimit

import (
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
)

const (
	defaultMinInterval = time.Second
	defaultMaxRequests = 10
	defaultWindow      = time.Minute
)

type Config struct {
	MinInterval time.Duration
	MaxRequests int
	Window      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinInterval: defaultMinInterval,
		MaxRequests: defaultMaxRequests,
		Window:      defaultWindow,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.MinInterval < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "min interval must not be negative")
	}
	if c.MaxRequests <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "max requests must be positive")
	}
	if c.Window <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "window must be positive")
	}
	return nil
}
