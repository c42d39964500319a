package api

import (
	"net/url"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "healthsync/1.0"
	maxErrorBody     = 64 << 10
)

type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	Platform  string
	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		Timeout:   defaultTimeout,
		Platform:  "cli",
		UserAgent: defaultUserAgent,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.BaseURL == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "base_url",
			Value: c.BaseURL,
		})
	}
	if c.Timeout <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "timeout must be positive")
	}
	return nil
}
