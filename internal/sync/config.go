package sync

import (
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
)

const (
	DefaultThrottle = 15 * time.Minute
	DefaultDaysBack = 7
	MaxDaysBack     = 100
)

type Config struct {
	// Source and DeviceType label every upload
	Source     string
	DeviceType string
	// Timezone is an IANA name; records are dated in this zone
	Timezone string
	Throttle time.Duration
	DaysBack int
}

func DefaultConfig() Config {
	return Config{
		Source:     "mock",
		DeviceType: "cli",
		Timezone:   "UTC",
		Throttle:   DefaultThrottle,
		DaysBack:   DefaultDaysBack,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Source == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "source is required")
	}
	if c.Throttle < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "throttle cannot be negative")
	}
	if c.DaysBack < 1 || c.DaysBack > MaxDaysBack {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
			Max   int
		}{
			Field: "days_back",
			Value: c.DaysBack,
			Max:   MaxDaysBack,
		})
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errFactory.Wrap(ErrInvalidConfig, err)
	}
	return nil
}
