package source

import (
	"context"

	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/logger"
)

// Select picks one adapter for the life of the process. Native adapters
// are tried in platform order; any that is missing, fails to initialize or
// is refused permission is skipped. Mock is the final fallback.
func Select(ctx context.Context, caps Capabilities, clk clock.Clock, log logger.Logger) Adapter {
	for _, candidate := range candidates(caps, log) {
		if err := candidate.Initialize(ctx); err != nil {
			log.Warn().
				Err(err).
				Str("adapter", candidate.Name()).
				Msg("Health data source unavailable, trying next")
			continue
		}

		log.Info().Str("adapter", candidate.Name()).Msg("Health data source selected")
		return candidate
	}

	log.Info().Str("adapter", "mock").Msg("No native health data source, using mock data")
	return NewMock(clk)
}

func candidates(caps Capabilities, log logger.Logger) []Adapter {
	var out []Adapter

	switch caps.Platform {
	case PlatformIOS:
		if caps.HealthKit != nil {
			out = append(out, NewHealthKit(caps.HealthKit, log))
		}
	case PlatformAndroid:
		if caps.HealthConnect != nil {
			out = append(out, NewHealthConnect(caps.HealthConnect, log))
		}
		if caps.GoogleFit != nil {
			out = append(out, NewGoogleFit(caps.GoogleFit, log))
		}
	}

	return out
}
