package source

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
)

var fitDataTypes = map[health.MetricType]string{
	health.Steps:          "com.google.step_count.delta",
	health.Distance:       "com.google.distance.delta",
	health.ActiveCalories: "com.google.calories.expended",
	health.Exercise:       "com.google.active_minutes",
	health.HeartRate:      "com.google.heart_rate.bpm",
	health.Weight:         "com.google.weight",
}

var fitScopes = []string{
	"https://www.googleapis.com/auth/fitness.activity.read",
	"https://www.googleapis.com/auth/fitness.body.read",
	"https://www.googleapis.com/auth/fitness.location.read",
	"https://www.googleapis.com/auth/fitness.heart_rate.read",
}

// GoogleFit has no sleep or hydration data
type GoogleFit struct {
	driver GoogleFitDriver
	logger logger.Logger
}

func NewGoogleFit(driver GoogleFitDriver, log logger.Logger) *GoogleFit {
	return &GoogleFit{driver: driver, logger: log}
}

func (*GoogleFit) Name() string {
	return "google_fit"
}

func (g *GoogleFit) Initialize(ctx context.Context) error {
	errFactory := errors.New()

	if g.driver == nil {
		return errFactory.New(ErrNotAvailable)
	}

	ok, err := g.driver.Authorize(ctx, fitScopes)
	if err != nil {
		return errFactory.Wrap(ErrPermissionDenied, err)
	}
	if !ok {
		return errFactory.New(ErrPermissionDenied)
	}

	g.logger.Debug().Int("scopes", len(fitScopes)).Msg("Google Fit authorized")
	return nil
}

func (g *GoogleFit) QueryMetric(ctx context.Context, metric health.MetricType, start, end time.Time) Result {
	dataType, ok := fitDataTypes[metric]
	if !ok {
		return unsupported(string(metric))
	}

	samples, err := g.driver.Samples(ctx, dataType, start, end)
	if err != nil {
		return queryFailed(err)
	}

	out := make(Samples, 0, len(samples))
	for _, s := range samples {
		if metric == health.Exercise {
			out = append(out, exerciseSession(s.Start, s.Value))
			continue
		}
		out = append(out, health.Sample{Start: s.Start, End: s.End, Value: s.Value})
	}
	return out
}
