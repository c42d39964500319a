package source

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
)

var hcRecordTypes = map[health.MetricType]string{
	health.Steps:          "Steps",
	health.Distance:       "Distance",
	health.ActiveCalories: "ActiveCaloriesBurned",
	health.Exercise:       "ExerciseSession",
	health.HeartRate:      "HeartRate",
	health.Weight:         "Weight",
	health.Sleep:          "SleepSession",
	health.Hydration:      "Hydration",
}

type HealthConnect struct {
	driver  HealthConnectDriver
	logger  logger.Logger
	granted map[string]bool
}

func NewHealthConnect(driver HealthConnectDriver, log logger.Logger) *HealthConnect {
	return &HealthConnect{driver: driver, logger: log}
}

func (*HealthConnect) Name() string {
	return "health_connect"
}

// Initialize succeeds when at least one record type was granted. Metrics
// whose type was refused report Unavailable.
func (h *HealthConnect) Initialize(ctx context.Context) error {
	errFactory := errors.New()

	if h.driver == nil {
		return errFactory.New(ErrNotAvailable)
	}
	available, err := h.driver.IsAvailable(ctx)
	if err != nil {
		return errFactory.Wrap(ErrNotAvailable, err)
	}
	if !available {
		return errFactory.New(ErrNotAvailable)
	}

	wanted := make([]string, 0, len(hcRecordTypes))
	for _, metric := range health.AllMetrics {
		wanted = append(wanted, hcRecordTypes[metric])
	}

	granted, err := h.driver.RequestPermissions(ctx, wanted)
	if err != nil {
		return errFactory.Wrap(ErrPermissionDenied, err)
	}
	if len(granted) == 0 {
		return errFactory.New(ErrPermissionDenied)
	}

	h.granted = make(map[string]bool, len(granted))
	for _, g := range granted {
		h.granted[g] = true
	}

	h.logger.Debug().
		Int("requested", len(wanted)).
		Int("granted", len(granted)).
		Msg("Health Connect permissions resolved")
	return nil
}

func (h *HealthConnect) QueryMetric(ctx context.Context, metric health.MetricType, start, end time.Time) Result {
	recordType, ok := hcRecordTypes[metric]
	if !ok {
		return unsupported(string(metric))
	}
	if h.granted != nil && !h.granted[recordType] {
		return Unavailable{
			Reason: "permission not granted",
			Err:    errors.New().WithMessage(ErrPermissionDenied, recordType),
		}
	}

	records, err := h.driver.ReadRecords(ctx, recordType, start, end)
	if err != nil {
		return queryFailed(err)
	}

	out := make(Samples, 0, len(records))
	for _, r := range records {
		if metric == health.HeartRate {
			for _, p := range r.Series {
				out = append(out, health.Sample{
					Start: p.Time,
					End:   p.Time,
					Value: p.BeatsPerMinute,
					Unit:  "bpm",
				})
			}
			continue
		}
		out = append(out, health.Sample{
			Start: r.Start,
			End:   r.End,
			Value: r.Value,
		})
	}
	return out
}
