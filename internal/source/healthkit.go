package source

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
)

const (
	hkSteps     = "HKQuantityTypeIdentifierStepCount"
	hkDistance  = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	hkEnergy    = "HKQuantityTypeIdentifierActiveEnergyBurned"
	hkExercise  = "HKQuantityTypeIdentifierAppleExerciseTime"
	hkHeartRate = "HKQuantityTypeIdentifierHeartRate"
	hkBodyMass  = "HKQuantityTypeIdentifierBodyMass"
	hkWater     = "HKQuantityTypeIdentifierDietaryWater"
	hkSleep     = "HKCategoryTypeIdentifierSleepAnalysis"
)

// Sleep analysis category values that count as asleep
var hkAsleep = map[int]bool{
	1: true, // asleep, unspecified
	3: true, // core
	4: true, // deep
	5: true, // REM
}

var hkQuantityTypes = map[health.MetricType]string{
	health.Steps:          hkSteps,
	health.Distance:       hkDistance,
	health.ActiveCalories: hkEnergy,
	health.Exercise:       hkExercise,
	health.HeartRate:      hkHeartRate,
	health.Weight:         hkBodyMass,
	health.Hydration:      hkWater,
}

type HealthKit struct {
	driver HealthKitDriver
	logger logger.Logger
}

func NewHealthKit(driver HealthKitDriver, log logger.Logger) *HealthKit {
	return &HealthKit{driver: driver, logger: log}
}

func (*HealthKit) Name() string {
	return "healthkit"
}

func (h *HealthKit) Initialize(ctx context.Context) error {
	errFactory := errors.New()

	if h.driver == nil || !h.driver.IsAvailable() {
		return errFactory.New(ErrNotAvailable)
	}

	read := make([]string, 0, len(hkQuantityTypes)+1)
	for _, metric := range health.AllMetrics {
		if id, ok := hkQuantityTypes[metric]; ok {
			read = append(read, id)
		}
	}
	read = append(read, hkSleep)

	if err := h.driver.RequestAuthorization(ctx, read); err != nil {
		return errFactory.Wrap(ErrPermissionDenied, err)
	}

	h.logger.Debug().Int("types", len(read)).Msg("HealthKit authorized")
	return nil
}

func (h *HealthKit) QueryMetric(ctx context.Context, metric health.MetricType, start, end time.Time) Result {
	if metric == health.Sleep {
		return h.querySleep(ctx, start, end)
	}

	id, ok := hkQuantityTypes[metric]
	if !ok {
		return unsupported(string(metric))
	}

	samples, err := h.driver.QuantitySamples(ctx, id, start, end)
	if err != nil {
		return queryFailed(err)
	}

	out := make(Samples, 0, len(samples))
	for _, s := range samples {
		sample := health.Sample{
			Start: s.Start,
			End:   s.End,
			Value: s.Quantity,
			Unit:  s.Unit,
		}
		if metric == health.Exercise {
			sample = exerciseSession(s.Start, s.Quantity)
		}
		out = append(out, sample)
	}
	return out
}

// exerciseSession turns a count of exercise minutes into a session of that
// length starting at start
func exerciseSession(start time.Time, minutes float64) health.Sample {
	return health.Sample{
		Start: start,
		End:   start.Add(time.Duration(minutes * float64(time.Minute))),
		Value: minutes,
		Unit:  "min",
	}
}

func (h *HealthKit) querySleep(ctx context.Context, start, end time.Time) Result {
	samples, err := h.driver.CategorySamples(ctx, hkSleep, start, end)
	if err != nil {
		return queryFailed(err)
	}

	out := make(Samples, 0, len(samples))
	for _, s := range samples {
		if !hkAsleep[s.Value] {
			continue
		}
		out = append(out, health.Sample{Start: s.Start, End: s.End})
	}
	return out
}
