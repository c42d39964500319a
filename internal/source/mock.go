package source

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/health"
)

const (
	minDayProgress  = 0.1
	heartRateReadings = 4
)

// Mock synthesizes plausible values scaled by how much of the day has
// passed. Output depends only on the metric, the day and that progress.
type Mock struct {
	clock clock.Clock
}

func NewMock(clk clock.Clock) *Mock {
	if clk == nil {
		clk = clock.System()
	}
	return &Mock{clock: clk}
}

func (*Mock) Name() string {
	return "mock"
}

func (*Mock) Initialize(context.Context) error {
	return nil
}

func (m *Mock) QueryMetric(ctx context.Context, metric health.MetricType, start, end time.Time) Result {
	if err := ctx.Err(); err != nil {
		return queryFailed(err)
	}

	dayStart, dayEnd := health.DayBounds(start)
	now := m.clock.Now()
	if !now.After(dayStart) {
		return Samples{}
	}

	progress := dayProgress(now, dayStart, dayEnd)
	until := dayEnd
	if now.Before(dayEnd) {
		until = now
	}
	r := seeded(metric, dayStart)

	var out Samples
	switch metric {
	case health.Steps:
		out = Samples{span(dayStart, until, math.Round(10000*progress+r.Float64()*1000), "count")}
	case health.Distance:
		km := 8*progress + r.Float64()*2
		out = Samples{span(dayStart, until, math.Round(km*1000), "m")}
	case health.ActiveCalories:
		out = Samples{span(dayStart, until, math.Round(500*progress+r.Float64()*100), "kcal")}
	case health.Exercise:
		minutes := math.Round(60*progress + r.Float64()*15)
		from := dayStart.Add(7 * time.Hour)
		out = Samples{span(from, from.Add(time.Duration(minutes)*time.Minute), minutes, "min")}
	case health.HeartRate:
		step := until.Sub(dayStart) / heartRateReadings
		for i := 0; i < heartRateReadings; i++ {
			at := dayStart.Add(step * time.Duration(i))
			out = append(out, span(at, at, math.Round(65+r.Float64()*15), "bpm"))
		}
	case health.Weight:
		at := dayStart.Add(7 * time.Hour)
		out = Samples{span(at, at, math.Round((70+r.Float64()*10)*10)/10, "kg")}
	case health.Sleep:
		hours := 7 + r.Float64()
		out = Samples{span(dayStart, dayStart.Add(time.Duration(hours*float64(time.Hour))), hours, "h")}
	case health.Hydration:
		liters := 2*progress + r.Float64()*0.5
		out = Samples{span(dayStart, until, math.Round(liters*1000), "mL")}
	default:
		return unsupported(string(metric))
	}

	return clip(out, start, end, now)
}

func dayProgress(now, dayStart, dayEnd time.Time) float64 {
	if !now.Before(dayEnd) {
		return 1
	}
	return math.Max(minDayProgress, float64(now.Sub(dayStart))/float64(dayEnd.Sub(dayStart)))
}

func seeded(metric health.MetricType, day time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(metric))
	h.Write([]byte(health.DateOf(day)))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1))
}

func span(start, end time.Time, value float64, unit string) health.Sample {
	return health.Sample{Start: start, End: end, Value: value, Unit: unit}
}

// clip drops samples outside [start, end) or still in the future
func clip(samples Samples, start, end, now time.Time) Samples {
	out := make(Samples, 0, len(samples))
	for _, s := range samples {
		if s.End.After(now) || s.Start.Before(start) || !s.Start.Before(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}
