package aggregate

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/source"
	"golang.org/x/sync/errgroup"
)

// Report records, per metric, whether the source answered
type Report map[health.MetricType]source.Result

// Unavailable lists the metrics that could not be read
func (r Report) Unavailable() []health.MetricType {
	var out []health.MetricType
	for _, metric := range health.AllMetrics {
		if _, ok := r[metric].(source.Unavailable); ok {
			out = append(out, metric)
		}
	}
	return out
}

type Aggregator struct {
	adapter source.Adapter
	logger  logger.Logger
}

func New(adapter source.Adapter, log logger.Logger) *Aggregator {
	return &Aggregator{adapter: adapter, logger: log}
}

// Day builds the record for the calendar day containing day. Every metric
// is queried concurrently; a failed metric is logged and left out.
func (a *Aggregator) Day(ctx context.Context, day time.Time) (health.DailyRecord, Report) {
	start, end := health.DayBounds(day)

	var (
		mu     sync.Mutex
		report = make(Report, len(health.AllMetrics))
	)

	// Every goroutine returns nil so one failure never cancels the others
	var g errgroup.Group
	for _, metric := range health.AllMetrics {
		g.Go(func() error {
			res := a.adapter.QueryMetric(ctx, metric, start, end)
			if u, ok := res.(source.Unavailable); ok {
				a.logger.Warn().
					Err(u).
					Str("metric", string(metric)).
					Str("date", health.DateOf(start)).
					Str("adapter", a.adapter.Name()).
					Msg("Metric unavailable")
			}

			mu.Lock()
			report[metric] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	record := health.DailyRecord{Date: health.DateOf(start)}
	for metric, res := range report {
		samples, ok := res.(source.Samples)
		if !ok || len(samples) == 0 {
			continue
		}
		reduce(&record, metric, samples, start, end)
	}

	return record, report
}

// Range aggregates each day from first to last inclusive, oldest first.
// Empty days are kept so the result stays dense.
func (a *Aggregator) Range(ctx context.Context, first, last time.Time) []health.DailyRecord {
	var out []health.DailyRecord
	for d, _ := health.DayBounds(first); !d.After(last); d = d.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			break
		}
		record, _ := a.Day(ctx, d)
		out = append(out, record)
	}
	return out
}

func reduce(r *health.DailyRecord, metric health.MetricType, samples source.Samples, start, end time.Time) {
	switch metric {
	case health.Steps:
		r.Steps = health.Ptr(int(math.Round(sum(samples))))
	case health.Distance:
		r.DistanceMeters = health.Ptr(math.Round(sum(samples)))
	case health.ActiveCalories:
		r.ActiveCalories = health.Ptr(int(math.Round(sum(samples))))
	case health.Hydration:
		r.HydrationMl = health.Ptr(int(math.Round(sum(samples))))
	case health.HeartRate:
		lo, hi, avg := stats(samples)
		r.HeartRateAvg = health.Ptr(int(math.Round(avg)))
		r.HeartRateMin = health.Ptr(int(math.Round(lo)))
		r.HeartRateMax = health.Ptr(int(math.Round(hi)))
	case health.Exercise:
		r.ActiveMinutes = health.Ptr(int(math.Round(sessionTime(samples, start, end).Minutes())))
	case health.Sleep:
		hours := sessionTime(samples, start, end).Hours()
		r.SleepHours = health.Ptr(math.Round(hours*10) / 10)
	case health.Weight:
		r.WeightKg = health.Ptr(math.Round(latest(samples).Value*10) / 10)
	}
}

func sum(samples source.Samples) float64 {
	var total float64
	for _, s := range samples {
		total += s.Value
	}
	return total
}

func stats(samples source.Samples) (lo, hi, avg float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.Value)
		hi = math.Max(hi, s.Value)
	}
	return lo, hi, sum(samples) / float64(len(samples))
}

// sessionTime sums session lengths clipped to [start, end)
func sessionTime(samples source.Samples, start, end time.Time) time.Duration {
	var total time.Duration
	for _, s := range samples {
		from, to := s.Start, s.End
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		if to.After(from) {
			total += to.Sub(from)
		}
	}
	return total
}

func latest(samples source.Samples) health.Sample {
	newest := samples[0]
	for _, s := range samples[1:] {
		if s.End.After(newest.End) {
			newest = s
		}
	}
	return newest
}
