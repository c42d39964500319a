package aggregate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeberg.org/mutker/healthsync/internal/aggregate"
	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	results map[health.MetricType]source.Result
}

func (*fakeAdapter) Name() string                     { return "fake" }
func (*fakeAdapter) Initialize(context.Context) error { return nil }

func (f *fakeAdapter) QueryMetric(_ context.Context, metric health.MetricType, _, _ time.Time) source.Result {
	if res, ok := f.results[metric]; ok {
		return res
	}
	return source.Unavailable{Reason: "not configured"}
}

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func point(h int, v float64) health.Sample {
	return health.Sample{Start: at(h, 0), End: at(h, 0), Value: v}
}

func TestDayReductions(t *testing.T) {
	adapter := &fakeAdapter{results: map[health.MetricType]source.Result{
		health.Steps:          source.Samples{point(8, 1200), point(12, 3000.4), point(18, 800)},
		health.Distance:       source.Samples{point(8, 1500.2), point(12, 2000)},
		health.ActiveCalories: source.Samples{point(9, 120), point(17, 230)},
		health.HeartRate:      source.Samples{point(8, 62), point(12, 88), point(20, 71)},
		health.Exercise: source.Samples{
			{Start: at(7, 0), End: at(7, 25)},
			{Start: at(18, 0), End: at(18, 20)},
		},
		health.Sleep: source.Samples{
			// started the previous evening, only the part inside the day counts
			{Start: day.Add(-2 * time.Hour), End: at(6, 30)},
			{Start: at(14, 0), End: at(14, 30)},
		},
		health.Weight: source.Samples{
			{Start: at(7, 0), End: at(7, 0), Value: 71.24},
			{Start: at(21, 0), End: at(21, 0), Value: 70.86},
			{Start: at(12, 0), End: at(12, 0), Value: 72.0},
		},
		health.Hydration: source.Samples{point(9, 500), point(13, 750)},
	}}

	record, report := aggregate.New(adapter, logger.Nop()).Day(context.Background(), at(15, 0))

	assert.Equal(t, "2026-03-02", record.Date)
	assert.Equal(t, 5000, *record.Steps)
	assert.Equal(t, 3500.0, *record.DistanceMeters)
	assert.Equal(t, 350, *record.ActiveCalories)
	assert.Equal(t, 74, *record.HeartRateAvg)
	assert.Equal(t, 62, *record.HeartRateMin)
	assert.Equal(t, 88, *record.HeartRateMax)
	assert.Equal(t, 45, *record.ActiveMinutes)
	assert.Equal(t, 7.0, *record.SleepHours)
	assert.Equal(t, 70.9, *record.WeightKg)
	assert.Equal(t, 1250, *record.HydrationMl)
	assert.Empty(t, report.Unavailable())
}

func TestDayPartialFailure(t *testing.T) {
	adapter := &fakeAdapter{results: map[health.MetricType]source.Result{
		health.Steps:     source.Samples{point(10, 4000)},
		health.HeartRate: source.Unavailable{Reason: "query failed", Err: fmt.Errorf("boom")},
		health.Sleep:     source.Samples{},
	}}

	var record health.DailyRecord
	var report aggregate.Report
	require.NotPanics(t, func() {
		record, report = aggregate.New(adapter, logger.Nop()).Day(context.Background(), day)
	})

	assert.Equal(t, 4000, *record.Steps)
	assert.Nil(t, record.HeartRateAvg, "failed metric is omitted")
	assert.Nil(t, record.SleepHours, "empty metric is omitted, not zeroed")
	assert.Nil(t, record.WeightKg)
	assert.Contains(t, report.Unavailable(), health.HeartRate)
	assert.NotContains(t, report.Unavailable(), health.Steps)
	assert.False(t, record.IsEmpty())
}

func TestDayAllFailed(t *testing.T) {
	record, report := aggregate.New(&fakeAdapter{}, logger.Nop()).Day(context.Background(), day)
	assert.True(t, record.IsEmpty())
	assert.Len(t, report.Unavailable(), len(health.AllMetrics))
}

func TestDayZeroIsKept(t *testing.T) {
	adapter := &fakeAdapter{results: map[health.MetricType]source.Result{
		health.Steps: source.Samples{point(10, 0)},
	}}
	record, _ := aggregate.New(adapter, logger.Nop()).Day(context.Background(), day)
	require.NotNil(t, record.Steps)
	assert.Equal(t, 0, *record.Steps)
}

func TestRangeWithMock(t *testing.T) {
	clk := clock.NewManual(day.Add(3*24*time.Hour + 12*time.Hour))
	agg := aggregate.New(source.NewMock(clk), logger.Nop())

	records := agg.Range(context.Background(), day, day.AddDate(0, 0, 3))
	require.Len(t, records, 4)
	assert.Equal(t, "2026-03-02", records[0].Date)
	assert.Equal(t, "2026-03-05", records[3].Date)
	for _, r := range records {
		assert.NotNil(t, r.Steps)
		assert.NotNil(t, r.HeartRateAvg)
	}
}
