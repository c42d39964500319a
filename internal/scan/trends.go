package scan

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
)

// Range bounds how far back HealthTrends looks
type Range string

const (
	RangeDay   Range = "day"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeAll   Range = "all"
)

// ParseRange accepts the names above; empty means week
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case RangeDay, RangeWeek, RangeMonth, RangeAll:
		return r, nil
	case "":
		return RangeWeek, nil
	default:
		return "", errors.New().WithData(ErrInvalidRange, s)
	}
}

type DayTrend struct {
	Date      string `json:"date"`
	AvgScore  int    `json:"avgScore"`
	ScanCount int    `json:"scanCount"`
}

type Trends struct {
	Trends             []DayTrend   `json:"trends"`
	AverageHealthScore int          `json:"averageHealthScore"`
	TotalScans         int          `json:"totalScans"`
	ScansByType        map[Type]int `json:"scansByType"`
}

var trendTypes = []Type{TypeBarcode, TypeFoodPhoto, TypeImage, TypePill, TypeProductLabel, TypeLabel}

func emptyTrends() Trends {
	byType := make(map[Type]int, len(trendTypes))
	for _, t := range trendTypes {
		byType[t] = 0
	}
	return Trends{Trends: []DayTrend{}, ScansByType: byType}
}

// HealthTrends summarises scored scans from the latest history page
func (s *Service) HealthTrends(ctx context.Context, r Range) (Trends, error) {
	history, err := s.History(ctx, trendsHistoryLimit, "", true)
	if err != nil {
		return Trends{}, err
	}
	if !history.Success || len(history.Scans) == 0 {
		return emptyTrends(), nil
	}
	return summarise(history.Scans, r, s.clock.Now().In(s.loc)), nil
}

func cutoff(r Range, now time.Time) (time.Time, bool) {
	switch r {
	case RangeDay:
		return now.AddDate(0, 0, -1), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

func summarise(scans []Record, r Range, now time.Time) Trends {
	out := emptyTrends()
	from, bounded := cutoff(r, now)

	scores := make(map[string][]float64)
	for _, scan := range scans {
		if bounded && scan.Timestamp.Before(from) {
			continue
		}
		out.TotalScans++

		if _, known := out.ScansByType[scan.ScanType]; known {
			out.ScansByType[scan.ScanType]++
		}
		if scan.HealthScore != nil {
			date := health.DateOf(scan.Timestamp.In(now.Location()))
			scores[date] = append(scores[date], *scan.HealthScore)
		}
	}

	for date, values := range scores {
		var sum float64
		for _, v := range values {
			sum += v
		}
		out.Trends = append(out.Trends, DayTrend{
			Date:      date,
			AvgScore:  int(math.Round(sum / float64(len(values)))),
			ScanCount: len(values),
		})
	}
	slices.SortFunc(out.Trends, func(a, b DayTrend) int {
		return cmp.Compare(a.Date, b.Date)
	})

	// Each day's rounded average counts once per scored scan that day, so
	// busy days weigh more than a plain mean of daily averages would.
	var total, n int
	for _, t := range out.Trends {
		total += t.AvgScore * t.ScanCount
		n += t.ScanCount
	}
	if n > 0 {
		out.AverageHealthScore = int(math.Round(float64(total) / float64(n)))
	}

	return out
}
