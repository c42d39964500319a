package health

import "math"

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"

	trendThreshold = 5
)

type Trend struct {
	Direction Direction `json:"direction"`
	Change    int       `json:"change"`
}

// CompareMeans classifies the percent change from previous to current. A
// zero previous mean has no defined change and is reported stable.
func CompareMeans(previous, current float64) Trend {
	if previous == 0 {
		return Trend{Direction: Stable}
	}

	change := int(math.Round((current - previous) / previous * 100))
	switch {
	case change > trendThreshold:
		return Trend{Direction: Up, Change: change}
	case change < -trendThreshold:
		return Trend{Direction: Down, Change: change}
	default:
		return Trend{Direction: Stable, Change: change}
	}
}

type Trends struct {
	Steps         Trend `json:"steps"`
	Calories      Trend `json:"calories"`
	ActiveMinutes Trend `json:"activeMinutes"`
}

type Averages struct {
	Steps         int `json:"steps"`
	Calories      int `json:"calories"`
	ActiveMinutes int `json:"activeMinutes"`
	HeartRate     int `json:"heartRate"`
}

type WeeklySummary struct {
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Days      int      `json:"days"`
	Averages  Averages `json:"averages"`
	Trends    Trends   `json:"trends"`
}

// CalculateTrends splits chronologically ordered records at len/2 and
// compares the halves. Missing values count as zero.
func CalculateTrends(records []DailyRecord) Trends {
	mid := len(records) / 2
	first, second := records[:mid], records[mid:]

	return Trends{
		Steps:         CompareMeans(mean(first, stepsOf), mean(second, stepsOf)),
		Calories:      CompareMeans(mean(first, caloriesOf), mean(second, caloriesOf)),
		ActiveMinutes: CompareMeans(mean(first, activeMinutesOf), mean(second, activeMinutesOf)),
	}
}

// Weekly summarizes ordered records. Heart rate is averaged only over
// days that report it.
func Weekly(records []DailyRecord) WeeklySummary {
	s := WeeklySummary{
		Days:   len(records),
		Trends: CalculateTrends(records),
	}
	if len(records) == 0 {
		return s
	}

	s.StartDate = records[0].Date
	s.EndDate = records[len(records)-1].Date
	s.Averages = Averages{
		Steps:         int(math.Round(mean(records, stepsOf))),
		Calories:      int(math.Round(mean(records, caloriesOf))),
		ActiveMinutes: int(math.Round(mean(records, activeMinutesOf))),
	}

	var hrSum, hrDays int
	for _, r := range records {
		if r.HeartRateAvg != nil {
			hrSum += *r.HeartRateAvg
			hrDays++
		}
	}
	if hrDays > 0 {
		s.Averages.HeartRate = int(math.Round(float64(hrSum) / float64(hrDays)))
	}
	return s
}

func mean(records []DailyRecord, value func(DailyRecord) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += value(r)
	}
	return sum / float64(len(records))
}

func stepsOf(r DailyRecord) float64 {
	if r.Steps == nil {
		return 0
	}
	return float64(*r.Steps)
}

func caloriesOf(r DailyRecord) float64 {
	if r.ActiveCalories == nil {
		return 0
	}
	return float64(*r.ActiveCalories)
}

func activeMinutesOf(r DailyRecord) float64 {
	if r.ActiveMinutes == nil {
		return 0
	}
	return float64(*r.ActiveMinutes)
}
