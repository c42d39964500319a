package health

import "time"

const DateLayout = "2006-01-02"

// MetricType names one kind of sample a data source can report
type MetricType string

const (
	Steps          MetricType = "steps"
	Distance       MetricType = "distance"
	ActiveCalories MetricType = "active_calories"
	Exercise       MetricType = "exercise"
	HeartRate      MetricType = "heart_rate"
	Weight         MetricType = "weight"
	Sleep          MetricType = "sleep"
	Hydration      MetricType = "hydration"
)

// AllMetrics lists every metric queried for a day, in a fixed order
var AllMetrics = []MetricType{
	Steps, Distance, ActiveCalories, Exercise, HeartRate, Weight, Sleep, Hydration,
}

// Sample is one raw reading or session from a data source. Point readings
// have Start == End.
type Sample struct {
	Start time.Time
	End   time.Time
	Value float64
	Unit  string
}

// DailyRecord is the canonical per-day aggregate. A nil field means the
// metric was not reported, which is different from a reported zero.
type DailyRecord struct {
	Date           string   `json:"date"`
	Steps          *int     `json:"steps,omitempty"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	ActiveMinutes  *int     `json:"activeMinutes,omitempty"`
	ActiveCalories *int     `json:"activeCalories,omitempty"`
	HeartRateAvg   *int     `json:"heartRateAvg,omitempty"`
	HeartRateMin   *int     `json:"heartRateMin,omitempty"`
	HeartRateMax   *int     `json:"heartRateMax,omitempty"`
	SleepHours     *float64 `json:"sleepHours,omitempty"`
	WeightKg       *float64 `json:"weightKg,omitempty"`
	HydrationMl    *int     `json:"hydrationMl,omitempty"`
	HealthScore    *int     `json:"healthScore,omitempty"`
}

// IsEmpty reports whether no metric at all is present
func (r DailyRecord) IsEmpty() bool {
	return r.Steps == nil &&
		r.DistanceMeters == nil &&
		r.ActiveMinutes == nil &&
		r.ActiveCalories == nil &&
		r.HeartRateAvg == nil &&
		r.HeartRateMin == nil &&
		r.HeartRateMax == nil &&
		r.SleepHours == nil &&
		r.WeightKg == nil &&
		r.HydrationMl == nil
}

// WithScore returns a copy carrying the computed health score
func (r DailyRecord) WithScore() DailyRecord {
	score := Score(r)
	r.HealthScore = &score
	return r
}

// RecordedAt is the start of the record's day in loc
func (r DailyRecord) RecordedAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Date, loc)
}

// DayBounds returns [start, end) of the calendar day containing t
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// DateOf formats t as a record date
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

func Ptr[T any](v T) *T {
	return &v
}
