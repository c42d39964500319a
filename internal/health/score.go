package health

import "math"

const (
	DefaultScore = 75

	stepsGoal         = 10000
	activeMinutesGoal = 30
	sleepHoursGoal    = 8
	heartRateLow      = 60
	heartRateHigh     = 100
	heartRatePenalty  = 2
)

// Score averages a 0-100 sub-score over the factors present in r. A record
// with none of them scores DefaultScore.
func Score(r DailyRecord) int {
	var total float64
	factors := 0

	if r.Steps != nil {
		total += math.Min(float64(*r.Steps)/stepsGoal*100, 100)
		factors++
	}

	if r.ActiveMinutes != nil {
		total += math.Min(float64(*r.ActiveMinutes)/activeMinutesGoal*100, 100)
		factors++
	}

	if r.SleepHours != nil {
		total += math.Min(*r.SleepHours/sleepHoursGoal*100, 100)
		factors++
	}

	if r.HeartRateAvg != nil {
		total += heartRateScore(float64(*r.HeartRateAvg))
		factors++
	}

	if factors == 0 {
		return DefaultScore
	}
	return int(math.Round(total / float64(factors)))
}

func heartRateScore(bpm float64) float64 {
	switch {
	case bpm < heartRateLow:
		return math.Max(0, 100-(heartRateLow-bpm)*heartRatePenalty)
	case bpm > heartRateHigh:
		return math.Max(0, 100-(bpm-heartRateHigh)*heartRatePenalty)
	default:
		return 100
	}
}
