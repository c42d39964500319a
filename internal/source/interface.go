package source

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/health"
)

// Adapter is a capability provider for raw health samples
type Adapter interface {
	Name() string
	// Initialize checks availability and requests read permission
	Initialize(ctx context.Context) error
	// QueryMetric never panics and never returns a bare error: failures
	// come back as Unavailable.
	QueryMetric(ctx context.Context, metric health.MetricType, start, end time.Time) Result
}

// Result is either Samples or Unavailable
type Result interface {
	isResult()
}

// Samples is a successful query, possibly with no readings
type Samples []health.Sample

// Unavailable explains why a metric could not be read
type Unavailable struct {
	Reason string
	Err    error
}

func (Samples) isResult()     {}
func (Unavailable) isResult() {}

func (u Unavailable) Error() string {
	if u.Err != nil {
		return u.Reason + ": " + u.Err.Error()
	}
	return u.Reason
}

// Platform is the detected host capability class
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformOther   Platform = "other"
)

// Capabilities describes what the host offers. Nil drivers are absent.
type Capabilities struct {
	Platform      Platform
	HealthKit     HealthKitDriver
	HealthConnect HealthConnectDriver
	GoogleFit     GoogleFitDriver
}

// HealthKitDriver abstracts the HealthKit store for testing
type HealthKitDriver interface {
	IsAvailable() bool
	RequestAuthorization(ctx context.Context, read []string) error
	QuantitySamples(ctx context.Context, identifier string, start, end time.Time) ([]QuantitySample, error)
	CategorySamples(ctx context.Context, identifier string, start, end time.Time) ([]CategorySample, error)
}

// QuantitySample values are in canonical units: count, m, kcal, min, bpm,
// kg and mL.
type QuantitySample struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Quantity float64   `json:"quantity"`
	Unit     string    `json:"unit"`
}

type CategorySample struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value int       `json:"value"`
}

// HealthConnectDriver abstracts the Health Connect client for testing
type HealthConnectDriver interface {
	IsAvailable(ctx context.Context) (bool, error)
	// RequestPermissions returns the record types that were granted
	RequestPermissions(ctx context.Context, recordTypes []string) ([]string, error)
	ReadRecords(ctx context.Context, recordType string, start, end time.Time) ([]ConnectRecord, error)
}

// ConnectRecord is a Health Connect record with Value in the same units as
// QuantitySample. Series is set for heart rate.
type ConnectRecord struct {
	Start  time.Time
	End    time.Time
	Value  float64
	Series []SeriesPoint
}

type SeriesPoint struct {
	Time           time.Time
	BeatsPerMinute float64
}

// GoogleFitDriver abstracts the Google Fit client for testing
type GoogleFitDriver interface {
	Authorize(ctx context.Context, scopes []string) (bool, error)
	Samples(ctx context.Context, dataType string, start, end time.Time) ([]FitSample, error)
}

type FitSample struct {
	Start time.Time
	End   time.Time
	Value float64
}
