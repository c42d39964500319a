package source

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
)

// Export is a HealthKitDriver over a JSON export file, for hosts without
// a live HealthKit store.
type Export struct {
	Quantity map[string][]QuantitySample `json:"quantity"`
	Category map[string][]CategorySample `json:"category"`
}

// LoadExport reads an export written by the companion exporter
func LoadExport(path string) (*Export, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrExportRead, err)
	}

	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errFactory.WithData(ErrExportRead, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}
	return &e, nil
}

func (e *Export) IsAvailable() bool {
	return e != nil
}

func (*Export) RequestAuthorization(context.Context, []string) error {
	return nil
}

func (e *Export) QuantitySamples(_ context.Context, identifier string, start, end time.Time) ([]QuantitySample, error) {
	var out []QuantitySample
	for _, s := range e.Quantity[identifier] {
		if overlaps(s.Start, s.End, start, end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (e *Export) CategorySamples(_ context.Context, identifier string, start, end time.Time) ([]CategorySample, error) {
	var out []CategorySample
	for _, s := range e.Category[identifier] {
		if overlaps(s.Start, s.End, start, end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func overlaps(sStart, sEnd, start, end time.Time) bool {
	if sEnd.Equal(sStart) {
		return !sStart.Before(start) && sStart.Before(end)
	}
	return sStart.Before(end) && sEnd.After(start)
}
