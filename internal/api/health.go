package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"github.com/google/uuid"
)

const (
	pathHealthData   = "/health-data"
	pathHealthBatch  = "/health-data/batch"
	pathHealthLatest = "/health-data/latest"
)

var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("healthsync:health-data"))

// Upload identifies where records came from
type Upload struct {
	Source     string `json:"source"`
	DeviceType string `json:"deviceType"`
	Timezone   string `json:"timezone"`
}

type DailyUpload struct {
	Upload
	RecordedAt string             `json:"recordedAt"`
	Metrics    health.DailyRecord `json:"metrics"`
}

type BatchRecord struct {
	RecordedAt string             `json:"recordedAt"`
	Metrics    health.DailyRecord `json:"metrics"`
}

type BatchUpload struct {
	Upload
	Records []BatchRecord `json:"records"`
}

type DailyAck struct {
	ID         string `json:"id"`
	RecordedAt string `json:"recordedAt"`
	SyncedAt   string `json:"syncedAt"`
}

type BatchError struct {
	RecordedAt string `json:"recordedAt,omitempty"`
	Error      string `json:"error"`
}

type BatchAck struct {
	Synced  int          `json:"synced"`
	Skipped int          `json:"skipped"`
	Errors  []BatchError `json:"errors"`
}

type HistoryPage struct {
	Records []json.RawMessage `json:"records"`
	Summary json.RawMessage   `json:"summary,omitempty"`
}

type Latest struct {
	Today   json.RawMessage `json:"today"`
	Streaks json.RawMessage `json:"streaks"`
}

// IdempotencyKey is stable for identical payloads
func IdempotencyKey(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.New().Wrap(ErrEncodeRequest, err)
	}
	return uuid.NewSHA1(idempotencyNamespace, data).String(), nil
}

// PostDaily sends one day's record
func (c *Client) PostDaily(ctx context.Context, upload DailyUpload) (DailyAck, error) {
	key, err := IdempotencyKey(upload)
	if err != nil {
		return DailyAck{}, err
	}

	var env envelope[DailyAck]
	err = c.do(ctx, request{
		method:  http.MethodPost,
		path:    pathHealthData,
		body:    upload,
		headers: map[string]string{"Idempotency-Key": key},
	}, &env)
	if err != nil {
		return DailyAck{}, err
	}
	if err := env.check(pathHealthData); err != nil {
		return DailyAck{}, err
	}
	return env.Data, nil
}

// PostBatch sends many days in one request
func (c *Client) PostBatch(ctx context.Context, upload BatchUpload) (BatchAck, error) {
	key, err := IdempotencyKey(upload)
	if err != nil {
		return BatchAck{}, err
	}

	var env envelope[BatchAck]
	err = c.do(ctx, request{
		method:  http.MethodPost,
		path:    pathHealthBatch,
		body:    upload,
		headers: map[string]string{"Idempotency-Key": key},
	}, &env)
	if err != nil {
		return BatchAck{}, err
	}
	if err := env.check(pathHealthBatch); err != nil {
		return BatchAck{}, err
	}
	return env.Data, nil
}

// History lists stored records between two dates
func (c *Client) History(ctx context.Context, start, end time.Time, granularity string) (HistoryPage, error) {
	q := url.Values{}
	q.Set("startDate", health.DateOf(start))
	q.Set("endDate", health.DateOf(end))
	if granularity != "" {
		q.Set("granularity", granularity)
	}

	var env envelope[HistoryPage]
	if err := c.do(ctx, request{method: http.MethodGet, path: pathHealthData, query: q}, &env); err != nil {
		return HistoryPage{}, err
	}
	if err := env.check(pathHealthData); err != nil {
		return HistoryPage{}, err
	}
	return env.Data, nil
}

// Latest returns today's stored summary and streaks
func (c *Client) Latest(ctx context.Context) (Latest, error) {
	var env envelope[Latest]
	if err := c.do(ctx, request{method: http.MethodGet, path: pathHealthLatest}, &env); err != nil {
		return Latest{}, err
	}
	if err := env.check(pathHealthLatest); err != nil {
		return Latest{}, err
	}
	return env.Data, nil
}

// DeleteRange removes stored records. With all set the dates are ignored.
func (c *Client) DeleteRange(ctx context.Context, start, end time.Time, all bool) (int, error) {
	q := url.Values{}
	if all {
		q.Set("all", strconv.FormatBool(true))
	} else {
		q.Set("startDate", health.DateOf(start))
		q.Set("endDate", health.DateOf(end))
	}

	var resp struct {
		Success      bool   `json:"success"`
		DeletedCount int    `json:"deletedCount"`
		Error        string `json:"error,omitempty"`
	}
	if err := c.do(ctx, request{method: http.MethodDelete, path: pathHealthData, query: q}, &resp); err != nil {
		return 0, err
	}
	env := envelope[struct{}]{Success: resp.Success, Error: resp.Error}
	if err := env.check(pathHealthData); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}
