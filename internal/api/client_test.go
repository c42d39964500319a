package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/healthsync/internal/api"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/health"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...api.Option) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Token = "secret-token"
	c, err := api.New(cfg, logger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func TestPostBatch(t *testing.T) {
	var gotKey string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/health-data/batch", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		gotKey = r.Header.Get("Idempotency-Key")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "healthkit", body["source"])
		assert.Equal(t, "Europe/Oslo", body["timezone"])
		records := body["records"].([]any)
		require.Len(t, records, 1)
		metrics := records[0].(map[string]any)["metrics"].(map[string]any)
		assert.Equal(t, 4200.0, metrics["steps"])
		assert.NotContains(t, metrics, "sleepHours")

		w.Write([]byte(`{"success":true,"data":{"synced":1,"skipped":0,"errors":[]}}`))
	})

	upload := api.BatchUpload{
		Upload: api.Upload{Source: "healthkit", DeviceType: "ios", Timezone: "Europe/Oslo"},
		Records: []api.BatchRecord{{
			RecordedAt: "2026-03-02T00:00:00+01:00",
			Metrics:    health.DailyRecord{Date: "2026-03-02", Steps: health.Ptr(4200)},
		}},
	}
	ack, err := c.PostBatch(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Synced)

	want, err := api.IdempotencyKey(upload)
	require.NoError(t, err)
	assert.Equal(t, want, gotKey)
}

func TestIdempotencyKeyStable(t *testing.T) {
	a := api.BatchUpload{Upload: api.Upload{Source: "mock"}}
	b := api.BatchUpload{Upload: api.Upload{Source: "mock"}}
	c := api.BatchUpload{Upload: api.Upload{Source: "healthkit"}}

	ka, err := api.IdempotencyKey(a)
	require.NoError(t, err)
	kb, _ := api.IdempotencyKey(b)
	kc, _ := api.IdempotencyKey(c)

	assert.Equal(t, ka, kb)
	assert.NotEqual(t, ka, kc)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      errors.ErrorCode
		retryable bool
	}{
		{"validation", 400, `{"error":"bad date"}`, errors.ErrValidation, false},
		{"unauthorized", 401, ``, errors.ErrUnauthorized, false},
		{"rate limited", 429, ``, errors.ErrRateLimited, false},
		{"server", 503, ``, errors.ErrServer, true},
		{"gateway timeout", 504, ``, errors.ErrTimeout, true},
		{"flagged unavailable", 503, `{"code":"SERVICE_UNAVAILABLE"}`, errors.ErrUnavailable, true},
		{"maintenance", 200, `{"success":false,"error":"maintenance"}`, errors.ErrUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.PostDaily(context.Background(), api.DailyUpload{})
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
			assert.NotContains(t, errors.UserMessage(err), "bad date")
		})
	}
}

func TestTimeoutMapsToTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 50 * time.Millisecond
	c, err := api.New(cfg, logger.Nop())
	require.NoError(t, err)

	_, err = c.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTimeout, errors.CodeOf(err))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := api.DefaultConfig()
	cfg.BaseURL = url
	c, err := api.New(cfg, logger.Nop())
	require.NoError(t, err)

	_, err = c.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrNetwork, errors.CodeOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestScanHistoryQuery(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/scan/history", r.URL.Path)
		assert.Equal(t, "u-42", r.URL.Query().Get("userId"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "pill", r.URL.Query().Get("scanType"))
		assert.Equal(t, "true", r.URL.Query().Get("includeImages"))
		io.WriteString(w, `{"success":true,"data":[{"id":7,"scan_type":"pill","scan_timestamp":"2026-03-02T10:00:00Z","health_score":80}],"pagination":{"total":31}}`)
	})

	resp, err := c.ScanHistory(context.Background(), "u-42", 25, "pill")
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(7), resp.Data[0].ID)
	assert.Equal(t, 80.0, *resp.Data[0].HealthScore)
	assert.Equal(t, 31, resp.Pagination.Total)
}

func TestDeleteRangeAll(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		assert.Empty(t, r.URL.Query().Get("startDate"))
		io.WriteString(w, `{"success":true,"deletedCount":12}`)
	})

	n, err := c.DeleteRange(context.Background(), time.Time{}, time.Time{}, true)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestObserver(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"success":true,"data":{}}`)
	}, api.WithObserver(func(endpoint string, status int, _ time.Duration) {
		assert.Equal(t, "/health-data/latest", endpoint)
		assert.Equal(t, 200, status)
		calls.Add(1)
	}))

	_, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConfigValidate(t *testing.T) {
	cfg := api.DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg.BaseURL = "https://api.example.com"
	assert.NoError(t, cfg.Validate())
}
