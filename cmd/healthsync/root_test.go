package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args on a fresh state directory
// unless the caller passes its own --store-path
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags(rootCmd)

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags undoes flag values left by a previous Execute
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func storeArgs(t *testing.T) []string {
	return []string{"--store-path", filepath.Join(t.TempDir(), "state.db"), "--log-level", "error"}
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "healthsync")
	assert.Contains(t, out, "daemon")
}

func TestEnableDisableStatus(t *testing.T) {
	args := storeArgs(t)

	out, err := run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Enabled: true")
	assert.Contains(t, out, "Last sync: never")
	assert.Contains(t, out, "Source: mock")

	out, err = run(t, append([]string{"disable"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Sync disabled")

	out, err = run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Enabled: false")

	_, err = run(t, append([]string{"enable"}, args...)...)
	require.NoError(t, err)
	out, err = run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Enabled: true")
}

func TestSyncRequiresBackend(t *testing.T) {
	_, err := run(t, append([]string{"sync"}, storeArgs(t)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}

func TestSyncUploadsAndThrottles(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health-data/batch", r.URL.Path)
		posts++

		var body struct {
			Records []json.RawMessage `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		resp, _ := json.Marshal(map[string]any{
			"success": true,
			"data":    map[string]any{"synced": len(body.Records), "skipped": 0, "errors": []any{}},
		})
		w.Write(resp)
	}))
	defer srv.Close()

	args := append(storeArgs(t), "--api-url", srv.URL, "--token", "t")

	out, err := run(t, append([]string{"sync", "--days", "3"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Synced: 3")

	out, err = run(t, append([]string{"sync", "--days", "3"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "skipping")
	assert.Equal(t, 1, posts)

	out, err = run(t, append([]string{"status"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Pending records: 0")
	assert.NotContains(t, out, "Last sync: never")
}

func TestTodayPrintsScoredRecord(t *testing.T) {
	out, err := run(t, append([]string{"today", "--date", "2026-03-01"}, storeArgs(t)...)...)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "2026-03-01", record["date"])
	assert.Contains(t, record, "healthScore")
	assert.Contains(t, record, "steps")
}

func TestTodayRejectsBadDate(t *testing.T) {
	_, err := run(t, append([]string{"today", "--date", "03/01/2026"}, storeArgs(t)...)...)
	assert.Error(t, err)
}

func TestWeekSummary(t *testing.T) {
	out, err := run(t, append([]string{"week"}, storeArgs(t)...)...)
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 7, summary["days"])
}

func TestScanBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/scan", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "737628064502", body["barcode"])
		w.Write([]byte(`{"success":true,"product":{"name":"Rice Noodles"}}`))
	}))
	defer srv.Close()

	args := append(storeArgs(t), "--api-url", srv.URL, "--user-id", "user-1")
	out, err := run(t, append([]string{"scan", "barcode", "737628064502"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Rice Noodles")
}

func TestScanWithoutUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("backend must not be called without a user")
	}))
	defer srv.Close()

	args := append(storeArgs(t), "--api-url", srv.URL)
	_, err := run(t, append([]string{"scan", "barcode", "123"}, args...)...)
	assert.Error(t, err)
}

func TestDeleteRemoteNeedsRange(t *testing.T) {
	_, err := run(t, append([]string{"delete-remote"}, storeArgs(t)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--days")
}

func TestTrendsRejectsUnknownRange(t *testing.T) {
	_, err := run(t, append([]string{"trends", "--range", "year"}, storeArgs(t)...)...)
	assert.Error(t, err)
}
