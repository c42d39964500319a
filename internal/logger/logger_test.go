package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, lvl)

	lvl, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, lvl)

	lvl, ok = logger.ParseLevel("nonsense")
	assert.False(t, ok)
	assert.Equal(t, logger.WarnLevel, lvl)
}

func TestErrorWithContext(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.WarnLevel) })

	var buf bytes.Buffer
	log := logger.New(&buf).With("sync")

	err := errors.FromStatus(503, nil)
	log.ErrorWithContext(err, "sync", "batch").Msg("upload failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "server_error", entry["error_code"])
	assert.Equal(t, "batch", entry["operation"])
	assert.Equal(t, "sync", entry["component"])
	assert.Equal(t, "upload failed", entry["message"])
}

func TestNopDiscards(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() {
		log.Info().Str("k", "v").Msg("ignored")
		log.With("x").Debug().Int("n", 1).Send()
	})
}
