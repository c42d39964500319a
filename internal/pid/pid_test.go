package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "healthsync.pid")

	require.NoError(t, pid.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// rewriting our own pid is fine
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, pid.Remove(path))
}

func TestLiveProcessBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthsync.pid")
	// the parent (go test) is alive for the duration of the test
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestStaleFileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthsync.pid")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	require.NoError(t, pid.Write(path))
}
