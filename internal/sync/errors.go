package sync

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrStateRead     = errors.ErrorCode("sync_state_read_failed")
	ErrStateWrite    = errors.ErrorCode("sync_state_write_failed")
	ErrCycle         = errors.ErrSyncCycle
)
