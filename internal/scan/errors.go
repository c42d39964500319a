package scan

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrUnauthenticated = errors.ErrUnauthenticated
	ErrInvalidInput    = errors.ErrorCode("scan_invalid_input")
	ErrInvalidRange    = errors.ErrorCode("scan_invalid_range")
)
