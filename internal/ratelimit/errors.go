package ratelimit

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("ratelimit_invalid_config")
	ErrLimited       = errors.ErrRateLimited
)
