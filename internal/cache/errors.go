package cache

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("cache_invalid_config")
	ErrEncode        = errors.ErrorCode("cache_encode_failed")
	ErrBackend       = errors.ErrorCode("cache_backend_failed")
)
