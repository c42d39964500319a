package api

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("api_invalid_config")
	ErrEncodeRequest = errors.ErrorCode("api_encode_request_failed")
	ErrDecode        = errors.ErrInvalidResponse
)
