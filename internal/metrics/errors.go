package metrics

import "codeberg.org/mutker/healthsync/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidListen = errors.ErrorCode("metrics_invalid_listen_address")

	// Registration Errors
	ErrRegister = errors.ErrorCode("metrics_register_failed")

	// Service Errors
	ErrServe           = errors.ErrorCode("metrics_serve_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed
)
