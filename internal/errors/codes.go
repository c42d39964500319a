package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Application errors
	ErrInitApp   ErrorCode = "init_app_failed"
	ErrMainLoop  ErrorCode = "main_loop_failed"
	ErrSyncCycle ErrorCode = "sync_cycle_failed"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrInvalidOperation ErrorCode = "invalid_operation"

	// Backend errors, one per failure class reported to callers
	ErrValidation      ErrorCode = "validation_error"
	ErrUnauthorized    ErrorCode = "unauthorized"
	ErrNotFound        ErrorCode = "not_found"
	ErrRateLimited     ErrorCode = "rate_limit_exceeded"
	ErrServer          ErrorCode = "server_error"
	ErrTimeout         ErrorCode = "timeout_error"
	ErrNetwork         ErrorCode = "network_error"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrUnknown         ErrorCode = "unknown_error"
	ErrUnauthenticated ErrorCode = "unauthenticated"
	ErrInvalidResponse ErrorCode = "invalid_response"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrNotImplemented:   "Operation not implemented",
	ErrInvalidConfig:    "Invalid configuration",
	ErrMissingConfig:    "Missing configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read configuration",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInitApp:          "Failed to initialize application",
	ErrMainLoop:         "Error in main loop",
	ErrSyncCycle:        "Sync cycle failed",
	ErrOperationFailed:  "Operation failed",
	ErrInvalidOperation: "Invalid operation",
	ErrValidation:       "Invalid request data",
	ErrUnauthorized:     "Unauthorized access",
	ErrNotFound:         "Resource not found",
	ErrRateLimited:      "Rate limit exceeded",
	ErrServer:           "Server error",
	ErrTimeout:          "Request timed out",
	ErrNetwork:          "Network request failed",
	ErrUnavailable:      "Service unavailable",
	ErrUnknown:          "Unknown error",
	ErrUnauthenticated:  "User not authenticated",
	ErrInvalidResponse:  "Invalid response from server",
}

// userMessages holds the text shown to end users. Raw transport detail
// never appears here.
var userMessages = map[ErrorCode]string{
	ErrValidation:      "Invalid data provided.",
	ErrUnauthorized:    "Authentication required. Please sign in.",
	ErrNotFound:        "Product not found. Try taking a photo of the nutrition label.",
	ErrRateLimited:     "Too many requests. Please wait a moment and try again.",
	ErrServer:          "Server error occurred. Please try again later.",
	ErrTimeout:         "Request timed out. Please try again.",
	ErrNetwork:         "Network connection error. Please check your internet connection.",
	ErrUnavailable:     "Service temporarily unavailable. Please try again later.",
	ErrUnauthenticated: "Please sign in to continue.",
	ErrInvalidResponse: "Received invalid response from server.",
}

const defaultUserMessage = "An unexpected error occurred. Please try again."

var retryableCodes = map[ErrorCode]bool{
	ErrNetwork:     true,
	ErrTimeout:     true,
	ErrServer:      true,
	ErrUnavailable: true,
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// GetUserMessage returns the fixed end-user text for a code
func GetUserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}

	return defaultUserMessage
}

// IsRetryableCode reports whether failures with this code may succeed on retry
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
