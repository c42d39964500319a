package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// appError implements the Error interface
type appError struct {
	code    ErrorCode
	message string
	status  int
	err     error
	data    any
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	if e.data != nil {
		return fmt.Sprintf("%s: %v", msg, e.data)
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", msg, e.err)
	}

	return msg
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) Status() int {
	return e.status
}

func (e *appError) IsRetryable() bool {
	return IsRetryableCode(e.code)
}

func (e *appError) UserMessage() string {
	return GetUserMessage(e.code)
}

func (e *appError) WithMessage(msg string) Error {
	c := *e
	c.message = msg
	return &c
}

func (e *appError) WithData(data any) Error {
	c := *e
	c.data = data
	return &c
}

func (e *appError) WithStatus(status int) Error {
	c := *e
	c.status = status
	return &c
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

// Is matches on code so sentinel-style comparisons work across wrapping
func (e *appError) Is(target error) bool {
	t, ok := target.(*appError)
	if !ok {
		return false
	}
	return t.code == e.code
}

type defaultFactory struct{}

func (*defaultFactory) New(code ErrorCode) Error {
	return &appError{
		code: code,
	}
}

func (*defaultFactory) Wrap(code ErrorCode, err error) Error {
	return &appError{
		code: code,
		err:  err,
	}
}

func (*defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{
		code:    code,
		message: msg,
	}
}

func (*defaultFactory) WithData(code ErrorCode, data any) Error {
	return &appError{
		code: code,
		data: data,
	}
}

// New creates a Factory instance for error creation
func New() Factory {
	return &defaultFactory{}
}

// FromStatus classifies a non-2xx HTTP response
func FromStatus(status int, cause error) Error {
	var code ErrorCode
	switch status {
	case http.StatusBadRequest:
		code = ErrValidation
	case http.StatusUnauthorized:
		code = ErrUnauthorized
	case http.StatusNotFound:
		code = ErrNotFound
	case http.StatusTooManyRequests:
		code = ErrRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		code = ErrServer
	case http.StatusGatewayTimeout:
		code = ErrTimeout
	default:
		code = ErrUnknown
	}

	return &appError{
		code:   code,
		status: status,
		err:    cause,
	}
}

// FromTransport classifies a failure that happened before any response
// was received. Errors that are already classified pass through.
func FromTransport(err error) Error {
	if err == nil {
		return nil
	}

	var appErr Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &appError{code: ErrTimeout, err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &appError{code: ErrTimeout, err: err}
	}

	return &appError{code: ErrNetwork, err: err}
}

// Unavailable reports a backend that flagged itself as unavailable
func Unavailable(cause error) Error {
	return &appError{code: ErrUnavailable, err: cause}
}

// CodeOf returns the code of the first coded error in the chain
func CodeOf(err error) ErrorCode {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	if err == nil {
		return ""
	}
	return ErrUnknown
}

// IsRetryable reports whether err carries a retryable code
func IsRetryable(err error) bool {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr.IsRetryable()
	}
	return false
}

// UserMessage returns end-user text for any error, coded or not
func UserMessage(err error) string {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return defaultUserMessage
}

// HasCode reports whether any error in the chain carries code
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &appError{code: code})
}
