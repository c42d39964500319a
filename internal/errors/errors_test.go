package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"codeberg.org/mutker/healthsync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      errors.ErrorCode
		retryable bool
	}{
		{http.StatusBadRequest, errors.ErrValidation, false},
		{http.StatusUnauthorized, errors.ErrUnauthorized, false},
		{http.StatusNotFound, errors.ErrNotFound, false},
		{http.StatusTooManyRequests, errors.ErrRateLimited, false},
		{http.StatusInternalServerError, errors.ErrServer, true},
		{http.StatusBadGateway, errors.ErrServer, true},
		{http.StatusServiceUnavailable, errors.ErrServer, true},
		{http.StatusGatewayTimeout, errors.ErrTimeout, true},
		{http.StatusTeapot, errors.ErrUnknown, false},
		{http.StatusForbidden, errors.ErrUnknown, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := errors.FromStatus(tt.status, nil)
			assert.Equal(t, tt.code, err.Code())
			assert.Equal(t, tt.status, err.Status())
			assert.Equal(t, tt.retryable, err.IsRetryable())
		})
	}
}

func TestFromTransport(t *testing.T) {
	err := errors.FromTransport(fmt.Errorf("dial tcp: connection refused"))
	assert.Equal(t, errors.ErrNetwork, err.Code())
	assert.True(t, err.IsRetryable())
	assert.Zero(t, err.Status())

	err = errors.FromTransport(fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.Equal(t, errors.ErrTimeout, err.Code())
	assert.True(t, err.IsRetryable())

	classified := errors.FromStatus(http.StatusNotFound, nil)
	assert.Same(t, classified, errors.FromTransport(classified))

	assert.Nil(t, errors.FromTransport(nil))
}

func TestUnavailableIsRetryable(t *testing.T) {
	err := errors.Unavailable(nil)
	assert.Equal(t, errors.ErrUnavailable, err.Code())
	assert.True(t, errors.IsRetryable(err))
}

func TestUserMessageHidesTransportDetail(t *testing.T) {
	err := errors.FromTransport(fmt.Errorf("dial tcp 10.0.0.1:443: secret detail"))
	assert.NotContains(t, err.UserMessage(), "secret detail")
	assert.NotContains(t, errors.UserMessage(err), "10.0.0.1")

	assert.Equal(t, "An unexpected error occurred. Please try again.", errors.UserMessage(fmt.Errorf("plain")))
	assert.Equal(t, "An unexpected error occurred. Please try again.", errors.FromStatus(418, nil).UserMessage())
}

func TestWrappedCodeLookup(t *testing.T) {
	inner := errors.FromStatus(http.StatusServiceUnavailable, nil)
	outer := fmt.Errorf("sync: %w", inner)

	assert.True(t, errors.IsRetryable(outer))
	assert.Equal(t, errors.ErrServer, errors.CodeOf(outer))
	assert.True(t, errors.HasCode(outer, errors.ErrServer))
	assert.False(t, errors.HasCode(outer, errors.ErrNetwork))
	assert.Equal(t, errors.ErrUnknown, errors.CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(nil))
}

func TestFactory(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := errors.New().Wrap(errors.ErrInitFailed, cause)

	require.Error(t, err)
	assert.Equal(t, "Initialization failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	withData := errors.New().WithData(errors.ErrInitFailed, struct{ Phase string }{Phase: "open"})
	assert.Contains(t, withData.Error(), "open")

	renamed := err.WithMessage("store init")
	assert.Equal(t, "store init: disk full", renamed.Error())
	assert.Equal(t, "Initialization failed: disk full", err.Error())
}
