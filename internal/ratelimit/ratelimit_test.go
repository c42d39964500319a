package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newLimiter(t *testing.T, clk clock.Clock, opts ...ratelimit.Option) *ratelimit.Limiter {
	t.Helper()
	opts = append(opts, ratelimit.WithClock(clk))
	l, err := ratelimit.New(ratelimit.DefaultConfig(), opts...)
	require.NoError(t, err)
	return l
}

func TestMinInterval(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	assert.True(t, l.CanMakeRequest())

	clk.Advance(500 * time.Millisecond)
	assert.False(t, l.CanMakeRequest())
	assert.Equal(t, 500*time.Millisecond, l.WaitTime())

	clk.Advance(500 * time.Millisecond)
	assert.Zero(t, l.WaitTime())
	assert.True(t, l.CanMakeRequest())
}

func TestWindowCap(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	for i := 0; i < 10; i++ {
		require.True(t, l.CanMakeRequest(), "call %d", i+1)
		clk.Advance(time.Second)
	}

	// min interval has elapsed but the window is full
	assert.False(t, l.CanMakeRequest())
	assert.Zero(t, l.WaitTime(), "wait time ignores window exhaustion")

	clk.Advance(51 * time.Second)
	assert.True(t, l.CanMakeRequest())
}

func TestRejectedCallsAreNotRecorded(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	require.True(t, l.CanMakeRequest())
	clk.Advance(900 * time.Millisecond)
	require.False(t, l.CanMakeRequest())

	clk.Advance(100 * time.Millisecond)
	assert.True(t, l.CanMakeRequest())
}

func TestRejectHook(t *testing.T) {
	clk := clock.NewManual(epoch)
	rejected := 0
	l := newLimiter(t, clk, ratelimit.WithRejectHook(func() { rejected++ }))

	l.CanMakeRequest()
	l.CanMakeRequest()
	l.CanMakeRequest()
	assert.Equal(t, 2, rejected)
}

func TestReset(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	require.True(t, l.CanMakeRequest())
	require.False(t, l.CanMakeRequest())

	l.Reset()
	assert.True(t, l.CanMakeRequest())
}

func TestWaitForNextSlot(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	require.True(t, l.CanMakeRequest())
	require.NoError(t, l.WaitForNextSlot(context.Background()))
	assert.Equal(t, epoch.Add(time.Second), clk.Now())
}

func TestWaitForNextSlotFullWindow(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)

	for i := 0; i < 10; i++ {
		require.True(t, l.CanMakeRequest())
		clk.Advance(time.Second)
	}

	require.NoError(t, l.WaitForNextSlot(context.Background()))
	assert.True(t, clk.Now().Sub(epoch) > time.Minute)
}

func TestWaitForNextSlotCancelled(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(t, clk)
	require.True(t, l.CanMakeRequest())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.WaitForNextSlot(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTimeout, errors.CodeOf(err))
}

func TestConfigValidate(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.MaxRequests = 0
	_, err := ratelimit.New(cfg)
	assert.Error(t, err)
}

func TestLimitedError(t *testing.T) {
	err := ratelimit.Limited()
	assert.Equal(t, errors.ErrRateLimited, err.Code())
	assert.False(t, err.IsRetryable())
}
