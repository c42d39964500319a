package scan

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"github.com/cenkalti/backoff/v5"
)

const maxBackoff = 5 * time.Minute

type reservationKey struct{}

// consumeReservation reports whether ctx carries an unused limiter slot
// taken by WithWait, and uses it up
func consumeReservation(ctx context.Context) bool {
	r, ok := ctx.Value(reservationKey{}).(*atomic.Bool)
	return ok && r.CompareAndSwap(true, false)
}

// WithWait blocks until the limiter grants a slot, then runs fn. The first
// scan fn makes uses that slot instead of asking the limiter again.
func WithWait[R any](ctx context.Context, s *Service, fn func(ctx context.Context) (R, error)) (R, error) {
	if err := s.limiter.WaitForNextSlot(ctx); err != nil {
		var zero R
		return zero, err
	}

	reserved := &atomic.Bool{}
	reserved.Store(true)
	return fn(context.WithValue(ctx, reservationKey{}, reserved))
}

// WithRetry runs fn up to the configured number of attempts. Only
// retryable failures are retried, whether returned as an error or captured
// in the outcome; the n-th retry waits BaseBackoff * 2^(n-1).
func WithRetry[R Outcome](ctx context.Context, s *Service, fn func(ctx context.Context) (R, error)) (R, error) {
	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     s.cfg.BaseBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
	}
	schedule.Reset()

	var (
		res R
		err error
	)

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		res, err = fn(ctx)

		failure := retryableFailure(res, err)
		if failure == nil || attempt == s.cfg.MaxAttempts {
			return res, err
		}

		wait := schedule.NextBackOff()
		s.logger.Debug().
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.MaxAttempts).
			Dur("backoff", wait).
			Str("code", string(failure.Code())).
			Msg("Retrying scan")

		if !s.clock.Sleep(wait, ctx.Done()) {
			return res, errors.New().Wrap(errors.ErrTimeout, ctx.Err())
		}
	}

	return res, err
}

func retryableFailure[R Outcome](res R, err error) errors.Error {
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) && appErr.IsRetryable() {
			return appErr
		}
		return nil
	}
	if f := res.Failure(); f != nil && f.IsRetryable() {
		return f
	}
	return nil
}
