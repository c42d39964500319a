package ratelimit

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/errors"
)

// Limiter gates outbound calls with two constraints that must both pass:
// a minimum interval since the last accepted call and a fixed-window cap.
// The window resets wholesale once it has fully elapsed.
type Limiter struct {
	cfg      Config
	clock    clock.Clock
	onReject func()

	mu           sync.Mutex
	lastRequest  time.Time
	windowStart  time.Time
	requestCount int
}

type Option func(*Limiter)

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// WithRejectHook registers fn to run each time a call is refused
func WithRejectHook(fn func()) Option {
	return func(l *Limiter) {
		l.onReject = fn
	}
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		cfg:   cfg,
		clock: clock.System(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// CanMakeRequest reports whether a call may go out now and, if so, records
// it. The attempt is recorded before the caller learns whether the call
// succeeds.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	ok := l.tryAcquire(l.clock.Now())
	l.mu.Unlock()

	if !ok && l.onReject != nil {
		l.onReject()
	}
	return ok
}

func (l *Limiter) tryAcquire(now time.Time) bool {
	if now.Sub(l.windowStart) > l.cfg.Window {
		l.windowStart = now
		l.requestCount = 0
	}

	if !l.lastRequest.IsZero() && now.Sub(l.lastRequest) < l.cfg.MinInterval {
		return false
	}

	if l.requestCount >= l.cfg.MaxRequests {
		return false
	}

	l.lastRequest = now
	l.requestCount++
	return true
}

// WaitTime returns the remaining minimum-interval delay. Window exhaustion
// is not reflected.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intervalWait(l.clock.Now())
}

func (l *Limiter) intervalWait(now time.Time) time.Duration {
	if l.lastRequest.IsZero() {
		return 0
	}
	wait := l.cfg.MinInterval - now.Sub(l.lastRequest)
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Limiter) windowWait(now time.Time) time.Duration {
	if l.requestCount < l.cfg.MaxRequests {
		return 0
	}
	// the window resets only once strictly past its end
	return l.windowStart.Add(l.cfg.Window).Sub(now) + time.Millisecond
}

// WaitForNextSlot blocks until a call is accepted or ctx is done.
func (l *Limiter) WaitForNextSlot(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		if l.tryAcquire(now) {
			l.mu.Unlock()
			return nil
		}
		wait := max(l.intervalWait(now), l.windowWait(now))
		l.mu.Unlock()

		if wait <= 0 {
			wait = time.Millisecond
		}
		if !l.clock.Sleep(wait, ctx.Done()) {
			return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
		}
	}
}

// Reset clears all recorded attempts
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastRequest = time.Time{}
	l.windowStart = time.Time{}
	l.requestCount = 0
}

// Limited returns the error reported to callers refused by the limiter
func Limited() errors.Error {
	return errors.New().WithMessage(ErrLimited, "Rate limit exceeded. Please wait before making another request.")
}
