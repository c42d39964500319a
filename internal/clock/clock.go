package clock

import (
	"sync"
	"time"
)

// Clock is the time source shared by the limiter, cache and sync cursor.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until done is closed. It returns false when
	// interrupted.
	Sleep(d time.Duration, done <-chan struct{}) bool
}

type system struct{}

// System returns the wall clock
func System() Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now()
}

func (system) Sleep(d time.Duration, done <-chan struct{}) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}

// Manual is a Clock that only moves when told to. Sleep advances it.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock set to start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

func (m *Manual) Sleep(d time.Duration, done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
	}
	if d > 0 {
		m.Advance(d)
	}
	return true
}
