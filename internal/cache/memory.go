package cache

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/healthsync/internal/clock"
)

type entry[T any] struct {
	payload  T
	storedAt time.Time
}

// Memory is an in-process Store
type Memory[T any] struct {
	ttl      time.Duration
	clock    clock.Clock
	observer Observer

	mu      sync.Mutex
	entries map[string]entry[T]
}

func NewMemory[T any](ttl time.Duration, clk clock.Clock, observer Observer) *Memory[T] {
	if clk == nil {
		clk = clock.System()
	}
	return &Memory[T]{
		ttl:      ttl,
		clock:    clk,
		observer: observer,
		entries:  make(map[string]entry[T]),
	}
}

func (m *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && m.clock.Now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	m.observe(ok)
	if !ok {
		var zero T
		return zero, false
	}
	return e.payload, true
}

func (m *Memory[T]) Set(_ context.Context, key string, value T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry[T]{payload: value, storedAt: m.clock.Now()}
	return nil
}

func (m *Memory[T]) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *Memory[T]) InvalidateAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	return nil
}

// Len reports the number of stored entries, stale ones included
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory[T]) observe(hit bool) {
	if m.observer != nil {
		m.observer(hit)
	}
}
