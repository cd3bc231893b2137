// Package limiter throttles repeated failed emergency override attempts.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Limiter counts failed attempts per key and blocks once a threshold is hit
// within the window.
type Limiter interface {
	// Allow reports whether an attempt is currently permitted for key and,
	// when blocked, how long until the block lifts.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	// Failure records a failed attempt for key.
	Failure(ctx context.Context, key string) error
	// Success resets counters for key.
	Success(ctx context.Context, key string) error
}

// Memory is an in-process Limiter used when no Redis is configured. Counters
// are per instance; multi-instance deployments should use the Redis limiter.
type Memory struct {
	maxAttempts int
	window      time.Duration

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

func NewMemory(maxAttempts int, window time.Duration) *Memory {
	return &Memory{
		maxAttempts: maxAttempts,
		window:      window,
		entries:     make(map[string]*memoryEntry),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || time.Now().After(e.resetAt) {
		return true, 0, nil
	}
	if e.count >= m.maxAttempts {
		return false, time.Until(e.resetAt), nil
	}
	return true, 0, nil
}

func (m *Memory) Failure(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || time.Now().After(e.resetAt) {
		m.entries[key] = &memoryEntry{count: 1, resetAt: time.Now().Add(m.window)}
		return nil
	}
	e.count++
	return nil
}

func (m *Memory) Success(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
