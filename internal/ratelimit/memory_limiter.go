package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type bucket struct {
	actions []time.Time
}

// MemoryLimiter keeps sliding windows in process memory. It serves
// single-instance deployments; multi-instance setups use the Redis limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	log     *slog.Logger
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an in-memory limiter.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		log:     log,
	}
}

// Check enforces a sliding-window limit for the provided key.
func (m *MemoryLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, ok := m.buckets[key]
	if !ok {
		bkt = &bucket{actions: make([]time.Time, 0, 8)}
		m.buckets[key] = bkt
	}

	bkt.actions = keepRecent(bkt.actions, windowStart)
	count := len(bkt.actions)

	allowed := count < limit
	if allowed {
		bkt.actions = append(bkt.actions, now)
		count++
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}

	if !allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}

// Cleanup removes buckets whose newest action is older than maxAge. Check
// never deletes buckets on its own.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, bkt := range m.buckets {
		if len(bkt.actions) == 0 || bkt.actions[len(bkt.actions)-1].Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}

// Janitor drops idle buckets on the given interval until ctx is cancelled.
func (m *MemoryLimiter) Janitor(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(maxAge)
		}
	}
}

func keepRecent(actions []time.Time, windowStart time.Time) []time.Time {
	first := 0
	for first < len(actions) && actions[first].Before(windowStart) {
		first++
	}

	switch {
	case first == 0:
		return actions
	case first >= len(actions):
		return actions[:0]
	default:
		copy(actions, actions[first:])
		return actions[:len(actions)-first]
	}
}
