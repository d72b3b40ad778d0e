package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports one admission decision plus the metadata surfaced as
// X-RateLimit-* headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter bounds request volume per client identity over a fixed window.
type Limiter interface {
	Allow(ctx context.Context, id string) (Result, error)
}

type bucket struct {
	count int
	reset time.Time
}

// MemoryLimiter is the in-process fixed-window limiter. Per-instance state
// only; the redis limiter covers multi-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, id string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[id]
	if !ok || now.After(b.reset) {
		b = &bucket{reset: now.Add(l.window)}
		l.buckets[id] = b
	}
	if b.count >= l.limit {
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, Reset: b.reset}, nil
	}
	b.count++
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - b.count, Reset: b.reset}, nil
}
