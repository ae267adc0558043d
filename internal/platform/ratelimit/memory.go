package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps per-key attempt logs in process memory. Use it for
// single-instance deployments and tests.
type MemoryLimiter struct {
	cfg  Config
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryLimiter constructs an in-process limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{cfg: cfg.withDefaults(), hits: make(map[string][]time.Time)}
}

// Allow records an attempt for key unless the window is already full.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.cfg.Now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.hits[key]
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	log = log[i:]
	if len(log) >= l.cfg.Limit {
		l.hits[key] = log
		return false, nil
	}
	l.hits[key] = append(log, now)
	return true, nil
}

// Prune drops keys whose attempts have all aged out.
func (l *MemoryLimiter) Prune() int {
	cutoff := l.cfg.Now().Add(-l.cfg.Window)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, log := range l.hits {
		if len(log) == 0 || !log[len(log)-1].After(cutoff) {
			delete(l.hits, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// RunPruner calls Prune every interval until ctx is cancelled. It returns nil
// on cancellation so it can run inside an errgroup beside the server.
func (l *MemoryLimiter) RunPruner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = l.cfg.Window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Prune()
		}
	}
}
