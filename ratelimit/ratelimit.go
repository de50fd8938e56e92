// Package ratelimit provides per-key sliding-window rate limiters used for
// admin login attempts and waitlist sign-ups.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether another request for key is allowed and, if so,
// records it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is an in-process sliding-window limiter.
type Memory struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewMemory creates a Memory limiter that allows max hits per window and
// starts a background sweep of expired keys. Call Stop to end the sweep.
func NewMemory(max int, window time.Duration) *Memory {
	l := &Memory{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Memory) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for key, hits := range l.attempts {
			kept := prune(hits, cutoff)
			if len(kept) == 0 {
				delete(l.attempts, key)
			} else {
				l.attempts[key] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Stop ends the background sweep.
func (l *Memory) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow checks the limit for key and records the hit when allowed.
func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := prune(l.attempts[key], now.Add(-l.window))
	if len(kept) >= l.max {
		l.attempts[key] = kept
		return false, nil
	}
	l.attempts[key] = append(kept, now)
	return true, nil
}

// Check reports whether key is under the limit without recording a hit.
// Login flows call Check first and Record only on failure.
func (l *Memory) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := prune(l.attempts[key], time.Now().Add(-l.window))
	l.attempts[key] = kept
	return len(kept) < l.max
}

// Record registers a hit for key.
func (l *Memory) Record(key string) {
	l.mu.Lock()
	l.attempts[key] = append(l.attempts[key], time.Now())
	l.mu.Unlock()
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
