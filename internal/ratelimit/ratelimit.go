// Package ratelimit counts attempts per key over a sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or refuses an attempt identified by key. Only admitted
// attempts count toward the limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// Memory is an in-process sliding window limiter.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewMemory admits at most limit attempts per key within any window.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)

	hits := prune(m.hits[key], cutoff)
	if len(hits) >= m.limit {
		m.hits[key] = hits
		return false, nil
	}
	m.hits[key] = append(hits, now)

	if now.Sub(m.lastSweep) > m.window {
		m.sweep(cutoff)
		m.lastSweep = now
	}
	return true, nil
}

// sweep drops keys with no attempts after cutoff. Caller holds mu.
func (m *Memory) sweep(cutoff time.Time) {
	for k, hits := range m.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(m.hits, k)
		} else {
			m.hits[k] = hits
		}
	}
}

// prune drops hits at or before cutoff. hits is ordered oldest first.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
