// Package ratelimit bounds how often one client may hit the public login and
// verification routes.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Store counts requests per key in a sliding window.
type Store interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*Result, error)
}

// MemoryStore keeps one sliding window per key in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// tryConsume records cost hits if they fit under limit.
func (sw *slidingWindow) tryConsume(cost, limit int, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	sw.cleanupExpired(now)

	if len(sw.timestamps)+cost > limit {
		if len(sw.timestamps) > 0 {
			return false, 0, sw.timestamps[0].Add(sw.window)
		}
		return false, 0, now.Add(sw.window)
	}
	for range cost {
		sw.timestamps = append(sw.timestamps, now)
	}
	return true, limit - len(sw.timestamps), sw.timestamps[0].Add(sw.window)
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*slidingWindow), now: time.Now}
}

func (s *MemoryStore) AllowN(_ context.Context, key string, cost, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok {
		bucket = &slidingWindow{window: window}
		s.buckets[key] = bucket
	}
	now := s.now()
	allowed, remaining, resetAt := bucket.tryConsume(cost, limit, now)
	return &Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}, nil
}

// Sweep drops windows with no hits left, so idle clients do not pin memory.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, b := range s.buckets {
		b.cleanupExpired(now)
		if len(b.timestamps) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

func retryAfterSeconds(allowed bool, resetAt, now time.Time) int {
	if allowed {
		return 0
	}
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}
