package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local sliding window. Counts are not shared
// between replicas; use RedisStore when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow admits the request if fewer than limit requests for key fall inside
// the window ending now.
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.buckets[key] = sw
	}
	sw.cleanup(now, window)

	if len(sw.timestamps) >= limit {
		return newResult(false, limit, len(sw.timestamps), sw.timestamps[0], window, now), nil
	}
	sw.timestamps = append(sw.timestamps, now)
	return newResult(true, limit, len(sw.timestamps), sw.timestamps[0], window, now), nil
}

// Sweep drops keys with no requests inside window. Unauthenticated traffic
// is keyed by client IP, so the key space is otherwise unbounded.
func (s *MemoryStore) Sweep(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, sw := range s.buckets {
		sw.cleanup(now, window)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// cleanup removes timestamps at or before now-window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
