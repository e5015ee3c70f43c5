package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count int
	reset time.Time
}

// MemoryStore keeps counters in process memory. Counters are created lazily
// and live for the lifetime of the store.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: map[string]*counter{}}
}

func (s *MemoryStore) Consume(_ context.Context, key string, lim Limit, now time.Time) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok {
		c = &counter{reset: now}
		s.counters[key] = c
	}
	if !now.Before(c.reset) {
		c.count = 0
		c.reset = now.Add(lim.Window)
	}
	if c.count >= lim.Limit {
		return false, c.reset, nil
	}
	c.count++
	return true, c.reset, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[key]; ok {
		return c.reset, nil
	}
	return time.Time{}, nil
}
