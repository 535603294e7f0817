package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. Suitable for tests and for a
// single-replica deployment that accepts losing counts on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return r, nil
	}
	return Record{Key: key}, nil
}

func (s *MemoryStore) Consume(_ context.Context, key string, quota int, now time.Time) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok {
		r = Record{Key: key}
	}
	next, allowed := r.apply(quota, now)
	if allowed {
		s.records[key] = next
	}
	return next, allowed, nil
}
