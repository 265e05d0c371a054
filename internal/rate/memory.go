package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps attempt timestamps in process memory. It is the default
// store and sufficient for single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

// CountSince returns the number of attempts for key strictly after cutoff.
// Expired entries are pruned as a side effect.
func (s *MemoryStore) CountSince(_ context.Context, key string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pruneLocked(key, cutoff)
	return len(kept), nil
}

// Record appends an attempt for key. The window parameter bounds pruning so
// the per-key slice never grows past the live window.
func (s *MemoryStore) Record(_ context.Context, key string, at time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pruneLocked(key, at.Add(-window))
	s.attempts[key] = append(kept, at)
	return nil
}

// Clear drops all attempts for key.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, key)
	return nil
}

func (s *MemoryStore) pruneLocked(key string, cutoff time.Time) []time.Time {
	all := s.attempts[key]
	kept := all[:0]
	for _, at := range all {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.attempts, key)
		return nil
	}
	s.attempts[key] = kept
	return kept
}
