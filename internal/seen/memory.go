package seen

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps seen ids in memory only. Across restarts delivery is
// at-least-once: items still inside the upstream window after a restart are
// published again. Use the sqlite store when that matters.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) HasSeen(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok, nil
}

func (s *MemoryStore) MarkSeen(_ context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = at.UTC()
	return nil
}

func (s *MemoryStore) EvictOlderThan(_ context.Context, horizon time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.entries {
		if at.Before(horizon.UTC()) {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the current number of tracked ids. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
