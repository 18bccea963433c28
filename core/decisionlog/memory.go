package decisionlog

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
	max  int
}

// NewMemoryStore returns a store holding at most max records. max <= 0 means
// unbounded.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	if s.max > 0 && len(s.recs) > s.max {
		s.recs = append([]Record(nil), s.recs[len(s.recs)-s.max:]...)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return finish(out, q), nil
}

func (s *MemoryStore) Close() error { return nil }
