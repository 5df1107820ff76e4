package history

import (
	"sync"

	"github.com/ecolens/backend/internal/assessment"
)

// Store is the process-lifetime session history: append-only, no eviction,
// cleared only by restart. Appends are serialized; All returns a snapshot so
// readers never observe a partially appended record.
type Store struct {
	mu      sync.Mutex
	records []assessment.ComparisonRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(record assessment.ComparisonRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

// All returns the records in insertion order. The returned slice is a copy;
// mutating it does not affect the store.
func (s *Store) All() []assessment.ComparisonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]assessment.ComparisonRecord, len(s.records))
	copy(snapshot, s.records)
	return snapshot
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
