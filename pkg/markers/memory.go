package markers

import "sync"

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	recorded map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recorded: make(map[string]bool)}
}

// Has reports whether phase has been recorded.
func (s *MemoryStore) Has(phase string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded[phase], nil
}

// Record marks phase as complete.
func (s *MemoryStore) Record(phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[phase] = true
	return nil
}
