package viewgate

import "sync"

// Store is the durable key-value backend for view state. Implementations
// must persist across restarts for the counters to stay monotonic; any
// key-value capable layer (local database, browser storage bridge) fits.
type Store interface {
	// Get reads a value; the bool reports whether the key exists.
	Get(key string) (string, bool, error)

	// Set writes a value, overwriting any existing entry.
	Set(key, value string) error
}

// MemoryStore is an in-process Store. Used in tests and as a fallback when
// no durable backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get reads a value by key.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok, nil
}

// Set writes a value by key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}
