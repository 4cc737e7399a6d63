package memory

import (
	"context"
	"sync"
)

// InMemoryStore is a process-local ProfileStore keyed by subject, namespace
// and key. Values disappear when the process exits; use SQLiteStore for
// durability.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryStore creates a new in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]string)}
}

func profileKey(subject, namespace, key string) string {
	return subject + "." + namespace + "." + key
}

// Get returns the stored value for (subject, namespace, key). ok is false
// when no value has been written yet.
func (s *InMemoryStore) Get(ctx context.Context, subject, namespace, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.values[profileKey(subject, namespace, key)]
	if !ok {
		return "", false, nil
	}
	return decodeValue(raw), true, nil
}

// Put stores the value for (subject, namespace, key), replacing any previous
// value.
func (s *InMemoryStore) Put(ctx context.Context, subject, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[profileKey(subject, namespace, key)] = encodeValue(value)
	return nil
}
