package checkpoint

import (
	"context"
	"sync"

	"github.com/skiff-ai/skiff/core"
)

// InMemoryStore is a process-local CheckpointStore. Runs vanish when the
// process exits; use SQLiteStore when suspended runs must survive restarts.
//
// Concurrency: protected by RWMutex. Stored runs are deep-copied on both
// Save and Load so callers cannot mutate a checkpoint in place.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*core.Run
}

// NewInMemoryStore creates a new in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*core.Run)}
}

// Load returns the checkpointed run for the thread, or core.ErrRunNotFound.
func (s *InMemoryStore) Load(ctx context.Context, threadID string) (*core.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[threadID]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return run.Clone(), nil
}

// Save checkpoints the run, replacing any previous checkpoint for the same
// thread.
func (s *InMemoryStore) Save(ctx context.Context, run *core.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ThreadID] = run.Clone()
	return nil
}
