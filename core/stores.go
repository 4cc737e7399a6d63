package core

import (
	"context"
	"errors"
)

// ErrRunNotFound is returned by CheckpointStore.Load when no checkpoint
// exists for the requested thread.
var ErrRunNotFound = errors.New("run not found")

// CheckpointStore persists one checkpoint row per thread capturing the full
// run: conversation, state machine position and suspension metadata.
// Resumption after a process restart is a pure function of the loaded run
// plus an external decision, so implementations must round-trip the run
// without loss. Save is last-writer-wins; the controller serializes writers
// per thread.
type CheckpointStore interface {
	Load(ctx context.Context, threadID string) (*Run, error)
	Save(ctx context.Context, run *Run) error
}

// ProfileStore is a durable key-value store for user memory profiles scoped
// by (subject, namespace) pairs. Get returns ok=false for a missing key (not
// an error); the caller supplies a default. Put is last-writer-wins.
//
// Implementations must tolerate two historical value encodings on read: a
// bare string, or a JSON wrapper object carrying the string under a
// "content" field, normalized transparently at this boundary.
type ProfileStore interface {
	Get(ctx context.Context, subject, namespace, key string) (value string, ok bool, err error)
	Put(ctx context.Context, subject, namespace, key, value string) error
}
