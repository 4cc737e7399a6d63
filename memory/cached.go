package memory

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"github.com/skiff-ai/skiff/core"
)

// CachedStore is a read-through decorator around another ProfileStore.
// Profiles are read at the top of every turn, so a small ristretto cache in
// front of the durable store removes most of that load. Writes go straight
// through and invalidate the cached entry.
//
// Only found values are cached; a missing profile is looked up again on the
// next read so a Put from another process becomes visible.
type CachedStore struct {
	inner core.ProfileStore
	cache *ristretto.Cache
}

// NewCachedStore wraps inner with a ristretto cache sized for profile
// workloads.
func NewCachedStore(inner core.ProfileStore) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20, // ~1MB of profile text
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// Get returns the cached value when present, otherwise reads through to the
// inner store.
func (s *CachedStore) Get(ctx context.Context, subject, namespace, key string) (string, bool, error) {
	ck := profileKey(subject, namespace, key)
	if v, ok := s.cache.Get(ck); ok {
		return v.(string), true, nil
	}
	value, ok, err := s.inner.Get(ctx, subject, namespace, key)
	if err != nil || !ok {
		return "", ok, err
	}
	s.cache.Set(ck, value, int64(len(value)))
	return value, true, nil
}

// Put writes through to the inner store and drops the cached entry.
func (s *CachedStore) Put(ctx context.Context, subject, namespace, key, value string) error {
	if err := s.inner.Put(ctx, subject, namespace, key, value); err != nil {
		return err
	}
	s.cache.Del(profileKey(subject, namespace, key))
	return nil
}

// Wait blocks until pending cache writes are applied. Tests use it to make
// cache state deterministic.
func (s *CachedStore) Wait() {
	s.cache.Wait()
}
