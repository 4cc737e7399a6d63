package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "prefer mornings"))

	got, ok, err := s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "prefer mornings", got)

	// Namespaces are independent.
	_, ok, err = s.Get(ctx, "u1", NamespaceBackground, ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	_, ok, err := s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "no sailing"))
	require.NoError(t, s.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "no sailing; confirm bookings"))

	got, ok, err := s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "no sailing; confirm bookings", got)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "u1", NamespaceBackground, ProfileKey, "lives on a boat"))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get(ctx, "u1", NamespaceBackground, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "lives on a boat", got)
}

func TestDecodeValueShapes(t *testing.T) {
	assert.Equal(t, "plain text", decodeValue("plain text"))
	assert.Equal(t, "quoted", decodeValue(`"quoted"`))
	assert.Equal(t, "wrapped", decodeValue(`{"content":"wrapped"}`))
	// Unknown JSON object shapes fall back to the raw string.
	assert.Equal(t, `{"other":"field"}`, decodeValue(`{"other":"field"}`))
}

func TestCachedStoreReadThroughAndInvalidation(t *testing.T) {
	inner := NewInMemoryStore()
	s, err := NewCachedStore(inner)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, inner.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "v1"))

	got, ok, err := s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", got)
	s.Wait()

	// A Put through the decorator invalidates the cached entry.
	require.NoError(t, s.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "v2"))
	s.Wait()

	got, ok, err = s.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestCachedStoreMissesAreNotCached(t *testing.T) {
	inner := NewInMemoryStore()
	s, err := NewCachedStore(inner)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "u1", NamespaceBackground, ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// A write directly against the inner store becomes visible.
	require.NoError(t, inner.Put(ctx, "u1", NamespaceBackground, ProfileKey, "fresh"))

	got, ok, err := s.Get(ctx, "u1", NamespaceBackground, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func reviserFixture(t *testing.T, d decider.Decider) (*Reviser, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewReviser(d, store), store
}

func TestReviseAddsInstruction(t *testing.T) {
	mock := decider.NewMock().EnqueueActionCalls(core.ActionCall{
		Name:      "update_profile",
		Arguments: `{"chain_of_thought":"user vetoed sailing","special_instructions":"No special instructions\n- Never suggest sailing"}`,
	})
	r, store := reviserFixture(t, mock)
	ctx := context.Background()

	revised, err := r.Revise(ctx, "u1", NamespaceSpecialInstructions, []core.Content{
		core.NewUserText("I hate sailing, never suggest it again"),
	})
	require.NoError(t, err)
	assert.Contains(t, revised, "Never suggest sailing")

	stored, ok, err := store.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, revised, stored)

	// The current profile is embedded in the revision instructions.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, DefaultSpecialInstructions)
}

func TestReviseFailureLeavesProfileUntouched(t *testing.T) {
	mock := decider.NewMock().EnqueueText("sorry, no tool call")
	r, store := reviserFixture(t, mock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", NamespaceSpecialInstructions, ProfileKey, "keep me"))

	_, err := r.Revise(ctx, "u1", NamespaceSpecialInstructions, []core.Content{
		core.NewUserText("some feedback"),
	})
	require.Error(t, err)

	stored, ok, err := store.Get(ctx, "u1", NamespaceSpecialInstructions, ProfileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "keep me", stored)
}

func TestReviseRejectsEmptyProfile(t *testing.T) {
	mock := decider.NewMock().EnqueueActionCalls(core.ActionCall{
		Name:      "update_profile",
		Arguments: `{"chain_of_thought":"x","special_instructions":"  "}`,
	})
	r, _ := reviserFixture(t, mock)

	_, err := r.Revise(context.Background(), "u1", NamespaceSpecialInstructions, []core.Content{
		core.NewUserText("feedback"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty profile")
}
