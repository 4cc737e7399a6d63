package decider

import (
	"context"
	"testing"

	"github.com/skiff-ai/skiff/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectReturnsFinalResponse(t *testing.T) {
	m := NewMock().EnqueueText("hello there")

	resp, err := Collect(context.Background(), m, Request{
		Contents: []core.Content{core.NewUserText("hi")},
	})
	require.NoError(t, err)
	assert.False(t, resp.Partial)
	assert.Equal(t, "hello there", resp.Content.Text())
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestCollectSurfacesActionCalls(t *testing.T) {
	m := NewMock().EnqueueActionCalls(core.ActionCall{
		Name:      "weather",
		Arguments: "{}",
	})

	resp, err := Collect(context.Background(), m, Request{
		Contents: []core.Content{core.NewUserText("what's the weather?")},
	})
	require.NoError(t, err)

	calls := resp.Content.ActionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Name)
	assert.NotEmpty(t, calls[0].ID, "mock should assign an id when absent")
	assert.Equal(t, "tool_calls", resp.FinishReason)
}

func TestMockScriptExhausted(t *testing.T) {
	m := NewMock().EnqueueText("only one")

	_, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err)

	_, err = Collect(context.Background(), m, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted")
}

func TestMockRecordsRequests(t *testing.T) {
	m := NewMock().EnqueueText("a").EnqueueText("b")

	_, err := Collect(context.Background(), m, Request{Instructions: "first"})
	require.NoError(t, err)
	_, err = Collect(context.Background(), m, Request{Instructions: "second"})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "first", reqs[0].Instructions)
	assert.Equal(t, "second", reqs[1].Instructions)
}
