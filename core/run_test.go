package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPreambleInsertsBeforeUserMessage(t *testing.T) {
	run := NewRun("t1", "u1")
	run.Append(NewUserText("book me a trip"))

	run.SetPreamble("preamble v1")

	require.Len(t, run.Conversation, 2)
	assert.Equal(t, RoleSystem, run.Conversation[0].Role)
	assert.Equal(t, "preamble v1", run.Conversation[0].Text())
	assert.Equal(t, RoleUser, run.Conversation[1].Role)
}

func TestSetPreambleReplacesInsteadOfAccumulating(t *testing.T) {
	run := NewRun("t1", "u1")
	run.Append(NewUserText("hello"))
	run.SetPreamble("preamble v1")
	run.SetPreamble("preamble v2")
	run.SetPreamble("preamble v3")

	require.Len(t, run.Conversation, 2)
	assert.Equal(t, "preamble v3", run.Conversation[0].Text())

	systemCount := 0
	for _, c := range run.Conversation {
		if c.Role == RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
}

func TestHistoryExcludesPreamble(t *testing.T) {
	run := NewRun("t1", "u1")
	run.Append(NewUserText("hello"))
	run.SetPreamble("sys")
	run.Append(NewAssistantText("hi"))

	history := run.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)
}

func TestRunCloneIsolation(t *testing.T) {
	run := NewRun("t1", "u1")
	run.Append(NewUserText("original"))
	run.Pending = []ActionRequest{{RequestID: "r1", Name: "book_excursion"}}

	clone := run.Clone()
	clone.Append(NewAssistantText("extra"))
	clone.Pending[0].Name = "changed"
	clone.State = RunStateTerminal

	assert.Len(t, run.Conversation, 1)
	assert.Equal(t, "book_excursion", run.Pending[0].Name)
	assert.Equal(t, RunStateInit, run.State)
}

func TestHeadPending(t *testing.T) {
	run := NewRun("t1", "u1")

	_, ok := run.HeadPending()
	assert.False(t, ok)

	run.Pending = []ActionRequest{
		{RequestID: "r1", Name: "book_excursion"},
		{RequestID: "r2", Name: "weather"},
	}
	head, ok := run.HeadPending()
	require.True(t, ok)
	assert.Equal(t, "r1", head.RequestID)
}

func TestSuspendedRequiresPendingRequests(t *testing.T) {
	run := NewRun("t1", "u1")
	run.State = RunStateAwaitingApproval
	assert.False(t, run.Suspended())

	run.Pending = []ActionRequest{{RequestID: "r1", Name: "book_excursion"}}
	assert.True(t, run.Suspended())
}
