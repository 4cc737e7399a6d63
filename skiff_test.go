package skiff

import (
	"context"
	"testing"

	"github.com/skiff-ai/skiff/approval"
	"github.com/skiff-ai/skiff/catalog"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suspendedThread(t *testing.T, mock *decider.Mock) *Skiff {
	t.Helper()
	mock.EnqueueActionCalls(core.ActionCall{
		ID:        "c1",
		Name:      "book_excursion",
		Arguments: `{"excursion":"Diving"}`,
	})
	s := New(mock)

	res, err := s.Prompt(context.Background(), "t1", "u1", "book me diving")
	require.NoError(t, err)
	require.True(t, res.Suspended())
	return s
}

func TestInvokeRequiresPromptOrCommand(t *testing.T) {
	s := New(decider.NewMock())
	ctx := context.Background()

	_, err := s.Invoke(ctx, "t1", "u1", Input{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Invoke(ctx, "t1", "u1", Input{Prompt: "hi", Command: CommandConfirm})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPromptAnswers(t *testing.T) {
	mock := decider.NewMock().EnqueueText("Hello!")
	s := New(mock)

	res, err := s.Prompt(context.Background(), "t1", "u1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Answer)
	assert.Equal(t, core.RunStateTerminal, res.State)
}

func TestConfirmApprovesPendingAction(t *testing.T) {
	mock := decider.NewMock()
	s := suspendedThread(t, mock)
	mock.EnqueueText("Diving is booked!")

	res, err := s.Confirm(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Diving is booked!", res.Answer)
}

func TestCancelRejectsPendingAction(t *testing.T) {
	mock := decider.NewMock()
	s := suspendedThread(t, mock)

	res, err := s.Cancel(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)
	assert.Contains(t, res.Answer, "cancelled")
}

func TestFeedbackAmendsPendingAction(t *testing.T) {
	mock := decider.NewMock()
	s := suspendedThread(t, mock)
	mock.EnqueueActionCalls(core.ActionCall{
		ID:        "m1",
		Name:      "update_profile",
		Arguments: `{"chain_of_thought":"x","special_instructions":"- Prefer surface activities"}`,
	})
	mock.EnqueueText("Something on land then?")

	res, err := s.Feedback(context.Background(), "t1", "no diving, I can't swim")
	require.NoError(t, err)
	assert.Equal(t, "Something on land then?", res.Answer)
}

func TestFeedbackWithoutTextRejected(t *testing.T) {
	mock := decider.NewMock()
	s := suspendedThread(t, mock)

	_, err := s.Invoke(context.Background(), "t1", "", Input{Command: CommandFeedback})
	assert.ErrorIs(t, err, approval.ErrInvalidVerdict)
}

func TestCommandPinsRequestID(t *testing.T) {
	mock := decider.NewMock()
	s := suspendedThread(t, mock)

	_, err := s.Invoke(context.Background(), "t1", "", Input{
		Command:   CommandConfirm,
		RequestID: "wrong-id",
	})
	assert.ErrorIs(t, err, approval.ErrRequestMismatch)
}

func TestCustomRegistry(t *testing.T) {
	reg := catalog.MustNew(catalog.Weather())
	mock := decider.NewMock().EnqueueText("It is sunny.")
	s := New(mock, func(o *Options) { o.Registry = reg })

	assert.Equal(t, []string{"weather"}, s.Registry().Names())

	res, err := s.Prompt(context.Background(), "t1", "u1", "weather?")
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", res.Answer)
}
