package run

import (
	"context"
	"testing"

	"github.com/skiff-ai/skiff/approval"
	"github.com/skiff-ai/skiff/catalog"
	"github.com/skiff-ai/skiff/checkpoint"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/skiff-ai/skiff/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windyCatalog() *catalog.Registry {
	return catalog.MustNew(
		catalog.AvailableExcursions(),
		catalog.Weather(catalog.WithReport("windy")),
		catalog.BookExcursion(),
	)
}

// Scripted conversation: the decider checks the weather, proposes booking
// sailing (windy!), and wraps up once the booking went through.
func sailingScript(m *decider.Mock) {
	m.EnqueueActionCalls(core.ActionCall{ID: "c1", Name: "weather", Arguments: "{}"})
	m.EnqueueActionCalls(core.ActionCall{ID: "c2", Name: "book_excursion", Arguments: `{"excursion":"Sailing"}`})
}

func TestInvokeSuspendsOnSensitiveAction(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	c := NewController(mock, windyCatalog())

	res, err := c.Invoke(context.Background(), "t1", "u1", "I want to do something fun today")
	require.NoError(t, err)
	require.True(t, res.Suspended())
	assert.Equal(t, core.RunStateAwaitingApproval, res.State)
	assert.Equal(t, "book_excursion", res.Pending.Request.Name)
	assert.Equal(t, "c2", res.Pending.Request.RequestID)
	assert.Contains(t, res.Pending.Message, "book_excursion")
	assert.Equal(t, []string{"approve", "reject", "amend"}, res.Pending.AllowedVerdicts)
}

func TestApproveExecutesAndFinishes(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	mock.EnqueueText("Your sailing trip is booked, enjoy the wind!")

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	res, err := c.Invoke(ctx, "t1", "u1", "I want to do something fun today")
	require.NoError(t, err)
	require.True(t, res.Suspended())

	res, err = c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictApprove})
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)
	assert.Equal(t, "Your sailing trip is booked, enjoy the wind!", res.Answer)

	// The booking result reached the conversation.
	run, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	var booked bool
	for _, content := range run.Conversation {
		for _, r := range content.ActionResults() {
			if r.Name == "book_excursion" {
				booked = true
				assert.Equal(t, "Booked Sailing.", r.Response)
			}
		}
	}
	assert.True(t, booked)
	assert.Empty(t, run.Pending)
}

func TestAmendRevisesProfileAndContinues(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	// The amend resume first revises the profile, then re-plans.
	mock.EnqueueActionCalls(core.ActionCall{
		ID:        "m1",
		Name:      "update_profile",
		Arguments: `{"chain_of_thought":"user vetoed sailing","special_instructions":"No special instructions\n- Never suggest sailing"}`,
	})
	mock.EnqueueText("No sailing then. How about playing Dota instead?")

	profiles := memory.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Profiles = profiles })
	ctx := context.Background()

	res, err := c.Invoke(ctx, "t1", "u1", "I want to do something fun today")
	require.NoError(t, err)
	require.True(t, res.Suspended())

	res, err = c.Resume(ctx, "t1", approval.Decision{
		Verdict:  approval.VerdictAmend,
		Feedback: "I get seasick, never suggest sailing",
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)
	assert.Contains(t, res.Answer, "Dota")

	// The revised profile is stored...
	stored, ok, err := profiles.Get(ctx, "u1", memory.NamespaceSpecialInstructions, memory.ProfileKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, stored, "Never suggest sailing")

	// ...and already shaped the preamble of the turn right after the amend.
	reqs := mock.Requests()
	last := reqs[len(reqs)-1]
	require.NotEmpty(t, last.Contents)
	assert.Contains(t, last.Contents[0].Text(), "Never suggest sailing")
}

func TestAmendSurvivesFailedRevision(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	// Reviser gets plain text instead of the structured call: revision fails.
	mock.EnqueueText("not a tool call")
	mock.EnqueueText("Understood, something else then.")

	profiles := memory.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Profiles = profiles })
	ctx := context.Background()

	_, err := c.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)

	res, err := c.Resume(ctx, "t1", approval.Decision{
		Verdict:  approval.VerdictAmend,
		Feedback: "no sailing",
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)

	// No partial profile write happened.
	_, ok, err := profiles.Get(ctx, "u1", memory.NamespaceSpecialInstructions, memory.ProfileKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectTerminatesRun(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	_, err := c.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)

	res, err := c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictReject})
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)
	assert.Contains(t, res.Answer, "cancelled")

	run, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, run.Terminal())
	assert.Empty(t, run.Pending)

	// Deciding again on the terminal run is refused.
	_, err = c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictApprove})
	assert.ErrorIs(t, err, ErrNotSuspended)
}

func TestPromptAfterTerminalStartsFreshLogicalRun(t *testing.T) {
	mock := decider.NewMock()
	mock.EnqueueText("Hi there!")
	mock.EnqueueText("Welcome back!")

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	res, err := c.Invoke(ctx, "t1", "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, core.RunStateTerminal, res.State)

	res, err = c.Invoke(ctx, "t1", "u1", "hello again")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back!", res.Answer)

	// The conversation carried over across logical runs.
	run, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Contains(t, run.History()[0].Text(), "hello")
}

func TestMismatchedRequestIDLeavesCheckpointUntouched(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	_, err := c.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)

	before, err := cps.Load(ctx, "t1")
	require.NoError(t, err)

	_, err = c.Resume(ctx, "t1", approval.Decision{
		RequestID: "stale-id",
		Verdict:   approval.VerdictApprove,
	})
	assert.ErrorIs(t, err, approval.ErrRequestMismatch)

	after, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Pending, after.Pending)
	assert.Equal(t, len(before.Conversation), len(after.Conversation))
}

func TestInvokeWhileSuspendedRefused(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	c := NewController(mock, windyCatalog())
	ctx := context.Background()

	_, err := c.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)

	_, err = c.Invoke(ctx, "t1", "u1", "actually, make it tomorrow")
	assert.ErrorIs(t, err, ErrAwaitingApproval)
}

func TestResumeUnknownThread(t *testing.T) {
	c := NewController(decider.NewMock(), windyCatalog())

	_, err := c.Resume(context.Background(), "missing", approval.Decision{Verdict: approval.VerdictApprove})
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestAmendWithoutFeedbackRejected(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	c := NewController(mock, windyCatalog())
	ctx := context.Background()

	_, err := c.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)

	_, err = c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictAmend})
	assert.ErrorIs(t, err, approval.ErrInvalidVerdict)
}

func TestSuspendedRunResumesAcrossControllers(t *testing.T) {
	mock := decider.NewMock()
	sailingScript(mock)
	mock.EnqueueText("Booked!")

	cps := checkpoint.NewInMemoryStore()
	profiles := memory.NewInMemoryStore()
	optFns := func(o *Options) {
		o.Checkpoints = cps
		o.Profiles = profiles
	}
	ctx := context.Background()

	c1 := NewController(mock, windyCatalog(), optFns)
	res, err := c1.Invoke(ctx, "t1", "u1", "something fun please")
	require.NoError(t, err)
	require.True(t, res.Suspended())

	// A new controller over the same stores stands in for a restarted
	// process; the suspended run picks up exactly where it left off.
	c2 := NewController(mock, windyCatalog(), optFns)
	res, err = c2.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictApprove})
	require.NoError(t, err)
	assert.Equal(t, "Booked!", res.Answer)
}

func TestBatchSuspendsMidway(t *testing.T) {
	mock := decider.NewMock()
	// One assistant turn requesting a safe and a sensitive action together.
	mock.EnqueueActionCalls(
		core.ActionCall{ID: "c1", Name: "weather", Arguments: "{}"},
		core.ActionCall{ID: "c2", Name: "book_excursion", Arguments: `{"excursion":"Sailing"}`},
	)
	mock.EnqueueText("All done.")

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	res, err := c.Invoke(ctx, "t1", "u1", "book me sailing if it's windy")
	require.NoError(t, err)
	require.True(t, res.Suspended())
	assert.Equal(t, "c2", res.Pending.Request.RequestID)

	// The safe action already ran before the suspension.
	run, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	var sawWeather bool
	for _, content := range run.Conversation {
		for _, r := range content.ActionResults() {
			if r.Name == "weather" {
				sawWeather = true
				assert.Equal(t, "windy", r.Response)
			}
		}
	}
	assert.True(t, sawWeather)

	res, err = c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictApprove})
	require.NoError(t, err)
	assert.Equal(t, "All done.", res.Answer)
}

func TestTurnBudgetExceeded(t *testing.T) {
	mock := decider.NewMock()
	mock.EnqueueActionCalls(core.ActionCall{ID: "c1", Name: "weather", Arguments: "{}"})
	mock.EnqueueActionCalls(core.ActionCall{ID: "c2", Name: "weather", Arguments: "{}"})

	c := NewController(mock, windyCatalog(), func(o *Options) { o.MaxTurns = 2 })

	_, err := c.Invoke(context.Background(), "t1", "u1", "loop forever")
	assert.ErrorIs(t, err, ErrTurnBudgetExceeded)
}

func TestActionFailureIsFedBackNotFatal(t *testing.T) {
	mock := decider.NewMock()
	mock.EnqueueActionCalls(core.ActionCall{ID: "c1", Name: "book_excursion", Arguments: `{"excursion":""}`})

	cps := checkpoint.NewInMemoryStore()
	c := NewController(mock, windyCatalog(), func(o *Options) { o.Checkpoints = cps })
	ctx := context.Background()

	res, err := c.Invoke(ctx, "t1", "u1", "book something")
	require.NoError(t, err)
	require.True(t, res.Suspended())

	mock.EnqueueText("That excursion name was empty, which one did you mean?")
	res, err = c.Resume(ctx, "t1", approval.Decision{Verdict: approval.VerdictApprove})
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "which one")

	run, err := cps.Load(ctx, "t1")
	require.NoError(t, err)
	var sawError bool
	for _, content := range run.Conversation {
		for _, r := range content.ActionResults() {
			if r.Name == "book_excursion" && r.Error != "" {
				sawError = true
			}
		}
	}
	assert.True(t, sawError)
}
