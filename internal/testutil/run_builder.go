package testutil

import (
	"github.com/skiff-ai/skiff/core"
)

// RunBuilder provides a fluent helper for constructing runs in tests.
// Example:
//
//	run := NewRunBuilder("t1", "u1").UserText("hi").AssistantText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type RunBuilder struct {
	threadID string
	userID   string
	state    core.RunState
	contents []core.Content
	pending  []core.ActionRequest
	turns    int
}

// NewRunBuilder creates a builder for the given thread and user.
func NewRunBuilder(threadID, userID string) *RunBuilder {
	return &RunBuilder{threadID: threadID, userID: userID, state: core.RunStateInit}
}

// State sets the run state (chainable).
func (b *RunBuilder) State(s core.RunState) *RunBuilder { b.state = s; return b }

// Turns sets the consumed turn count (chainable).
func (b *RunBuilder) Turns(n int) *RunBuilder { b.turns = n; return b }

// SystemText appends a system text content (chainable).
func (b *RunBuilder) SystemText(t string) *RunBuilder {
	b.contents = append(b.contents, core.NewSystemText(t))
	return b
}

// UserText appends a user text content (chainable).
func (b *RunBuilder) UserText(t string) *RunBuilder {
	b.contents = append(b.contents, core.NewUserText(t))
	return b
}

// AssistantText appends an assistant text content (chainable).
func (b *RunBuilder) AssistantText(t string) *RunBuilder {
	b.contents = append(b.contents, core.NewAssistantText(t))
	return b
}

// ActionCall appends an assistant content carrying a single action call
// (chainable).
func (b *RunBuilder) ActionCall(id, name, args string) *RunBuilder {
	b.contents = append(b.contents, core.Content{
		Role: core.RoleAssistant,
		Parts: []core.Part{core.ActionCallPart{
			ActionCall: core.ActionCall{ID: id, Name: name, Arguments: args},
		}},
	})
	return b
}

// ActionResult appends a tool content carrying a single action result
// (chainable).
func (b *RunBuilder) ActionResult(id, name string, response any) *RunBuilder {
	b.contents = append(b.contents, core.NewActionResultContent(id, name, response, nil))
	return b
}

// Pending appends an action request awaiting approval (chainable).
func (b *RunBuilder) Pending(requestID, name, args string) *RunBuilder {
	b.pending = append(b.pending, core.ActionRequest{
		RequestID: requestID,
		Name:      name,
		Arguments: args,
	})
	return b
}

// Build materializes the run.
func (b *RunBuilder) Build() *core.Run {
	run := core.NewRun(b.threadID, b.userID)
	run.State = b.state
	run.Turns = b.turns
	run.Conversation = append(run.Conversation, b.contents...)
	run.Pending = append(run.Pending, b.pending...)
	return run
}
