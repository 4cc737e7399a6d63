package core

import (
	"time"
)

// RunState identifies a position in the run state machine. Only Init,
// AwaitingExecutor, AwaitingApproval and Terminal are ever persisted;
// ExecutingAction and AnsweringUser are transient positions a run passes
// through within a single call.
type RunState string

const (
	// RunStateInit is the state of a freshly created run before its first
	// executor turn.
	RunStateInit RunState = "init"
	// RunStateAwaitingExecutor means the run is ready for (or retrying) a
	// decision-maker turn.
	RunStateAwaitingExecutor RunState = "awaiting_executor"
	// RunStateAwaitingApproval is the sole suspension point: the run holds
	// pending action requests and waits for an external decision.
	RunStateAwaitingApproval RunState = "awaiting_approval"
	// RunStateExecutingAction marks synchronous catalog execution.
	RunStateExecutingAction RunState = "executing_action"
	// RunStateAnsweringUser marks final answer delivery.
	RunStateAnsweringUser RunState = "answering_user"
	// RunStateTerminal means the run completed (answer, Done, or rejection)
	// and cannot be resumed.
	RunStateTerminal RunState = "terminal"
)

// ActionRequest is a structured request to invoke a named catalog action
// with serialized arguments. RequestID correlates the request with an
// external approval decision.
type ActionRequest struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Run is one resumable execution of a conversation thread. It is identified
// by (ThreadID, UserID) and owns its conversation exclusively: the first
// message, once materialized, is always the current system preamble, and the
// rest of the conversation is append-only. A Run is not safe for concurrent
// mutation; the controller serializes access per thread.
type Run struct {
	ThreadID     string          `json:"thread_id"`
	UserID       string          `json:"user_id"`
	State        RunState        `json:"state"`
	Conversation []Content       `json:"conversation"`
	Pending      []ActionRequest `json:"pending,omitempty"`
	Turns        int             `json:"turns"`
	Created      time.Time       `json:"created"`
	Updated      time.Time       `json:"updated"`
}

// NewRun creates a run in the Init state with an empty conversation.
func NewRun(threadID, userID string) *Run {
	now := time.Now().UTC()
	return &Run{
		ThreadID: threadID,
		UserID:   userID,
		State:    RunStateInit,
		Created:  now,
		Updated:  now,
	}
}

// Append adds content to the conversation updating the Updated timestamp.
func (r *Run) Append(c Content) {
	r.Conversation = append(r.Conversation, c)
	r.Updated = time.Now().UTC()
}

// SetPreamble materializes the current system preamble as the first message.
// A stale preamble from an earlier turn is replaced, never accumulated; if no
// preamble exists yet it is inserted ahead of the first user message.
func (r *Run) SetPreamble(text string) {
	preamble := NewSystemText(text)
	if len(r.Conversation) > 0 && r.Conversation[0].Role == RoleSystem {
		r.Conversation[0] = preamble
	} else {
		r.Conversation = append([]Content{preamble}, r.Conversation...)
	}
	r.Updated = time.Now().UTC()
}

// History returns the conversation without the system preamble.
func (r *Run) History() []Content {
	if len(r.Conversation) > 0 && r.Conversation[0].Role == RoleSystem {
		return r.Conversation[1:]
	}
	return r.Conversation
}

// Suspended reports whether the run is parked at the approval suspension
// point with at least one outstanding request.
func (r *Run) Suspended() bool {
	return r.State == RunStateAwaitingApproval && len(r.Pending) > 0
}

// Terminal reports whether the run reached its end state.
func (r *Run) Terminal() bool { return r.State == RunStateTerminal }

// HeadPending returns the first outstanding action request, if any. Later
// requests of a suspended batch are held behind it.
func (r *Run) HeadPending() (ActionRequest, bool) {
	if len(r.Pending) == 0 {
		return ActionRequest{}, false
	}
	return r.Pending[0], true
}

// Clone returns a deep copy of the run safe for independent mutation.
// Part values are immutable by convention, so copying the slices suffices.
func (r *Run) Clone() *Run {
	clone := *r
	clone.Conversation = make([]Content, len(r.Conversation))
	for i, c := range r.Conversation {
		parts := make([]Part, len(c.Parts))
		copy(parts, c.Parts)
		clone.Conversation[i] = Content{Role: c.Role, Parts: parts}
	}
	clone.Pending = make([]ActionRequest, len(r.Pending))
	copy(clone.Pending, r.Pending)
	return &clone
}
