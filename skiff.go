// Package skiff provides a high-level façade over the run controller and
// service abstractions (checkpoints, profiles, action catalog & logging)
// enabling rapid construction of approval-gated conversational task
// executors. Most applications interact with this package by:
//  1. Creating a Skiff via New() with a decider (optionally overriding the
//     default in-memory stores and excursion catalog)
//  2. Submitting user turns with Invoke: either a prompt, or a command
//     deciding a pending action
//  3. Inspecting the Result: an answer, or a pending approval to put to the
//     user
//
// The façade delegates orchestration to run.Controller while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply SQLite-backed stores
// and a structured logger.
package skiff

import (
	"context"
	"errors"
	"strings"

	"github.com/skiff-ai/skiff/approval"
	"github.com/skiff-ai/skiff/catalog"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/skiff-ai/skiff/logging"
	"github.com/skiff-ai/skiff/run"
)

// Commands a user can issue against a pending action request. They map onto
// the approval verdicts: confirm approves, cancel rejects, feedback amends.
const (
	CommandConfirm  = "confirm"
	CommandCancel   = "cancel"
	CommandFeedback = "feedback"
)

// ErrInvalidInput is returned when an Input carries neither a prompt nor a
// command, or both.
var ErrInvalidInput = errors.New("input must carry exactly one of prompt or command")

// Input is one user turn: a free-form prompt, or a command deciding the
// thread's pending action request.
type Input struct {
	Prompt string `json:"prompt,omitempty"`
	// Command is one of confirm, cancel, feedback.
	Command string `json:"command,omitempty"`
	// RequestID optionally pins the command to a specific pending request.
	RequestID string `json:"request_id,omitempty"`
	// Feedback carries the user's guidance with the feedback command.
	Feedback string `json:"feedback,omitempty"`
}

// Options configures the Skiff instance.
type Options struct {
	// Registry declares the available actions. Defaults to the built-in
	// excursion catalog.
	Registry *catalog.Registry

	// Stores (default to in-memory implementations if not provided).
	Checkpoints core.CheckpointStore
	Profiles    core.ProfileStore

	// MaxTurns bounds decider turns per invocation.
	MaxTurns int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Skiff is the high-level façade aggregating the run controller and its
// services.
type Skiff struct {
	controller *run.Controller
	registry   *catalog.Registry
}

// New creates a Skiff instance with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(d decider.Decider, optFns ...func(o *Options)) *Skiff {
	opts := Options{
		Registry: catalog.Defaults(),
		MaxTurns: run.DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	controller := run.NewController(d, opts.Registry, func(o *run.Options) {
		if opts.Checkpoints != nil {
			o.Checkpoints = opts.Checkpoints
		}
		if opts.Profiles != nil {
			o.Profiles = opts.Profiles
		}
		o.MaxTurns = opts.MaxTurns
		o.Logger = opts.Logger
	})

	return &Skiff{controller: controller, registry: opts.Registry}
}

// Invoke submits one user turn to a thread and returns its outcome. Prompts
// start or continue a run; commands decide the pending action request of a
// suspended run.
func (s *Skiff) Invoke(ctx context.Context, threadID, userID string, input Input) (*run.Result, error) {
	hasPrompt := strings.TrimSpace(input.Prompt) != ""
	hasCommand := strings.TrimSpace(input.Command) != ""
	if hasPrompt == hasCommand {
		return nil, ErrInvalidInput
	}

	if hasPrompt {
		return s.controller.Invoke(ctx, threadID, userID, input.Prompt)
	}

	decision, err := decisionFromInput(input)
	if err != nil {
		return nil, err
	}
	return s.controller.Resume(ctx, threadID, decision)
}

// Prompt is a convenience wrapper for plain prompt turns.
func (s *Skiff) Prompt(ctx context.Context, threadID, userID, prompt string) (*run.Result, error) {
	return s.Invoke(ctx, threadID, userID, Input{Prompt: prompt})
}

// Confirm approves the thread's pending action request.
func (s *Skiff) Confirm(ctx context.Context, threadID string) (*run.Result, error) {
	return s.Invoke(ctx, threadID, "", Input{Command: CommandConfirm})
}

// Cancel rejects the thread's pending action request, ending the run.
func (s *Skiff) Cancel(ctx context.Context, threadID string) (*run.Result, error) {
	return s.Invoke(ctx, threadID, "", Input{Command: CommandCancel})
}

// Feedback amends the thread's pending action request with guidance. The
// guidance is also folded into the user's stored profile.
func (s *Skiff) Feedback(ctx context.Context, threadID, feedback string) (*run.Result, error) {
	return s.Invoke(ctx, threadID, "", Input{Command: CommandFeedback, Feedback: feedback})
}

func decisionFromInput(input Input) (approval.Decision, error) {
	verdict, err := approval.ParseVerdict(input.Command)
	if err != nil {
		return approval.Decision{}, err
	}
	decision := approval.Decision{
		RequestID: input.RequestID,
		Verdict:   verdict,
		Feedback:  input.Feedback,
	}
	if err := decision.Validate(); err != nil {
		return approval.Decision{}, err
	}
	return decision, nil
}

// Registry exposes the configured action catalog, mainly for introspection
// in UIs and tests.
func (s *Skiff) Registry() *catalog.Registry { return s.registry }
