// Package run implements the controller that coordinates turns over a
// conversation thread: it loads or creates the checkpointed run, drives
// decision turns, executes catalog actions, suspends at sensitive ones for
// approval, and folds amend feedback into the user's stored profile. Public
// methods are safe for concurrent use; access is serialized per thread.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/skiff-ai/skiff/approval"
	"github.com/skiff-ai/skiff/catalog"
	"github.com/skiff-ai/skiff/checkpoint"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/skiff-ai/skiff/logging"
	"github.com/skiff-ai/skiff/memory"
	"github.com/skiff-ai/skiff/turn"
)

var (
	// ErrAwaitingApproval is returned when a new prompt arrives while the
	// thread is suspended; the pending request must be decided first.
	ErrAwaitingApproval = errors.New("run is awaiting approval")
	// ErrNotSuspended is returned when a decision arrives for a thread that
	// has no pending request.
	ErrNotSuspended = errors.New("run is not awaiting approval")
	// ErrTurnBudgetExceeded is returned when a single invocation uses up its
	// turn budget without reaching an answer.
	ErrTurnBudgetExceeded = errors.New("turn budget exceeded")
)

// Options holds dependency + configuration overrides passed to NewController().
type Options struct {
	// Checkpoints persists runs between calls (and restarts).
	Checkpoints core.CheckpointStore
	// Profiles stores long-lived per-user profiles.
	Profiles core.ProfileStore
	// Reviser folds amend feedback into profiles. Defaults to a Reviser over
	// the controller's decider and profile store.
	Reviser *memory.Reviser
	// MaxTurns bounds decider turns per invocation. Zero means the default.
	MaxTurns int
	// Logging services.
	Logger logging.Logger
}

// Controller coordinates run execution for conversation threads.
type Controller struct {
	executor    *turn.Executor
	registry    *catalog.Registry
	checkpoints core.CheckpointStore
	profiles    core.ProfileStore
	reviser     *memory.Reviser
	maxTurns    int
	logger      logging.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// DefaultMaxTurns bounds how many decider turns one invocation may take
// before it is aborted as runaway.
const DefaultMaxTurns = 20

// NewController constructs a Controller with optional overrides. By default
// runs and profiles live in memory; pass SQLite-backed stores for
// durability.
func NewController(d decider.Decider, registry *catalog.Registry, optFns ...func(o *Options)) *Controller {
	opts := Options{
		Checkpoints: checkpoint.NewInMemoryStore(),
		Profiles:    memory.NewInMemoryStore(),
		MaxTurns:    DefaultMaxTurns,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.Reviser == nil {
		opts.Reviser = memory.NewReviser(d, opts.Profiles)
	}

	return &Controller{
		executor:    turn.NewExecutor(d, registry, func(o *turn.Options) { o.Logger = opts.Logger }),
		registry:    registry,
		checkpoints: opts.Checkpoints,
		profiles:    opts.Profiles,
		reviser:     opts.Reviser,
		maxTurns:    opts.MaxTurns,
		logger:      opts.Logger,
		threads:     make(map[string]*sync.Mutex),
	}
}

// lockThread serializes access to one thread's run. Returned func unlocks.
func (c *Controller) lockThread(threadID string) func() {
	c.mu.Lock()
	m, ok := c.threads[threadID]
	if !ok {
		m = &sync.Mutex{}
		c.threads[threadID] = m
	}
	c.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Invoke submits a user prompt to the thread, creating the run if the thread
// is new. A suspended thread refuses prompts with ErrAwaitingApproval; a
// terminal thread starts a fresh logical run that keeps the conversation so
// the decider retains context.
func (c *Controller) Invoke(ctx context.Context, threadID, userID, prompt string) (*Result, error) {
	unlock := c.lockThread(threadID)
	defer unlock()

	run, err := c.loadOrCreate(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}

	if run.Suspended() {
		return nil, fmt.Errorf("%w: thread %s", ErrAwaitingApproval, threadID)
	}
	if run.Terminal() {
		run.State = core.RunStateInit
		run.Pending = nil
		run.Turns = 0
	}

	run.Append(core.NewUserText(prompt))
	run.State = core.RunStateAwaitingExecutor
	if err := c.checkpoints.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("checkpoint run: %w", err)
	}

	c.logger.Info("Prompt accepted", "thread_id", threadID, "user_id", userID)

	return c.drive(ctx, run)
}

// Resume applies an approval decision to a suspended thread.
func (c *Controller) Resume(ctx context.Context, threadID string, decision approval.Decision) (*Result, error) {
	unlock := c.lockThread(threadID)
	defer unlock()

	run, err := c.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !run.Suspended() {
		return nil, fmt.Errorf("%w: thread %s", ErrNotSuspended, threadID)
	}
	if err := decision.Validate(); err != nil {
		return nil, err
	}

	head, _ := run.HeadPending()
	if decision.RequestID != "" && decision.RequestID != head.RequestID {
		return nil, fmt.Errorf("%w: got %q, pending %q",
			approval.ErrRequestMismatch, decision.RequestID, head.RequestID)
	}

	c.logger.Info("Approval decision received",
		"thread_id", threadID, "verdict", string(decision.Verdict), "request_id", head.RequestID)

	switch decision.Verdict {
	case approval.VerdictApprove:
		return c.resumeApproved(ctx, run, head)
	case approval.VerdictReject:
		return c.resumeRejected(ctx, run, head)
	case approval.VerdictAmend:
		return c.resumeAmended(ctx, run, head, decision.Feedback)
	default:
		return nil, fmt.Errorf("%w: %q", approval.ErrInvalidVerdict, decision.Verdict)
	}
}

// resumeApproved executes the approved head request, then works through any
// requests that were held behind it. A later sensitive request suspends the
// run again.
func (c *Controller) resumeApproved(ctx context.Context, run *core.Run, head core.ActionRequest) (*Result, error) {
	held := make([]core.ActionRequest, len(run.Pending)-1)
	copy(held, run.Pending[1:])
	run.Pending = nil
	run.State = core.RunStateExecutingAction

	c.execute(ctx, run, head)

	if suspended, err := c.processRequests(ctx, run, held); err != nil {
		return nil, err
	} else if suspended != nil {
		return suspended, nil
	}

	run.State = core.RunStateAwaitingExecutor
	if err := c.checkpoints.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("checkpoint run: %w", err)
	}
	return c.drive(ctx, run)
}

// resumeRejected records the rejection and terminates the run.
func (c *Controller) resumeRejected(ctx context.Context, run *core.Run, head core.ActionRequest) (*Result, error) {
	run.Append(core.NewActionResultContent(head.RequestID, head.Name, nil,
		errors.New("the user rejected this action")))
	run.Pending = nil
	run.State = core.RunStateTerminal
	if err := c.checkpoints.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("checkpoint run: %w", err)
	}
	return &Result{
		State:  run.State,
		Answer: fmt.Sprintf("Understood, I won't run %s. The task has been cancelled.", head.Name),
	}, nil
}

// resumeAmended discards the pending batch, feeds the user's guidance back to
// the decider as the head request's result, and revises the stored profile so
// the guidance also shapes future conversations. A failed revision is logged
// and does not fail the resume.
func (c *Controller) resumeAmended(ctx context.Context, run *core.Run, head core.ActionRequest, feedback string) (*Result, error) {
	run.Append(core.NewActionResultContent(head.RequestID, head.Name, nil,
		fmt.Errorf("the user declined this action and said: %s", feedback)))
	run.Pending = nil
	run.State = core.RunStateAwaitingExecutor
	if err := c.checkpoints.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("checkpoint run: %w", err)
	}

	// The reviser sees the whole exchange, feedback included, so it can tell
	// a standing preference from a one-off correction.
	transcript := append([]core.Content{}, run.History()...)
	transcript = append(transcript, core.NewUserText(feedback))
	if _, err := c.reviser.Revise(ctx, run.UserID, memory.NamespaceSpecialInstructions, transcript); err != nil {
		c.logger.Warn("Profile revision failed",
			"thread_id", run.ThreadID, "user_id", run.UserID, "error", err.Error())
	}

	return c.drive(ctx, run)
}

// drive loops decision turns until the run answers, completes, suspends, or
// exhausts its turn budget. The budget is per invocation: every Invoke or
// Resume starts with a fresh limiter. Profiles are reloaded every turn so a
// revision made moments ago already shapes the next preamble.
func (c *Controller) drive(ctx context.Context, run *core.Run) (*Result, error) {
	limiter := core.NewTurnLimiter(c.maxTurns)
	for {
		if err := limiter.Increment(); err != nil {
			if saveErr := c.checkpoints.Save(ctx, run); saveErr != nil {
				return nil, fmt.Errorf("checkpoint run: %w", saveErr)
			}
			return nil, fmt.Errorf("%w: thread %s: %v", ErrTurnBudgetExceeded, run.ThreadID, err)
		}

		background, special, err := c.loadProfiles(ctx, run.UserID)
		if err != nil {
			return nil, err
		}

		result, _, err := c.executor.Step(ctx, run, background, special)
		if err != nil {
			if saveErr := c.checkpoints.Save(ctx, run); saveErr != nil {
				c.logger.Error("Checkpoint after failed turn", "thread_id", run.ThreadID, "error", saveErr.Error())
			}
			return nil, err
		}
		run.Turns++

		switch result.Kind {
		case turn.KindAnswer:
			run.State = core.RunStateTerminal
			if err := c.checkpoints.Save(ctx, run); err != nil {
				return nil, fmt.Errorf("checkpoint run: %w", err)
			}
			return &Result{State: run.State, Answer: result.Answer}, nil

		case turn.KindComplete:
			run.State = core.RunStateTerminal
			if err := c.checkpoints.Save(ctx, run); err != nil {
				return nil, fmt.Errorf("checkpoint run: %w", err)
			}
			answer := result.Answer
			if answer == "" {
				answer = "Done."
			}
			return &Result{State: run.State, Answer: answer}, nil

		case turn.KindActionCalls:
			if suspended, err := c.processRequests(ctx, run, result.Calls); err != nil {
				return nil, err
			} else if suspended != nil {
				return suspended, nil
			}
			run.State = core.RunStateAwaitingExecutor
			if err := c.checkpoints.Save(ctx, run); err != nil {
				return nil, fmt.Errorf("checkpoint run: %w", err)
			}
		}
	}
}

// processRequests works through action requests left to right. Non-sensitive
// requests execute inline; the first sensitive one suspends the run with it
// and everything behind it parked in Pending. Returns a non-nil Result when
// the run suspended.
func (c *Controller) processRequests(ctx context.Context, run *core.Run, requests []core.ActionRequest) (*Result, error) {
	for i, req := range requests {
		if c.registry.RequiresApproval(req.Name) {
			run.Pending = append([]core.ActionRequest(nil), requests[i:]...)
			run.State = core.RunStateAwaitingApproval
			if err := c.checkpoints.Save(ctx, run); err != nil {
				return nil, fmt.Errorf("checkpoint run: %w", err)
			}
			c.logger.Info("Run suspended for approval",
				"thread_id", run.ThreadID, "action", req.Name, "request_id", req.RequestID)
			return &Result{
				State:   run.State,
				Pending: newPendingApproval(run.ThreadID, req),
			}, nil
		}
		run.State = core.RunStateExecutingAction
		c.execute(ctx, run, req)
	}
	return nil, nil
}

// execute runs one catalog action and appends its result to the
// conversation. Failures become result payloads the decider can react to
// instead of aborting the run.
func (c *Controller) execute(ctx context.Context, run *core.Run, req core.ActionRequest) {
	out, err := c.registry.Execute(ctx, req.Name, req.Arguments)
	if err != nil {
		c.logger.Warn("Action execution failed",
			"thread_id", run.ThreadID, "action", req.Name, "error", err.Error())
	} else {
		c.logger.Debug("Action executed", "thread_id", run.ThreadID, "action", req.Name)
	}
	run.Append(core.NewActionResultContent(req.RequestID, req.Name, out, err))
}

// loadProfiles fetches the user's background and special instructions,
// falling back to defaults for subjects without stored profiles.
func (c *Controller) loadProfiles(ctx context.Context, userID string) (background, special string, err error) {
	background, ok, err := c.profiles.Get(ctx, userID, memory.NamespaceBackground, memory.ProfileKey)
	if err != nil {
		return "", "", fmt.Errorf("load background profile: %w", err)
	}
	if !ok || background == "" {
		background = memory.DefaultBackground
	}
	special, ok, err = c.profiles.Get(ctx, userID, memory.NamespaceSpecialInstructions, memory.ProfileKey)
	if err != nil {
		return "", "", fmt.Errorf("load instructions profile: %w", err)
	}
	if !ok || special == "" {
		special = memory.DefaultSpecialInstructions
	}
	return background, special, nil
}

func (c *Controller) loadOrCreate(ctx context.Context, threadID, userID string) (*core.Run, error) {
	run, err := c.checkpoints.Load(ctx, threadID)
	if errors.Is(err, core.ErrRunNotFound) {
		return core.NewRun(threadID, userID), nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}
