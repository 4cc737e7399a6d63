// Package turn drives a single decision turn: it renders the system
// preamble, asks the decider what to do next, and classifies the outcome as
// an answer, a batch of action requests, or task completion. It never
// executes actions itself; that stays with the run controller so approval
// gating lives in one place.
package turn

import (
	"context"
	"fmt"

	"github.com/skiff-ai/skiff/catalog"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/skiff-ai/skiff/internal/util"
	"github.com/skiff-ai/skiff/logging"
)

// Kind classifies the outcome of one executor turn.
type Kind int

const (
	// KindAnswer means the decider replied with plain text for the user.
	KindAnswer Kind = iota
	// KindActionCalls means the decider requested one or more catalog
	// actions.
	KindActionCalls
	// KindComplete means the decider called Done: the task is finished.
	KindComplete
)

// Result is the classified outcome of a turn.
type Result struct {
	Kind   Kind
	Answer string               // Set for KindAnswer (and sometimes KindComplete)
	Calls  []core.ActionRequest // Set for KindActionCalls, in decider order
}

// Executor runs single decision turns against a decider and catalog.
type Executor struct {
	decider  decider.Decider
	registry *catalog.Registry
	logger   logging.Logger
}

// Options configure an Executor.
type Options struct {
	Logger logging.Logger
}

// NewExecutor builds an Executor over the given decider and catalog.
func NewExecutor(d decider.Decider, registry *catalog.Registry, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{decider: d, registry: registry, logger: opts.Logger}
}

// Step executes one decision turn for the run. The system preamble is
// re-rendered from the current catalog and profiles and replaces any stale
// preamble before the decider is consulted. On success the decider's
// assistant content is appended to the run and returned alongside the
// classified result; on failure the conversation is left without it.
func (e *Executor) Step(ctx context.Context, run *core.Run, background, specialInstructions string) (Result, core.Content, error) {
	preamble, err := util.RenderTemplate(preambleTemplate, map[string]any{
		"tools_prompt":         e.registry.ToolsPrompt(),
		"background":           background,
		"special_instructions": specialInstructions,
	})
	if err != nil {
		return Result{}, core.Content{}, fmt.Errorf("render preamble: %w", err)
	}
	run.SetPreamble(preamble)

	resp, err := decider.Collect(ctx, e.decider, decider.Request{
		Contents: run.Conversation,
		Tools:    e.registry.Definitions(),
	})
	if err != nil {
		return Result{}, core.Content{}, fmt.Errorf("decider turn: %w", err)
	}

	result, err := e.classify(resp)
	if err != nil {
		return Result{}, core.Content{}, err
	}

	run.Append(resp.Content)

	e.logger.Debug("Turn classified",
		"thread_id", run.ThreadID, "kind", int(result.Kind), "calls", len(result.Calls))

	return result, resp.Content, nil
}

// classify maps a decider response onto a Result. Unknown action names fail
// the turn before anything is appended, so a hallucinated action cannot
// poison the checkpointed conversation.
func (e *Executor) classify(resp decider.Response) (Result, error) {
	calls := resp.Content.ActionCalls()

	for _, call := range calls {
		if call.Name == catalog.DoneName {
			return Result{Kind: KindComplete, Answer: resp.Content.Text()}, nil
		}
	}

	if len(calls) == 0 {
		return Result{Kind: KindAnswer, Answer: resp.Content.Text()}, nil
	}

	requests := make([]core.ActionRequest, 0, len(calls))
	for _, call := range calls {
		if !e.registry.Has(call.Name) {
			return Result{}, fmt.Errorf("%w: decider requested %q", catalog.ErrUnknownAction, call.Name)
		}
		id := call.ID
		if id == "" {
			id = core.NewID()
		}
		requests = append(requests, core.ActionRequest{
			RequestID: id,
			Name:      call.Name,
			Arguments: call.Arguments,
		})
	}
	return Result{Kind: KindActionCalls, Calls: requests}, nil
}
