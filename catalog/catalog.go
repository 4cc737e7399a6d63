// Package catalog implements the action calling subsystem that lets runs
// invoke structured capabilities (APIs, computations, side effects) with
// schema validated arguments, consistent error handling and approval
// metadata for sensitive operations.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/skiff-ai/skiff/decider"
)

// DoneName is the reserved pseudo-action a decider calls to signal that the
// overall task is finished. It carries no parameters and is never executed;
// the run controller intercepts it.
const DoneName = "Done"

// ErrUnknownAction is returned when a requested action is not registered.
var ErrUnknownAction = errors.New("unknown action")

// Action defines the interface for extending run capabilities with external
// functions.
//
// Actions can be registered with a catalog to enable function calling,
// allowing the decider to perform operations beyond text generation such as
// API calls, calculations, or bookings.
//
// Action implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Action interface {
	// Name returns the unique identifier for this action.
	// Names should be descriptive and follow function naming conventions
	// (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this action
	// does. It is provided to the decider to help it understand when and how
	// to use the action.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for argument validation and decider tool
	// declarations.
	Parameters() map[string]any

	// RequiresApproval reports whether the action is sensitive and must be
	// approved by the user before execution.
	RequiresApproval() bool

	// Execute runs the action with already-validated arguments.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry is an immutable, tag-aware collection of actions. Construct it
// once with New; lookups are safe for concurrent use.
type Registry struct {
	actions map[string]Action
	order   []string
}

// New builds a registry from the given actions. Duplicate or reserved names
// are rejected so misconfiguration surfaces at startup instead of mid-run.
func New(actions ...Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		name := a.Name()
		if name == "" {
			return nil, fmt.Errorf("catalog: action with empty name")
		}
		if name == DoneName {
			return nil, fmt.Errorf("catalog: action name %q is reserved", DoneName)
		}
		if _, exists := r.actions[name]; exists {
			return nil, fmt.Errorf("catalog: duplicate action name %q", name)
		}
		r.actions[name] = a
		r.order = append(r.order, name)
	}
	return r, nil
}

// MustNew is New that panics on error. Intended for static registrations in
// examples and tests.
func MustNew(actions ...Action) *Registry {
	r, err := New(actions...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the named action, or ErrUnknownAction.
func (r *Registry) Get(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// Has reports whether name is registered or is the reserved Done action.
func (r *Registry) Has(name string) bool {
	if name == DoneName {
		return true
	}
	_, ok := r.actions[name]
	return ok
}

// Names returns registered action names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RequiresApproval reports whether the named action needs user approval
// before execution. Unknown names and Done never require approval.
func (r *Registry) RequiresApproval(name string) bool {
	a, ok := r.actions[name]
	return ok && a.RequiresApproval()
}

// Definitions returns tool declarations for every registered action plus
// the reserved Done pseudo-action, ready to hand to a decider.
func (r *Registry) Definitions() []decider.ToolDefinition {
	defs := make([]decider.ToolDefinition, 0, len(r.order)+1)
	for _, name := range r.order {
		a := r.actions[name]
		defs = append(defs, decider.ToolDefinition{
			Type: "function",
			Function: decider.FunctionDefinition{
				Name:        a.Name(),
				Description: a.Description(),
				Parameters:  a.Parameters(),
			},
		})
	}
	defs = append(defs, decider.ToolDefinition{
		Type: "function",
		Function: decider.FunctionDefinition{
			Name:        DoneName,
			Description: "Call this when the user's request has been fully handled and no further actions are needed.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	})
	return defs
}

// ToolsPrompt renders a numbered list of actions (name and description) for
// embedding into a system preamble. Sensitive actions are marked so the
// decider can warn the user before invoking them.
func (r *Registry) ToolsPrompt() string {
	names := r.Names()
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		a := r.actions[name]
		fmt.Fprintf(&b, "%d. %s: %s", i+1, a.Name(), a.Description())
		if a.RequiresApproval() {
			b.WriteString(" (requires user approval)")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d. %s: Signal that the task is complete.\n", len(names)+1, DoneName)
	return strings.TrimRight(b.String(), "\n")
}

// Execute looks up and runs the named action with JSON-encoded arguments.
// Arguments are decoded into a map before being handed to the action; an
// empty string is treated as no arguments.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (any, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, &ActionError{
				Action:  name,
				Message: fmt.Sprintf("malformed arguments JSON: %v", err),
				Code:    "VALIDATION_ERROR",
			}
		}
	}
	return a.Execute(ctx, args)
}

// ActionError represents errors that occur during action execution.
type ActionError struct {
	Action  string `json:"action"`            // Name of the action that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ActionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Action, e.Message)
}

// NewActionError creates a new ActionError with the specified details.
func NewActionError(action, message, code string) *ActionError {
	return &ActionError{
		Action:  action,
		Message: message,
		Code:    code,
	}
}
