package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/skiff-ai/skiff/internal/util"
	"github.com/xeipuuv/gojsonschema"
)

// FunctionAction is a generic adapter that exposes a plain Go function as a
// catalog action.
//
// Responsibilities:
//   - Holds a JSON Schema parameter specification
//   - Validates decider supplied arguments against that schema (via
//     gojsonschema) before execution
//   - Carries the approval flag for sensitive operations
//   - Normalizes error handling so callers receive *ActionError with
//     consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ActionError)
//     (custom codes preserved if the function returns *ActionError directly)
//
// Concurrency:
//
//	A FunctionAction has no internal mutable state after construction and is
//	safe for concurrent use by multiple goroutines.
type FunctionAction struct {
	name             string
	description      string
	parameters       map[string]any
	requiresApproval bool
	fn               func(ctx context.Context, args map[string]any) (any, error)
}

// FunctionOptions configure optional behavior of a FunctionAction.
type FunctionOptions struct {
	// RequiresApproval marks the action as sensitive; the run controller
	// suspends and asks the user before executing it.
	RequiresApproval bool
}

// NewFunctionAction constructs a FunctionAction from explicit schema and
// function.
//
// Example:
//
//	sum := NewFunctionAction(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionAction(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionOptions),
) *FunctionAction {
	opts := FunctionOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	return &FunctionAction{
		name:             name,
		description:      description,
		parameters:       parameters,
		requiresApproval: opts.RequiresApproval,
		fn:               fn,
	}
}

// NewFunctionActionFromStruct derives the parameter schema from a struct
// using reflection. It is a convenience for simple argument containers.
//
// Example:
//
//	type BookArgs struct {
//	  Excursion string `json:"excursion" description:"Excursion to book"`
//	}
//
//	book := NewFunctionActionFromStruct(
//	  "book_excursion",
//	  "Book the given excursion for the user",
//	  BookArgs{},
//	  bookFn,
//	  func(o *FunctionOptions) { o.RequiresApproval = true },
//	)
func NewFunctionActionFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionOptions),
) *FunctionAction {
	schema := util.CreateSchema(structType)
	return NewFunctionAction(name, description, schema, fn, optFns...)
}

// Name returns the unique action name used in tool declarations and routing.
func (a *FunctionAction) Name() string { return a.name }

// Description returns the short natural language description exposed to the
// decider.
func (a *FunctionAction) Description() string { return a.description }

// Parameters returns the JSON schema describing expected arguments.
func (a *FunctionAction) Parameters() map[string]any { return a.parameters }

// RequiresApproval reports whether the action needs user approval.
func (a *FunctionAction) RequiresApproval() bool { return a.requiresApproval }

// Execute validates the provided args against the declared schema then
// invokes the underlying function. Validation or execution failures are
// wrapped (or passed through) as *ActionError for uniform downstream
// handling.
//
// Error semantics:
//
//	*ActionError (returned directly)  -> forwarded unchanged
//	validation failure                -> *ActionError{Code: "VALIDATION_ERROR"}
//	other error                       -> *ActionError{Code: "EXECUTION_ERROR"}
func (a *FunctionAction) Execute(ctx context.Context, args map[string]any) (any, error) {
	if err := a.validate(args); err != nil {
		return nil, err
	}

	result, err := a.fn(ctx, args)
	if err != nil {
		if actionErr, ok := err.(*ActionError); ok {
			return nil, actionErr
		}
		return nil, &ActionError{
			Action:  a.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}
	return result, nil
}

func (a *FunctionAction) validate(args map[string]any) error {
	if a.parameters == nil {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(a.parameters),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return &ActionError{
			Action:  a.name,
			Message: fmt.Sprintf("schema validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
		}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return &ActionError{
			Action:  a.name,
			Message: fmt.Sprintf("argument validation failed: %s", strings.Join(msgs, "; ")),
			Code:    "VALIDATION_ERROR",
			Details: msgs,
		}
	}
	return nil
}
