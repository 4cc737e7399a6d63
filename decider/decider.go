package decider

import (
	"context"
	"fmt"

	"github.com/skiff-ai/skiff/core"
)

// ToolDefinition declaratively exposes a callable action to the decider.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual action exposed to the decider.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized decider input produced by the turn
// executor.
type Request struct {
	Instructions string           `json:"instructions"` // System preamble for the decider
	Contents     []core.Content   `json:"contents"`     // Conversation converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming decider.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a decider implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Decider is the minimal interface required by the turn executor to drive a
// run forward.
type Decider interface {
	Decide(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the decider implementation.
	Info() Info
}

// Collect drains the channels returned by Decide and returns the final
// non-partial response. Partial chunks are discarded; callers that need
// streaming consume the channels directly.
func Collect(ctx context.Context, d Decider, req Request) (Response, error) {
	respCh, errCh := d.Decide(ctx, req)

	var final Response
	var got bool
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				final = resp
				got = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if !got {
		return Response{}, fmt.Errorf("decider produced no final response")
	}
	return final, nil
}
