// Package anthropic provides a decider backed by the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
)

// Options configures the Anthropic decider (temperature, model id, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Decider wraps the Anthropic Messages API behind the generic
// decider.Decider interface.
type Decider struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic decider using the official client.
func New(optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Decider{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic decider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Decider{
		client: client,
		opts:   opts,
	}
}

// Decide implements decider.Decider. It adapts the Anthropic Messages API
// (with tool calling) into decider.Response events.
func (d *Decider) Decide(ctx context.Context, req decider.Request) (<-chan decider.Response, <-chan error) {
	out := make(chan decider.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		messages := d.buildMessages(req.Contents)

		params := anthropic.MessageNewParams{
			Model:       d.opts.Model,
			Messages:    messages,
			MaxTokens:   d.opts.MaxTokens,
			Temperature: anthropic.Float(d.opts.Temperature),
		}

		if req.Instructions != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
		} else if systemBlocks := d.extractSystemMessage(req.Contents); len(systemBlocks) > 0 {
			params.System = systemBlocks
		}

		if len(req.Tools) > 0 {
			params.Tools = d.buildTools(req.Tools)
		}

		if req.Stream {
			// TODO: adapt the streaming event types to partial responses.
			errCh <- fmt.Errorf("streaming not yet implemented for Anthropic decider")
			return
		}

		resp, err := d.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		var parts []core.Part

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textBlock := block.AsText()
				if textBlock.Text != "" {
					parts = append(parts, core.TextPart{Text: textBlock.Text})
				}
			case "tool_use":
				toolBlock := block.AsToolUse()
				args := ""
				if toolBlock.Input != nil {
					if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
						args = string(argsBytes)
					}
				}
				parts = append(parts, core.ActionCallPart{
					ActionCall: core.ActionCall{
						ID:        toolBlock.ID,
						Name:      toolBlock.Name,
						Arguments: args,
					},
				})
			}
		}

		finishReason := "stop"
		if resp.StopReason != "" {
			finishReason = string(resp.StopReason)
		}

		out <- decider.Response{
			ID:           resp.ID,
			Partial:      false,
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finishReason,
			Usage: &decider.TokenUsage{
				PromptTokens:     int(resp.Usage.InputTokens),
				CompletionTokens: int(resp.Usage.OutputTokens),
				TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
			},
		}
	}()

	return out, errCh
}

// buildMessages converts core contents to the Anthropic message format.
func (d *Decider) buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	// Track action results for proper ordering
	actionResults := make(map[string]string)
	for _, c := range contents {
		if c.Role != core.RoleTool {
			continue
		}
		for _, r := range c.ActionResults() {
			if r.ID == "" {
				continue
			}
			if r.Error != "" {
				actionResults[r.ID] = r.Error
			} else if s, ok := r.Response.(string); ok {
				actionResults[r.ID] = s
			} else if b, err := json.Marshal(r.Response); err == nil {
				actionResults[r.ID] = string(b)
			} else {
				actionResults[r.ID] = fmt.Sprintf("%v", r.Response)
			}
		}
	}

	for _, c := range contents {
		if c.Role == core.RoleSystem || c.Role == core.RoleTool {
			continue // System handled separately, action results embedded
		}

		switch c.Role {
		case core.RoleUser:
			content := d.buildUserContent(c.Parts)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		case core.RoleAssistant:
			content := d.buildAssistantContent(c.Parts)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
			// Tool results must follow as a user message.
			var results []anthropic.ContentBlockParamUnion
			for _, call := range c.ActionCalls() {
				if resp, ok := actionResults[call.ID]; ok {
					results = append(results, anthropic.NewToolResultBlock(call.ID, resp, false))
					delete(actionResults, call.ID)
				}
			}
			if len(results) > 0 {
				messages = append(messages, anthropic.NewUserMessage(results...))
			}
		default:
			content := d.buildUserContent(c.Parts)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		}
	}

	return messages
}

// extractSystemMessage extracts system message blocks.
func (d *Decider) extractSystemMessage(contents []core.Content) []anthropic.TextBlockParam {
	var systemBlocks []anthropic.TextBlockParam

	for _, c := range contents {
		if c.Role == core.RoleSystem {
			for _, p := range c.Parts {
				if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
					systemBlocks = append(systemBlocks, anthropic.TextBlockParam{
						Text: tp.Text,
					})
				}
			}
		}
	}

	return systemBlocks
}

// buildUserContent builds content blocks for user messages.
func (d *Decider) buildUserContent(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	for _, p := range parts {
		if tp, ok := p.(core.TextPart); ok && tp.Text != "" {
			content = append(content, anthropic.NewTextBlock(tp.Text))
		}
	}

	return content
}

// buildAssistantContent builds content blocks for assistant messages.
func (d *Decider) buildAssistantContent(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case core.ActionCallPart:
			var input any
			if part.ActionCall.Arguments != "" {
				if err := json.Unmarshal([]byte(part.ActionCall.Arguments), &input); err != nil {
					input = part.ActionCall.Arguments // fallback to string
				}
			}

			content = append(content, anthropic.NewToolUseBlock(
				part.ActionCall.ID,
				input,
				part.ActionCall.Name,
			))
		}
	}

	return content
}

// buildTools converts catalog definitions to the Anthropic tool format.
func (d *Decider) buildTools(tools []decider.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if tool.Function.Parameters != nil {
			params := tool.Function.Parameters
			if properties, exists := params["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := params["required"]; exists {
				if reqSlice, ok := required.([]string); ok {
					inputSchema.Required = reqSlice
				} else if reqAny, ok := required.([]any); ok {
					var reqStrings []string
					for _, r := range reqAny {
						if s, ok := r.(string); ok {
							reqStrings = append(reqStrings, s)
						}
					}
					inputSchema.Required = reqStrings
				}
			}
		}

		anthropicTools[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
	}

	return anthropicTools
}

// Info returns metadata describing this Anthropic decider.
func (d *Decider) Info() decider.Info {
	return decider.Info{
		Name:          string(d.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
