package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ActionCall describes a request by the decision-maker to invoke a named
// action from the catalog.
type ActionCall struct {
	ID        string `json:"id,omitempty"`        // Stable id correlating call and result
	Name      string `json:"name"`                // Action name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// ActionCallPart wraps an ActionCall as a content part.
type ActionCallPart struct {
	ActionCall ActionCall
}

// isPart implements the Part interface for ActionCallPart.
func (ActionCallPart) isPart() {}

// ActionResult describes the outcome of an action execution.
type ActionResult struct {
	ID       string `json:"id,omitempty"`       // Matches originating ActionCall ID
	Name     string `json:"name"`               // Action name
	Response any    `json:"response,omitempty"` // Successful result (any JSON-serializable shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// ActionResultPart wraps an ActionResult as a content part.
type ActionResultPart struct {
	ActionResult ActionResult
}

// isPart implements the Part interface for ActionResultPart.
func (ActionResultPart) isPart() {}

// Conversation roles. The first message of a materialized conversation is
// always RoleSystem; action results are appended under RoleTool.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Content holds role + ordered parts. Unlike a transient event stream,
// Content must survive a durable checkpoint round trip, so it carries a
// custom JSON encoding with a type discriminator per part.
type Content struct {
	Role  string
	Parts []Part
}

// NewSystemText creates system-role content with a single text part.
func NewSystemText(text string) Content {
	return Content{Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// NewUserText creates user-role content with a single text part.
func NewUserText(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantText creates assistant-role content with a single text part.
func NewAssistantText(text string) Content {
	return Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// NewActionResultContent records the completion result (or error) of an
// action execution as a tool-role message. If err is non-nil its message is
// copied into the result's Error field.
func NewActionResultContent(id, name string, result any, err error) Content {
	ar := ActionResult{ID: id, Name: name, Response: result}
	if err != nil {
		ar.Error = err.Error()
	}
	return Content{Role: RoleTool, Parts: []Part{ActionResultPart{ActionResult: ar}}}
}

// Text concatenates all text parts preserving order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// ActionCalls returns any ActionCall parts contained within the content
// preserving their original order.
func (c Content) ActionCalls() []ActionCall {
	var calls []ActionCall
	for _, p := range c.Parts {
		if ac, ok := p.(ActionCallPart); ok {
			calls = append(calls, ac.ActionCall)
		}
	}
	return calls
}

// ActionResults returns any ActionResult parts contained within the content
// preserving their original order.
func (c Content) ActionResults() []ActionResult {
	var results []ActionResult
	for _, p := range c.Parts {
		if ar, ok := p.(ActionResultPart); ok {
			results = append(results, ar.ActionResult)
		}
	}
	return results
}

// Part type discriminators used by the checkpoint encoding.
const (
	partTypeText         = "text"
	partTypeActionCall   = "action_call"
	partTypeActionResult = "action_result"
)

// partEnvelope is the serialized form of a Part. Exactly one payload field
// is populated according to Type.
type partEnvelope struct {
	Type         string        `json:"type"`
	Text         string        `json:"text,omitempty"`
	ActionCall   *ActionCall   `json:"action_call,omitempty"`
	ActionResult *ActionResult `json:"action_result,omitempty"`
}

type contentJSON struct {
	Role  string         `json:"role,omitempty"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON implements json.Marshaler using the tagged envelope encoding.
func (c Content) MarshalJSON() ([]byte, error) {
	enc := contentJSON{Role: c.Role, Parts: make([]partEnvelope, 0, len(c.Parts))}
	for _, p := range c.Parts {
		switch part := p.(type) {
		case TextPart:
			enc.Parts = append(enc.Parts, partEnvelope{Type: partTypeText, Text: part.Text})
		case ActionCallPart:
			ac := part.ActionCall
			enc.Parts = append(enc.Parts, partEnvelope{Type: partTypeActionCall, ActionCall: &ac})
		case ActionResultPart:
			ar := part.ActionResult
			enc.Parts = append(enc.Parts, partEnvelope{Type: partTypeActionResult, ActionResult: &ar})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}
	return json.Marshal(enc)
}

// UnmarshalJSON implements json.Unmarshaler for the envelope encoding.
func (c *Content) UnmarshalJSON(data []byte) error {
	var dec contentJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	c.Role = dec.Role
	c.Parts = make([]Part, 0, len(dec.Parts))
	for _, env := range dec.Parts {
		switch env.Type {
		case partTypeText:
			c.Parts = append(c.Parts, TextPart{Text: env.Text})
		case partTypeActionCall:
			if env.ActionCall == nil {
				return fmt.Errorf("action_call part missing payload")
			}
			c.Parts = append(c.Parts, ActionCallPart{ActionCall: *env.ActionCall})
		case partTypeActionResult:
			if env.ActionResult == nil {
				return fmt.Errorf("action_result part missing payload")
			}
			c.Parts = append(c.Parts, ActionResultPart{ActionResult: *env.ActionResult})
		default:
			return fmt.Errorf("unknown part type %q", env.Type)
		}
	}
	return nil
}

// NewID generates a new unique identifier for requests and turns.
func NewID() string { return uuid.NewString() }
