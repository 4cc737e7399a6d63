package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skiff-ai/skiff/core"
	"github.com/skiff-ai/skiff/decider"
	"github.com/skiff-ai/skiff/logging"
)

// Profile namespaces and the key under which a profile lives. A subject
// (user id) can carry several independent profiles, one per namespace.
const (
	// NamespaceSpecialInstructions holds standing instructions the user has
	// given across conversations.
	NamespaceSpecialInstructions = "special_instructions"
	// NamespaceBackground holds background facts about the user.
	NamespaceBackground = "background"
	// ProfileKey is the key each namespace stores its profile under.
	ProfileKey = "profile"
)

// Defaults returned when a subject has no stored profile yet.
const (
	DefaultSpecialInstructions = "No special instructions"
	DefaultBackground          = "No background information"
)

// revisionInstructions steer the decider toward additive merges: existing
// profile lines are kept verbatim and new guidance is appended, so feedback
// accumulates instead of being overwritten.
const revisionInstructions = `You maintain a long-lived profile of standing instructions for a user.

Current profile:
<current_profile>
%s</current_profile>

The conversation below contains new feedback from the user. Update the profile:
1. Keep every existing instruction unless the feedback explicitly retracts it.
2. Add the new instruction(s) from the feedback.
3. Merge duplicates; never drop information the feedback did not retract.
4. Return the complete revised profile, not a diff.

Call update_profile exactly once with your reasoning and the full revised profile.`

// revisionArgs is the structured output the decider returns via the
// update_profile tool.
type revisionArgs struct {
	ChainOfThought      string `json:"chain_of_thought"`
	SpecialInstructions string `json:"special_instructions"`
}

// Reviser folds conversational feedback into a subject's stored profile.
// The revision is delegated to a decider constrained to a single structured
// tool call, and the store is only written when that call parses cleanly:
// a failed revision leaves the previous profile untouched.
type Reviser struct {
	decider decider.Decider
	store   core.ProfileStore
	logger  logging.Logger
}

// ReviserOptions configure a Reviser.
type ReviserOptions struct {
	Logger logging.Logger
}

// NewReviser builds a Reviser over the given decider and store.
func NewReviser(d decider.Decider, store core.ProfileStore, optFns ...func(o *ReviserOptions)) *Reviser {
	opts := ReviserOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reviser{decider: d, store: store, logger: opts.Logger}
}

// Revise merges the feedback carried by the conversation into the profile
// stored under (subject, namespace). It returns the revised profile text.
// On any failure the stored profile is left as it was.
func (r *Reviser) Revise(ctx context.Context, subject, namespace string, feedback []core.Content) (string, error) {
	current, ok, err := r.store.Get(ctx, subject, namespace, ProfileKey)
	if err != nil {
		return "", fmt.Errorf("load current profile: %w", err)
	}
	if !ok || current == "" {
		current = DefaultSpecialInstructions
	}

	req := decider.Request{
		Instructions: fmt.Sprintf(revisionInstructions, ensureTrailingNewline(current)),
		Contents:     feedback,
		Tools: []decider.ToolDefinition{{
			Type: "function",
			Function: decider.FunctionDefinition{
				Name:        "update_profile",
				Description: "Record the revised user profile.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"chain_of_thought": map[string]any{
							"type":        "string",
							"description": "Reasoning about what the feedback changes",
						},
						"special_instructions": map[string]any{
							"type":        "string",
							"description": "The complete revised profile",
						},
					},
					"required": []string{"chain_of_thought", "special_instructions"},
				},
			},
		}},
	}

	resp, err := decider.Collect(ctx, r.decider, req)
	if err != nil {
		return "", fmt.Errorf("profile revision call: %w", err)
	}

	revised, err := parseRevision(resp)
	if err != nil {
		return "", err
	}

	if err := r.store.Put(ctx, subject, namespace, ProfileKey, revised); err != nil {
		return "", fmt.Errorf("store revised profile: %w", err)
	}

	r.logger.Info("Profile revised", "subject", subject, "namespace", namespace)

	return revised, nil
}

func parseRevision(resp decider.Response) (string, error) {
	for _, call := range resp.Content.ActionCalls() {
		if call.Name != "update_profile" {
			continue
		}
		var args revisionArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("parse update_profile arguments: %w", err)
		}
		if strings.TrimSpace(args.SpecialInstructions) == "" {
			return "", fmt.Errorf("update_profile returned an empty profile")
		}
		return args.SpecialInstructions, nil
	}
	return "", fmt.Errorf("decider did not call update_profile")
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
