// Package decider defines the interface between the turn executor and the
// language model that decides what a run does next: answer the user, call
// catalog actions, or finish. Concrete providers live in subpackages
// (anthropic, openai); a scripted Mock supports deterministic tests.
package decider
