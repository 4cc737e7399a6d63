// Package core provides the foundational domain types and interfaces used by
// Skiff. It defines:
//
//   - Content and its closed Part set (text, action calls, action results)
//   - Runs (resumable executions of a conversation thread) and their states
//   - ActionRequest, the unit of work surfaced by the decision-maker
//   - Pluggable stores for run checkpoints and user memory profiles
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, concrete actions) out of scope, exposing small interfaces so
// custom backends can be plugged in at wiring time.
package core
