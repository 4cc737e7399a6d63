package run

import (
	"fmt"

	"github.com/skiff-ai/skiff/core"
)

// Result is what invoking or resuming a thread yields: either an answer, a
// suspension waiting for approval, or a terminal acknowledgement.
type Result struct {
	State  core.RunState
	Answer string
	// Pending is set when the run suspended for approval.
	Pending *PendingApproval
}

// Suspended reports whether the result represents a run parked for approval.
func (r *Result) Suspended() bool { return r.Pending != nil }

// PendingApproval describes the action request a run is suspended on,
// rendered for presentation to the user.
type PendingApproval struct {
	ThreadID        string
	Request         core.ActionRequest
	Message         string
	AllowedVerdicts []string
}

func newPendingApproval(threadID string, req core.ActionRequest) *PendingApproval {
	msg := fmt.Sprintf(
		"Approval required before running %s with arguments %s. Reply with approve, reject, or amend (with feedback).",
		req.Name, argsOrEmpty(req.Arguments),
	)
	return &PendingApproval{
		ThreadID:        threadID,
		Request:         req,
		Message:         msg,
		AllowedVerdicts: []string{"approve", "reject", "amend"},
	}
}

func argsOrEmpty(args string) string {
	if args == "" {
		return "{}"
	}
	return args
}
