// Package approval defines the decisions a user can make about a suspended
// action request: approve it, reject it, or amend the plan with feedback.
// The run controller consumes validated Decision values; this package owns
// parsing and the invariants around them.
package approval

import (
	"errors"
	"fmt"
	"strings"
)

// Verdict is the kind of decision made about a pending action request.
type Verdict string

const (
	// VerdictApprove releases the pending action for execution.
	VerdictApprove Verdict = "approve"
	// VerdictReject terminates the run without executing the action.
	VerdictReject Verdict = "reject"
	// VerdictAmend discards the pending action and feeds the user's feedback
	// back to the decider for a new plan.
	VerdictAmend Verdict = "amend"
)

// ErrInvalidVerdict is returned for verdicts outside the closed set.
var ErrInvalidVerdict = errors.New("invalid approval verdict")

// ErrRequestMismatch is returned when a decision references a request id
// other than the run's head pending request.
var ErrRequestMismatch = errors.New("decision does not match pending request")

// ParseVerdict maps a user supplied string onto a Verdict, accepting common
// aliases ("confirm", "cancel", "feedback") case-insensitively.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "confirm", "yes", "y":
		return VerdictApprove, nil
	case "reject", "cancel", "no", "n":
		return VerdictReject, nil
	case "amend", "feedback", "revise":
		return VerdictAmend, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
	}
}

// Decision is a validated user decision about one pending action request.
type Decision struct {
	// RequestID identifies the pending request the decision applies to.
	// Empty means "the head pending request".
	RequestID string  `json:"request_id,omitempty"`
	Verdict   Verdict `json:"verdict"`
	// Feedback carries the user's guidance on amend. It doubles as the
	// material the memory reviser folds into the user's profile.
	Feedback string `json:"feedback,omitempty"`
}

// Validate checks the decision's internal invariants: the verdict must be a
// member of the closed set, and an amend must carry feedback (an amend
// without guidance leaves the decider nothing to replan with).
func (d Decision) Validate() error {
	switch d.Verdict {
	case VerdictApprove, VerdictReject:
		return nil
	case VerdictAmend:
		if strings.TrimSpace(d.Feedback) == "" {
			return fmt.Errorf("%w: amend requires feedback", ErrInvalidVerdict)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVerdict, d.Verdict)
	}
}
