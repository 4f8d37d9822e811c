// Package workflow is the lifecycle of a single feedback request.
//
// A request is always in exactly one State. The only way to move it is Transition,
// which holds the complete table of legal (state, event) pairs. Approval and reviewer
// status are projections of the state, never stored independently.
package workflow

import (
	"github.com/YusovID/feedback-360-service/internal/apperrors"
)

type State string

const (
	PendingManagerApproval    State = "pending_manager_approval"
	PendingReviewerAcceptance State = "pending_reviewer_acceptance"
	InProgress                State = "in_progress"
	Completed                 State = "completed"
	ManagerRejected           State = "manager_rejected"
	ReviewerRejected          State = "reviewer_rejected"
	Expired                   State = "expired"
)

// AllStates lists every state in lifecycle order.
var AllStates = []State{
	PendingManagerApproval,
	PendingReviewerAcceptance,
	InProgress,
	Completed,
	ManagerRejected,
	ReviewerRejected,
	Expired,
}

type Event string

const (
	EventApprove        Event = "approve"
	EventManagerReject  Event = "manager_reject"
	EventAccept         Event = "accept"
	EventReviewerReject Event = "reviewer_reject"
	EventSubmit         Event = "submit"
	// EventAutoApprove and EventAutoAccept are fired by the nomination deadline sweep.
	EventAutoApprove Event = "auto_approve"
	EventAutoAccept  Event = "auto_accept"
	// EventExpire freezes an unfinished request when its cycle is completed.
	EventExpire Event = "expire"
)

type edge struct {
	from  State
	event Event
}

var transitions = map[edge]State{
	{PendingManagerApproval, EventApprove}:       PendingReviewerAcceptance,
	{PendingManagerApproval, EventAutoApprove}:   PendingReviewerAcceptance,
	{PendingManagerApproval, EventManagerReject}: ManagerRejected,
	{PendingManagerApproval, EventExpire}:        Expired,

	{PendingReviewerAcceptance, EventAccept}:         InProgress,
	{PendingReviewerAcceptance, EventAutoAccept}:     InProgress,
	{PendingReviewerAcceptance, EventReviewerReject}: ReviewerRejected,
	{PendingReviewerAcceptance, EventExpire}:         Expired,

	{InProgress, EventSubmit}: Completed,
	{InProgress, EventExpire}: Expired,
}

// Transition returns the state reached by applying ev to from, or a state rejection.
func Transition(from State, ev Event) (State, error) {
	if !from.Valid() {
		return "", apperrors.State(apperrors.CodeInvalidTransition, "unknown workflow state %q", from)
	}

	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, apperrors.State(apperrors.CodeInvalidTransition,
			"request is %s and cannot be %s", from.DisplayStatus(), ev.pastTense())
	}

	return to, nil
}

// Can reports whether ev is legal in from.
func Can(from State, ev Event) bool {
	_, ok := transitions[edge{from, ev}]
	return ok
}

// Sweep applies the nomination deadline policy: silence is consent. A request waiting on
// its manager is approved and then accepted in one pass, so running it again changes nothing.
// The second return value lists the events applied, empty when the state is unaffected.
func Sweep(from State) (State, []Event) {
	state := from

	var applied []Event

	for _, ev := range []Event{EventAutoApprove, EventAutoAccept} {
		next, err := Transition(state, ev)
		if err != nil {
			continue
		}

		state = next
		applied = append(applied, ev)
	}

	return state, applied
}

func (s State) Valid() bool {
	switch s {
	case PendingManagerApproval, PendingReviewerAcceptance, InProgress, Completed,
		ManagerRejected, ReviewerRejected, Expired:
		return true
	}

	return false
}

func (s State) IsTerminal() bool {
	switch s {
	case Completed, ManagerRejected, ReviewerRejected, Expired:
		return true
	}

	return false
}

// IsRejected is true for both rejection outcomes.
func (s State) IsRejected() bool {
	return s == ManagerRejected || s == ReviewerRejected
}

// CountsTowardLimit reports whether the request occupies a nomination slot for its
// requester and its reviewer.
func (s State) CountsTowardLimit() bool {
	switch s {
	case PendingManagerApproval, PendingReviewerAcceptance, InProgress, Completed:
		return true
	}

	return false
}

// ApprovalStatus is the manager-facing projection: pending, approved or rejected.
func (s State) ApprovalStatus() string {
	switch s {
	case PendingManagerApproval:
		return "pending"
	case ManagerRejected:
		return "rejected"
	case Expired:
		return "expired"
	default:
		return "approved"
	}
}

// ReviewerStatus is the reviewer-facing projection.
func (s State) ReviewerStatus() string {
	switch s {
	case InProgress:
		return "accepted"
	case ReviewerRejected:
		return "rejected"
	case Completed:
		return "completed"
	case Expired:
		return "expired"
	default:
		return "pending_acceptance"
	}
}

// DisplayStatus is the coarse label shown to requesters.
func (s State) DisplayStatus() string {
	switch s {
	case PendingManagerApproval:
		return "pending"
	case PendingReviewerAcceptance, InProgress:
		return "approved"
	case ManagerRejected, ReviewerRejected:
		return "rejected"
	case Completed:
		return "completed"
	case Expired:
		return "expired"
	}

	return "unknown"
}

// CountingStates returns the states that occupy a nomination slot, for use in queries.
func CountingStates() []State {
	out := make([]State, 0, len(AllStates))

	for _, s := range AllStates {
		if s.CountsTowardLimit() {
			out = append(out, s)
		}
	}

	return out
}

func (e Event) pastTense() string {
	switch e {
	case EventApprove, EventAutoApprove:
		return "approved"
	case EventManagerReject, EventReviewerReject:
		return "rejected"
	case EventAccept, EventAutoAccept:
		return "accepted"
	case EventSubmit:
		return "submitted"
	case EventExpire:
		return "expired"
	}

	return string(e)
}
