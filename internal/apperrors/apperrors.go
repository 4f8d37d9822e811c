// Package apperrors defines the error vocabulary shared by the service and transport layers.
//
// Rejections (*RejectedError) describe input or state problems the caller can fix and
// always carry a human-readable reason. Any error that is neither a rejection nor one of
// the sentinels below is an infrastructure failure.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// ErrRejected matches every *RejectedError via errors.Is.
	ErrRejected = errors.New("operation rejected")
)

// Kind classifies a rejection.
type Kind string

const (
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindPolicy     Kind = "policy"
)

// Code is a stable machine-readable rejection code.
type Code string

const (
	CodeNoActiveCycle       Code = "NO_ACTIVE_CYCLE"
	CodeCycleAlreadyActive  Code = "CYCLE_ALREADY_ACTIVE"
	CodeCycleInactive       Code = "CYCLE_INACTIVE"
	CodeInvalidDates        Code = "INVALID_DATES"
	CodeDeadlinePassed      Code = "DEADLINE_PASSED"
	CodeNotEligible         Code = "NOT_ELIGIBLE"
	CodeNoManager           Code = "NO_MANAGER"
	CodeOwnManager          Code = "OWN_MANAGER"
	CodeSelfNomination      Code = "SELF_NOMINATION"
	CodeDuplicateNomination Code = "DUPLICATE_NOMINATION"
	CodeEmptyNomination     Code = "EMPTY_NOMINATION"
	CodeExternalNotAllowed  Code = "EXTERNAL_NOT_ALLOWED"
	CodeEmployeeAsExternal  Code = "EMPLOYEE_AS_EXTERNAL"
	CodeReviewerInactive    Code = "REVIEWER_INACTIVE"
	CodeLimitExceeded       Code = "LIMIT_EXCEEDED"
	CodeReviewerAtCapacity  Code = "REVIEWER_AT_CAPACITY"
	CodeNotDirectManager    Code = "NOT_DIRECT_MANAGER"
	CodeNotDesignatedActor  Code = "NOT_DESIGNATED_REVIEWER"
	CodeReasonRequired      Code = "REASON_REQUIRED"
	CodeInvalidDecision     Code = "INVALID_DECISION"
	CodeInvalidTransition   Code = "INVALID_STATE"
	CodeAnswerMissing       Code = "ANSWER_MISSING"
	CodeInvalidRating       Code = "INVALID_RATING"
	CodeUnknownQuestion     Code = "UNKNOWN_QUESTION"
	CodeTokenInvalid        Code = "TOKEN_INVALID"
	CodeUserInactive        Code = "USER_INACTIVE"
	CodeWeakPassword        Code = "WEAK_PASSWORD"
	CodePasswordAlreadySet  Code = "PASSWORD_ALREADY_SET"
	CodeUnknownAudience     Code = "UNKNOWN_AUDIENCE"
	CodeEmptyMessage        Code = "EMPTY_MESSAGE"
)

// RejectedError is a structured "the operation did not happen, and here is why" result.
type RejectedError struct {
	Kind   Kind
	Code   Code
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// Validation builds a rejection for malformed or out-of-policy input.
func Validation(code Code, format string, args ...any) *RejectedError {
	return &RejectedError{Kind: KindValidation, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// State builds a rejection for an operation attempted in the wrong state.
func State(code Code, format string, args ...any) *RejectedError {
	return &RejectedError{Kind: KindState, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Policy builds a rejection for deadline, cycle and permission boundaries.
func Policy(code Code, format string, args ...any) *RejectedError {
	return &RejectedError{Kind: KindPolicy, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err to a *RejectedError if it is one.
func AsRejection(err error) (*RejectedError, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej, true
	}

	return nil, false
}

// IsInfrastructure reports whether err is an unexpected store or collaborator failure
// rather than something the caller can correct.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}

	for _, known := range []error{
		ErrRejected, ErrNotFound, ErrAlreadyExists, ErrInvalidRequest,
		ErrValidation, ErrUnauthorized, ErrForbidden,
	} {
		if errors.Is(err, known) {
			return false
		}
	}

	return true
}

type UserAlreadyExistsError struct{ Email string }

func (e *UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with email '%s' already exists", e.Email)
}
func (e *UserAlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }
