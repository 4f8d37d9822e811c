// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the service layer.
package repository

import (
	"context"
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/limits"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

// UserRepository defines the contract for user records. Users are never deleted.
type UserRepository interface {
	// Create inserts a user. It returns *apperrors.UserAlreadyExistsError on a duplicate email.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)

	// Update overwrites the organisational attributes of a user.
	// It returns apperrors.ErrNotFound if the user does not exist.
	Update(ctx context.Context, u *domain.User) (*domain.User, error)

	SetActive(ctx context.Context, id int64, active bool) (*domain.User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error

	// GetByID and GetByEmail return apperrors.ErrNotFound when no row matches.
	// The ext argument allows them to run inside a transaction.
	GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, ext sqlx.ExtContext, email string) (*domain.User, error)

	// LockByIDs locks the given user rows ("FOR UPDATE") in ascending id order
	// so that concurrent nominations touching the same people serialise without deadlocks.
	LockByIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.User, error)

	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	ListVerticals(ctx context.Context) ([]string, error)
	DirectReports(ctx context.Context, managerEmail string) ([]domain.User, error)
	CountDirectReports(ctx context.Context, ext sqlx.ExtContext, managerEmail string) (int, error)
}

// CycleRepository defines the contract for review cycles.
type CycleRepository interface {
	// Create inserts a new active cycle. A second active cycle is rejected by the store
	// and reported as a CYCLE_ALREADY_ACTIVE rejection.
	Create(ctx context.Context, tx *sqlx.Tx, c *domain.Cycle) (*domain.Cycle, error)

	// GetActive returns apperrors.ErrNotFound when no cycle is active.
	GetActive(ctx context.Context, ext sqlx.ExtContext) (*domain.Cycle, error)

	// LockActive is GetActive with a row lock.
	LockActive(ctx context.Context, tx *sqlx.Tx) (*domain.Cycle, error)

	GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Cycle, error)
	List(ctx context.Context) ([]domain.Cycle, error)

	// Complete deactivates the cycle and moves it to the completed phase.
	Complete(ctx context.Context, tx *sqlx.Tx, id int64, notes string, at time.Time) error

	UpdatePhase(ctx context.Context, id int64, phase domain.CyclePhase) error
}

// ExtensionRepository defines the contract for per-user deadline overrides.
type ExtensionRepository interface {
	// Upsert creates or replaces the extension for (cycle, user, type).
	Upsert(ctx context.Context, e *domain.DeadlineExtension) (*domain.DeadlineExtension, error)

	// Get returns apperrors.ErrNotFound when the user has no extension of that type.
	Get(ctx context.Context, ext sqlx.ExtContext, cycleID, userID int64, t domain.DeadlineType) (*domain.DeadlineExtension, error)

	ListByCycle(ctx context.Context, cycleID int64) ([]domain.DeadlineExtension, error)
}

// RequestCommandRepository defines write and locking operations on feedback requests.
// All methods taking a *sqlx.Tx are expected to run inside the caller's transaction.
type RequestCommandRepository interface {
	limits.Counter

	// CreateBatch inserts the requests and returns them with ids and timestamps.
	// A repeated (cycle, requester, reviewer) yields a DUPLICATE_NOMINATION rejection and a
	// cap violation raised by the store yields LIMIT_EXCEEDED or REVIEWER_AT_CAPACITY.
	CreateBatch(ctx context.Context, tx *sqlx.Tx, reqs []domain.FeedbackRequest) ([]domain.FeedbackRequest, error)

	// LockByID returns apperrors.ErrNotFound if the request does not exist.
	LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.FeedbackRequest, error)

	// ApplyTransition writes t only if the row is still in t.From.
	ApplyTransition(ctx context.Context, tx *sqlx.Tx, t domain.Transition) (*domain.FeedbackRequest, error)

	// LockDueForSweep returns requests of the cycle waiting on approval or acceptance whose
	// requester's effective nomination deadline is before today.
	LockDueForSweep(ctx context.Context, tx *sqlx.Tx, cycleID int64, today time.Time) ([]domain.FeedbackRequest, error)

	// ExpireOpen moves every request of the cycle in one of the given states to expired.
	ExpireOpen(ctx context.Context, tx *sqlx.Tx, cycleID int64, from []workflow.State, at time.Time) (int64, error)
}

// RequestQueryRepository defines read-only feedback request operations.
type RequestQueryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.FeedbackRequest, error)
	ListByRequester(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) ([]domain.FeedbackRequest, error)
	ListNominations(ctx context.Context, cycleID, requesterID int64) ([]domain.Nomination, error)
	ListPendingApprovals(ctx context.Context, cycleID int64, managerEmail string) ([]domain.PendingApproval, error)
	ListAssignments(ctx context.Context, cycleID, reviewerID int64, states []workflow.State) ([]domain.ReviewAssignment, error)
	GetAssignment(ctx context.Context, requestID int64) (*domain.ReviewAssignment, error)
	Progress(ctx context.Context, cycleID, requesterID int64) (*domain.FeedbackProgress, error)
	CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error)
}

// ReportRepository defines the aggregate read models used by HR and selection screens.
type ReportRepository interface {
	CountActiveUsers(ctx context.Context) (int, error)
	StateCounts(ctx context.Context, cycleID int64) ([]domain.StateCount, error)
	ProgressSummary(ctx context.Context, cycleID int64) ([]domain.UserProgress, error)
	ReviewerLoads(ctx context.Context, cycleID int64) ([]domain.ReviewerLoad, error)

	// EligibleReviewers lists active users who joined on or before cutoff (when set) or
	// on or before tenureBefore, with their inbound load in the cycle.
	EligibleReviewers(ctx context.Context, cycleID int64, cutoff, tenureBefore time.Time) ([]domain.ReviewerCandidate, error)

	// Audience resolves a reminder audience to recipients.
	Audience(ctx context.Context, cycleID int64, audience domain.Audience) ([]domain.Recipient, error)
}

type QuestionRepository interface {
	ListByRelationship(ctx context.Context, t relationship.Type) ([]domain.Question, error)
}

// ResponseRepository defines the contract for draft and final answers.
type ResponseRepository interface {
	UpsertDrafts(ctx context.Context, requestID int64, answers []domain.Answer, at time.Time) error
	ListDrafts(ctx context.Context, requestID int64) ([]domain.Draft, error)

	// InsertResponses writes the final answers. Final answers are immutable, so a second
	// write for the same request is reported as a state rejection.
	InsertResponses(ctx context.Context, tx *sqlx.Tx, requestID int64, answers []domain.Answer, at time.Time) error
	DeleteDrafts(ctx context.Context, tx *sqlx.Tx, requestID int64) error

	// ListReceived returns answers on completed requests made by requesterID.
	// A zero cycleID means every cycle. Reviewer identity is never selected.
	ListReceived(ctx context.Context, requesterID, cycleID int64) ([]domain.ReceivedAnswer, error)
}

// RejectionRepository defines the contract for the rejection audit trail.
type RejectionRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, rec *domain.RejectionRecord) error
	List(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error)
	MarkViewed(ctx context.Context, id int64, at time.Time) error
	CountUnseen(ctx context.Context, cycleID int64) (int, error)
}

// TokenRepository defines the contract for external reviewer access tokens.
type TokenRepository interface {
	Create(ctx context.Context, ext sqlx.ExtContext, tok *domain.ExternalToken) error
	ListUsableByEmail(ctx context.Context, email string) ([]domain.ExternalToken, error)
	LockByRequest(ctx context.Context, tx *sqlx.Tx, requestID int64) (*domain.ExternalToken, error)
	SetStatus(ctx context.Context, tx *sqlx.Tx, id int64, status domain.TokenStatus, at time.Time) error
}

// OutboxRepository defines the contract for the notification send log.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *domain.OutboxMessage) error

	// ClaimBatch locks up to limit unsent messages with id above afterID and fewer than
	// maxAttempts attempts, in id order, skipping rows locked by another dispatcher.
	ClaimBatch(ctx context.Context, tx *sqlx.Tx, afterID int64, limit, maxAttempts int) ([]domain.OutboxMessage, error)

	MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error
	MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string, at time.Time) error
	Stats(ctx context.Context) (*domain.OutboxStats, error)
}
