package domain

import (
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/workflow"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
)

type User struct {
	ID            int64      `db:"id"`
	Email         string     `db:"email"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Vertical      string     `db:"vertical"`
	Designation   string     `db:"designation"`
	ManagerEmail  string     `db:"manager_email"`
	DateOfJoining *time.Time `db:"date_of_joining"`
	Role          Role       `db:"role"`
	PasswordHash  string     `db:"password_hash"`
	IsActive      bool       `db:"is_active"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Party() relationship.Party {
	return relationship.Party{Email: u.Email, Vertical: u.Vertical, ManagerEmail: u.ManagerEmail}
}

func (u User) ManagerLevel() int {
	return relationship.ManagerLevel(u.Designation)
}

// NormalizeEmail is the canonical form stored and compared everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserFilter struct {
	Vertical   string
	ActiveOnly bool
}

// ReviewerCandidate is a user offered for nomination with their current inbound load.
type ReviewerCandidate struct {
	User
	ActiveRequests int  `db:"active_requests"`
	AtCapacity     bool `db:"-"`
}

type CyclePhase string

const (
	PhaseNomination CyclePhase = "nomination"
	PhaseFeedback   CyclePhase = "feedback"
	PhaseCompleted  CyclePhase = "completed"
)

type Cycle struct {
	ID                 int64      `db:"id"`
	Name               string     `db:"name"`
	DisplayName        string     `db:"display_name"`
	Description        string     `db:"description"`
	Year               int        `db:"year"`
	Quarter            string     `db:"quarter"`
	NominationStart    time.Time  `db:"nomination_start"`
	NominationDeadline time.Time  `db:"nomination_deadline"`
	FeedbackDeadline   time.Time  `db:"feedback_deadline"`
	Phase              CyclePhase `db:"phase"`
	IsActive           bool       `db:"is_active"`
	CreatedBy          *int64     `db:"created_by"`
	CreatedAt          time.Time  `db:"created_at"`
	CompletedAt        *time.Time `db:"completed_at"`
	CompletionNotes    string     `db:"completion_notes"`
}

type DeadlineType string

const (
	DeadlineNomination DeadlineType = "nomination"
	DeadlineFeedback   DeadlineType = "feedback"
)

func (t DeadlineType) Valid() bool {
	return t == DeadlineNomination || t == DeadlineFeedback
}

// Default returns the cycle-wide deadline of type t.
func (c Cycle) Default(t DeadlineType) time.Time {
	if t == DeadlineFeedback {
		return c.FeedbackDeadline
	}

	return c.NominationDeadline
}

type DeadlineExtension struct {
	ID               int64        `db:"id"`
	CycleID          int64        `db:"cycle_id"`
	UserID           int64        `db:"user_id"`
	DeadlineType     DeadlineType `db:"deadline_type"`
	OriginalDeadline time.Time    `db:"original_deadline"`
	ExtendedDeadline time.Time    `db:"extended_deadline"`
	Reason           string       `db:"reason"`
	ExtendedBy       int64        `db:"extended_by"`
	CreatedAt        time.Time    `db:"created_at"`
	UserName         string       `db:"user_name"`
	UserEmail        string       `db:"user_email"`
}

type FeedbackRequest struct {
	ID                      int64             `db:"id"`
	CycleID                 int64             `db:"cycle_id"`
	RequesterID             int64             `db:"requester_id"`
	ReviewerID              *int64            `db:"reviewer_id"`
	ExternalEmail           *string           `db:"external_email"`
	ExternalName            string            `db:"external_name"`
	RelationshipType        relationship.Type `db:"relationship_type"`
	State                   workflow.State    `db:"workflow_state"`
	ApprovedBy              *int64            `db:"approved_by"`
	ApprovedAt              *time.Time        `db:"approved_at"`
	ManagerRejectionReason  *string           `db:"manager_rejection_reason"`
	ReviewerRespondedAt     *time.Time        `db:"reviewer_responded_at"`
	ReviewerRejectionReason *string           `db:"reviewer_rejection_reason"`
	CompletedAt             *time.Time        `db:"completed_at"`
	AutoTransitioned        bool              `db:"auto_transitioned"`
	CreatedAt               time.Time         `db:"created_at"`
	UpdatedAt               time.Time         `db:"updated_at"`
}

func (r FeedbackRequest) IsExternal() bool {
	return r.ReviewerID == nil
}

// Transition is a single state change applied to one request row.
type Transition struct {
	RequestID int64
	From      workflow.State
	To        workflow.State
	Event     workflow.Event
	ActorID   *int64
	Reason    string
	At        time.Time
}

// Nomination is a requester's own view of a request they made.
type Nomination struct {
	FeedbackRequest
	ReviewerName  string `db:"reviewer_name"`
	ReviewerEmail string `db:"reviewer_email"`
}

func (n Nomination) DisplayStatus() string {
	return n.State.DisplayStatus()
}

type NominationStatus struct {
	CycleID     int64
	Active      int
	Remaining   int
	Nominations []Nomination
}

// PendingApproval is a request waiting on the requester's manager.
type PendingApproval struct {
	FeedbackRequest
	RequesterName  string `db:"requester_name"`
	RequesterEmail string `db:"requester_email"`
	ReviewerName   string `db:"reviewer_name"`
	ReviewerEmail  string `db:"reviewer_email"`
	ReviewerTitle  string `db:"reviewer_designation"`
}

// ReviewAssignment is a request from the reviewer's side.
type ReviewAssignment struct {
	FeedbackRequest
	RequesterName        string    `db:"requester_name"`
	RequesterVertical    string    `db:"requester_vertical"`
	RequesterDesignation string    `db:"requester_designation"`
	CycleName            string    `db:"cycle_name"`
	FeedbackDeadline     time.Time `db:"feedback_deadline"`
	DraftCount           int       `db:"draft_count"`
}

type QuestionType string

const (
	QuestionRating QuestionType = "rating"
	QuestionText   QuestionType = "text"
)

type Question struct {
	ID               int64             `db:"id"`
	RelationshipType relationship.Type `db:"relationship_type"`
	Text             string            `db:"question_text"`
	Type             QuestionType      `db:"question_type"`
	SortOrder        int               `db:"sort_order"`
	IsActive         bool              `db:"is_active"`
}

// Answer is a reviewer's input for one question, draft or final.
type Answer struct {
	QuestionID int64  `db:"question_id" json:"question_id"`
	Rating     *int   `db:"rating_value" json:"rating,omitempty"`
	Text       string `db:"response_value" json:"text,omitempty"`
}

type Draft struct {
	RequestID int64 `db:"request_id"`
	Answer
	UpdatedAt time.Time `db:"updated_at"`
}

// ReceivedAnswer is one answer on feedback a user received, without reviewer identity.
type ReceivedAnswer struct {
	RequestID        int64             `db:"request_id"`
	CycleID          int64             `db:"cycle_id"`
	CycleName        string            `db:"cycle_name"`
	RelationshipType relationship.Type `db:"relationship_type"`
	CompletedAt      *time.Time        `db:"completed_at"`
	QuestionID       int64             `db:"question_id"`
	QuestionText     string            `db:"question_text"`
	QuestionType     QuestionType      `db:"question_type"`
	Rating           *int              `db:"rating_value"`
	Text             string            `db:"response_value"`
}

type ReceivedFeedback struct {
	RequestID        int64
	CycleID          int64
	CycleName        string
	RelationshipType relationship.Type
	CompletedAt      *time.Time
	Answers          []ReceivedAnswer
}

type FeedbackProgress struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
	Pending   int `db:"pending"`
}

type CycleHistory struct {
	CycleID        int64     `db:"cycle_id"`
	CycleName      string    `db:"cycle_name"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	RequestsMade   int       `db:"requests_made"`
	RequestsDone   int       `db:"requests_completed"`
	ReviewsWritten int       `db:"reviews_written"`
}

type RejectionType string

const (
	RejectionByManager  RejectionType = "manager_rejection"
	RejectionByReviewer RejectionType = "reviewer_rejection"
)

type RejectionRecord struct {
	ID                 int64         `db:"id"`
	RequestID          int64         `db:"request_id"`
	CycleID            int64         `db:"cycle_id"`
	Type               RejectionType `db:"rejection_type"`
	RequesterID        int64         `db:"requester_id"`
	RejectedReviewerID *int64        `db:"rejected_reviewer_id"`
	ExternalEmail      *string       `db:"external_email"`
	RejectedBy         *int64        `db:"rejected_by"`
	RejectedByEmail    string        `db:"rejected_by_email"`
	Reason             string        `db:"reason"`
	RejectedAt         time.Time     `db:"rejected_at"`
	ViewedByHR         bool          `db:"viewed_by_hr"`
	ViewedAt           *time.Time    `db:"viewed_at"`
	RequesterName      string        `db:"requester_name"`
	ReviewerName       string        `db:"reviewer_name"`
}

type RejectionFilter struct {
	CycleID    int64
	Type       RejectionType
	UnseenOnly bool
}

type TokenStatus string

const (
	TokenIssued   TokenStatus = "issued"
	TokenAccepted TokenStatus = "accepted"
	TokenDeclined TokenStatus = "declined"
	TokenConsumed TokenStatus = "consumed"
)

// Usable reports whether the token still grants access.
func (s TokenStatus) Usable() bool {
	return s == TokenIssued || s == TokenAccepted
}

type ExternalToken struct {
	ID        int64       `db:"id"`
	RequestID int64       `db:"request_id"`
	CycleID   int64       `db:"cycle_id"`
	Email     string      `db:"email"`
	TokenHash string      `db:"token_hash"`
	Status    TokenStatus `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	UsedAt    *time.Time  `db:"used_at"`
}

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

type OutboxMessage struct {
	ID            int64        `db:"id"`
	MessageID     string       `db:"message_id"`
	To            string       `db:"to_address"`
	Subject       string       `db:"subject"`
	HTMLBody      string       `db:"html_body"`
	TextBody      string       `db:"text_body"`
	Category      string       `db:"category"`
	RequestID     *int64       `db:"request_id"`
	CycleID       *int64       `db:"cycle_id"`
	Status        OutboxStatus `db:"status"`
	AttemptCount  int          `db:"attempt_count"`
	LastError     *string      `db:"last_error"`
	CreatedAt     time.Time    `db:"created_at"`
	LastAttemptAt *time.Time   `db:"last_attempt_at"`
	SentAt        *time.Time   `db:"sent_at"`
}

type OutboxStats struct {
	Pending int `db:"pending" json:"pending"`
	Sent    int `db:"sent" json:"sent"`
	Failed  int `db:"failed" json:"failed"`
}

type DashboardMetrics struct {
	CycleID          int64          `json:"cycle_id"`
	ActiveUsers      int            `json:"active_users"`
	TotalRequests    int            `json:"total_requests"`
	ByState          map[string]int `json:"by_state"`
	CompletionRate   float64        `json:"completion_rate"`
	PendingApprovals int            `json:"pending_approvals"`
	UnseenRejections int            `json:"unseen_rejections"`
	Notifications    OutboxStats    `json:"notifications"`
}

type StateCount struct {
	State workflow.State `db:"workflow_state"`
	Count int            `db:"count"`
}

// UserProgress is one row of the HR progress summary.
type UserProgress struct {
	UserID             int64  `db:"user_id"`
	Name               string `db:"name"`
	Email              string `db:"email"`
	Vertical           string `db:"vertical"`
	NominationsMade    int    `db:"nominations_made"`
	NominationsActive  int    `db:"nominations_active"`
	FeedbackReceived   int    `db:"feedback_received"`
	ReviewsPending     int    `db:"reviews_pending"`
	ReviewsCompleted   int    `db:"reviews_completed"`
	ApprovalsAwaiting  int    `db:"approvals_awaiting"`
	RejectionsReceived int    `db:"rejections_received"`
}

type ReviewerLoad struct {
	UserID         int64  `db:"user_id"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	Vertical       string `db:"vertical"`
	ActiveRequests int    `db:"active_requests"`
	AtCapacity     bool   `db:"-"`
}

// Recipient is someone a reminder is addressed to.
type Recipient struct {
	UserID int64  `db:"user_id"`
	Name   string `db:"name"`
	Email  string `db:"email"`
	Count  int    `db:"count"`
}

// Audience selects reminder recipients from the state of the active cycle.
type Audience string

const (
	// AudiencePendingNominations is everyone with free nomination slots left.
	AudiencePendingNominations Audience = "pending_nominations"
	// AudiencePendingApprovals is every manager with requests awaiting a decision.
	AudiencePendingApprovals Audience = "pending_approvals"
	// AudiencePendingReviews is every internal reviewer with accepted or unanswered requests.
	AudiencePendingReviews Audience = "pending_reviews"
)

func (a Audience) Valid() bool {
	switch a {
	case AudiencePendingNominations, AudiencePendingApprovals, AudiencePendingReviews:
		return true
	}

	return false
}
