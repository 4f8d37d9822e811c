package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
}

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*sqlx.Tx), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

var _ repository.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) SetActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.User, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, ext sqlx.ExtContext, email string) (*domain.User, error) {
	args := m.Called(ctx, ext, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) LockByIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.User, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *UserRepositoryMock) ListVerticals(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *UserRepositoryMock) DirectReports(ctx context.Context, managerEmail string) ([]domain.User, error) {
	args := m.Called(ctx, managerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *UserRepositoryMock) CountDirectReports(ctx context.Context, ext sqlx.ExtContext, managerEmail string) (int, error) {
	args := m.Called(ctx, ext, managerEmail)
	return args.Int(0), args.Error(1)
}

type CycleRepositoryMock struct {
	mock.Mock
}

var _ repository.CycleRepository = (*CycleRepositoryMock)(nil)

func (m *CycleRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, c *domain.Cycle) (*domain.Cycle, error) {
	args := m.Called(ctx, tx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleRepositoryMock) GetActive(ctx context.Context, ext sqlx.ExtContext) (*domain.Cycle, error) {
	args := m.Called(ctx, ext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleRepositoryMock) LockActive(ctx context.Context, tx *sqlx.Tx) (*domain.Cycle, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleRepositoryMock) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Cycle, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleRepositoryMock) List(ctx context.Context) ([]domain.Cycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Cycle), args.Error(1)
}

func (m *CycleRepositoryMock) Complete(ctx context.Context, tx *sqlx.Tx, id int64, notes string, at time.Time) error {
	args := m.Called(ctx, tx, id, notes, at)
	return args.Error(0)
}

func (m *CycleRepositoryMock) UpdatePhase(ctx context.Context, id int64, phase domain.CyclePhase) error {
	args := m.Called(ctx, id, phase)
	return args.Error(0)
}

type ExtensionRepositoryMock struct {
	mock.Mock
}

var _ repository.ExtensionRepository = (*ExtensionRepositoryMock)(nil)

func (m *ExtensionRepositoryMock) Upsert(ctx context.Context, e *domain.DeadlineExtension) (*domain.DeadlineExtension, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.DeadlineExtension), args.Error(1)
}

func (m *ExtensionRepositoryMock) Get(ctx context.Context, ext sqlx.ExtContext, cycleID, userID int64, t domain.DeadlineType) (*domain.DeadlineExtension, error) {
	args := m.Called(ctx, ext, cycleID, userID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.DeadlineExtension), args.Error(1)
}

func (m *ExtensionRepositoryMock) ListByCycle(ctx context.Context, cycleID int64) ([]domain.DeadlineExtension, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.DeadlineExtension), args.Error(1)
}

type RequestCommandRepositoryMock struct {
	mock.Mock
}

var _ repository.RequestCommandRepository = (*RequestCommandRepositoryMock)(nil)

func (m *RequestCommandRepositoryMock) CountOutbound(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) (int, error) {
	args := m.Called(ctx, ext, cycleID, requesterID)
	return args.Int(0), args.Error(1)
}

func (m *RequestCommandRepositoryMock) CountInbound(ctx context.Context, ext sqlx.ExtContext, cycleID int64, reviewerIDs []int64) (map[int64]int, error) {
	args := m.Called(ctx, ext, cycleID, reviewerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[int64]int), args.Error(1)
}

func (m *RequestCommandRepositoryMock) CreateBatch(ctx context.Context, tx *sqlx.Tx, reqs []domain.FeedbackRequest) ([]domain.FeedbackRequest, error) {
	args := m.Called(ctx, tx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.FeedbackRequest), args.Error(1)
}

func (m *RequestCommandRepositoryMock) LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

func (m *RequestCommandRepositoryMock) ApplyTransition(ctx context.Context, tx *sqlx.Tx, t domain.Transition) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, tx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

func (m *RequestCommandRepositoryMock) LockDueForSweep(ctx context.Context, tx *sqlx.Tx, cycleID int64, today time.Time) ([]domain.FeedbackRequest, error) {
	args := m.Called(ctx, tx, cycleID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.FeedbackRequest), args.Error(1)
}

func (m *RequestCommandRepositoryMock) ExpireOpen(ctx context.Context, tx *sqlx.Tx, cycleID int64, from []workflow.State, at time.Time) (int64, error) {
	args := m.Called(ctx, tx, cycleID, from, at)
	return args.Get(0).(int64), args.Error(1)
}

type RequestQueryRepositoryMock struct {
	mock.Mock
}

var _ repository.RequestQueryRepository = (*RequestQueryRepositoryMock)(nil)

func (m *RequestQueryRepositoryMock) GetByID(ctx context.Context, id int64) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

func (m *RequestQueryRepositoryMock) ListByRequester(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) ([]domain.FeedbackRequest, error) {
	args := m.Called(ctx, ext, cycleID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.FeedbackRequest), args.Error(1)
}

func (m *RequestQueryRepositoryMock) ListNominations(ctx context.Context, cycleID, requesterID int64) ([]domain.Nomination, error) {
	args := m.Called(ctx, cycleID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Nomination), args.Error(1)
}

func (m *RequestQueryRepositoryMock) ListPendingApprovals(ctx context.Context, cycleID int64, managerEmail string) ([]domain.PendingApproval, error) {
	args := m.Called(ctx, cycleID, managerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PendingApproval), args.Error(1)
}

func (m *RequestQueryRepositoryMock) ListAssignments(ctx context.Context, cycleID, reviewerID int64, states []workflow.State) ([]domain.ReviewAssignment, error) {
	args := m.Called(ctx, cycleID, reviewerID, states)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewAssignment), args.Error(1)
}

func (m *RequestQueryRepositoryMock) GetAssignment(ctx context.Context, requestID int64) (*domain.ReviewAssignment, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ReviewAssignment), args.Error(1)
}

func (m *RequestQueryRepositoryMock) Progress(ctx context.Context, cycleID, requesterID int64) (*domain.FeedbackProgress, error) {
	args := m.Called(ctx, cycleID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackProgress), args.Error(1)
}

func (m *RequestQueryRepositoryMock) CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.CycleHistory), args.Error(1)
}

type ReportRepositoryMock struct {
	mock.Mock
}

var _ repository.ReportRepository = (*ReportRepositoryMock)(nil)

func (m *ReportRepositoryMock) CountActiveUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *ReportRepositoryMock) StateCounts(ctx context.Context, cycleID int64) ([]domain.StateCount, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.StateCount), args.Error(1)
}

func (m *ReportRepositoryMock) ProgressSummary(ctx context.Context, cycleID int64) ([]domain.UserProgress, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.UserProgress), args.Error(1)
}

func (m *ReportRepositoryMock) ReviewerLoads(ctx context.Context, cycleID int64) ([]domain.ReviewerLoad, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewerLoad), args.Error(1)
}

func (m *ReportRepositoryMock) EligibleReviewers(ctx context.Context, cycleID int64, cutoff, tenureBefore time.Time) ([]domain.ReviewerCandidate, error) {
	args := m.Called(ctx, cycleID, cutoff, tenureBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewerCandidate), args.Error(1)
}

func (m *ReportRepositoryMock) Audience(ctx context.Context, cycleID int64, audience domain.Audience) ([]domain.Recipient, error) {
	args := m.Called(ctx, cycleID, audience)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Recipient), args.Error(1)
}

type QuestionRepositoryMock struct {
	mock.Mock
}

var _ repository.QuestionRepository = (*QuestionRepositoryMock)(nil)

func (m *QuestionRepositoryMock) ListByRelationship(ctx context.Context, t relationship.Type) ([]domain.Question, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Question), args.Error(1)
}

type ResponseRepositoryMock struct {
	mock.Mock
}

var _ repository.ResponseRepository = (*ResponseRepositoryMock)(nil)

func (m *ResponseRepositoryMock) UpsertDrafts(ctx context.Context, requestID int64, answers []domain.Answer, at time.Time) error {
	args := m.Called(ctx, requestID, answers, at)
	return args.Error(0)
}

func (m *ResponseRepositoryMock) ListDrafts(ctx context.Context, requestID int64) ([]domain.Draft, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Draft), args.Error(1)
}

func (m *ResponseRepositoryMock) InsertResponses(ctx context.Context, tx *sqlx.Tx, requestID int64, answers []domain.Answer, at time.Time) error {
	args := m.Called(ctx, tx, requestID, answers, at)
	return args.Error(0)
}

func (m *ResponseRepositoryMock) DeleteDrafts(ctx context.Context, tx *sqlx.Tx, requestID int64) error {
	args := m.Called(ctx, tx, requestID)
	return args.Error(0)
}

func (m *ResponseRepositoryMock) ListReceived(ctx context.Context, requesterID, cycleID int64) ([]domain.ReceivedAnswer, error) {
	args := m.Called(ctx, requesterID, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReceivedAnswer), args.Error(1)
}

type RejectionRepositoryMock struct {
	mock.Mock
}

var _ repository.RejectionRepository = (*RejectionRepositoryMock)(nil)

func (m *RejectionRepositoryMock) Create(ctx context.Context, tx *sqlx.Tx, rec *domain.RejectionRecord) error {
	args := m.Called(ctx, tx, rec)
	return args.Error(0)
}

func (m *RejectionRepositoryMock) List(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.RejectionRecord), args.Error(1)
}

func (m *RejectionRepositoryMock) MarkViewed(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *RejectionRepositoryMock) CountUnseen(ctx context.Context, cycleID int64) (int, error) {
	args := m.Called(ctx, cycleID)
	return args.Int(0), args.Error(1)
}

type TokenRepositoryMock struct {
	mock.Mock
}

var _ repository.TokenRepository = (*TokenRepositoryMock)(nil)

func (m *TokenRepositoryMock) Create(ctx context.Context, ext sqlx.ExtContext, tok *domain.ExternalToken) error {
	args := m.Called(ctx, ext, tok)
	return args.Error(0)
}

func (m *TokenRepositoryMock) ListUsableByEmail(ctx context.Context, email string) ([]domain.ExternalToken, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ExternalToken), args.Error(1)
}

func (m *TokenRepositoryMock) LockByRequest(ctx context.Context, tx *sqlx.Tx, requestID int64) (*domain.ExternalToken, error) {
	args := m.Called(ctx, tx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExternalToken), args.Error(1)
}

func (m *TokenRepositoryMock) SetStatus(ctx context.Context, tx *sqlx.Tx, id int64, status domain.TokenStatus, at time.Time) error {
	args := m.Called(ctx, tx, id, status, at)
	return args.Error(0)
}

type OutboxRepositoryMock struct {
	mock.Mock
}

var _ repository.OutboxRepository = (*OutboxRepositoryMock)(nil)

func (m *OutboxRepositoryMock) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) ClaimBatch(ctx context.Context, tx *sqlx.Tx, afterID int64, limit, maxAttempts int) ([]domain.OutboxMessage, error) {
	args := m.Called(ctx, tx, afterID, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.OutboxMessage), args.Error(1)
}

func (m *OutboxRepositoryMock) MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string, at time.Time) error {
	args := m.Called(ctx, tx, id, reason, at)
	return args.Error(0)
}

func (m *OutboxRepositoryMock) Stats(ctx context.Context) (*domain.OutboxStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.OutboxStats), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

var _ Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Notify(ctx context.Context, note notify.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) DispatchPending(ctx context.Context) (*notify.DispatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*notify.DispatchResult), args.Error(1)
}
