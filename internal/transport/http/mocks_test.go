package http

import (
	"context"
	"time"

	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

// stubTokens resolves bearer tokens from a fixed table.
type stubTokens map[string]*auth.Claims

func (s stubTokens) Parse(token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}

	return nil, auth.ErrInvalidToken
}

type PingerMock struct {
	mock.Mock
}

func (m *PingerMock) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type UserServiceMock struct {
	mock.Mock
}

func (m *UserServiceMock) CreateUser(ctx context.Context, in service.UserInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserServiceMock) UpdateUser(ctx context.Context, id int64, in service.UserInput) (*domain.User, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserServiceMock) SetActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserServiceMock) GetUser(ctx context.Context, id int64) (*service.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.Profile), args.Error(1)
}

func (m *UserServiceMock) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *UserServiceMock) ListVerticals(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *UserServiceMock) DirectReports(ctx context.Context, managerID int64) ([]domain.User, error) {
	args := m.Called(ctx, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *UserServiceMock) SelectionCandidates(ctx context.Context, requesterID int64) ([]domain.ReviewerCandidate, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewerCandidate), args.Error(1)
}

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (*service.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *AuthServiceMock) SetPassword(ctx context.Context, email, password string) (*service.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *AuthServiceMock) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type CycleServiceMock struct {
	mock.Mock
}

func (m *CycleServiceMock) CreateCycle(ctx context.Context, in service.CreateCycleInput) (*domain.Cycle, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleServiceMock) CompleteCycle(ctx context.Context, actorID int64, notes string) (*service.CycleCompletion, error) {
	args := m.Called(ctx, actorID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.CycleCompletion), args.Error(1)
}

func (m *CycleServiceMock) ActiveCycle(ctx context.Context) (*domain.Cycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Cycle), args.Error(1)
}

func (m *CycleServiceMock) ListCycles(ctx context.Context) ([]domain.Cycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Cycle), args.Error(1)
}

func (m *CycleServiceMock) CurrentPhase(ctx context.Context) (domain.CyclePhase, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CyclePhase), args.Error(1)
}

func (m *CycleServiceMock) ExtendDeadline(ctx context.Context, in service.ExtendDeadlineInput) (*domain.DeadlineExtension, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.DeadlineExtension), args.Error(1)
}

func (m *CycleServiceMock) ListExtensions(ctx context.Context) ([]domain.DeadlineExtension, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.DeadlineExtension), args.Error(1)
}

func (m *CycleServiceMock) EffectiveDeadline(ctx context.Context, ext sqlx.ExtContext, c *domain.Cycle, userID int64, t domain.DeadlineType) (time.Time, error) {
	args := m.Called(ctx, ext, c, userID, t)
	return args.Get(0).(time.Time), args.Error(1)
}

type NominationServiceMock struct {
	mock.Mock
}

func (m *NominationServiceMock) Nominate(ctx context.Context, requesterID int64, in service.NominateInput) (*service.NominationResult, error) {
	args := m.Called(ctx, requesterID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.NominationResult), args.Error(1)
}

func (m *NominationServiceMock) NominationStatus(ctx context.Context, requesterID int64) (*domain.NominationStatus, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.NominationStatus), args.Error(1)
}

type ApprovalServiceMock struct {
	mock.Mock
}

func (m *ApprovalServiceMock) PendingApprovals(ctx context.Context, managerID int64) ([]domain.PendingApproval, error) {
	args := m.Called(ctx, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PendingApproval), args.Error(1)
}

func (m *ApprovalServiceMock) Decide(ctx context.Context, in service.DecisionInput) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

type ReviewServiceMock struct {
	mock.Mock
}

func (m *ReviewServiceMock) assignments(args mock.Arguments) ([]domain.ReviewAssignment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewAssignment), args.Error(1)
}

func (m *ReviewServiceMock) PendingAcceptance(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return m.assignments(m.Called(ctx, reviewerID))
}

func (m *ReviewServiceMock) PendingReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return m.assignments(m.Called(ctx, reviewerID))
}

func (m *ReviewServiceMock) CompletedReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return m.assignments(m.Called(ctx, reviewerID))
}

func (m *ReviewServiceMock) Respond(ctx context.Context, reviewerID int64, in service.RespondInput) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, reviewerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

func (m *ReviewServiceMock) Form(ctx context.Context, reviewerID, requestID int64) (*service.ReviewForm, error) {
	args := m.Called(ctx, reviewerID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.ReviewForm), args.Error(1)
}

func (m *ReviewServiceMock) SaveDraft(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) error {
	return m.Called(ctx, reviewerID, requestID, answers).Error(0)
}

func (m *ReviewServiceMock) Submit(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, reviewerID, requestID, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

type ExternalServiceMock struct {
	mock.Mock
}

func (m *ExternalServiceMock) Authenticate(ctx context.Context, email, token string) (*service.ExternalSession, error) {
	args := m.Called(ctx, email, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.ExternalSession), args.Error(1)
}

func (m *ExternalServiceMock) View(ctx context.Context, rv service.Reviewer) (*service.ReviewForm, error) {
	args := m.Called(ctx, rv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.ReviewForm), args.Error(1)
}

func (m *ExternalServiceMock) Respond(ctx context.Context, rv service.Reviewer, decision service.Decision, reason string) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, rv, decision, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

func (m *ExternalServiceMock) SaveDraft(ctx context.Context, rv service.Reviewer, answers []domain.Answer) error {
	return m.Called(ctx, rv, answers).Error(0)
}

func (m *ExternalServiceMock) Drafts(ctx context.Context, rv service.Reviewer) ([]domain.Draft, error) {
	args := m.Called(ctx, rv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Draft), args.Error(1)
}

func (m *ExternalServiceMock) Submit(ctx context.Context, rv service.Reviewer, answers []domain.Answer) (*domain.FeedbackRequest, error) {
	args := m.Called(ctx, rv, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackRequest), args.Error(1)
}

type FeedbackServiceMock struct {
	mock.Mock
}

func (m *FeedbackServiceMock) Received(ctx context.Context, viewerID, userID, cycleID int64) ([]domain.ReceivedFeedback, error) {
	args := m.Called(ctx, viewerID, userID, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReceivedFeedback), args.Error(1)
}

func (m *FeedbackServiceMock) Progress(ctx context.Context, userID int64) (*domain.FeedbackProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FeedbackProgress), args.Error(1)
}

func (m *FeedbackServiceMock) CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.CycleHistory), args.Error(1)
}

type HRServiceMock struct {
	mock.Mock
}

func (m *HRServiceMock) Dashboard(ctx context.Context) (*domain.DashboardMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.DashboardMetrics), args.Error(1)
}

func (m *HRServiceMock) ProgressSummary(ctx context.Context) ([]domain.UserProgress, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.UserProgress), args.Error(1)
}

func (m *HRServiceMock) Rejections(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.RejectionRecord), args.Error(1)
}

func (m *HRServiceMock) MarkRejectionViewed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *HRServiceMock) ReviewerCapacity(ctx context.Context) ([]domain.ReviewerLoad, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewerLoad), args.Error(1)
}

func (m *HRServiceMock) SendReminder(ctx context.Context, in service.ReminderInput) (*service.ReminderResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.ReminderResult), args.Error(1)
}

func (m *HRServiceMock) DispatchNow(ctx context.Context) (*notify.DispatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*notify.DispatchResult), args.Error(1)
}

type SweepServiceMock struct {
	mock.Mock
}

func (m *SweepServiceMock) RunNominationSweep(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.SweepResult), args.Error(1)
}
