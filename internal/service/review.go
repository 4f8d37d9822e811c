package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

const DecisionAccept Decision = "accept"

// Reviewer is the party acting on a request as its reviewer: an employee, or an external
// stakeholder whose session is scoped to a single request.
type Reviewer struct {
	UserID    int64
	Email     string
	Name      string
	RequestID int64
}

func (r Reviewer) External() bool {
	return r.UserID == 0
}

func (r Reviewer) designated(req *domain.FeedbackRequest) bool {
	if r.External() {
		return req.IsExternal() && req.ID == r.RequestID &&
			req.ExternalEmail != nil && strings.EqualFold(*req.ExternalEmail, r.Email)
	}

	return req.ReviewerID != nil && *req.ReviewerID == r.UserID
}

type RespondInput struct {
	RequestID int64
	Decision  Decision
	Reason    string
}

// ReviewForm is everything a reviewer needs to fill in feedback for one request.
type ReviewForm struct {
	Assignment *domain.ReviewAssignment
	Questions  []domain.Question
	Drafts     []domain.Draft
	Deadline   time.Time
}

type ReviewService interface {
	PendingAcceptance(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error)
	PendingReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error)
	CompletedReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error)
	Respond(ctx context.Context, reviewerID int64, in RespondInput) (*domain.FeedbackRequest, error)
	Form(ctx context.Context, reviewerID, requestID int64) (*ReviewForm, error)
	SaveDraft(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) error
	Submit(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) (*domain.FeedbackRequest, error)
}

// txHook runs inside the transaction of a reviewer action after the transition is written.
type txHook func(tx *sqlx.Tx, req *domain.FeedbackRequest) error

type ReviewServiceImpl struct {
	BaseService
	cycles     CycleService
	users      repository.UserRepository
	requests   repository.RequestCommandRepository
	query      repository.RequestQueryRepository
	questions  repository.QuestionRepository
	responses  repository.ResponseRepository
	rejections repository.RejectionRepository
	notifier   Notifier
	loc        *time.Location
}

func NewReviewService(
	base BaseService,
	cycles CycleService,
	users repository.UserRepository,
	requests repository.RequestCommandRepository,
	query repository.RequestQueryRepository,
	questions repository.QuestionRepository,
	responses repository.ResponseRepository,
	rejections repository.RejectionRepository,
	notifier Notifier,
	loc *time.Location,
) *ReviewServiceImpl {
	return &ReviewServiceImpl{
		BaseService: base,
		cycles:      cycles,
		users:       users,
		requests:    requests,
		query:       query,
		questions:   questions,
		responses:   responses,
		rejections:  rejections,
		notifier:    notifier,
		loc:         loc,
	}
}

func (s *ReviewServiceImpl) PendingAcceptance(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return s.assignments(ctx, reviewerID, workflow.PendingReviewerAcceptance)
}

func (s *ReviewServiceImpl) PendingReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return s.assignments(ctx, reviewerID, workflow.InProgress)
}

func (s *ReviewServiceImpl) CompletedReviews(ctx context.Context, reviewerID int64) ([]domain.ReviewAssignment, error) {
	return s.assignments(ctx, reviewerID, workflow.Completed)
}

func (s *ReviewServiceImpl) assignments(ctx context.Context, reviewerID int64, states ...workflow.State) ([]domain.ReviewAssignment, error) {
	const op = "internal.service.review.assignments"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.query.ListAssignments(ctx, c.ID, reviewerID, states)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *ReviewServiceImpl) Respond(ctx context.Context, reviewerID int64, in RespondInput) (*domain.FeedbackRequest, error) {
	rv, err := s.employee(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	return s.respond(ctx, rv, in, nil)
}

func (s *ReviewServiceImpl) Form(ctx context.Context, reviewerID, requestID int64) (*ReviewForm, error) {
	rv, err := s.employee(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	return s.form(ctx, rv, requestID)
}

func (s *ReviewServiceImpl) SaveDraft(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) error {
	rv, err := s.employee(ctx, reviewerID)
	if err != nil {
		return err
	}

	return s.saveDraft(ctx, rv, requestID, answers)
}

func (s *ReviewServiceImpl) Submit(ctx context.Context, reviewerID, requestID int64, answers []domain.Answer) (*domain.FeedbackRequest, error) {
	rv, err := s.employee(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	return s.submit(ctx, rv, requestID, answers, nil)
}

func (s *ReviewServiceImpl) employee(ctx context.Context, id int64) (Reviewer, error) {
	const op = "internal.service.review.employee"

	u, err := s.users.GetByID(ctx, s.ext, id)
	if err != nil {
		return Reviewer{}, fmt.Errorf("%s: %w", op, err)
	}

	return Reviewer{UserID: u.ID, Email: u.Email, Name: u.FullName()}, nil
}

func (s *ReviewServiceImpl) respond(ctx context.Context, rv Reviewer, in RespondInput, hook txHook) (*domain.FeedbackRequest, error) {
	const op = "internal.service.review.Respond"
	log := s.log.With(
		slog.String("op", op),
		slog.Int64("request_id", in.RequestID),
		slog.String("decision", string(in.Decision)),
		slog.Bool("external", rv.External()),
	)

	reason := strings.TrimSpace(in.Reason)

	var event workflow.Event

	switch in.Decision {
	case DecisionAccept:
		event = workflow.EventAccept
	case DecisionReject:
		if reason == "" {
			return nil, apperrors.Validation(apperrors.CodeReasonRequired, "a reason is required to decline a feedback request")
		}

		event = workflow.EventReviewerReject
	default:
		return nil, apperrors.Validation(apperrors.CodeInvalidDecision, "decision must be %q or %q", DecisionAccept, DecisionReject)
	}

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var (
		updated *domain.FeedbackRequest
		applied domain.Transition
	)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		req, err := s.requests.LockByID(ctx, tx, in.RequestID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := checkReviewer(rv, req, c); err != nil {
			return err
		}

		to, err := workflow.Transition(req.State, event)
		if err != nil {
			return err
		}

		applied = domain.Transition{RequestID: req.ID, From: req.State, To: to, Event: event, Reason: reason, At: now}
		if !rv.External() {
			applied.ActorID = ptr(rv.UserID)
		}

		updated, err = s.requests.ApplyTransition(ctx, tx, applied)
		if err != nil {
			return err
		}

		if event == workflow.EventReviewerReject {
			rec := &domain.RejectionRecord{
				RequestID:          updated.ID,
				CycleID:            updated.CycleID,
				Type:               domain.RejectionByReviewer,
				RequesterID:        updated.RequesterID,
				RejectedReviewerID: updated.ReviewerID,
				ExternalEmail:      updated.ExternalEmail,
				RejectedBy:         applied.ActorID,
				RejectedByEmail:    rv.Email,
				Reason:             reason,
				RejectedAt:         now,
			}
			if err := s.rejections.Create(ctx, tx, rec); err != nil {
				return fmt.Errorf("%s: failed to record rejection: %w", op, err)
			}
		}

		if hook != nil {
			return hook(tx, updated)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordTransitions(applied)

	log.Info("reviewer responded", slog.String("state", string(updated.State)))

	if event == workflow.EventReviewerReject {
		s.notifyRequester(ctx, c, updated, notify.CategoryNominationRejected, rv.label(), reason)
	}

	return updated, nil
}

func (r Reviewer) label() string {
	if r.Name != "" {
		return r.Name
	}

	return r.Email
}

func checkReviewer(rv Reviewer, req *domain.FeedbackRequest, c *domain.Cycle) error {
	if !rv.designated(req) {
		return apperrors.Policy(apperrors.CodeNotDesignatedActor, "only the nominated reviewer can act on this request")
	}

	if req.CycleID != c.ID {
		return apperrors.Policy(apperrors.CodeCycleInactive, "this request belongs to a cycle that is no longer active")
	}

	return nil
}

func (s *ReviewServiceImpl) form(ctx context.Context, rv Reviewer, requestID int64) (*ReviewForm, error) {
	const op = "internal.service.review.Form"

	a, err := s.query.GetAssignment(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !rv.designated(&a.FeedbackRequest) {
		return nil, apperrors.Policy(apperrors.CodeNotDesignatedActor, "only the nominated reviewer can open this request")
	}

	questions, err := s.questions.ListByRelationship(ctx, a.RelationshipType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	form := &ReviewForm{Assignment: a, Questions: questions, Deadline: a.FeedbackDeadline}

	if a.State == workflow.InProgress {
		if form.Drafts, err = s.responses.ListDrafts(ctx, a.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		c, err := s.cycles.ActiveCycle(ctx)
		if err == nil && c.ID == a.CycleID {
			if form.Deadline, err = s.feedbackDeadline(ctx, c, rv); err != nil {
				return nil, err
			}
		}
	}

	return form, nil
}

// editable loads the request and checks that rv may still change its answers.
func (s *ReviewServiceImpl) editable(ctx context.Context, rv Reviewer, requestID int64) (*domain.Cycle, *domain.FeedbackRequest, error) {
	const op = "internal.service.review.editable"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, nil, err
	}

	req, err := s.query.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := checkReviewer(rv, req, c); err != nil {
		return nil, nil, err
	}

	if !workflow.Can(req.State, workflow.EventSubmit) {
		return nil, nil, apperrors.State(apperrors.CodeInvalidTransition,
			"feedback can only be written for accepted requests, this one is %s", req.State.DisplayStatus())
	}

	deadline, err := s.feedbackDeadline(ctx, c, rv)
	if err != nil {
		return nil, nil, err
	}

	if clock.Passed(deadline, s.now(), s.loc) {
		return nil, nil, apperrors.Policy(apperrors.CodeDeadlinePassed,
			"the feedback deadline of %s has passed", deadline.Format(dateLayout))
	}

	return c, req, nil
}

func (s *ReviewServiceImpl) saveDraft(ctx context.Context, rv Reviewer, requestID int64, answers []domain.Answer) error {
	const op = "internal.service.review.SaveDraft"

	_, req, err := s.editable(ctx, rv, requestID)
	if err != nil {
		return err
	}

	questions, err := s.questions.ListByRelationship(ctx, req.RelationshipType)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cleaned, err := checkAnswers(questions, answers, false)
	if err != nil {
		return err
	}

	if err := s.responses.UpsertDrafts(ctx, req.ID, cleaned, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *ReviewServiceImpl) drafts(ctx context.Context, rv Reviewer, requestID int64) ([]domain.Draft, error) {
	const op = "internal.service.review.Drafts"

	req, err := s.query.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !rv.designated(req) {
		return nil, apperrors.Policy(apperrors.CodeNotDesignatedActor, "only the nominated reviewer can open this request")
	}

	out, err := s.responses.ListDrafts(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *ReviewServiceImpl) submit(ctx context.Context, rv Reviewer, requestID int64, answers []domain.Answer, hook txHook) (*domain.FeedbackRequest, error) {
	const op = "internal.service.review.Submit"
	log := s.log.With(slog.String("op", op), slog.Int64("request_id", requestID), slog.Bool("external", rv.External()))

	c, req, err := s.editable(ctx, rv, requestID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.ListByRelationship(ctx, req.RelationshipType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	final, err := checkAnswers(questions, answers, true)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var (
		updated *domain.FeedbackRequest
		applied domain.Transition
	)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		locked, err := s.requests.LockByID(ctx, tx, req.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		to, err := workflow.Transition(locked.State, workflow.EventSubmit)
		if err != nil {
			return err
		}

		if err := s.responses.InsertResponses(ctx, tx, locked.ID, final, now); err != nil {
			return err
		}

		if err := s.responses.DeleteDrafts(ctx, tx, locked.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		applied = domain.Transition{RequestID: locked.ID, From: locked.State, To: to, Event: workflow.EventSubmit, At: now}
		if !rv.External() {
			applied.ActorID = ptr(rv.UserID)
		}

		updated, err = s.requests.ApplyTransition(ctx, tx, applied)
		if err != nil {
			return err
		}

		if hook != nil {
			return hook(tx, updated)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordTransitions(applied)

	log.Info("feedback submitted", slog.Int("answers", len(final)))

	s.notifySubmitted(ctx, c, updated)

	return updated, nil
}

// notifySubmitted tells the requester feedback arrived without saying who wrote it.
func (s *ReviewServiceImpl) notifySubmitted(ctx context.Context, c *domain.Cycle, req *domain.FeedbackRequest) {
	const op = "internal.service.review.notifySubmitted"

	u, err := s.users.GetByID(ctx, s.ext, req.RequesterID)
	if err != nil {
		s.log.Warn("failed to load requester", slog.String("op", op), slog.Int64("request_id", req.ID), sl.Err(err))
		return
	}

	notifyQuietly(ctx, s.notifier, notify.Notification{
		Category: notify.CategoryFeedbackSubmitted,
		To:       u.Email,
		Data: notify.SubmittedData{
			RequesterName: u.FullName(),
			CycleName:     c.DisplayName,
			Relationship:  req.RelationshipType.Label(),
		},
		RequestID: ptr(req.ID),
		CycleID:   ptr(c.ID),
	})
}

func (s *ReviewServiceImpl) notifyRequester(ctx context.Context, c *domain.Cycle, req *domain.FeedbackRequest, category notify.Category, reviewerName, reason string) {
	const op = "internal.service.review.notifyRequester"

	u, err := s.users.GetByID(ctx, s.ext, req.RequesterID)
	if err != nil {
		s.log.Warn("failed to load requester", slog.String("op", op), slog.Int64("request_id", req.ID))
		return
	}

	notifyQuietly(ctx, s.notifier, notify.Notification{
		Category: category,
		To:       u.Email,
		Data: notify.NominationData{
			RequesterName: u.FullName(),
			ReviewerName:  reviewerName,
			CycleName:     c.DisplayName,
			Reason:        reason,
		},
		RequestID: ptr(req.ID),
		CycleID:   ptr(c.ID),
	})
}

// feedbackDeadline is the reviewer's own feedback deadline. External reviewers have
// no extensions and always get the cycle default.
func (s *ReviewServiceImpl) feedbackDeadline(ctx context.Context, c *domain.Cycle, rv Reviewer) (time.Time, error) {
	if rv.External() {
		return c.FeedbackDeadline, nil
	}

	return s.cycles.EffectiveDeadline(ctx, s.ext, c, rv.UserID, domain.DeadlineFeedback)
}
