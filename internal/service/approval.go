package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type ApprovalService interface {
	PendingApprovals(ctx context.Context, managerID int64) ([]domain.PendingApproval, error)
	Decide(ctx context.Context, in DecisionInput) (*domain.FeedbackRequest, error)
}

type DecisionInput struct {
	RequestID int64
	ManagerID int64
	Decision  Decision
	Reason    string
}

type ApprovalServiceImpl struct {
	BaseService
	cycles      CycleService
	users       repository.UserRepository
	requests    repository.RequestCommandRepository
	query       repository.RequestQueryRepository
	rejections  repository.RejectionRepository
	invitations *Invitations
	notifier    Notifier
}

func NewApprovalService(
	base BaseService,
	cycles CycleService,
	users repository.UserRepository,
	requests repository.RequestCommandRepository,
	query repository.RequestQueryRepository,
	rejections repository.RejectionRepository,
	invitations *Invitations,
	notifier Notifier,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		BaseService: base,
		cycles:      cycles,
		users:       users,
		requests:    requests,
		query:       query,
		rejections:  rejections,
		invitations: invitations,
		notifier:    notifier,
	}
}

func (s *ApprovalServiceImpl) PendingApprovals(ctx context.Context, managerID int64) ([]domain.PendingApproval, error) {
	const op = "internal.service.approval.PendingApprovals"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.users.GetByID(ctx, s.ext, managerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.query.ListPendingApprovals(ctx, c.ID, m.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Decide applies the direct manager's decision on a pending nomination.
func (s *ApprovalServiceImpl) Decide(ctx context.Context, in DecisionInput) (*domain.FeedbackRequest, error) {
	const op = "internal.service.approval.Decide"
	log := s.log.With(
		slog.String("op", op),
		slog.Int64("request_id", in.RequestID),
		slog.Int64("manager_id", in.ManagerID),
		slog.String("decision", string(in.Decision)),
	)

	event, reason, err := managerEvent(in)
	if err != nil {
		return nil, err
	}

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var (
		updated      *domain.FeedbackRequest
		applied      domain.Transition
		requester    *domain.User
		reviewerName string
		inv          *Invitation
	)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		req, err := s.requests.LockByID(ctx, tx, in.RequestID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if req.CycleID != c.ID {
			return apperrors.Policy(apperrors.CodeCycleInactive, "this request belongs to a cycle that is no longer active")
		}

		manager, err := s.users.GetByID(ctx, tx, in.ManagerID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		requester, err = s.users.GetByID(ctx, tx, req.RequesterID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if requester.ManagerEmail == "" || requester.ManagerEmail != domain.NormalizeEmail(manager.Email) {
			return apperrors.Policy(apperrors.CodeNotDirectManager, "only the requester's direct manager can decide on this nomination")
		}

		to, err := workflow.Transition(req.State, event)
		if err != nil {
			return err
		}

		applied = domain.Transition{
			RequestID: req.ID,
			From:      req.State,
			To:        to,
			Event:     event,
			ActorID:   ptr(manager.ID),
			Reason:    reason,
			At:        now,
		}

		updated, err = s.requests.ApplyTransition(ctx, tx, applied)
		if err != nil {
			return err
		}

		reviewerName, err = s.reviewerName(ctx, tx, updated)
		if err != nil {
			return err
		}

		if event == workflow.EventManagerReject {
			err := s.rejections.Create(ctx, tx, &domain.RejectionRecord{
				RequestID:          updated.ID,
				CycleID:            updated.CycleID,
				Type:               domain.RejectionByManager,
				RequesterID:        updated.RequesterID,
				RejectedReviewerID: updated.ReviewerID,
				ExternalEmail:      updated.ExternalEmail,
				RejectedBy:         ptr(manager.ID),
				RejectedByEmail:    manager.Email,
				Reason:             reason,
				RejectedAt:         now,
			})
			if err != nil {
				return fmt.Errorf("%s: failed to record rejection: %w", op, err)
			}

			return nil
		}

		inv, err = s.invitations.Issue(ctx, tx, updated)

		return err
	})
	if err != nil {
		return nil, err
	}

	recordTransitions(applied)

	log.Info("nomination decided", slog.String("state", string(updated.State)))

	if event == workflow.EventManagerReject {
		notifyQuietly(ctx, s.notifier, notify.Notification{
			Category: notify.CategoryNominationRejected,
			To:       requester.Email,
			Data: notify.NominationData{
				RequesterName: requester.FullName(),
				ReviewerName:  reviewerName,
				CycleName:     c.DisplayName,
				Reason:        reason,
			},
			RequestID: ptr(updated.ID),
			CycleID:   ptr(c.ID),
		})

		return updated, nil
	}

	notifyQuietly(ctx, s.notifier, notify.Notification{
		Category: notify.CategoryNominationApproved,
		To:       requester.Email,
		Data: notify.NominationData{
			RequesterName: requester.FullName(),
			ReviewerName:  reviewerName,
			CycleName:     c.DisplayName,
		},
		RequestID: ptr(updated.ID),
		CycleID:   ptr(c.ID),
	})

	s.invitations.Send(ctx, s.ext, c, inv)

	return updated, nil
}

func managerEvent(in DecisionInput) (workflow.Event, string, error) {
	reason := strings.TrimSpace(in.Reason)

	switch in.Decision {
	case DecisionApprove:
		return workflow.EventApprove, reason, nil
	case DecisionReject:
		if reason == "" {
			return "", "", apperrors.Validation(apperrors.CodeReasonRequired, "a reason is required to reject a nomination")
		}

		return workflow.EventManagerReject, reason, nil
	}

	return "", "", apperrors.Validation(apperrors.CodeInvalidDecision, "decision must be %q or %q", DecisionApprove, DecisionReject)
}

func (s *ApprovalServiceImpl) reviewerName(ctx context.Context, ext sqlx.ExtContext, req *domain.FeedbackRequest) (string, error) {
	const op = "internal.service.approval.reviewerName"

	if req.IsExternal() {
		if req.ExternalName != "" {
			return req.ExternalName, nil
		}

		return *req.ExternalEmail, nil
	}

	u, err := s.users.GetByID(ctx, ext, *req.ReviewerID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return u.FullName(), nil
}
