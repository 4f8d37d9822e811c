package service

import (
	"context"
	"fmt"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/repository"
)

type FeedbackService interface {
	Received(ctx context.Context, viewerID, userID, cycleID int64) ([]domain.ReceivedFeedback, error)
	Progress(ctx context.Context, userID int64) (*domain.FeedbackProgress, error)
	CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error)
}

type FeedbackServiceImpl struct {
	BaseService
	cycles    CycleService
	users     repository.UserRepository
	query     repository.RequestQueryRepository
	responses repository.ResponseRepository
}

func NewFeedbackService(
	base BaseService,
	cycles CycleService,
	users repository.UserRepository,
	query repository.RequestQueryRepository,
	responses repository.ResponseRepository,
) *FeedbackServiceImpl {
	return &FeedbackServiceImpl{
		BaseService: base,
		cycles:      cycles,
		users:       users,
		query:       query,
		responses:   responses,
	}
}

// Received returns the completed feedback about userID, one entry per request.
// The user, their direct manager and HR may read it. Reviewer identity is never included.
// A zero cycleID covers every cycle.
func (s *FeedbackServiceImpl) Received(ctx context.Context, viewerID, userID, cycleID int64) ([]domain.ReceivedFeedback, error) {
	const op = "internal.service.feedback.Received"

	if viewerID != userID {
		viewer, err := s.users.GetByID(ctx, s.ext, viewerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		subject, err := s.users.GetByID(ctx, s.ext, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if viewer.Role != domain.RoleHR && subject.ManagerEmail != domain.NormalizeEmail(viewer.Email) {
			return nil, fmt.Errorf("%s: %w: only the user, their manager or HR can read this feedback", op, apperrors.ErrForbidden)
		}
	}

	answers, err := s.responses.ListReceived(ctx, userID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return groupReceived(answers), nil
}

func groupReceived(answers []domain.ReceivedAnswer) []domain.ReceivedFeedback {
	var out []domain.ReceivedFeedback

	index := make(map[int64]int)

	for _, a := range answers {
		i, ok := index[a.RequestID]
		if !ok {
			i = len(out)
			index[a.RequestID] = i
			out = append(out, domain.ReceivedFeedback{
				RequestID:        a.RequestID,
				CycleID:          a.CycleID,
				CycleName:        a.CycleName,
				RelationshipType: a.RelationshipType,
				CompletedAt:      a.CompletedAt,
			})
		}

		out[i].Answers = append(out[i].Answers, a)
	}

	return out
}

func (s *FeedbackServiceImpl) Progress(ctx context.Context, userID int64) (*domain.FeedbackProgress, error) {
	const op = "internal.service.feedback.Progress"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.query.Progress(ctx, c.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *FeedbackServiceImpl) CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error) {
	const op = "internal.service.feedback.CycleHistory"

	out, err := s.query.CycleHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
