package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/limits"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
)

type Dispatcher interface {
	DispatchPending(ctx context.Context) (*notify.DispatchResult, error)
}

type HRService interface {
	Dashboard(ctx context.Context) (*domain.DashboardMetrics, error)
	ProgressSummary(ctx context.Context) ([]domain.UserProgress, error)
	Rejections(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error)
	MarkRejectionViewed(ctx context.Context, id int64) error
	ReviewerCapacity(ctx context.Context) ([]domain.ReviewerLoad, error)
	SendReminder(ctx context.Context, in ReminderInput) (*ReminderResult, error)
	DispatchNow(ctx context.Context) (*notify.DispatchResult, error)
}

// ReminderInput addresses a composed message either to an audience of the active
// cycle or to explicit users. Explicit recipients win when both are given.
type ReminderInput struct {
	Subject    string
	Body       string
	Audience   domain.Audience
	Recipients []int64
}

type ReminderOutcome struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}

type ReminderResult struct {
	Queued   int               `json:"queued"`
	Failed   int               `json:"failed"`
	Outcomes []ReminderOutcome `json:"outcomes"`
}

type HRServiceImpl struct {
	BaseService
	cycles     CycleService
	users      repository.UserRepository
	reports    repository.ReportRepository
	rejections repository.RejectionRepository
	outbox     repository.OutboxRepository
	notifier   Notifier
	dispatcher Dispatcher
}

func NewHRService(
	base BaseService,
	cycles CycleService,
	users repository.UserRepository,
	reports repository.ReportRepository,
	rejections repository.RejectionRepository,
	outbox repository.OutboxRepository,
	notifier Notifier,
	dispatcher Dispatcher,
) *HRServiceImpl {
	return &HRServiceImpl{
		BaseService: base,
		cycles:      cycles,
		users:       users,
		reports:     reports,
		rejections:  rejections,
		outbox:      outbox,
		notifier:    notifier,
		dispatcher:  dispatcher,
	}
}

func (s *HRServiceImpl) Dashboard(ctx context.Context) (*domain.DashboardMetrics, error) {
	const op = "internal.service.hr.Dashboard"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.reports.CountActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counts, err := s.reports.StateCounts(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unseen, err := s.rejections.CountUnseen(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats, err := s.outbox.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := &domain.DashboardMetrics{
		CycleID:          c.ID,
		ActiveUsers:      users,
		ByState:          make(map[string]int, len(workflow.AllStates)),
		UnseenRejections: unseen,
		Notifications:    *stats,
	}

	for _, st := range workflow.AllStates {
		m.ByState[string(st)] = 0
	}

	active := 0

	for _, sc := range counts {
		m.ByState[string(sc.State)] = sc.Count
		m.TotalRequests += sc.Count

		if sc.State.CountsTowardLimit() {
			active += sc.Count
		}
	}

	m.PendingApprovals = m.ByState[string(workflow.PendingManagerApproval)]

	if active > 0 {
		m.CompletionRate = float64(m.ByState[string(workflow.Completed)]) * 100 / float64(active)
	}

	return m, nil
}

func (s *HRServiceImpl) ProgressSummary(ctx context.Context) ([]domain.UserProgress, error) {
	const op = "internal.service.hr.ProgressSummary"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.reports.ProgressSummary(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *HRServiceImpl) Rejections(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error) {
	const op = "internal.service.hr.Rejections"

	out, err := s.rejections.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *HRServiceImpl) MarkRejectionViewed(ctx context.Context, id int64) error {
	const op = "internal.service.hr.MarkRejectionViewed"

	if err := s.rejections.MarkViewed(ctx, id, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *HRServiceImpl) ReviewerCapacity(ctx context.Context) ([]domain.ReviewerLoad, error) {
	const op = "internal.service.hr.ReviewerCapacity"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	loads, err := s.reports.ReviewerLoads(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range loads {
		loads[i].AtCapacity = limits.AtCapacity(loads[i].ActiveRequests)
	}

	return loads, nil
}

// SendReminder queues one reminder per recipient and reports each outcome.
// A failure for one recipient does not stop the others.
func (s *HRServiceImpl) SendReminder(ctx context.Context, in ReminderInput) (*ReminderResult, error) {
	const op = "internal.service.hr.SendReminder"
	log := s.log.With(slog.String("op", op), slog.String("audience", string(in.Audience)))

	subject, body := strings.TrimSpace(in.Subject), strings.TrimSpace(in.Body)
	if subject == "" || body == "" {
		return nil, apperrors.Validation(apperrors.CodeEmptyMessage, "a reminder needs both a subject and a message")
	}

	recipients, res, err := s.recipients(ctx, in)
	if err != nil {
		return nil, err
	}

	for _, r := range recipients {
		out := ReminderOutcome{UserID: r.UserID, Name: r.Name, Email: r.Email}

		err := s.notifier.Notify(ctx, notify.Notification{
			Category: notify.CategoryReminder,
			To:       r.Email,
			Data:     notify.ReminderData{Name: r.Name, Subject: subject, Body: body},
		})
		if err != nil {
			out.Error = "could not be queued"
			res.Failed++
		} else {
			out.Queued = true
			res.Queued++
		}

		res.Outcomes = append(res.Outcomes, out)
	}

	log.Info("reminders queued", slog.Int("queued", res.Queued), slog.Int("failed", res.Failed))

	return res, nil
}

func (s *HRServiceImpl) recipients(ctx context.Context, in ReminderInput) ([]domain.Recipient, *ReminderResult, error) {
	const op = "internal.service.hr.recipients"

	res := &ReminderResult{}

	if len(in.Recipients) > 0 {
		out := make([]domain.Recipient, 0, len(in.Recipients))

		for _, id := range in.Recipients {
			u, err := s.users.GetByID(ctx, s.ext, id)
			if err != nil {
				if !apperrors.IsInfrastructure(err) {
					res.Failed++
					res.Outcomes = append(res.Outcomes, ReminderOutcome{UserID: id, Error: "user not found"})

					continue
				}

				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}

			out = append(out, domain.Recipient{UserID: u.ID, Name: u.FullName(), Email: u.Email})
		}

		return out, res, nil
	}

	if !in.Audience.Valid() {
		return nil, nil, apperrors.Validation(apperrors.CodeUnknownAudience,
			"choose recipients or one of the audiences %q, %q, %q",
			domain.AudiencePendingNominations, domain.AudiencePendingApprovals, domain.AudiencePendingReviews)
	}

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, nil, err
	}

	out, err := s.reports.Audience(ctx, c.ID, in.Audience)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, res, nil
}

func (s *HRServiceImpl) DispatchNow(ctx context.Context) (*notify.DispatchResult, error) {
	return s.dispatcher.DispatchPending(ctx)
}
