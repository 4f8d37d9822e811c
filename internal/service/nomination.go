package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/limits"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

type NominationService interface {
	Nominate(ctx context.Context, requesterID int64, in NominateInput) (*NominationResult, error)
	NominationStatus(ctx context.Context, requesterID int64) (*domain.NominationStatus, error)
}

type ExternalNominee struct {
	Email string
	Name  string
}

type NominateInput struct {
	Reviewers []int64
	Externals []ExternalNominee
}

func (in NominateInput) size() int {
	return len(in.Reviewers) + len(in.Externals)
}

type NominationResult struct {
	Created   []domain.FeedbackRequest
	Active    int
	Remaining int
}

type NominationServiceImpl struct {
	BaseService
	cycles      CycleService
	users       repository.UserRepository
	requests    repository.RequestCommandRepository
	query       repository.RequestQueryRepository
	accountant  *limits.Accountant
	eligibility Eligibility
	notifier    Notifier
	loc         *time.Location
}

func NewNominationService(
	base BaseService,
	cycles CycleService,
	users repository.UserRepository,
	requests repository.RequestCommandRepository,
	query repository.RequestQueryRepository,
	eligibility Eligibility,
	notifier Notifier,
	loc *time.Location,
) *NominationServiceImpl {
	return &NominationServiceImpl{
		BaseService: base,
		cycles:      cycles,
		users:       users,
		requests:    requests,
		query:       query,
		accountant:  limits.NewAccountant(requests),
		eligibility: eligibility,
		notifier:    notifier,
		loc:         loc,
	}
}

// Nominate creates one request per nominee. The batch is admitted or rejected as a whole.
func (s *NominationServiceImpl) Nominate(ctx context.Context, requesterID int64, in NominateInput) (*NominationResult, error) {
	const op = "internal.service.nomination.Nominate"
	log := s.log.With(slog.String("op", op), slog.Int64("requester_id", requesterID))

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	externals, err := checkBatch(requesterID, in)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var (
		requester *domain.User
		manager   string
		reviewers []string
		created   []domain.FeedbackRequest
		usage     *limits.Usage
	)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		locked, err := s.users.LockByIDs(ctx, tx, append([]int64{requesterID}, in.Reviewers...))
		if err != nil {
			return fmt.Errorf("%s: failed to lock users: %w", op, err)
		}

		byID := make(map[int64]*domain.User, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		requester = byID[requesterID]

		if err := s.checkRequester(ctx, tx, c, requester, now); err != nil {
			return err
		}

		reqs := make([]domain.FeedbackRequest, 0, in.size())

		for _, id := range in.Reviewers {
			rv := byID[id]

			if !rv.IsActive {
				return apperrors.Validation(apperrors.CodeReviewerInactive, "%s is no longer active", rv.FullName())
			}

			if !s.eligibility.CanReview(rv, now) {
				return apperrors.Validation(apperrors.CodeNotEligible,
					"%s joined too recently to give feedback in this cycle", rv.FullName())
			}

			party := rv.Party()

			rel, err := relationship.Classify(requester.Party(), &party)
			if err != nil {
				return err
			}

			reqs = append(reqs, domain.FeedbackRequest{
				CycleID:          c.ID,
				RequesterID:      requester.ID,
				ReviewerID:       ptr(rv.ID),
				RelationshipType: rel,
				State:            workflow.PendingManagerApproval,
			})
			reviewers = append(reviewers, rv.FullName())
		}

		if len(externals) > 0 && !relationship.CanNominateExternal(requester.ManagerLevel()) {
			return apperrors.Policy(apperrors.CodeExternalNotAllowed,
				"only senior managers and above can request feedback from external stakeholders")
		}

		for _, ex := range externals {
			if ex.Email == requester.Email {
				return apperrors.Validation(apperrors.CodeSelfNomination, "you cannot nominate yourself")
			}

			if ex.Email == requester.ManagerEmail {
				return apperrors.Validation(apperrors.CodeOwnManager, "cannot nominate your own direct manager")
			}

			emp, err := s.users.GetByEmail(ctx, tx, ex.Email)
			switch {
			case err == nil && emp.IsActive:
				return apperrors.Validation(apperrors.CodeEmployeeAsExternal,
					"%s belongs to an employee, nominate them as an internal reviewer", ex.Email)
			case err != nil && !errors.Is(err, apperrors.ErrNotFound):
				return fmt.Errorf("%s: failed to look up external email: %w", op, err)
			}

			reqs = append(reqs, domain.FeedbackRequest{
				CycleID:          c.ID,
				RequesterID:      requester.ID,
				ExternalEmail:    ptr(ex.Email),
				ExternalName:     ex.Name,
				RelationshipType: relationship.ExternalStakeholder,
				State:            workflow.PendingManagerApproval,
			})
			reviewers = append(reviewers, externalLabel(ex))
		}

		if err := s.checkRenomination(ctx, tx, c.ID, requester.ID, in.Reviewers, externals); err != nil {
			return err
		}

		usage, err = s.accountant.Check(ctx, tx, c.ID, requester.ID, len(reqs), in.Reviewers)
		if err != nil {
			return err
		}

		created, err = s.requests.CreateBatch(ctx, tx, reqs)
		if err != nil {
			return err
		}

		manager = requester.ManagerEmail

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("nominations created", slog.Int("count", len(created)), slog.Int("remaining", usage.Remaining))

	s.notifyManager(ctx, c, requester, manager, reviewers)

	return &NominationResult{
		Created:   created,
		Active:    usage.Active + len(created),
		Remaining: usage.Remaining,
	}, nil
}

// checkBatch validates the batch shape before anything is locked and returns the
// external nominees with normalised emails.
func checkBatch(requesterID int64, in NominateInput) ([]ExternalNominee, error) {
	if in.size() == 0 {
		return nil, apperrors.Validation(apperrors.CodeEmptyNomination, "select at least one reviewer")
	}

	seen := make(map[int64]struct{}, len(in.Reviewers))
	for _, id := range in.Reviewers {
		if id == requesterID {
			return nil, apperrors.Validation(apperrors.CodeSelfNomination, "you cannot nominate yourself")
		}

		if _, dup := seen[id]; dup {
			return nil, apperrors.Validation(apperrors.CodeDuplicateNomination, "the same reviewer is selected more than once")
		}

		seen[id] = struct{}{}
	}

	out := make([]ExternalNominee, 0, len(in.Externals))
	emails := make(map[string]struct{}, len(in.Externals))

	for _, ex := range in.Externals {
		email := domain.NormalizeEmail(ex.Email)
		if email == "" {
			return nil, apperrors.Validation(apperrors.CodeEmptyNomination, "an external reviewer needs an email address")
		}

		if _, dup := emails[email]; dup {
			return nil, apperrors.Validation(apperrors.CodeDuplicateNomination, "%s is listed more than once", email)
		}

		emails[email] = struct{}{}
		out = append(out, ExternalNominee{Email: email, Name: strings.TrimSpace(ex.Name)})
	}

	return out, nil
}

func (s *NominationServiceImpl) checkRequester(ctx context.Context, tx *sqlx.Tx, c *domain.Cycle, u *domain.User, now time.Time) error {
	const op = "internal.service.nomination.checkRequester"

	if !u.IsActive {
		return apperrors.Policy(apperrors.CodeUserInactive, "your account is not active")
	}

	if !s.eligibility.CanRequest(u) {
		return apperrors.Policy(apperrors.CodeNotEligible,
			"employees who joined after %s are not part of this cycle", s.eligibility.Cutoff.Format(dateLayout))
	}

	deadline, err := s.cycles.EffectiveDeadline(ctx, tx, c, u.ID, domain.DeadlineNomination)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if clock.Passed(deadline, now, s.loc) {
		return apperrors.Policy(apperrors.CodeDeadlinePassed,
			"the nomination deadline of %s has passed", deadline.Format(dateLayout))
	}

	if u.ManagerEmail == "" {
		return apperrors.Validation(apperrors.CodeNoManager,
			"you have no manager on record to approve nominations, contact HR")
	}

	return nil
}

// checkRenomination blocks nominating someone the requester already nominated in the
// cycle, whatever happened to that request.
func (s *NominationServiceImpl) checkRenomination(ctx context.Context, tx *sqlx.Tx, cycleID, requesterID int64, reviewerIDs []int64, externals []ExternalNominee) error {
	const op = "internal.service.nomination.checkRenomination"

	existing, err := s.query.ListByRequester(ctx, tx, cycleID, requesterID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, req := range existing {
		for _, id := range reviewerIDs {
			if req.ReviewerID != nil && *req.ReviewerID == id {
				return apperrors.Validation(apperrors.CodeDuplicateNomination,
					"you have already nominated this reviewer in this cycle (request %d is %s)", req.ID, req.State.DisplayStatus())
			}
		}

		for _, ex := range externals {
			if req.ExternalEmail != nil && strings.EqualFold(*req.ExternalEmail, ex.Email) {
				return apperrors.Validation(apperrors.CodeDuplicateNomination,
					"you have already nominated %s in this cycle", ex.Email)
			}
		}
	}

	return nil
}

func (s *NominationServiceImpl) notifyManager(ctx context.Context, c *domain.Cycle, requester *domain.User, managerEmail string, reviewers []string) {
	const op = "internal.service.nomination.notifyManager"

	data := notify.ApprovalRequestData{
		RequesterName: requester.FullName(),
		CycleName:     c.DisplayName,
		Reviewers:     reviewers,
		Deadline:      c.NominationDeadline.Format(dateLayout),
	}

	m, err := s.users.GetByEmail(ctx, s.ext, managerEmail)
	switch {
	case err == nil:
		data.ManagerName = m.FullName()
	case errors.Is(err, apperrors.ErrNotFound):
		s.log.Warn("manager has no user record", slog.String("op", op), slog.String("manager_email", managerEmail))
	default:
		s.log.Warn("failed to load manager", slog.String("op", op), sl.Err(err))
	}

	notifyQuietly(ctx, s.notifier, notify.Notification{
		Category: notify.CategoryApprovalRequest,
		To:       managerEmail,
		Data:     data,
		CycleID:  ptr(c.ID),
	})
}

func (s *NominationServiceImpl) NominationStatus(ctx context.Context, requesterID int64) (*domain.NominationStatus, error) {
	const op = "internal.service.nomination.NominationStatus"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	noms, err := s.query.ListNominations(ctx, c.ID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	active := 0
	for _, n := range noms {
		if n.State.CountsTowardLimit() {
			active++
		}
	}

	return &domain.NominationStatus{
		CycleID:     c.ID,
		Active:      active,
		Remaining:   limits.Remaining(active),
		Nominations: noms,
	}, nil
}

func externalLabel(ex ExternalNominee) string {
	if ex.Name == "" {
		return ex.Email + " (external)"
	}

	return fmt.Sprintf("%s <%s> (external)", ex.Name, ex.Email)
}
