package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/cache"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/limits"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/YusovID/feedback-360-service/internal/repository"
)

const verticalsKey = "verticals"

type UserService interface {
	CreateUser(ctx context.Context, in UserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, in UserInput) (*domain.User, error)
	SetActive(ctx context.Context, id int64, active bool) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*Profile, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	ListVerticals(ctx context.Context) ([]string, error)
	DirectReports(ctx context.Context, managerID int64) ([]domain.User, error)
	SelectionCandidates(ctx context.Context, requesterID int64) ([]domain.ReviewerCandidate, error)
}

type UserInput struct {
	Email         string
	FirstName     string
	LastName      string
	Vertical      string
	Designation   string
	ManagerEmail  string
	DateOfJoining *time.Time
	Role          domain.Role
}

func (in UserInput) toUser() *domain.User {
	role := in.Role
	if role == "" {
		role = domain.RoleEmployee
	}

	return &domain.User{
		Email:         domain.NormalizeEmail(in.Email),
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Vertical:      strings.TrimSpace(in.Vertical),
		Designation:   strings.TrimSpace(in.Designation),
		ManagerEmail:  domain.NormalizeEmail(in.ManagerEmail),
		DateOfJoining: in.DateOfJoining,
		Role:          role,
		IsActive:      true,
	}
}

// Profile is a user with the capabilities derived from their position.
type Profile struct {
	User                *domain.User
	ManagerLevel        int
	DirectReports       int
	CanApprove          bool
	CanNominateExternal bool
}

type UserServiceImpl struct {
	BaseService
	users       repository.UserRepository
	reports     repository.ReportRepository
	cycles      CycleService
	eligibility Eligibility
	verticals   *cache.Cache[string, []string]
}

func NewUserService(
	base BaseService,
	users repository.UserRepository,
	reports repository.ReportRepository,
	cycles CycleService,
	eligibility Eligibility,
	verticalsTTL time.Duration,
) *UserServiceImpl {
	return &UserServiceImpl{
		BaseService: base,
		users:       users,
		reports:     reports,
		cycles:      cycles,
		eligibility: eligibility,
		verticals:   cache.New[string, []string](base.clock, verticalsTTL),
	}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, in UserInput) (*domain.User, error) {
	const op = "internal.service.user.CreateUser"
	log := s.log.With(slog.String("op", op), slog.String("email", in.Email))

	u := in.toUser()
	if u.ManagerEmail == u.Email {
		return nil, apperrors.Validation(apperrors.CodeOwnManager, "a user cannot be their own manager")
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.verticals.Invalidate(verticalsKey)

	log.Info("user created", slog.Int64("user_id", created.ID))

	return created, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id int64, in UserInput) (*domain.User, error) {
	const op = "internal.service.user.UpdateUser"

	u := in.toUser()
	u.ID = id

	current, err := s.users.GetByID(ctx, s.ext, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if u.ManagerEmail == current.Email {
		return nil, apperrors.Validation(apperrors.CodeOwnManager, "a user cannot be their own manager")
	}

	updated, err := s.users.Update(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.verticals.Invalidate(verticalsKey)

	return updated, nil
}

// SetActive deactivates or reactivates a user. Users are never deleted so that
// feedback they gave or received stays intact.
func (s *UserServiceImpl) SetActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	const op = "internal.service.user.SetActive"

	u, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.verticals.Invalidate(verticalsKey)

	return u, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id int64) (*Profile, error) {
	const op = "internal.service.user.GetUser"

	u, err := s.users.GetByID(ctx, s.ext, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reports, err := s.users.CountDirectReports(ctx, s.ext, u.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	level := u.ManagerLevel()

	return &Profile{
		User:                u,
		ManagerLevel:        level,
		DirectReports:       reports,
		CanApprove:          relationship.CanApprove(level, reports),
		CanNominateExternal: relationship.CanNominateExternal(level),
	}, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	const op = "internal.service.user.ListUsers"

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *UserServiceImpl) ListVerticals(ctx context.Context) ([]string, error) {
	const op = "internal.service.user.ListVerticals"

	v, err := s.verticals.GetOrLoad(verticalsKey, func() ([]string, error) {
		return s.users.ListVerticals(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func (s *UserServiceImpl) DirectReports(ctx context.Context, managerID int64) ([]domain.User, error) {
	const op = "internal.service.user.DirectReports"

	m, err := s.users.GetByID(ctx, s.ext, managerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reports, err := s.users.DirectReports(ctx, m.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reports, nil
}

// SelectionCandidates lists the people requesterID may nominate, with their current load.
// The requester and their manager are left out. Reviewers at capacity stay in the list
// flagged, so the caller can show them as unavailable.
func (s *UserServiceImpl) SelectionCandidates(ctx context.Context, requesterID int64) ([]domain.ReviewerCandidate, error) {
	const op = "internal.service.user.SelectionCandidates"

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	requester, err := s.users.GetByID(ctx, s.ext, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	all, err := s.reports.EligibleReviewers(ctx, c.ID, s.eligibility.Cutoff, s.eligibility.TenureBefore(s.now()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.ReviewerCandidate, 0, len(all))
	for _, cand := range all {
		if cand.ID == requester.ID || cand.Email == requester.ManagerEmail {
			continue
		}

		cand.AtCapacity = limits.AtCapacity(cand.ActiveRequests)
		out = append(out, cand)
	}

	return out, nil
}
