package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/cache"
	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/metrics"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

const activeCycleKey = "active"

type CycleService interface {
	CreateCycle(ctx context.Context, in CreateCycleInput) (*domain.Cycle, error)
	CompleteCycle(ctx context.Context, actorID int64, notes string) (*CycleCompletion, error)
	ActiveCycle(ctx context.Context) (*domain.Cycle, error)
	ListCycles(ctx context.Context) ([]domain.Cycle, error)
	CurrentPhase(ctx context.Context) (domain.CyclePhase, error)
	ExtendDeadline(ctx context.Context, in ExtendDeadlineInput) (*domain.DeadlineExtension, error)
	ListExtensions(ctx context.Context) ([]domain.DeadlineExtension, error)
	EffectiveDeadline(ctx context.Context, ext sqlx.ExtContext, c *domain.Cycle, userID int64, t domain.DeadlineType) (time.Time, error)
}

type CreateCycleInput struct {
	Name               string
	DisplayName        string
	Description        string
	Year               int
	Quarter            string
	NominationStart    time.Time
	NominationDeadline time.Time
	FeedbackDeadline   time.Time
	CreatedBy          int64
}

type CycleCompletion struct {
	Cycle   *domain.Cycle
	Expired int64
}

type ExtendDeadlineInput struct {
	UserID      int64
	Type        domain.DeadlineType
	NewDeadline time.Time
	Reason      string
	ExtendedBy  int64
}

type CycleServiceImpl struct {
	BaseService
	cycles     repository.CycleRepository
	requests   repository.RequestCommandRepository
	extensions repository.ExtensionRepository
	users      repository.UserRepository
	active     *cache.Cache[string, *domain.Cycle]
	loc        *time.Location
}

func NewCycleService(
	base BaseService,
	cycles repository.CycleRepository,
	requests repository.RequestCommandRepository,
	extensions repository.ExtensionRepository,
	users repository.UserRepository,
	activeTTL time.Duration,
	loc *time.Location,
) *CycleServiceImpl {
	return &CycleServiceImpl{
		BaseService: base,
		cycles:      cycles,
		requests:    requests,
		extensions:  extensions,
		users:       users,
		active:      cache.New[string, *domain.Cycle](base.clock, activeTTL),
		loc:         loc,
	}
}

func (s *CycleServiceImpl) CreateCycle(ctx context.Context, in CreateCycleInput) (*domain.Cycle, error) {
	const op = "internal.service.cycle.CreateCycle"
	log := s.log.With(slog.String("op", op), slog.String("name", in.Name))

	if in.NominationStart.After(in.NominationDeadline) || in.NominationDeadline.After(in.FeedbackDeadline) {
		return nil, apperrors.Validation(apperrors.CodeInvalidDates,
			"nomination start, nomination deadline and feedback deadline must be in order")
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = in.Name
	}

	var created *domain.Cycle

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := s.cycles.LockActive(ctx, tx); err == nil {
			return apperrors.State(apperrors.CodeCycleAlreadyActive, "another review cycle is already active")
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%s: failed to check active cycle: %w", op, err)
		}

		var err error

		created, err = s.cycles.Create(ctx, tx, &domain.Cycle{
			Name:               strings.TrimSpace(in.Name),
			DisplayName:        displayName,
			Description:        in.Description,
			Year:               in.Year,
			Quarter:            in.Quarter,
			NominationStart:    clock.Date(in.NominationStart, time.UTC),
			NominationDeadline: clock.Date(in.NominationDeadline, time.UTC),
			FeedbackDeadline:   clock.Date(in.FeedbackDeadline, time.UTC),
			CreatedBy:          ptr(in.CreatedBy),
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	s.active.Invalidate(activeCycleKey)

	log.Info("review cycle created", slog.Int64("cycle_id", created.ID))

	return created, nil
}

func (s *CycleServiceImpl) CompleteCycle(ctx context.Context, actorID int64, notes string) (*CycleCompletion, error) {
	const op = "internal.service.cycle.CompleteCycle"
	log := s.log.With(slog.String("op", op), slog.Int64("actor_id", actorID))

	var (
		cycle   *domain.Cycle
		expired int64
	)

	now := s.now()

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		cycle, err = s.cycles.LockActive(ctx, tx)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.State(apperrors.CodeNoActiveCycle, "there is no active review cycle")
			}

			return fmt.Errorf("%s: failed to lock active cycle: %w", op, err)
		}

		if err := s.cycles.Complete(ctx, tx, cycle.ID, notes, now); err != nil {
			return fmt.Errorf("%s: failed to complete cycle: %w", op, err)
		}

		expired, err = s.requests.ExpireOpen(ctx, tx, cycle.ID, expirableStates(), now)
		if err != nil {
			return fmt.Errorf("%s: failed to expire open requests: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.active.Invalidate(activeCycleKey)
	metrics.Transitions.WithLabelValues(string(workflow.EventExpire), string(workflow.Expired)).Add(float64(expired))

	cycle.IsActive = false
	cycle.Phase = domain.PhaseCompleted
	cycle.CompletedAt = &now
	cycle.CompletionNotes = notes

	log.Info("review cycle completed", slog.Int64("cycle_id", cycle.ID), slog.Int64("expired", expired))

	return &CycleCompletion{Cycle: cycle, Expired: expired}, nil
}

func expirableStates() []workflow.State {
	var out []workflow.State
	for _, st := range workflow.AllStates {
		if workflow.Can(st, workflow.EventExpire) {
			out = append(out, st)
		}
	}

	return out
}

func (s *CycleServiceImpl) ActiveCycle(ctx context.Context) (*domain.Cycle, error) {
	const op = "internal.service.cycle.ActiveCycle"

	c, err := s.active.GetOrLoad(activeCycleKey, func() (*domain.Cycle, error) {
		return s.cycles.GetActive(ctx, s.ext)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.State(apperrors.CodeNoActiveCycle, "there is no active review cycle")
		}

		return nil, fmt.Errorf("%s: failed to get active cycle: %w", op, err)
	}

	return c, nil
}

func (s *CycleServiceImpl) ListCycles(ctx context.Context) ([]domain.Cycle, error) {
	const op = "internal.service.cycle.ListCycles"

	cycles, err := s.cycles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cycles, nil
}

// CurrentPhase derives the phase of the active cycle from today's date and
// persists it when the stored value lags behind.
func (s *CycleServiceImpl) CurrentPhase(ctx context.Context) (domain.CyclePhase, error) {
	const op = "internal.service.cycle.CurrentPhase"

	c, err := s.ActiveCycle(ctx)
	if err != nil {
		if rej, ok := apperrors.AsRejection(err); ok && rej.Code == apperrors.CodeNoActiveCycle {
			return domain.PhaseCompleted, nil
		}

		return "", err
	}

	phase := PhaseAt(c, s.now(), s.loc)
	if phase != c.Phase {
		if err := s.cycles.UpdatePhase(ctx, c.ID, phase); err != nil {
			return "", fmt.Errorf("%s: failed to update phase: %w", op, err)
		}

		s.active.Invalidate(activeCycleKey)
	}

	return phase, nil
}

// PhaseAt is nomination up to and including the nomination deadline, feedback afterwards.
func PhaseAt(c *domain.Cycle, now time.Time, loc *time.Location) domain.CyclePhase {
	if !c.IsActive {
		return domain.PhaseCompleted
	}

	if clock.Passed(c.NominationDeadline, now, loc) {
		return domain.PhaseFeedback
	}

	return domain.PhaseNomination
}

func (s *CycleServiceImpl) ExtendDeadline(ctx context.Context, in ExtendDeadlineInput) (*domain.DeadlineExtension, error) {
	const op = "internal.service.cycle.ExtendDeadline"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", in.UserID), slog.String("type", string(in.Type)))

	if !in.Type.Valid() {
		return nil, apperrors.Validation(apperrors.CodeInvalidDecision, "unknown deadline type %q", in.Type)
	}

	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperrors.Validation(apperrors.CodeReasonRequired, "a reason is required to extend a deadline")
	}

	c, err := s.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, s.ext, in.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	original := c.Default(in.Type)
	extended := clock.Date(in.NewDeadline, time.UTC)

	if !extended.After(original) {
		return nil, apperrors.Validation(apperrors.CodeInvalidDates,
			"the extended deadline must be after the cycle deadline of %s", original.Format(dateLayout))
	}

	ext, err := s.extensions.Upsert(ctx, &domain.DeadlineExtension{
		CycleID:          c.ID,
		UserID:           in.UserID,
		DeadlineType:     in.Type,
		OriginalDeadline: original,
		ExtendedDeadline: extended,
		Reason:           strings.TrimSpace(in.Reason),
		ExtendedBy:       in.ExtendedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("deadline extended", slog.String("until", extended.Format(time.DateOnly)))

	return ext, nil
}

func (s *CycleServiceImpl) ListExtensions(ctx context.Context) ([]domain.DeadlineExtension, error) {
	const op = "internal.service.cycle.ListExtensions"

	c, err := s.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.extensions.ListByCycle(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// EffectiveDeadline is the user's extension if one exists, otherwise the cycle default.
func (s *CycleServiceImpl) EffectiveDeadline(ctx context.Context, ext sqlx.ExtContext, c *domain.Cycle, userID int64, t domain.DeadlineType) (time.Time, error) {
	const op = "internal.service.cycle.EffectiveDeadline"

	e, err := s.extensions.Get(ctx, ext, c.ID, userID, t)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return c.Default(t), nil
		}

		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return e.ExtendedDeadline, nil
}
