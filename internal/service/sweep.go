package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/metrics"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

type SweepService interface {
	RunNominationSweep(ctx context.Context) (*SweepResult, error)
}

type SweepResult struct {
	CycleID      int64 `json:"cycle_id"`
	Examined     int   `json:"examined"`
	AutoApproved int   `json:"auto_approved"`
	AutoAccepted int   `json:"auto_accepted"`
	Invitations  int   `json:"invitations"`
}

type SweepServiceImpl struct {
	BaseService
	cycles      CycleService
	requests    repository.RequestCommandRepository
	invitations *Invitations
	loc         *time.Location
}

func NewSweepService(
	base BaseService,
	cycles CycleService,
	requests repository.RequestCommandRepository,
	invitations *Invitations,
	loc *time.Location,
) *SweepServiceImpl {
	return &SweepServiceImpl{
		BaseService: base,
		cycles:      cycles,
		requests:    requests,
		invitations: invitations,
		loc:         loc,
	}
}

// RunNominationSweep auto-approves and auto-accepts every request of the active cycle
// whose requester's nomination deadline has passed. Requests already moved on are not
// selected, so running it again changes nothing.
func (s *SweepServiceImpl) RunNominationSweep(ctx context.Context) (*SweepResult, error) {
	const op = "internal.service.sweep.RunNominationSweep"
	log := s.log.With(slog.String("op", op))

	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := clock.Date(now, s.loc)
	res := &SweepResult{CycleID: c.ID}

	var (
		applied []domain.Transition
		invites []*Invitation
	)

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		due, err := s.requests.LockDueForSweep(ctx, tx, c.ID, today)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		res.Examined = len(due)

		for i := range due {
			req := &due[i]

			_, events := workflow.Sweep(req.State)

			for _, ev := range events {
				to, err := workflow.Transition(req.State, ev)
				if err != nil {
					return err
				}

				t := domain.Transition{RequestID: req.ID, From: req.State, To: to, Event: ev, At: now}

				req, err = s.requests.ApplyTransition(ctx, tx, t)
				if err != nil {
					return err
				}

				applied = append(applied, t)

				switch ev {
				case workflow.EventAutoApprove:
					res.AutoApproved++

					inv, err := s.invitations.Issue(ctx, tx, req)
					if err != nil {
						return err
					}

					if inv != nil {
						invites = append(invites, inv)
					}
				case workflow.EventAutoAccept:
					res.AutoAccepted++
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recordTransitions(applied...)

	for _, inv := range invites {
		s.invitations.Send(ctx, s.ext, c, inv)
	}

	res.Invitations = len(invites)

	log.Info("nomination sweep finished",
		slog.Int64("cycle_id", c.ID),
		slog.Int("examined", res.Examined),
		slog.Int("auto_approved", res.AutoApproved),
		slog.Int("auto_accepted", res.AutoAccepted),
	)

	return res, nil
}
