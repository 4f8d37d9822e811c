package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/config"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/repository/postgres"
	"github.com/YusovID/feedback-360-service/internal/service"
	myhttp "github.com/YusovID/feedback-360-service/internal/transport/http"

	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/YusovID/feedback-360-service/pkg/logger/slogpretty"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting feedback-360-service", slog.String("env", cfg.Env))

	loc, err := cfg.Workflow.LoadLocation()
	if err != nil {
		return err
	}

	cutoff, err := cfg.Workflow.Cutoff()
	if err != nil {
		return err
	}

	pg, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	db := pg.DB()
	clk := clock.Real{}

	users := postgres.NewUserRepository(db, log)
	cycleRepo := postgres.NewCycleRepository(db, log)
	extensions := postgres.NewExtensionRepository(db, log)
	commands := postgres.NewRequestCommandRepository(db, log)
	queries := postgres.NewRequestQueryRepository(db, log)
	questions := postgres.NewQuestionRepository(db, log)
	responses := postgres.NewResponseRepository(db, log)
	rejections := postgres.NewRejectionRepository(db, log)
	tokens := postgres.NewTokenRepository(db, log)
	reports := postgres.NewReportRepository(db, log)
	outbox := postgres.NewOutboxRepository(db, log)

	notifier, err := notify.NewNotifier(outbox, log)
	if err != nil {
		return fmt.Errorf("failed to init notifier: %w", err)
	}

	sender, closeSender, err := notify.NewSender(cfg.Notify, log)
	if err != nil {
		return fmt.Errorf("failed to init sender: %w", err)
	}
	defer func() {
		if err := closeSender(); err != nil {
			log.Error("sender close failed", sl.Err(err))
		}
	}()

	dispatcher := notify.NewDispatcher(db, outbox, sender, log, clk, cfg.Notify.BatchSize, cfg.Notify.MaxAttempts)

	issuer := auth.NewIssuer(cfg.Auth, clk)
	eligibility := service.Eligibility{Cutoff: cutoff}
	invitations := service.NewInvitations(tokens, users, notifier, log, cfg.Workflow.ExternalLinkBase)

	base := service.NewBaseService(db, db, log, clk)

	cycles := service.NewCycleService(base, cycleRepo, commands, extensions, users, cfg.Cache.ActiveCycleTTL, loc)
	reviews := service.NewReviewService(base, cycles, users, commands, queries, questions, responses, rejections, notifier, loc)

	svc := myhttp.Services{
		Users:       service.NewUserService(base, users, reports, cycles, eligibility, cfg.Cache.VerticalsTTL),
		Auth:        service.NewAuthService(base, users, issuer),
		Cycles:      cycles,
		Nominations: service.NewNominationService(base, cycles, users, commands, queries, eligibility, notifier, loc),
		Approvals:   service.NewApprovalService(base, cycles, users, commands, queries, rejections, invitations, notifier),
		Reviews:     reviews,
		External:    service.NewExternalService(base, cycles, tokens, reviews, issuer),
		Feedback:    service.NewFeedbackService(base, cycles, users, queries, responses),
		HR:          service.NewHRService(base, cycles, users, reports, rejections, outbox, notifier, dispatcher),
		Sweep:       service.NewSweepService(base, cycles, commands, invitations, loc),
	}

	srv := myhttp.NewServer(log, issuer, db, svc)
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(bgCtx, cfg.Notify.DispatchInterval)
	}()

	if cfg.Workflow.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSweeps(bgCtx, log, svc.Sweep, cfg.Workflow.SweepInterval)
		}()
	}

	errChan := make(chan error, 1)

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %w", err)
	}

	stopBackground()
	wg.Wait()

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errChan <- fmt.Errorf("error listening and serving: %w", err)
	}
}

// runSweeps applies the nomination-deadline auto transitions on every tick until ctx ends.
func runSweeps(ctx context.Context, log *slog.Logger, sweep service.SweepService, interval time.Duration) {
	log = log.With(slog.String("op", "cmd.feedback360.runSweeps"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := sweep.RunNominationSweep(ctx)
			if rej, ok := apperrors.AsRejection(err); ok {
				log.Debug("nomination sweep skipped", slog.String("code", string(rej.Code)))
				continue
			}

			if err != nil {
				log.Error("nomination sweep failed", sl.Err(err))
				continue
			}

			if res.AutoApproved > 0 || res.AutoAccepted > 0 {
				log.Info("nomination sweep applied",
					slog.Int64("cycle_id", res.CycleID),
					slog.Int("auto_approved", res.AutoApproved),
					slog.Int("auto_accepted", res.AutoAccepted),
				)
			}
		}
	}
}
