// Package service implements the feedback workflow on top of the repositories.
//
// Every state change runs in a single transaction that locks the rows it decides on.
// Notifications are enqueued after commit and never fail the operation.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/metrics"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type Notifier interface {
	Notify(ctx context.Context, note notify.Notification) error
}

type BaseService struct {
	db    Transactor
	ext   sqlx.ExtContext
	log   *slog.Logger
	clock clock.Clock
}

// NewBaseService wires the transaction starter, the handle used for reads outside
// a transaction and the clock. Both db and ext are normally the same *sqlx.DB.
func NewBaseService(db Transactor, ext sqlx.ExtContext, log *slog.Logger, clk clock.Clock) BaseService {
	if clk == nil {
		clk = clock.Real{}
	}

	return BaseService{
		db:    db,
		ext:   ext,
		log:   log,
		clock: clk,
	}
}

func (s *BaseService) transaction(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

func (s *BaseService) now() time.Time {
	return s.clock.Now()
}

// notifyQuietly hands a notification to n. The notifier logs its own failures.
func notifyQuietly(ctx context.Context, n Notifier, note notify.Notification) {
	if n == nil {
		return
	}

	_ = n.Notify(ctx, note)
}

func recordTransitions(applied ...domain.Transition) {
	for _, t := range applied {
		metrics.Transitions.WithLabelValues(string(t.Event), string(t.To)).Inc()
	}
}

func ptr[T any](v T) *T {
	return &v
}

const dateLayout = "2 Jan 2006"
