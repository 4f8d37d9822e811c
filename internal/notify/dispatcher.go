package notify

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
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Outbox is the part of the outbox store the dispatcher drains.
type Outbox interface {
	ClaimBatch(ctx context.Context, tx *sqlx.Tx, afterID int64, limit, maxAttempts int) ([]domain.OutboxMessage, error)
	MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error
	MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string, at time.Time) error
}

type DispatchResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Dispatcher delivers queued notifications through a Sender. Each message is claimed,
// sent and marked in its own transaction, so concurrent dispatchers never send the same
// message and a failed commit affects at most that one message. Delivery is at-least-once:
// a message sent just before its commit fails is sent again on a later pass.
type Dispatcher struct {
	db          Transactor
	outbox      Outbox
	sender      Sender
	log         *slog.Logger
	clock       clock.Clock
	batchSize   int
	maxAttempts int
}

func NewDispatcher(db Transactor, outbox Outbox, sender Sender, log *slog.Logger, clk clock.Clock, batchSize, maxAttempts int) *Dispatcher {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Dispatcher{
		db:          db,
		outbox:      outbox,
		sender:      sender,
		log:         log,
		clock:       clk,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// DispatchPending sends up to batchSize pending or previously failed messages, oldest
// first. Each message is visited at most once per call.
func (d *Dispatcher) DispatchPending(ctx context.Context) (*DispatchResult, error) {
	const op = "internal.notify.Dispatcher.DispatchPending"
	log := d.log.With(slog.String("op", op))

	res := &DispatchResult{}
	var cursor int64

	for res.Claimed < d.batchSize {
		msg, sent, err := d.dispatchNext(ctx, log, cursor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if msg == nil {
			break
		}

		cursor = msg.ID
		res.Claimed++

		if sent {
			res.Sent++
		} else {
			res.Failed++
		}
	}

	if res.Claimed > 0 {
		log.Info("outbox batch dispatched", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed))
	}

	return res, nil
}

// dispatchNext delivers the first claimable message after cursor. A nil message means
// the queue is drained.
func (d *Dispatcher) dispatchNext(ctx context.Context, log *slog.Logger, cursor int64) (*domain.OutboxMessage, bool, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	msgs, err := d.outbox.ClaimBatch(ctx, tx, cursor, 1, d.maxAttempts)
	if err != nil {
		return nil, false, err
	}

	if len(msgs) == 0 {
		return nil, false, nil
	}

	msg := msgs[0]
	status := domain.OutboxSent

	if sendErr := d.sender.Send(ctx, msg); sendErr != nil {
		log.Warn("delivery failed",
			slog.Int64("id", msg.ID),
			slog.String("to", msg.To),
			slog.Int("attempt", msg.AttemptCount+1),
			sl.Err(sendErr),
		)

		status = domain.OutboxFailed
		err = d.outbox.MarkFailed(ctx, tx, msg.ID, sendErr.Error(), d.clock.Now())
	} else {
		err = d.outbox.MarkSent(ctx, tx, msg.ID, d.clock.Now())
	}

	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit message %d: %w", msg.ID, err)
	}

	metrics.Deliveries.WithLabelValues(msg.Category, string(status)).Inc()

	return &msg, status == domain.OutboxSent, nil
}

// Run dispatches on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil && ctx.Err() == nil {
				d.log.Error("outbox dispatch failed", sl.Err(err))
			}
		}
	}
}
