package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var outboxColumns = []string{
	"id", "message_id", "to_address", "subject", "html_body", "text_body", "category", "request_id", "cycle_id",
	"status", "attempt_count", "last_error", "created_at", "last_attempt_at", "sent_at",
}

type OutboxRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewOutboxRepository(db *sqlx.DB, log *slog.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, msg *domain.OutboxMessage) error {
	const op = "internal.repository.postgres.OutboxRepository.Enqueue"

	query, args, err := r.sq.Insert("notification_outbox").
		Columns("message_id", "to_address", "subject", "html_body", "text_body", "category", "request_id", "cycle_id", "status").
		Values(msg.MessageID, msg.To, msg.Subject, msg.HTMLBody, msg.TextBody, msg.Category, msg.RequestID, msg.CycleID, domain.OutboxPending).
		Suffix("RETURNING " + columns(outboxColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(msg); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *OutboxRepository) ClaimBatch(ctx context.Context, tx *sqlx.Tx, afterID int64, limit, maxAttempts int) ([]domain.OutboxMessage, error) {
	const op = "internal.repository.postgres.OutboxRepository.ClaimBatch"

	query, args, err := r.sq.Select(outboxColumns...).
		From("notification_outbox").
		Where(sq.NotEq{"status": domain.OutboxSent}).
		Where(sq.Lt{"attempt_count": maxAttempts}).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.OutboxMessage
	if err := tx.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to claim messages: %w", op, err)
	}

	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	const op = "internal.repository.postgres.OutboxRepository.MarkSent"

	query, args, err := r.sq.Update("notification_outbox").
		Set("status", domain.OutboxSent).
		Set("attempt_count", sq.Expr("attempt_count + 1")).
		Set("last_attempt_at", at).
		Set("sent_at", at).
		Set("last_error", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, tx *sqlx.Tx, id int64, reason string, at time.Time) error {
	const op = "internal.repository.postgres.OutboxRepository.MarkFailed"

	query, args, err := r.sq.Update("notification_outbox").
		Set("status", domain.OutboxFailed).
		Set("attempt_count", sq.Expr("attempt_count + 1")).
		Set("last_attempt_at", at).
		Set("last_error", reason).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *OutboxRepository) Stats(ctx context.Context) (*domain.OutboxStats, error) {
	const op = "internal.repository.postgres.OutboxRepository.Stats"

	query, args, err := r.sq.Select(
		"COUNT(*) FILTER (WHERE status = 'pending') AS pending",
		"COUNT(*) FILTER (WHERE status = 'sent') AS sent",
		"COUNT(*) FILTER (WHERE status = 'failed') AS failed",
	).
		From("notification_outbox").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var s domain.OutboxStats
	if err := r.db.GetContext(ctx, &s, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to get outbox stats: %w", op, err)
	}

	return &s, nil
}
