package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var extensionColumns = []string{
	"id", "cycle_id", "user_id", "deadline_type", "original_deadline", "extended_deadline",
	"reason", "extended_by", "created_at",
}

type ExtensionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewExtensionRepository(db *sqlx.DB, log *slog.Logger) *ExtensionRepository {
	return &ExtensionRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ExtensionRepository) Upsert(ctx context.Context, e *domain.DeadlineExtension) (*domain.DeadlineExtension, error) {
	const op = "internal.repository.postgres.ExtensionRepository.Upsert"

	query, args, err := r.sq.Insert("user_deadline_extensions").
		Columns("cycle_id", "user_id", "deadline_type", "original_deadline", "extended_deadline", "reason", "extended_by").
		Values(e.CycleID, e.UserID, e.DeadlineType, e.OriginalDeadline, e.ExtendedDeadline, e.Reason, e.ExtendedBy).
		Suffix(`ON CONFLICT (cycle_id, user_id, deadline_type) DO UPDATE SET
            extended_deadline = EXCLUDED.extended_deadline,
            reason = EXCLUDED.reason,
            extended_by = EXCLUDED.extended_by,
            created_at = NOW()
        RETURNING ` + columns(extensionColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	var saved domain.DeadlineExtension
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&saved); err != nil {
		if _, ok := pqError(err, pqForeignKeyViolation); ok {
			return nil, fmt.Errorf("%s: %w: user '%d' or cycle '%d'", op, apperrors.ErrNotFound, e.UserID, e.CycleID)
		}

		return nil, fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	return &saved, nil
}

func (r *ExtensionRepository) Get(ctx context.Context, ext sqlx.ExtContext, cycleID, userID int64, t domain.DeadlineType) (*domain.DeadlineExtension, error) {
	const op = "internal.repository.postgres.ExtensionRepository.Get"

	query, args, err := r.sq.Select(extensionColumns...).
		From("user_deadline_extensions").
		Where(sq.Eq{"cycle_id": cycleID, "user_id": userID, "deadline_type": t}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var e domain.DeadlineExtension
	if err := sqlx.GetContext(ctx, ext, &e, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: %s extension for user '%d'", op, apperrors.ErrNotFound, t, userID)
		}

		return nil, fmt.Errorf("%s: failed to get extension: %w", op, err)
	}

	return &e, nil
}

func (r *ExtensionRepository) ListByCycle(ctx context.Context, cycleID int64) ([]domain.DeadlineExtension, error) {
	const op = "internal.repository.postgres.ExtensionRepository.ListByCycle"

	cols := append(prefixed("e", extensionColumns),
		"TRIM(u.first_name || ' ' || u.last_name) AS user_name",
		"u.email AS user_email",
	)

	query, args, err := r.sq.Select(cols...).
		From("user_deadline_extensions e").
		Join("users u ON u.id = e.user_id").
		Where(sq.Eq{"e.cycle_id": cycleID}).
		OrderBy("e.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.DeadlineExtension
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list extensions: %w", op, err)
	}

	return out, nil
}
