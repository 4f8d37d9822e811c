package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var cycleColumns = []string{
	"id", "name", "display_name", "description", "year", "quarter",
	"nomination_start", "nomination_deadline", "feedback_deadline",
	"phase", "is_active", "created_by", "created_at", "completed_at", "completion_notes",
}

type CycleRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewCycleRepository(db *sqlx.DB, log *slog.Logger) *CycleRepository {
	return &CycleRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *CycleRepository) Create(ctx context.Context, tx *sqlx.Tx, c *domain.Cycle) (*domain.Cycle, error) {
	const op = "internal.repository.postgres.CycleRepository.Create"

	query, args, err := r.sq.Insert("review_cycles").
		Columns("name", "display_name", "description", "year", "quarter",
			"nomination_start", "nomination_deadline", "feedback_deadline", "phase", "is_active", "created_by").
		Values(c.Name, c.DisplayName, c.Description, c.Year, c.Quarter,
			c.NominationStart, c.NominationDeadline, c.FeedbackDeadline, domain.PhaseNomination, true, c.CreatedBy).
		Suffix("RETURNING " + columns(cycleColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var created domain.Cycle
	if err := tx.QueryRowxContext(ctx, query, args...).StructScan(&created); err != nil {
		if _, ok := pqError(err, pqUniqueViolation); ok {
			return nil, apperrors.State(apperrors.CodeCycleAlreadyActive, "another review cycle is already active")
		}

		if _, ok := pqError(err, pqCheckViolation); ok {
			return nil, apperrors.Validation(apperrors.CodeInvalidDates,
				"nomination start, nomination deadline and feedback deadline must be in order")
		}

		return nil, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return &created, nil
}

func (r *CycleRepository) GetActive(ctx context.Context, ext sqlx.ExtContext) (*domain.Cycle, error) {
	const op = "internal.repository.postgres.CycleRepository.GetActive"

	query, args, err := r.sq.Select(cycleColumns...).
		From("review_cycles").
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	return r.get(ctx, op, ext, query, args, "active cycle")
}

func (r *CycleRepository) LockActive(ctx context.Context, tx *sqlx.Tx) (*domain.Cycle, error) {
	const op = "internal.repository.postgres.CycleRepository.LockActive"

	query, args, err := r.sq.Select(cycleColumns...).
		From("review_cycles").
		Where(sq.Eq{"is_active": true}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	return r.get(ctx, op, tx, query, args, "active cycle")
}

func (r *CycleRepository) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Cycle, error) {
	const op = "internal.repository.postgres.CycleRepository.GetByID"

	query, args, err := r.sq.Select(cycleColumns...).
		From("review_cycles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	return r.get(ctx, op, ext, query, args, fmt.Sprintf("cycle with id '%d'", id))
}

func (r *CycleRepository) List(ctx context.Context) ([]domain.Cycle, error) {
	const op = "internal.repository.postgres.CycleRepository.List"

	query, args, err := r.sq.Select(cycleColumns...).
		From("review_cycles").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var cycles []domain.Cycle
	if err := r.db.SelectContext(ctx, &cycles, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list cycles: %w", op, err)
	}

	return cycles, nil
}

func (r *CycleRepository) Complete(ctx context.Context, tx *sqlx.Tx, id int64, notes string, at time.Time) error {
	const op = "internal.repository.postgres.CycleRepository.Complete"

	query, args, err := r.sq.Update("review_cycles").
		Set("is_active", false).
		Set("phase", domain.PhaseCompleted).
		Set("completed_at", at).
		Set("completion_notes", notes).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w: cycle with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *CycleRepository) UpdatePhase(ctx context.Context, id int64, phase domain.CyclePhase) error {
	const op = "internal.repository.postgres.CycleRepository.UpdatePhase"

	query, args, err := r.sq.Update("review_cycles").
		Set("phase", phase).
		Where(sq.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *CycleRepository) get(ctx context.Context, op string, ext sqlx.ExtContext, query string, args []any, what string) (*domain.Cycle, error) {
	var c domain.Cycle
	if err := sqlx.GetContext(ctx, ext, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: %s", op, apperrors.ErrNotFound, what)
		}

		return nil, fmt.Errorf("%s: failed to get cycle: %w", op, err)
	}

	return &c, nil
}
