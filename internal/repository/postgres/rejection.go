package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var rejectionColumns = []string{
	"id", "request_id", "cycle_id", "rejection_type", "requester_id", "rejected_reviewer_id",
	"external_email", "rejected_by", "rejected_by_email", "reason", "rejected_at", "viewed_by_hr", "viewed_at",
}

type RejectionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRejectionRepository(db *sqlx.DB, log *slog.Logger) *RejectionRepository {
	return &RejectionRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RejectionRepository) Create(ctx context.Context, tx *sqlx.Tx, rec *domain.RejectionRecord) error {
	const op = "internal.repository.postgres.RejectionRepository.Create"

	query, args, err := r.sq.Insert("rejection_tracking").
		Columns("request_id", "cycle_id", "rejection_type", "requester_id", "rejected_reviewer_id",
			"external_email", "rejected_by", "rejected_by_email", "reason", "rejected_at").
		Values(rec.RequestID, rec.CycleID, rec.Type, rec.RequesterID, rec.RejectedReviewerID,
			rec.ExternalEmail, rec.RejectedBy, rec.RejectedByEmail, rec.Reason, rec.RejectedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.GetContext(ctx, &rec.ID, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *RejectionRepository) List(ctx context.Context, filter domain.RejectionFilter) ([]domain.RejectionRecord, error) {
	const op = "internal.repository.postgres.RejectionRepository.List"

	cols := append(prefixed("rt", rejectionColumns),
		nameOf("rq")+" AS requester_name",
		"COALESCE("+nameOf("rv")+", rt.external_email, '') AS reviewer_name",
	)

	qb := r.sq.Select(cols...).
		From("rejection_tracking rt").
		Join("users rq ON rq.id = rt.requester_id").
		LeftJoin("users rv ON rv.id = rt.rejected_reviewer_id").
		OrderBy("rt.rejected_at DESC")

	if filter.CycleID != 0 {
		qb = qb.Where(sq.Eq{"rt.cycle_id": filter.CycleID})
	}

	if filter.Type != "" {
		qb = qb.Where(sq.Eq{"rt.rejection_type": filter.Type})
	}

	if filter.UnseenOnly {
		qb = qb.Where(sq.Eq{"rt.viewed_by_hr": false})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.RejectionRecord
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list rejections: %w", op, err)
	}

	return out, nil
}

func (r *RejectionRepository) MarkViewed(ctx context.Context, id int64, at time.Time) error {
	const op = "internal.repository.postgres.RejectionRepository.MarkViewed"

	query, args, err := r.sq.Update("rejection_tracking").
		Set("viewed_by_hr", true).
		Set("viewed_at", sq.Expr("COALESCE(viewed_at, ?)", at)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w: rejection record with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *RejectionRepository) CountUnseen(ctx context.Context, cycleID int64) (int, error) {
	const op = "internal.repository.postgres.RejectionRepository.CountUnseen"

	query, args, err := r.sq.Select("COUNT(*)").
		From("rejection_tracking").
		Where(sq.Eq{"cycle_id": cycleID, "viewed_by_hr": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: failed to count rejections: %w", op, err)
	}

	return n, nil
}
