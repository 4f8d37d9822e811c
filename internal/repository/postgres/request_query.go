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
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

const fullName = "TRIM(%s.first_name || ' ' || %s.last_name)"

func nameOf(alias string) string {
	return fmt.Sprintf(fullName, alias, alias)
}

type RequestQueryRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRequestQueryRepository(db *sqlx.DB, log *slog.Logger) *RequestQueryRepository {
	return &RequestQueryRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RequestQueryRepository) GetByID(ctx context.Context, id int64) (*domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.GetByID"

	query, args, err := r.sq.Select(requestColumns...).
		From("feedback_requests").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var req domain.FeedbackRequest
	if err := r.db.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: feedback request with id '%d'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get request: %w", op, err)
	}

	return &req, nil
}

func (r *RequestQueryRepository) ListByRequester(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) ([]domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.ListByRequester"

	query, args, err := r.sq.Select(requestColumns...).
		From("feedback_requests").
		Where(sq.Eq{"cycle_id": cycleID, "requester_id": requesterID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var reqs []domain.FeedbackRequest
	if err := sqlx.SelectContext(ctx, ext, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list requests: %w", op, err)
	}

	return reqs, nil
}

func (r *RequestQueryRepository) ListNominations(ctx context.Context, cycleID, requesterID int64) ([]domain.Nomination, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.ListNominations"

	cols := append(prefixed("fr", requestColumns),
		"COALESCE("+nameOf("rv")+", NULLIF(fr.external_name, ''), fr.external_email) AS reviewer_name",
		"COALESCE(rv.email, fr.external_email) AS reviewer_email",
	)

	query, args, err := r.sq.Select(cols...).
		From("feedback_requests fr").
		LeftJoin("users rv ON rv.id = fr.reviewer_id").
		Where(sq.Eq{"fr.cycle_id": cycleID, "fr.requester_id": requesterID}).
		OrderBy("fr.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.Nomination
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list nominations: %w", op, err)
	}

	return out, nil
}

func (r *RequestQueryRepository) ListPendingApprovals(ctx context.Context, cycleID int64, managerEmail string) ([]domain.PendingApproval, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.ListPendingApprovals"

	cols := append(prefixed("fr", requestColumns),
		nameOf("rq")+" AS requester_name",
		"rq.email AS requester_email",
		"COALESCE("+nameOf("rv")+", NULLIF(fr.external_name, ''), fr.external_email) AS reviewer_name",
		"COALESCE(rv.email, fr.external_email) AS reviewer_email",
		"COALESCE(rv.designation, 'External stakeholder') AS reviewer_designation",
	)

	query, args, err := r.sq.Select(cols...).
		From("feedback_requests fr").
		Join("users rq ON rq.id = fr.requester_id").
		LeftJoin("users rv ON rv.id = fr.reviewer_id").
		Where(sq.Eq{
			"fr.cycle_id":       cycleID,
			"fr.workflow_state": workflow.PendingManagerApproval,
			"rq.manager_email":  domain.NormalizeEmail(managerEmail),
		}).
		OrderBy("fr.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.PendingApproval
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list pending approvals: %w", op, err)
	}

	return out, nil
}

func (r *RequestQueryRepository) ListAssignments(ctx context.Context, cycleID, reviewerID int64, states []workflow.State) ([]domain.ReviewAssignment, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.ListAssignments"

	query, args, err := r.assignmentQuery().
		Where(sq.Eq{"fr.cycle_id": cycleID, "fr.reviewer_id": reviewerID, "fr.workflow_state": states}).
		OrderBy("fr.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.ReviewAssignment
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list assignments: %w", op, err)
	}

	return out, nil
}

func (r *RequestQueryRepository) GetAssignment(ctx context.Context, requestID int64) (*domain.ReviewAssignment, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.GetAssignment"

	query, args, err := r.assignmentQuery().
		Where(sq.Eq{"fr.id": requestID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out domain.ReviewAssignment
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: feedback request with id '%d'", op, apperrors.ErrNotFound, requestID)
		}

		return nil, fmt.Errorf("%s: failed to get assignment: %w", op, err)
	}

	return &out, nil
}

func (r *RequestQueryRepository) assignmentQuery() sq.SelectBuilder {
	cols := append(prefixed("fr", requestColumns),
		nameOf("rq")+" AS requester_name",
		"rq.vertical AS requester_vertical",
		"rq.designation AS requester_designation",
		"rc.display_name AS cycle_name",
		"rc.feedback_deadline",
		"(SELECT COUNT(*) FROM draft_responses d WHERE d.request_id = fr.id) AS draft_count",
	)

	return r.sq.Select(cols...).
		From("feedback_requests fr").
		Join("users rq ON rq.id = fr.requester_id").
		Join("review_cycles rc ON rc.id = fr.cycle_id")
}

func (r *RequestQueryRepository) Progress(ctx context.Context, cycleID, requesterID int64) (*domain.FeedbackProgress, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.Progress"

	query, args, err := r.sq.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE workflow_state = 'completed') AS completed",
		"COUNT(*) FILTER (WHERE workflow_state IN ('pending_manager_approval', 'pending_reviewer_acceptance', 'in_progress')) AS pending",
	).
		From("feedback_requests").
		Where(sq.Eq{"cycle_id": cycleID, "requester_id": requesterID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var p domain.FeedbackProgress
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to get progress: %w", op, err)
	}

	return &p, nil
}

func (r *RequestQueryRepository) CycleHistory(ctx context.Context, userID int64) ([]domain.CycleHistory, error) {
	const op = "internal.repository.postgres.RequestQueryRepository.CycleHistory"

	query, args, err := r.sq.Select(
		"rc.id AS cycle_id",
		"rc.display_name AS cycle_name",
		"rc.is_active",
		"rc.created_at",
	).
		Column("COUNT(*) FILTER (WHERE fr.requester_id = ?) AS requests_made", userID).
		Column("COUNT(*) FILTER (WHERE fr.requester_id = ? AND fr.workflow_state = 'completed') AS requests_completed", userID).
		Column("COUNT(*) FILTER (WHERE fr.reviewer_id = ? AND fr.workflow_state = 'completed') AS reviews_written", userID).
		From("review_cycles rc").
		Join("feedback_requests fr ON fr.cycle_id = rc.id").
		Where(sq.Or{sq.Eq{"fr.requester_id": userID}, sq.Eq{"fr.reviewer_id": userID}}).
		GroupBy("rc.id").
		OrderBy("rc.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.CycleHistory
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to get cycle history: %w", op, err)
	}

	return out, nil
}
