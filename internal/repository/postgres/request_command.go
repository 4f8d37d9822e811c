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
	"github.com/YusovID/feedback-360-service/internal/limits"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

var requestColumns = []string{
	"id", "cycle_id", "requester_id", "reviewer_id", "external_email", "external_name",
	"relationship_type", "workflow_state", "approved_by", "approved_at", "manager_rejection_reason",
	"reviewer_responded_at", "reviewer_rejection_reason", "completed_at", "auto_transitioned",
	"created_at", "updated_at",
}

// Constraint names raised by the feedback_requests_limits trigger.
const (
	outboundLimitConstraint = "feedback_requests_outbound_limit"
	inboundLimitConstraint  = "feedback_requests_inbound_limit"
)

type RequestCommandRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRequestCommandRepository(db *sqlx.DB, log *slog.Logger) *RequestCommandRepository {
	return &RequestCommandRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RequestCommandRepository) CountOutbound(ctx context.Context, ext sqlx.ExtContext, cycleID, requesterID int64) (int, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.CountOutbound"

	query, args, err := r.sq.Select("COUNT(*)").
		From("feedback_requests").
		Where(sq.Eq{
			"cycle_id":       cycleID,
			"requester_id":   requesterID,
			"workflow_state": workflow.CountingStates(),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var n int
	if err := sqlx.GetContext(ctx, ext, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: failed to count requests: %w", op, err)
	}

	return n, nil
}

func (r *RequestCommandRepository) CountInbound(ctx context.Context, ext sqlx.ExtContext, cycleID int64, reviewerIDs []int64) (map[int64]int, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.CountInbound"

	counts := make(map[int64]int, len(reviewerIDs))
	if len(reviewerIDs) == 0 {
		return counts, nil
	}

	query, args, err := r.sq.Select("reviewer_id", "COUNT(*) AS active").
		From("feedback_requests").
		Where(sq.Eq{
			"cycle_id":       cycleID,
			"reviewer_id":    reviewerIDs,
			"workflow_state": workflow.CountingStates(),
		}).
		GroupBy("reviewer_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var rows []struct {
		ReviewerID int64 `db:"reviewer_id"`
		Active     int   `db:"active"`
	}
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to count requests: %w", op, err)
	}

	for _, row := range rows {
		counts[row.ReviewerID] = row.Active
	}

	return counts, nil
}

func (r *RequestCommandRepository) CreateBatch(ctx context.Context, tx *sqlx.Tx, reqs []domain.FeedbackRequest) ([]domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.CreateBatch"

	if len(reqs) == 0 {
		return nil, nil
	}

	ib := r.sq.Insert("feedback_requests").
		Columns("cycle_id", "requester_id", "reviewer_id", "external_email", "external_name", "relationship_type", "workflow_state")

	for _, req := range reqs {
		ib = ib.Values(req.CycleID, req.RequesterID, req.ReviewerID, req.ExternalEmail, req.ExternalName, req.RelationshipType, req.State)
	}

	query, args, err := ib.Suffix("RETURNING " + columns(requestColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var created []domain.FeedbackRequest
	if err := tx.SelectContext(ctx, &created, query, args...); err != nil {
		if _, ok := pqError(err, pqUniqueViolation); ok {
			return nil, apperrors.Validation(apperrors.CodeDuplicateNomination,
				"one of these reviewers has already been nominated by you in this cycle")
		}

		if pqErr, ok := pqError(err, pqCheckViolation); ok {
			switch pqErr.Constraint {
			case outboundLimitConstraint:
				return nil, apperrors.Validation(apperrors.CodeLimitExceeded,
					"you already have %d active nominations in this cycle", limits.MaxActive)
			case inboundLimitConstraint:
				return nil, apperrors.Policy(apperrors.CodeReviewerAtCapacity,
					"a selected reviewer already has %d active feedback requests", limits.MaxActive)
			}
		}

		if _, ok := pqError(err, pqForeignKeyViolation); ok {
			return nil, fmt.Errorf("%s: %w: reviewer or cycle", op, apperrors.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return created, nil
}

func (r *RequestCommandRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.LockByID"

	query, args, err := r.sq.Select(requestColumns...).
		From("feedback_requests").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var req domain.FeedbackRequest
	if err := tx.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: feedback request with id '%d'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to get request with lock: %w", op, err)
	}

	return &req, nil
}

func (r *RequestCommandRepository) ApplyTransition(ctx context.Context, tx *sqlx.Tx, t domain.Transition) (*domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.ApplyTransition"

	ub := r.sq.Update("feedback_requests").
		Set("workflow_state", t.To).
		Set("updated_at", t.At).
		Where(sq.Eq{"id": t.RequestID, "workflow_state": t.From})

	switch t.Event {
	case workflow.EventApprove, workflow.EventAutoApprove:
		ub = ub.Set("approved_by", t.ActorID).Set("approved_at", t.At)
	case workflow.EventManagerReject:
		ub = ub.Set("manager_rejection_reason", t.Reason)
	case workflow.EventAccept, workflow.EventAutoAccept:
		ub = ub.Set("reviewer_responded_at", t.At)
	case workflow.EventReviewerReject:
		ub = ub.Set("reviewer_responded_at", t.At).Set("reviewer_rejection_reason", t.Reason)
	case workflow.EventSubmit:
		ub = ub.Set("completed_at", t.At)
	}

	if t.Event == workflow.EventAutoApprove || t.Event == workflow.EventAutoAccept {
		ub = ub.Set("auto_transitioned", true)
	}

	query, args, err := ub.Suffix("RETURNING " + columns(requestColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	var updated domain.FeedbackRequest
	if err := tx.GetContext(ctx, &updated, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.State(apperrors.CodeInvalidTransition,
				"feedback request %d is no longer %s", t.RequestID, t.From.DisplayStatus())
		}

		return nil, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return &updated, nil
}

func (r *RequestCommandRepository) LockDueForSweep(ctx context.Context, tx *sqlx.Tx, cycleID int64, today time.Time) ([]domain.FeedbackRequest, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.LockDueForSweep"

	query, args, err := r.sq.Select(prefixed("fr", requestColumns)...).
		From("feedback_requests fr").
		Join("review_cycles rc ON rc.id = fr.cycle_id").
		LeftJoin("user_deadline_extensions ude ON ude.cycle_id = fr.cycle_id AND ude.user_id = fr.requester_id AND ude.deadline_type = ?",
			domain.DeadlineNomination).
		Where(sq.Eq{
			"fr.cycle_id":       cycleID,
			"fr.workflow_state": []workflow.State{workflow.PendingManagerApproval, workflow.PendingReviewerAcceptance},
		}).
		Where(sq.Lt{"COALESCE(ude.extended_deadline, rc.nomination_deadline)": today}).
		OrderBy("fr.id").
		Suffix("FOR UPDATE OF fr").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var due []domain.FeedbackRequest
	if err := tx.SelectContext(ctx, &due, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select due requests: %w", op, err)
	}

	return due, nil
}

func (r *RequestCommandRepository) ExpireOpen(ctx context.Context, tx *sqlx.Tx, cycleID int64, from []workflow.State, at time.Time) (int64, error) {
	const op = "internal.repository.postgres.RequestCommandRepository.ExpireOpen"

	if len(from) == 0 {
		return 0, nil
	}

	query, args, err := r.sq.Update("feedback_requests").
		Set("workflow_state", workflow.Expired).
		Set("updated_at", at).
		Where(sq.Eq{"cycle_id": cycleID, "workflow_state": from}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read affected rows: %w", op, err)
	}

	return n, nil
}
