package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/workflow"
	"github.com/jmoiron/sqlx"
)

type ResponseRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewResponseRepository(db *sqlx.DB, log *slog.Logger) *ResponseRepository {
	return &ResponseRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ResponseRepository) UpsertDrafts(ctx context.Context, requestID int64, answers []domain.Answer, at time.Time) error {
	const op = "internal.repository.postgres.ResponseRepository.UpsertDrafts"

	if len(answers) == 0 {
		return nil
	}

	ib := r.sq.Insert("draft_responses").
		Columns("request_id", "question_id", "response_value", "rating_value", "updated_at")

	for _, a := range answers {
		ib = ib.Values(requestID, a.QuestionID, a.Text, a.Rating, at)
	}

	query, args, err := ib.Suffix(`ON CONFLICT (request_id, question_id) DO UPDATE SET
            response_value = EXCLUDED.response_value,
            rating_value = EXCLUDED.rating_value,
            updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if _, ok := pqError(err, pqForeignKeyViolation); ok {
			return apperrors.Validation(apperrors.CodeUnknownQuestion, "draft references an unknown question")
		}

		return fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	return nil
}

func (r *ResponseRepository) ListDrafts(ctx context.Context, requestID int64) ([]domain.Draft, error) {
	const op = "internal.repository.postgres.ResponseRepository.ListDrafts"

	query, args, err := r.sq.Select("request_id", "question_id", "response_value", "rating_value", "updated_at").
		From("draft_responses").
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("question_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.Draft
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list drafts: %w", op, err)
	}

	return out, nil
}

func (r *ResponseRepository) InsertResponses(ctx context.Context, tx *sqlx.Tx, requestID int64, answers []domain.Answer, at time.Time) error {
	const op = "internal.repository.postgres.ResponseRepository.InsertResponses"

	ib := r.sq.Insert("feedback_responses").
		Columns("request_id", "question_id", "response_value", "rating_value", "submitted_at")

	for _, a := range answers {
		ib = ib.Values(requestID, a.QuestionID, a.Text, a.Rating, at)
	}

	query, args, err := ib.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if _, ok := pqError(err, pqUniqueViolation); ok {
			return apperrors.State(apperrors.CodeInvalidTransition, "feedback for request %d has already been submitted", requestID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *ResponseRepository) DeleteDrafts(ctx context.Context, tx *sqlx.Tx, requestID int64) error {
	const op = "internal.repository.postgres.ResponseRepository.DeleteDrafts"

	query, args, err := r.sq.Delete("draft_responses").
		Where(sq.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	return nil
}

func (r *ResponseRepository) ListReceived(ctx context.Context, requesterID, cycleID int64) ([]domain.ReceivedAnswer, error) {
	const op = "internal.repository.postgres.ResponseRepository.ListReceived"

	qb := r.sq.Select(
		"fr.id AS request_id",
		"fr.cycle_id",
		"rc.display_name AS cycle_name",
		"fr.relationship_type",
		"fr.completed_at",
		"q.id AS question_id",
		"q.question_text",
		"q.question_type",
		"resp.rating_value",
		"resp.response_value",
	).
		From("feedback_responses resp").
		Join("feedback_requests fr ON fr.id = resp.request_id").
		Join("feedback_questions q ON q.id = resp.question_id").
		Join("review_cycles rc ON rc.id = fr.cycle_id").
		Where(sq.Eq{"fr.requester_id": requesterID, "fr.workflow_state": workflow.Completed}).
		OrderBy("fr.completed_at DESC", "fr.id", "q.sort_order")

	if cycleID != 0 {
		qb = qb.Where(sq.Eq{"fr.cycle_id": cycleID})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.ReceivedAnswer
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list received feedback: %w", op, err)
	}

	return out, nil
}
