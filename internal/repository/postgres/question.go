package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/relationship"
	"github.com/jmoiron/sqlx"
)

type QuestionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewQuestionRepository(db *sqlx.DB, log *slog.Logger) *QuestionRepository {
	return &QuestionRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *QuestionRepository) ListByRelationship(ctx context.Context, t relationship.Type) ([]domain.Question, error) {
	const op = "internal.repository.postgres.QuestionRepository.ListByRelationship"

	query, args, err := r.sq.Select("id", "relationship_type", "question_text", "question_type", "sort_order", "is_active").
		From("feedback_questions").
		Where(sq.Eq{"relationship_type": t, "is_active": true}).
		OrderBy("sort_order", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.Question
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list questions: %w", op, err)
	}

	return out, nil
}
