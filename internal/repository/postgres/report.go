package postgres

import (
	"context"
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

type ReportRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewReportRepository(db *sqlx.DB, log *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// load is the per-person count of slot-occupying requests in a cycle, keyed by the given
// column. Nested builders keep the default "?" placeholders; the outer builder rewrites them.
func load(cycleID int64, key string) sq.SelectBuilder {
	return sq.Select(key+" AS person_id", "COUNT(*) AS active").
		From("feedback_requests").
		Where(sq.Eq{"cycle_id": cycleID, "workflow_state": workflow.CountingStates()}).
		Where(sq.NotEq{key: nil}).
		GroupBy(key)
}

func (r *ReportRepository) CountActiveUsers(ctx context.Context) (int, error) {
	const op = "internal.repository.postgres.ReportRepository.CountActiveUsers"

	query, args, err := r.sq.Select("COUNT(*)").From("users").Where(sq.Eq{"is_active": true}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: failed to count users: %w", op, err)
	}

	return n, nil
}

func (r *ReportRepository) StateCounts(ctx context.Context, cycleID int64) ([]domain.StateCount, error) {
	const op = "internal.repository.postgres.ReportRepository.StateCounts"

	query, args, err := r.sq.Select("workflow_state", "COUNT(*) AS count").
		From("feedback_requests").
		Where(sq.Eq{"cycle_id": cycleID}).
		GroupBy("workflow_state").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.StateCount
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to count states: %w", op, err)
	}

	return out, nil
}

func (r *ReportRepository) ProgressSummary(ctx context.Context, cycleID int64) ([]domain.UserProgress, error) {
	const op = "internal.repository.postgres.ReportRepository.ProgressSummary"

	const countWhere = "(SELECT COUNT(*) FROM feedback_requests f WHERE f.cycle_id = ? AND %s) AS %s"

	query, args, err := r.sq.Select("u.id AS user_id", nameOf("u")+" AS name", "u.email", "u.vertical").
		Column(fmt.Sprintf(countWhere, "f.requester_id = u.id", "nominations_made"), cycleID).
		Column(fmt.Sprintf(countWhere,
			"f.requester_id = u.id AND f.workflow_state IN ('pending_manager_approval', 'pending_reviewer_acceptance', 'in_progress', 'completed')",
			"nominations_active"), cycleID).
		Column(fmt.Sprintf(countWhere, "f.requester_id = u.id AND f.workflow_state = 'completed'", "feedback_received"), cycleID).
		Column(fmt.Sprintf(countWhere,
			"f.reviewer_id = u.id AND f.workflow_state IN ('pending_reviewer_acceptance', 'in_progress')", "reviews_pending"), cycleID).
		Column(fmt.Sprintf(countWhere, "f.reviewer_id = u.id AND f.workflow_state = 'completed'", "reviews_completed"), cycleID).
		Column(`(SELECT COUNT(*) FROM feedback_requests f JOIN users rq ON rq.id = f.requester_id
            WHERE f.cycle_id = ? AND rq.manager_email = u.email AND f.workflow_state = 'pending_manager_approval') AS approvals_awaiting`, cycleID).
		Column(fmt.Sprintf(countWhere,
			"f.requester_id = u.id AND f.workflow_state IN ('manager_rejected', 'reviewer_rejected')", "rejections_received"), cycleID).
		From("users u").
		Where(sq.Eq{"u.is_active": true}).
		OrderBy("u.vertical", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.UserProgress
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to build progress summary: %w", op, err)
	}

	return out, nil
}

func (r *ReportRepository) ReviewerLoads(ctx context.Context, cycleID int64) ([]domain.ReviewerLoad, error) {
	const op = "internal.repository.postgres.ReportRepository.ReviewerLoads"

	query, args, err := r.sq.Select("u.id AS user_id", nameOf("u")+" AS name", "u.email", "u.vertical", "ac.active AS active_requests").
		From("users u").
		JoinClause(load(cycleID, "reviewer_id").Prefix("JOIN (").Suffix(") ac ON ac.person_id = u.id")).
		OrderBy("ac.active DESC", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.ReviewerLoad
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list reviewer loads: %w", op, err)
	}

	return out, nil
}

func (r *ReportRepository) EligibleReviewers(ctx context.Context, cycleID int64, cutoff, tenureBefore time.Time) ([]domain.ReviewerCandidate, error) {
	const op = "internal.repository.postgres.ReportRepository.EligibleReviewers"

	eligible := sq.Or{
		sq.Eq{"u.date_of_joining": nil},
		sq.LtOrEq{"u.date_of_joining": tenureBefore},
	}
	if !cutoff.IsZero() {
		eligible = append(eligible, sq.LtOrEq{"u.date_of_joining": cutoff})
	}

	cols := append(prefixed("u", userColumns), "COALESCE(ac.active, 0) AS active_requests")

	query, args, err := r.sq.Select(cols...).
		From("users u").
		JoinClause(load(cycleID, "reviewer_id").Prefix("LEFT JOIN (").Suffix(") ac ON ac.person_id = u.id")).
		Where(sq.Eq{"u.is_active": true}).
		Where(eligible).
		OrderBy("u.first_name", "u.last_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.ReviewerCandidate
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list eligible reviewers: %w", op, err)
	}

	return out, nil
}

func (r *ReportRepository) Audience(ctx context.Context, cycleID int64, audience domain.Audience) ([]domain.Recipient, error) {
	const op = "internal.repository.postgres.ReportRepository.Audience"

	var qb sq.SelectBuilder

	switch audience {
	case domain.AudiencePendingNominations:
		qb = r.sq.Select("u.id AS user_id", nameOf("u")+" AS name", "u.email", "COALESCE(ac.active, 0) AS count").
			From("users u").
			JoinClause(load(cycleID, "requester_id").Prefix("LEFT JOIN (").Suffix(") ac ON ac.person_id = u.id")).
			Where(sq.Eq{"u.is_active": true}).
			Where("COALESCE(ac.active, 0) < ?", limits.MaxActive)
	case domain.AudiencePendingApprovals:
		qb = r.sq.Select("m.id AS user_id", nameOf("m")+" AS name", "m.email", "COUNT(*) AS count").
			From("feedback_requests fr").
			Join("users rq ON rq.id = fr.requester_id").
			Join("users m ON m.email = rq.manager_email").
			Where(sq.Eq{"fr.cycle_id": cycleID, "fr.workflow_state": workflow.PendingManagerApproval, "m.is_active": true}).
			GroupBy("m.id")
	case domain.AudiencePendingReviews:
		qb = r.sq.Select("rv.id AS user_id", nameOf("rv")+" AS name", "rv.email", "COUNT(*) AS count").
			From("feedback_requests fr").
			Join("users rv ON rv.id = fr.reviewer_id").
			Where(sq.Eq{
				"fr.cycle_id":       cycleID,
				"fr.workflow_state": []workflow.State{workflow.PendingReviewerAcceptance, workflow.InProgress},
				"rv.is_active":      true,
			}).
			GroupBy("rv.id")
	default:
		return nil, apperrors.Validation(apperrors.CodeUnknownAudience, "unknown audience %q", audience)
	}

	query, args, err := qb.OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.Recipient
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to resolve audience: %w", op, err)
	}

	return out, nil
}
