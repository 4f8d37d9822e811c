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

var tokenColumns = []string{"id", "request_id", "cycle_id", "email", "token_hash", "status", "created_at", "used_at"}

type TokenRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewTokenRepository(db *sqlx.DB, log *slog.Logger) *TokenRepository {
	return &TokenRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *TokenRepository) Create(ctx context.Context, ext sqlx.ExtContext, tok *domain.ExternalToken) error {
	const op = "internal.repository.postgres.TokenRepository.Create"

	query, args, err := r.sq.Insert("external_tokens").
		Columns("request_id", "cycle_id", "email", "token_hash", "status").
		Values(tok.RequestID, tok.CycleID, domain.NormalizeEmail(tok.Email), tok.TokenHash, domain.TokenIssued).
		Suffix("RETURNING " + columns(tokenColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := sqlx.GetContext(ctx, ext, tok, query, args...); err != nil {
		if _, ok := pqError(err, pqUniqueViolation); ok {
			return fmt.Errorf("%s: %w: token for request '%d'", op, apperrors.ErrAlreadyExists, tok.RequestID)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *TokenRepository) ListUsableByEmail(ctx context.Context, email string) ([]domain.ExternalToken, error) {
	const op = "internal.repository.postgres.TokenRepository.ListUsableByEmail"

	query, args, err := r.sq.Select(tokenColumns...).
		From("external_tokens").
		Where(sq.Eq{"lower(email)": domain.NormalizeEmail(email), "status": []domain.TokenStatus{domain.TokenIssued, domain.TokenAccepted}}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var out []domain.ExternalToken
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list tokens: %w", op, err)
	}

	return out, nil
}

func (r *TokenRepository) LockByRequest(ctx context.Context, tx *sqlx.Tx, requestID int64) (*domain.ExternalToken, error) {
	const op = "internal.repository.postgres.TokenRepository.LockByRequest"

	query, args, err := r.sq.Select(tokenColumns...).
		From("external_tokens").
		Where(sq.Eq{"request_id": requestID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var tok domain.ExternalToken
	if err := tx.GetContext(ctx, &tok, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: token for request '%d'", op, apperrors.ErrNotFound, requestID)
		}

		return nil, fmt.Errorf("%s: failed to get token with lock: %w", op, err)
	}

	return &tok, nil
}

func (r *TokenRepository) SetStatus(ctx context.Context, tx *sqlx.Tx, id int64, status domain.TokenStatus, at time.Time) error {
	const op = "internal.repository.postgres.TokenRepository.SetStatus"

	query, args, err := r.sq.Update("external_tokens").
		Set("status", status).
		Set("used_at", at).
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
