package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var userColumns = []string{
	"id", "email", "first_name", "last_name", "vertical", "designation", "manager_email",
	"date_of_joining", "role", "password_hash", "is_active", "created_at", "updated_at",
}

type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (ur *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.Create"

	query, args, err := ur.sq.Insert("users").
		Columns("email", "first_name", "last_name", "vertical", "designation", "manager_email", "date_of_joining", "role", "is_active").
		Values(u.Email, u.FirstName, u.LastName, u.Vertical, u.Designation, u.ManagerEmail, u.DateOfJoining, u.Role, u.IsActive).
		Suffix("RETURNING " + columns(userColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	var created domain.User
	if err := ur.db.QueryRowxContext(ctx, query, args...).StructScan(&created); err != nil {
		if _, ok := pqError(err, pqUniqueViolation); ok {
			return nil, &apperrors.UserAlreadyExistsError{Email: u.Email}
		}

		return nil, fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return &created, nil
}

func (ur *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.Update"

	query, args, err := ur.sq.Update("users").
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("vertical", u.Vertical).
		Set("designation", u.Designation).
		Set("manager_email", u.ManagerEmail).
		Set("date_of_joining", u.DateOfJoining).
		Set("role", u.Role).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING " + columns(userColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	return ur.scanOne(ctx, op, ur.db, query, args, u.ID)
}

func (ur *UserRepository) SetActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.SetActive"

	log := ur.log.With(slog.String("op", op))
	log.Info("setting user activity", slog.Int64("user_id", id), slog.Bool("is_active", active))

	query, args, err := ur.sq.Update("users").
		Set("is_active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columns(userColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	return ur.scanOne(ctx, op, ur.db, query, args, id)
}

func (ur *UserRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	const op = "internal.repository.postgres.UserRepository.SetPasswordHash"

	query, args, err := ur.sq.Update("users").
		Set("password_hash", hash).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ur.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w: user with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (ur *UserRepository) GetByID(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.GetByID"

	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	return ur.scanOne(ctx, op, ext, query, args, id)
}

func (ur *UserRepository) GetByEmail(ctx context.Context, ext sqlx.ExtContext, email string) (*domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.GetByEmail"

	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": domain.NormalizeEmail(email)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var u domain.User
	if err := sqlx.GetContext(ctx, ext, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: user with email '%s'", op, apperrors.ErrNotFound, email)
		}

		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	return &u, nil
}

func (ur *UserRepository) LockByIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.LockByIDs"

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": sorted}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var users []domain.User
	if err := tx.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to lock users: %w", op, err)
	}

	if len(users) != len(sorted) {
		return nil, fmt.Errorf("%s: %w: %d of %d users", op, apperrors.ErrNotFound, len(sorted)-len(users), len(sorted))
	}

	return users, nil
}

func (ur *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.List"

	qb := ur.sq.Select(userColumns...).
		From("users").
		OrderBy("first_name", "last_name")

	if filter.Vertical != "" {
		qb = qb.Where(sq.Eq{"vertical": filter.Vertical})
	}

	if filter.ActiveOnly {
		qb = qb.Where(sq.Eq{"is_active": true})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var users []domain.User
	if err := ur.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list users: %w", op, err)
	}

	return users, nil
}

func (ur *UserRepository) ListVerticals(ctx context.Context) ([]string, error) {
	const op = "internal.repository.postgres.UserRepository.ListVerticals"

	query, args, err := ur.sq.Select("DISTINCT vertical").
		From("users").
		Where(sq.Eq{"is_active": true}).
		Where(sq.NotEq{"vertical": ""}).
		OrderBy("vertical").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var verticals []string
	if err := ur.db.SelectContext(ctx, &verticals, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list verticals: %w", op, err)
	}

	return verticals, nil
}

func (ur *UserRepository) DirectReports(ctx context.Context, managerEmail string) ([]domain.User, error) {
	const op = "internal.repository.postgres.UserRepository.DirectReports"

	query, args, err := ur.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"manager_email": domain.NormalizeEmail(managerEmail), "is_active": true}).
		OrderBy("first_name", "last_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var users []domain.User
	if err := ur.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to list direct reports: %w", op, err)
	}

	return users, nil
}

func (ur *UserRepository) CountDirectReports(ctx context.Context, ext sqlx.ExtContext, managerEmail string) (int, error) {
	const op = "internal.repository.postgres.UserRepository.CountDirectReports"

	query, args, err := ur.sq.Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"manager_email": domain.NormalizeEmail(managerEmail), "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var n int
	if err := sqlx.GetContext(ctx, ext, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: failed to count direct reports: %w", op, err)
	}

	return n, nil
}

func (ur *UserRepository) scanOne(ctx context.Context, op string, ext sqlx.ExtContext, query string, args []any, id int64) (*domain.User, error) {
	var u domain.User
	if err := sqlx.GetContext(ctx, ext, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: user with id '%d'", op, apperrors.ErrNotFound, id)
		}

		return nil, fmt.Errorf("%s: failed to scan user: %w", op, err)
	}

	return &u, nil
}
