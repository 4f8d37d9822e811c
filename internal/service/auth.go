package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/repository"
)

// MinPasswordLength is the shortest password accepted on first login or change.
const MinPasswordLength = 8

type SessionIssuer interface {
	Employee(u *domain.User) (string, time.Time, error)
	External(email string, requestID, cycleID int64) (string, time.Time, error)
}

// Session is a signed bearer token with its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	SetPassword(ctx context.Context, email, password string) (*Session, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
}

type AuthServiceImpl struct {
	BaseService
	users  repository.UserRepository
	issuer SessionIssuer
}

func NewAuthService(base BaseService, users repository.UserRepository, issuer SessionIssuer) *AuthServiceImpl {
	return &AuthServiceImpl{
		BaseService: base,
		users:       users,
		issuer:      issuer,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "internal.service.auth.Login"
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	u, err := s.users.GetByEmail(ctx, s.ext, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Info("login for unknown email")
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		log.Info("login rejected", slog.Int64("user_id", u.ID))
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUnauthorized)
	}

	return s.session(op, u)
}

// SetPassword sets the first password of a user who has never logged in and signs them in.
func (s *AuthServiceImpl) SetPassword(ctx context.Context, email, password string) (*Session, error) {
	const op = "internal.service.auth.SetPassword"

	if err := checkStrength(password); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, s.ext, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !u.IsActive {
		return nil, apperrors.Policy(apperrors.CodeUserInactive, "this account has been deactivated")
	}

	if u.PasswordHash != "" {
		return nil, apperrors.State(apperrors.CodePasswordAlreadySet, "a password is already set for this account, sign in instead")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u.PasswordHash = hash

	s.log.Info("initial password set", slog.String("op", op), slog.Int64("user_id", u.ID))

	return s.session(op, u)
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	const op = "internal.service.auth.ChangePassword"

	if err := checkStrength(next); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, s.ext, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !auth.CheckPassword(u.PasswordHash, current) {
		return fmt.Errorf("%s: current password does not match: %w", op, apperrors.ErrUnauthorized)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *AuthServiceImpl) session(op string, u *domain.User) (*Session, error) {
	token, exp, err := s.issuer.Employee(u)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to sign session: %w", op, err)
	}

	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func checkStrength(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.Validation(apperrors.CodeWeakPassword, "the password must be at least %d characters long", MinPasswordLength)
	}

	return nil
}
