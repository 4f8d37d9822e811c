package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/jmoiron/sqlx"
)

// ExternalSession is a short-lived bearer token scoped to one request.
type ExternalSession struct {
	Token     string
	ExpiresAt time.Time
	RequestID int64
	CycleID   int64
}

type ExternalService interface {
	Authenticate(ctx context.Context, email, token string) (*ExternalSession, error)
	View(ctx context.Context, rv Reviewer) (*ReviewForm, error)
	Respond(ctx context.Context, rv Reviewer, decision Decision, reason string) (*domain.FeedbackRequest, error)
	SaveDraft(ctx context.Context, rv Reviewer, answers []domain.Answer) error
	Drafts(ctx context.Context, rv Reviewer) ([]domain.Draft, error)
	Submit(ctx context.Context, rv Reviewer, answers []domain.Answer) (*domain.FeedbackRequest, error)
}

// ExternalServiceImpl gives external stakeholders the reviewer operations for the
// single request their access token was issued for. Every operation re-checks the
// token so a declined or consumed token ends the session.
type ExternalServiceImpl struct {
	BaseService
	cycles  CycleService
	tokens  repository.TokenRepository
	reviews *ReviewServiceImpl
	issuer  SessionIssuer
}

func NewExternalService(
	base BaseService,
	cycles CycleService,
	tokens repository.TokenRepository,
	reviews *ReviewServiceImpl,
	issuer SessionIssuer,
) *ExternalServiceImpl {
	return &ExternalServiceImpl{
		BaseService: base,
		cycles:      cycles,
		tokens:      tokens,
		reviews:     reviews,
		issuer:      issuer,
	}
}

func (s *ExternalServiceImpl) Authenticate(ctx context.Context, email, token string) (*ExternalSession, error) {
	const op = "internal.service.external.Authenticate"
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	tok, err := s.match(ctx, email, token)
	if err != nil {
		return nil, err
	}

	c, err := s.cycles.ActiveCycle(ctx)
	if err != nil {
		return nil, err
	}

	if tok.CycleID != c.ID {
		return nil, apperrors.Policy(apperrors.CodeCycleInactive, "the review cycle for this invitation has ended")
	}

	signed, exp, err := s.issuer.External(tok.Email, tok.RequestID, tok.CycleID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to sign session: %w", op, err)
	}

	log.Info("external reviewer signed in", slog.Int64("request_id", tok.RequestID))

	return &ExternalSession{Token: signed, ExpiresAt: exp, RequestID: tok.RequestID, CycleID: tok.CycleID}, nil
}

// match finds the usable token for email whose hash matches the presented access code.
func (s *ExternalServiceImpl) match(ctx context.Context, email, token string) (*domain.ExternalToken, error) {
	const op = "internal.service.external.match"

	if len(token) != auth.AccessTokenLength {
		return nil, fmt.Errorf("%s: %w", op, apperrors.ErrUnauthorized)
	}

	toks, err := s.tokens.ListUsableByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range toks {
		if auth.CheckPassword(toks[i].TokenHash, token) {
			return &toks[i], nil
		}
	}

	return nil, fmt.Errorf("%s: no usable access code: %w", op, apperrors.ErrUnauthorized)
}

// active checks that the session's request still has a usable token.
func (s *ExternalServiceImpl) active(ctx context.Context, rv Reviewer) error {
	const op = "internal.service.external.active"

	toks, err := s.tokens.ListUsableByEmail(ctx, rv.Email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, t := range toks {
		if t.RequestID == rv.RequestID {
			return nil
		}
	}

	return apperrors.Policy(apperrors.CodeTokenInvalid, "this access code has already been used or declined")
}

func (s *ExternalServiceImpl) View(ctx context.Context, rv Reviewer) (*ReviewForm, error) {
	if err := s.active(ctx, rv); err != nil {
		return nil, err
	}

	return s.reviews.form(ctx, rv, rv.RequestID)
}

func (s *ExternalServiceImpl) Drafts(ctx context.Context, rv Reviewer) ([]domain.Draft, error) {
	if err := s.active(ctx, rv); err != nil {
		return nil, err
	}

	return s.reviews.drafts(ctx, rv, rv.RequestID)
}

func (s *ExternalServiceImpl) SaveDraft(ctx context.Context, rv Reviewer, answers []domain.Answer) error {
	if err := s.active(ctx, rv); err != nil {
		return err
	}

	return s.reviews.saveDraft(ctx, rv, rv.RequestID, answers)
}

func (s *ExternalServiceImpl) Respond(ctx context.Context, rv Reviewer, decision Decision, reason string) (*domain.FeedbackRequest, error) {
	status := domain.TokenAccepted
	if decision == DecisionReject {
		status = domain.TokenDeclined
	}

	in := RespondInput{RequestID: rv.RequestID, Decision: decision, Reason: reason}

	return s.reviews.respond(ctx, rv, in, s.moveToken(ctx, status))
}

func (s *ExternalServiceImpl) Submit(ctx context.Context, rv Reviewer, answers []domain.Answer) (*domain.FeedbackRequest, error) {
	return s.reviews.submit(ctx, rv, rv.RequestID, answers, s.moveToken(ctx, domain.TokenConsumed))
}

// moveToken returns a hook that locks the request's token and moves it to status.
func (s *ExternalServiceImpl) moveToken(ctx context.Context, status domain.TokenStatus) txHook {
	const op = "internal.service.external.moveToken"

	return func(tx *sqlx.Tx, req *domain.FeedbackRequest) error {
		tok, err := s.tokens.LockByRequest(ctx, tx, req.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if !tok.Status.Usable() {
			return apperrors.Policy(apperrors.CodeTokenInvalid, "this access code has already been used or declined")
		}

		if err := s.tokens.SetStatus(ctx, tx, tok.ID, status, s.now()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	}
}
