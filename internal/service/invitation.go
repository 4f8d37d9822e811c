package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/auth"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/internal/notify"
	"github.com/YusovID/feedback-360-service/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Invitation is an issued external access token that still has to be mailed.
// Token is the only copy of the plaintext.
type Invitation struct {
	RequestID    int64
	CycleID      int64
	RequesterID  int64
	Email        string
	ReviewerName string
	Token        string
}

// Invitations issues access tokens for approved external requests and mails them.
type Invitations struct {
	tokens   repository.TokenRepository
	users    repository.UserRepository
	notifier Notifier
	log      *slog.Logger
	linkBase string
}

func NewInvitations(tokens repository.TokenRepository, users repository.UserRepository, notifier Notifier, log *slog.Logger, linkBase string) *Invitations {
	return &Invitations{
		tokens:   tokens,
		users:    users,
		notifier: notifier,
		log:      log,
		linkBase: linkBase,
	}
}

// Issue stores a hashed token for req inside tx. A request that already has a token
// yields nil so repeated approvals of the same request never mail twice.
// Callers hold the request row lock.
func (i *Invitations) Issue(ctx context.Context, tx *sqlx.Tx, req *domain.FeedbackRequest) (*Invitation, error) {
	const op = "internal.service.Invitations.Issue"

	if !req.IsExternal() || req.ExternalEmail == nil {
		return nil, nil
	}

	_, err := i.tokens.LockByRequest(ctx, tx, req.ID)
	if err == nil {
		return nil, nil
	}

	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%s: failed to check existing token: %w", op, err)
	}

	plain, err := auth.NewAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := auth.HashPassword(plain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = i.tokens.Create(ctx, tx, &domain.ExternalToken{
		RequestID: req.ID,
		CycleID:   req.CycleID,
		Email:     domain.NormalizeEmail(*req.ExternalEmail),
		TokenHash: hash,
		Status:    domain.TokenIssued,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Invitation{
		RequestID:    req.ID,
		CycleID:      req.CycleID,
		RequesterID:  req.RequesterID,
		Email:        domain.NormalizeEmail(*req.ExternalEmail),
		ReviewerName: req.ExternalName,
		Token:        plain,
	}, nil
}

// Send queues the invitation mail. It is called after the issuing transaction commits.
func (i *Invitations) Send(ctx context.Context, ext sqlx.ExtContext, c *domain.Cycle, inv *Invitation) {
	const op = "internal.service.Invitations.Send"

	if inv == nil {
		return
	}

	requesterName := ""
	if u, err := i.users.GetByID(ctx, ext, inv.RequesterID); err == nil {
		requesterName = u.FullName()
	} else {
		i.log.Warn("failed to load requester for invitation", slog.String("op", op), slog.Int64("request_id", inv.RequestID))
	}

	notifyQuietly(ctx, i.notifier, notify.Notification{
		Category: notify.CategoryExternalInvitation,
		To:       inv.Email,
		Data: notify.InvitationData{
			ReviewerName:  inv.ReviewerName,
			RequesterName: requesterName,
			CycleName:     c.DisplayName,
			Deadline:      c.FeedbackDeadline.Format(dateLayout),
			Link:          i.link(inv),
			Token:         inv.Token,
		},
		RequestID: ptr(inv.RequestID),
		CycleID:   ptr(inv.CycleID),
	})
}

func (i *Invitations) link(inv *Invitation) string {
	q := url.Values{}
	q.Set("email", inv.Email)
	q.Set("token", inv.Token)

	return i.linkBase + "?" + q.Encode()
}
