// Package notify renders workflow notifications and records them in the outbox.
// Delivery is done later by a dispatcher through one of the Sender implementations.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/YusovID/feedback-360-service/pkg/logger/sl"
	"github.com/google/uuid"
)

//go:embed templates
var templatesFS embed.FS

type Category string

const (
	CategoryApprovalRequest    Category = "manager_approval_request"
	CategoryNominationApproved Category = "nomination_approved"
	CategoryNominationRejected Category = "nomination_rejected"
	CategoryExternalInvitation Category = "external_invitation"
	CategoryFeedbackSubmitted  Category = "feedback_submitted"
	CategoryReminder           Category = "reminder"
)

var categories = []Category{
	CategoryApprovalRequest,
	CategoryNominationApproved,
	CategoryNominationRejected,
	CategoryExternalInvitation,
	CategoryFeedbackSubmitted,
	CategoryReminder,
}

type ApprovalRequestData struct {
	ManagerName   string
	RequesterName string
	CycleName     string
	Reviewers     []string
	Deadline      string
}

type NominationData struct {
	RequesterName string
	ReviewerName  string
	CycleName     string
	Reason        string
}

type InvitationData struct {
	ReviewerName  string
	RequesterName string
	CycleName     string
	Deadline      string
	Link          string
	Token         string
}

// SubmittedData tells a requester new feedback arrived. It carries no reviewer identity.
type SubmittedData struct {
	RequesterName string
	CycleName     string
	Relationship  string
}

type ReminderData struct {
	Name    string
	Subject string
	Body    string
}

// Paragraphs splits the body on blank lines.
func (d ReminderData) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(d.Body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Notification is a message to render for one recipient.
type Notification struct {
	Category  Category
	To        string
	Data      any
	RequestID *int64
	CycleID   *int64
}

type Store interface {
	Enqueue(ctx context.Context, msg *domain.OutboxMessage) error
}

type Notifier struct {
	store Store
	log   *slog.Logger
	html  *htmltemplate.Template
	text  *texttemplate.Template
}

func NewNotifier(store Store, log *slog.Logger) (*Notifier, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}

	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	for _, c := range categories {
		if html.Lookup(string(c)+".html") == nil || text.Lookup(string(c)+".subject") == nil || text.Lookup(string(c)+".text") == nil {
			return nil, fmt.Errorf("templates for %q are incomplete", c)
		}
	}

	return &Notifier{store: store, log: log, html: html, text: text}, nil
}

// Render produces the outbox row for n without storing it.
func (n *Notifier) Render(note Notification) (*domain.OutboxMessage, error) {
	name := string(note.Category)

	if n.html.Lookup(name+".html") == nil {
		return nil, fmt.Errorf("unknown notification category %q", note.Category)
	}

	var subject, text, html bytes.Buffer

	if err := n.text.ExecuteTemplate(&subject, name+".subject", note.Data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	if err := n.text.ExecuteTemplate(&text, name+".text", note.Data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}

	if err := n.html.ExecuteTemplate(&html, name+".html", note.Data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &domain.OutboxMessage{
		MessageID: uuid.NewString(),
		To:        domain.NormalizeEmail(note.To),
		Subject:   strings.TrimSpace(subject.String()),
		HTMLBody:  html.String(),
		TextBody:  strings.TrimSpace(text.String()) + "\n",
		Category:  name,
		RequestID: note.RequestID,
		CycleID:   note.CycleID,
	}, nil
}

// Notify renders and enqueues a notification. Failures are logged and returned;
// workflow callers ignore the error, reminder callers report it per recipient.
func (n *Notifier) Notify(ctx context.Context, note Notification) error {
	const op = "internal.notify.Notifier.Notify"

	log := n.log.With(
		slog.String("op", op),
		slog.String("category", string(note.Category)),
		slog.String("to", note.To),
	)

	msg, err := n.Render(note)
	if err != nil {
		log.Error("failed to render notification", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := n.store.Enqueue(ctx, msg); err != nil {
		log.Error("failed to enqueue notification", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("notification enqueued", slog.String("message_id", msg.MessageID))

	return nil
}
