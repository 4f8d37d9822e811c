package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/YusovID/feedback-360-service/internal/config"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/nats-io/nats.go"
)

// Sender delivers one outbox message.
type Sender interface {
	Send(ctx context.Context, msg domain.OutboxMessage) error
}

// NewSender builds the sender selected by cfg.Driver. The returned close func
// releases any connection the sender holds.
func NewSender(cfg config.Notify, log *slog.Logger) (Sender, func() error, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogSender(log), func() error { return nil }, nil
	case "smtp":
		return NewSMTPSender(cfg.SMTP, cfg.From, log), func() error { return nil }, nil
	case "nats":
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("feedback-360"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}

		return NewNATSSender(nc, cfg.NATS.SubjectPrefix, log), func() error {
			return nc.Drain()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}

type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg domain.OutboxMessage) error {
	s.log.Info("notification",
		slog.String("message_id", msg.MessageID),
		slog.String("to", msg.To),
		slog.String("category", msg.Category),
		slog.String("subject", msg.Subject),
	)

	return nil
}

type SMTPSender struct {
	cfg  config.SMTP
	from string
	log  *slog.Logger
}

func NewSMTPSender(cfg config.SMTP, from string, log *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from, log: log}
}

func (s *SMTPSender) Send(ctx context.Context, msg domain.OutboxMessage) error {
	body, err := buildMIME(s.from, msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.Username != "" && s.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}

	if _, err := wc.Write(body); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	s.log.Debug("email sent", slog.String("to", msg.To), slog.String("message_id", msg.MessageID))

	return client.Quit()
}

// buildMIME renders a multipart/alternative message with text and html parts.
func buildMIME(from string, msg domain.OutboxMessage) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []struct{ k, v string }{
		{"From", from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Message-ID", "<" + msg.MessageID + "@feedback-360>"},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}

	var head bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", h.k, h.v)
	}
	head.WriteString("\r\n")

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", msg.TextBody},
		{"text/html; charset=UTF-8", msg.HTMLBody},
	}

	for _, p := range parts {
		if p.body == "" {
			continue
		}

		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("failed to create mime part: %w", err)
		}

		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("failed to write mime part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close mime writer: %w", err)
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

// Event is the JSON document published to NATS.
type Event struct {
	MessageID string `json:"message_id"`
	Category  string `json:"category"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"html_body"`
	TextBody  string `json:"text_body,omitempty"`
	RequestID *int64 `json:"request_id,omitempty"`
	CycleID   *int64 `json:"cycle_id,omitempty"`
}

// NATSSender hands messages to a mail relay subscribed on "<prefix>.<category>".
type NATSSender struct {
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

func NewNATSSender(nc *nats.Conn, prefix string, log *slog.Logger) *NATSSender {
	return &NATSSender{nc: nc, prefix: prefix, log: log}
}

func (s *NATSSender) Send(ctx context.Context, msg domain.OutboxMessage) error {
	out, err := natsMessage(s.prefix, msg)
	if err != nil {
		return err
	}

	if err := s.nc.PublishMsg(out); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", out.Subject, err)
	}

	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}

	s.log.Debug("notification published", slog.String("subject", out.Subject), slog.String("message_id", msg.MessageID))

	return nil
}

func natsMessage(prefix string, msg domain.OutboxMessage) (*nats.Msg, error) {
	data, err := json.Marshal(Event{
		MessageID: msg.MessageID,
		Category:  msg.Category,
		To:        msg.To,
		Subject:   msg.Subject,
		HTMLBody:  msg.HTMLBody,
		TextBody:  msg.TextBody,
		RequestID: msg.RequestID,
		CycleID:   msg.CycleID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	out := nats.NewMsg(prefix + "." + msg.Category)
	out.Data = data
	// lets a JetStream stream on the subject drop redelivered duplicates
	out.Header.Set(nats.MsgIdHdr, msg.MessageID)

	return out, nil
}
