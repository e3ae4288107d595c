// Package notify sends reports and incident alerts by email.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	logx "github.com/urbanbot/server/pkg/logger"
)

// ErrNotConfigured is returned when no sender or receiver is set.
var ErrNotConfigured = errors.New("email relay is not configured")

// Config is bound from EMAIL_* and SMTP_* variables. The sender account is
// also the SMTP login.
type Config struct {
	Sender   string `envconfig:"EMAIL_SENDER"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	Receiver string `envconfig:"EMAIL_RECEIVER"`
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"465"`
}

func (c Config) Enabled() bool {
	return c.Sender != "" && c.Receiver != ""
}

// Mailer delivers one plain-text message to the configured recipient.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer relays over implicit TLS.
type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(m.cfg.Receiver); err != nil {
		return fmt.Errorf("invalid receiver: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Sender),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		logx.Error().Err(err).Str("subject", subject).Str("host", m.cfg.Host).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	logx.Info().Str("subject", subject).Str("to", m.cfg.Receiver).Msg("email sent")
	return nil
}

// NopMailer accepts and drops every message. It stands in when the relay is
// not configured so that callers still get an explicit failure reason.
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, subject, _ string) error {
	logx.Warn().Str("subject", subject).Msg("email relay not configured; message dropped")
	return ErrNotConfigured
}

// New returns an SMTP mailer when cfg is complete, otherwise a NopMailer.
func New(cfg Config) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NopMailer{}
}
