package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	InsecureSkipVerify bool
}

type dialer interface {
	DialAndSend(messages ...*gomail.Message) error
}

// SMTPSender delivers mails over SMTP, one connection per mail.
type SMTPSender struct {
	dialer dialer
	host   string
}

// NewSMTPSender creates an SMTPSender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	slog.Info("Initializing SMTP sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		slog.Warn("InsecureSkipVerify is enabled for SMTP TLS connection", "host", cfg.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via smtp.insecure_skip_verify
	}

	return &SMTPSender{dialer: d, host: cfg.Host}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(email.Message()); err != nil {
		slog.Error("Failed to send mail", "id", email.ID, "host", s.host, "error", err)
		return fmt.Errorf("send mail %s via %s: %w", email.ID, s.host, err)
	}

	slog.Info("Mail sent", "id", email.ID, "to", email.To, "subject", email.Subject)

	return nil
}
