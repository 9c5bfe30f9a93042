// Package mailer sends transactional email. Delivery is strictly best
// effort from the order pipeline's point of view: a paid order stays paid
// whether or not its confirmation leaves the building.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Module wires the configured sender.
var Module = fx.Provide(NewSender)

// NewSender selects the mail driver (smtp or noop).
func NewSender(cfg config.Config, logger *zap.Logger) (Sender, error) {
	switch cfg.Mail.Driver {
	case "noop":
		logger.Info("mail disabled; using noop sender")
		return noopSender{logger: logger}, nil
	case "smtp":
		return &smtpSender{cfg: cfg.Mail}, nil
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s", cfg.Mail.Driver)
	}
}

type noopSender struct {
	logger *zap.Logger
}

func (n noopSender) Send(_ context.Context, msg Message) error {
	n.logger.Debug("noop mail", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

type smtpSender struct {
	cfg config.Mail
}

func (s *smtpSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail message has no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, msg.To, []byte(b.String()))
}
