package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/dept-csat-engine/pkg/config"
)

// Message is a single outbound mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer delivers messages over SMTP with mandatory STARTTLS.
type Mailer struct {
	from   string
	dialer sender
}

// New builds a Mailer from configuration.
func New(cfg config.MailConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec
	}

	return &Mailer{from: cfg.From, dialer: d}, nil
}

// Send delivers the message. A message without recipients is a no-op.
func (m *Mailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := m.dialer.DialAndSend(build(m.from, msg)); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}

func build(from string, msg Message) *mail.Message {
	out := mail.NewMessage()
	out.SetHeader("From", from)
	out.SetHeader("To", msg.To...)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)
	return out
}
