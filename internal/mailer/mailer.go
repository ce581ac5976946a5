// Package mailer delivers the claim workflow's outbound email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/gomail.v2"

	"claimdesk/pkg/platform/sentinel"
)

// Message is one outbound HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

func (m Message) validate() error {
	if m.To == "" {
		return errors.New("message recipient is required")
	}
	if m.Subject == "" {
		return errors.New("message subject is required")
	}
	return nil
}

// Dialer is the part of *gomail.Dialer the SMTP mailer uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends through an SMTP relay. Every delivery failure wraps
// sentinel.ErrUnavailable; callers decide whether that is terminal.
type SMTPMailer struct {
	dialer Dialer
	from   string
}

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// NewSMTPWithDialer is used by tests to capture outbound messages.
func NewSMTPWithDialer(dialer Dialer, from string) *SMTPMailer {
	return &SMTPMailer{dialer: dialer, from: from}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send to %s: %w: %w", msg.To, sentinel.ErrUnavailable, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to %s: %w: %w", msg.To, sentinel.ErrUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w: %w", msg.To, sentinel.ErrUnavailable, ctx.Err())
	}
}

// LogMailer writes messages to the log instead of delivering them, and keeps
// them in memory so local tooling can pick up the links. Development only.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLog(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.InfoContext(ctx, "email delivered to log",
			"to", msg.To,
			"subject", msg.Subject,
		)
		l.logger.DebugContext(ctx, "email body",
			"to", msg.To,
			"html_body", msg.HTMLBody,
		)
	}
	return nil
}

// Sent returns a copy of every message sent so far.
func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}
