package adapters

import (
	"context"

	"claimdesk/internal/claim/ports"
	"claimdesk/internal/mailer"
)

// Sender is implemented by mailer.SMTPMailer and mailer.LogMailer.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// MailerAdapter exposes a mailer.Sender as the claim Mailer port.
type MailerAdapter struct {
	sender Sender
}

func NewMailerAdapter(sender Sender) *MailerAdapter {
	return &MailerAdapter{sender: sender}
}

func (a *MailerAdapter) Send(ctx context.Context, email ports.Email) error {
	return a.sender.Send(ctx, mailer.Message{
		To:       email.To,
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
	})
}
