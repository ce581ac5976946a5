// Package ports declares what the claim workflow needs from the outside:
// an identity provider for the business channel, a mailer and an audit sink.
package ports

import (
	"context"

	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks IdentityProvider,Mailer,AuditPublisher

// IdentityProvider provisions and verifies the claimant's account.
//
// CreateAccount fails with sentinel.ErrConflict when an account already exists
// for the email. DeleteAccount and IsEmailVerified fail with
// sentinel.ErrNotFound for unknown accounts.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, passphrase, displayName string) (id.UserID, error)
	DeleteAccount(ctx context.Context, userID id.UserID) error
	IssueEmailVerificationLink(ctx context.Context, email, returnURL string) (string, error)
	IsEmailVerified(ctx context.Context, userID id.UserID) (bool, error)
}

// Email is one rendered outbound message.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer delivers email. Failures wrap sentinel.ErrUnavailable.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// AuditPublisher records claim lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
