package models

import (
	"time"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// Account is a local identity: an email address, a bcrypt passphrase hash and
// whether the owner proved control of the address.
type Account struct {
	ID              id.UserID
	Email           string
	PassphraseHash  []byte
	DisplayName     string
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

func NewAccount(accountID id.UserID, email string, passphraseHash []byte, displayName string, now time.Time) (*Account, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account id cannot be nil")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account email cannot be empty")
	}
	if len(passphraseHash) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account passphrase hash cannot be empty")
	}
	return &Account{
		ID:             accountID,
		Email:          email,
		PassphraseHash: passphraseHash,
		DisplayName:    displayName,
		CreatedAt:      now,
	}, nil
}

// MarkEmailVerified is idempotent; the first verification time is kept.
func (a *Account) MarkEmailVerified(now time.Time) {
	if a.EmailVerified {
		return
	}
	a.EmailVerified = true
	a.EmailVerifiedAt = &now
}
