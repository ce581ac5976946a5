package adapters

import (
	"context"
	"fmt"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
)

// IdentityService is the local identity provider surface the claim workflow uses.
type IdentityService interface {
	CreateAccount(ctx context.Context, email, passphrase, displayName string) (id.UserID, error)
	DeleteAccount(ctx context.Context, accountID id.UserID) error
	IssueEmailVerificationLink(ctx context.Context, email, returnURL string) (string, error)
	IsEmailVerified(ctx context.Context, accountID id.UserID) (bool, error)
}

// IdentityAdapter translates the identity service's coded errors back into
// the sentinel facts the claim port promises.
type IdentityAdapter struct {
	service IdentityService
}

func NewIdentityAdapter(service IdentityService) *IdentityAdapter {
	return &IdentityAdapter{service: service}
}

func (a *IdentityAdapter) CreateAccount(ctx context.Context, email, passphrase, displayName string) (id.UserID, error) {
	userID, err := a.service.CreateAccount(ctx, email, passphrase, displayName)
	if err != nil {
		return id.UserID{}, translate(err)
	}
	return userID, nil
}

func (a *IdentityAdapter) DeleteAccount(ctx context.Context, userID id.UserID) error {
	if err := a.service.DeleteAccount(ctx, userID); err != nil {
		return translate(err)
	}
	return nil
}

func (a *IdentityAdapter) IssueEmailVerificationLink(ctx context.Context, email, returnURL string) (string, error) {
	link, err := a.service.IssueEmailVerificationLink(ctx, email, returnURL)
	if err != nil {
		return "", translate(err)
	}
	return link, nil
}

func (a *IdentityAdapter) IsEmailVerified(ctx context.Context, userID id.UserID) (bool, error) {
	verified, err := a.service.IsEmailVerified(ctx, userID)
	if err != nil {
		return false, translate(err)
	}
	return verified, nil
}

func translate(err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeAlreadyExists):
		return fmt.Errorf("identity: %w: %w", sentinel.ErrConflict, err)
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return fmt.Errorf("identity: %w: %w", sentinel.ErrNotFound, err)
	default:
		return fmt.Errorf("identity: %w", err)
	}
}
