package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/claim/models"
	tokenstore "claimdesk/internal/claim/store/token"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// TokenIssuer mints supervisor tokens and redeems them exactly once. Only the
// SHA-256 of a token reaches the store.
type TokenIssuer struct {
	store TokenStore
}

func NewTokenIssuer(store TokenStore) *TokenIssuer {
	return &TokenIssuer{store: store}
}

// IssueToken persists a fresh unused token and returns its raw form.
func (t *TokenIssuer) IssueToken(ctx context.Context, email string, claimID id.ClaimRequestID, companyID id.CompanyID, ttl time.Duration, now time.Time) (string, *models.VerificationToken, error) {
	raw, err := newRawToken()
	if err != nil {
		return "", nil, err
	}
	token, err := models.NewVerificationToken(id.TokenID(uuid.New()), HashToken(raw), email, claimID, companyID, ttl, now)
	if err != nil {
		return "", nil, err
	}
	if err := t.store.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("persist verification token: %w", err)
	}
	return raw, token, nil
}

// ValidateAndConsume redeems raw. It fails with sentinel.ErrNotFound,
// sentinel.ErrExpired or sentinel.ErrAlreadyUsed, or with whatever
// precondition returns, and only flips the token when all checks pass.
func (t *TokenIssuer) ValidateAndConsume(ctx context.Context, raw string, now time.Time, precondition tokenstore.CheckFunc) (*models.VerificationToken, error) {
	return consumeToken(ctx, t.store, raw, now, precondition)
}

// consumeToken is ValidateAndConsume against an explicit store, typically the
// transactional one handed out by PromotionTx.
func consumeToken(ctx context.Context, store TokenStore, raw string, now time.Time, precondition tokenstore.CheckFunc) (*models.VerificationToken, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty token: %w", sentinel.ErrNotFound)
	}
	return store.Consume(ctx, HashToken(raw), now, precondition)
}

// ErrTokenCompanyMismatch is returned when a token is redeemed for a company it
// was not issued for.
var ErrTokenCompanyMismatch = errors.New("token was not issued for this company")

// boundToCompany is the redemption precondition of the supervisor link.
func boundToCompany(companyID id.CompanyID) tokenstore.CheckFunc {
	return func(token *models.VerificationToken) error {
		if token.CompanyID != companyID {
			return ErrTokenCompanyMismatch
		}
		return nil
	}
}
