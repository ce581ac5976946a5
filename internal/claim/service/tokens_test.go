package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokenstore "claimdesk/internal/claim/store/token"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

func TestTokenIssuer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	store := tokenstore.NewInMemory()
	issuer := NewTokenIssuer(store)
	companyID := id.CompanyID(uuid.New())
	claimID := id.ClaimRequestID(uuid.New())

	raw, issued, err := issuer.IssueToken(ctx, "sup@acme.com", claimID, companyID, 7*24*time.Hour, now)
	require.NoError(t, err)
	assert.NotEqual(t, raw, issued.TokenHash, "raw token must not be stored")
	assert.Equal(t, now.Add(7*24*time.Hour), issued.ExpiresAt)

	t.Run("wrong company is rejected without consuming", func(t *testing.T) {
		_, err := issuer.ValidateAndConsume(ctx, raw, now, boundToCompany(id.CompanyID(uuid.New())))
		assert.ErrorIs(t, err, ErrTokenCompanyMismatch)

		stored, err := store.FindByHash(ctx, HashToken(raw))
		require.NoError(t, err)
		assert.False(t, stored.Used)
	})

	t.Run("redeemed exactly once", func(t *testing.T) {
		token, err := issuer.ValidateAndConsume(ctx, raw, now.Add(time.Hour), boundToCompany(companyID))
		require.NoError(t, err)
		assert.Equal(t, claimID, token.ClaimRequestID)

		_, err = issuer.ValidateAndConsume(ctx, raw, now.Add(2*time.Hour), boundToCompany(companyID))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})

	t.Run("day eight is expired regardless of use", func(t *testing.T) {
		_, err := issuer.ValidateAndConsume(ctx, raw, now.Add(8*24*time.Hour), boundToCompany(companyID))
		assert.ErrorIs(t, err, sentinel.ErrExpired)
	})

	t.Run("unknown and empty tokens", func(t *testing.T) {
		_, err := issuer.ValidateAndConsume(ctx, "not-a-token", now, nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = issuer.ValidateAndConsume(ctx, "", now, nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
