package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

func newPendingClaim(t *testing.T) *ClaimRequest {
	t.Helper()
	c, err := NewClaimRequest(
		id.ClaimRequestID(uuid.New()),
		id.CompanyID(uuid.New()),
		"Acme Bakery",
		id.UserID(uuid.New()),
		"owner@acme.com",
		"boss@acme.com",
		"123456",
		time.Now(),
	)
	require.NoError(t, err)
	return c
}

func TestClaimStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ClaimStatus
		allowed  bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, ClaimStatus("archived").IsValid())
}

func TestNewClaimRequest(t *testing.T) {
	c := newPendingClaim(t)
	assert.Equal(t, StatusPending, c.Status)
	assert.False(t, c.BusinessEmailVerified)
	assert.False(t, c.SupervisorEmailVerified)

	t.Run("identical emails rejected", func(t *testing.T) {
		_, err := NewClaimRequest(id.ClaimRequestID(uuid.New()), id.CompanyID(uuid.New()), "Acme", id.UserID(uuid.New()),
			"owner@acme.com", "OWNER@acme.com", "123456", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("account required", func(t *testing.T) {
		_, err := NewClaimRequest(id.ClaimRequestID(uuid.New()), id.CompanyID(uuid.New()), "Acme", id.UserID(uuid.Nil),
			"owner@acme.com", "boss@acme.com", "123456", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestApproveRequiresBothFlags(t *testing.T) {
	now := time.Now()
	c := newPendingClaim(t)

	require.Error(t, c.Approve(now))
	require.NoError(t, c.MarkSupervisorVerified(now))
	assert.False(t, c.ReadyForPromotion())
	require.Error(t, c.Approve(now))

	require.NoError(t, c.MarkBusinessVerified(now))
	assert.True(t, c.ReadyForPromotion())
	require.NoError(t, c.Approve(now))
	assert.Equal(t, StatusApproved, c.Status)
	require.NotNil(t, c.ApprovedAt)

	t.Run("approved is terminal", func(t *testing.T) {
		assert.Error(t, c.Approve(now))
		assert.Error(t, c.Reject(now))
		assert.Error(t, c.MarkBusinessVerified(now))
		assert.False(t, c.ReadyForPromotion())
	})
}

func TestFlagsDoNotMoveOnRejectedClaim(t *testing.T) {
	now := time.Now()
	c := newPendingClaim(t)
	require.NoError(t, c.Reject(now))

	assert.Error(t, c.MarkSupervisorVerified(now))
	assert.Error(t, c.MarkBusinessVerified(now))
	assert.False(t, c.SupervisorEmailVerified)
	assert.False(t, c.BusinessEmailVerified)
}

func TestVerificationTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewVerificationToken(id.TokenID(uuid.New()), "hash", "boss@acme.com",
		id.ClaimRequestID(uuid.New()), id.CompanyID(uuid.New()), 7*24*time.Hour, now)
	require.NoError(t, err)

	assert.Equal(t, now.Add(7*24*time.Hour), tok.ExpiresAt)
	assert.False(t, tok.IsExpired(now.Add(7*24*time.Hour-time.Second)))
	assert.False(t, tok.IsExpired(now.Add(7*24*time.Hour)), "the expiry instant itself is still valid")
	assert.True(t, tok.IsExpired(now.Add(7*24*time.Hour+time.Nanosecond)))
	assert.True(t, tok.IsExpired(now.Add(8*24*time.Hour)))

	tok.MarkUsed(now)
	assert.True(t, tok.Used)
	assert.Equal(t, now, *tok.UsedAt)

	_, err = NewVerificationToken(id.TokenID(uuid.New()), "hash", "boss@acme.com",
		id.ClaimRequestID(uuid.New()), id.CompanyID(uuid.New()), 0, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
