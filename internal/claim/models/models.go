package models

import (
	"strings"
	"time"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// ClaimStatus is the lifecycle state of a claim request.
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
)

func (s ClaimStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s ClaimStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the state machine allows s → next.
// Only pending moves, and only to approved or rejected.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusRejected)
}

func (s ClaimStatus) String() string {
	return string(s)
}

// ClaimRequest is one attempt to take ownership of a company listing.
//
// Invariants:
//   - Status moves pending → approved only when both verification flags are set
//   - approved and rejected are terminal
//   - verification flags only flip false → true, and only while pending
type ClaimRequest struct {
	ID                      id.ClaimRequestID
	CompanyID               id.CompanyID
	CompanyName             string
	RequesterID             *id.UserID
	RequesterName           string
	BusinessEmail           string
	SupervisorEmail         string
	ContactPhone            string
	Status                  ClaimStatus
	TrackingNumber          string
	BusinessEmailVerified   bool
	SupervisorEmailVerified bool
	UserID                  id.UserID
	CreatedAt               time.Time
	UpdatedAt               time.Time
	ApprovedAt              *time.Time
}

// NewClaimRequest builds a pending claim with both channels unverified.
func NewClaimRequest(
	claimID id.ClaimRequestID,
	companyID id.CompanyID,
	companyName string,
	userID id.UserID,
	businessEmail string,
	supervisorEmail string,
	trackingNumber string,
	now time.Time,
) (*ClaimRequest, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim request id cannot be nil")
	}
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company id cannot be nil")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim must be bound to an account")
	}
	if businessEmail == "" || supervisorEmail == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "both verification emails are required")
	}
	if strings.EqualFold(businessEmail, supervisorEmail) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "business and supervisor email must differ")
	}
	if trackingNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tracking number cannot be empty")
	}
	return &ClaimRequest{
		ID:              claimID,
		CompanyID:       companyID,
		CompanyName:     companyName,
		UserID:          userID,
		BusinessEmail:   businessEmail,
		SupervisorEmail: supervisorEmail,
		Status:          StatusPending,
		TrackingNumber:  trackingNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// BothVerified reports whether both channels completed.
func (c *ClaimRequest) BothVerified() bool {
	return c.BusinessEmailVerified && c.SupervisorEmailVerified
}

// ReadyForPromotion reports whether convergence should attempt the promotion.
func (c *ClaimRequest) ReadyForPromotion() bool {
	return c.Status == StatusPending && c.BothVerified()
}

// MarkSupervisorVerified flips the supervisor flag. It is a no-op when already
// set and fails on terminal claims.
func (c *ClaimRequest) MarkSupervisorVerified(now time.Time) error {
	if c.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim is no longer pending")
	}
	if !c.SupervisorEmailVerified {
		c.SupervisorEmailVerified = true
		c.UpdatedAt = now
	}
	return nil
}

// MarkBusinessVerified flips the business flag with the same rules as
// MarkSupervisorVerified.
func (c *ClaimRequest) MarkBusinessVerified(now time.Time) error {
	if c.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim is no longer pending")
	}
	if !c.BusinessEmailVerified {
		c.BusinessEmailVerified = true
		c.UpdatedAt = now
	}
	return nil
}

// Approve moves a fully verified pending claim to approved.
func (c *ClaimRequest) Approve(now time.Time) error {
	if !c.Status.CanTransitionTo(StatusApproved) {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim cannot be approved from status "+c.Status.String())
	}
	if !c.BothVerified() {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim cannot be approved before both channels verify")
	}
	c.Status = StatusApproved
	c.ApprovedAt = &now
	c.UpdatedAt = now
	return nil
}

// Reject moves a pending claim to rejected.
func (c *ClaimRequest) Reject(now time.Time) error {
	if !c.Status.CanTransitionTo(StatusRejected) {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim cannot be rejected from status "+c.Status.String())
	}
	c.Status = StatusRejected
	c.UpdatedAt = now
	return nil
}

// VerificationToken is the persisted half of a supervisor token. The raw
// secret only ever exists in the email; TokenHash is its SHA-256.
type VerificationToken struct {
	ID             id.TokenID
	TokenHash      string
	Email          string
	ClaimRequestID id.ClaimRequestID
	CompanyID      id.CompanyID
	ExpiresAt      time.Time
	Used           bool
	UsedAt         *time.Time
	CreatedAt      time.Time
}

// NewVerificationToken builds an unused token valid for ttl.
func NewVerificationToken(
	tokenID id.TokenID,
	tokenHash string,
	email string,
	claimID id.ClaimRequestID,
	companyID id.CompanyID,
	ttl time.Duration,
	now time.Time,
) (*VerificationToken, error) {
	if tokenID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token id cannot be nil")
	}
	if tokenHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token ttl must be positive")
	}
	return &VerificationToken{
		ID:             tokenID,
		TokenHash:      tokenHash,
		Email:          email,
		ClaimRequestID: claimID,
		CompanyID:      companyID,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}, nil
}

// IsExpired is true once now is past ExpiresAt; ExpiresAt itself is still valid.
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// MarkUsed flips Used once.
func (t *VerificationToken) MarkUsed(now time.Time) {
	t.Used = true
	t.UsedAt = &now
}
