package models

import (
	"strings"
	"time"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// Role is the directory role of a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// Company is a business listing.
//
// Invariants:
//   - Name is non-empty
//   - Claimed flips false→true once; ClaimedByName and ClaimedAt are set with it
type Company struct {
	ID            id.CompanyID
	Name          string
	Claimed       bool
	ClaimedByName string
	ClaimedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCompany constructs an unclaimed listing.
func NewCompany(companyID id.CompanyID, name string, now time.Time) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name cannot be empty")
	}
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company id cannot be nil")
	}
	return &Company{ID: companyID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// MarkClaimed records the ownership change.
func (c *Company) MarkClaimed(claimedByName string, now time.Time) error {
	if c.Claimed {
		return dErrors.New(dErrors.CodeInvariantViolation, "company is already claimed")
	}
	c.Claimed = true
	c.ClaimedByName = claimedByName
	c.ClaimedAt = &now
	c.UpdatedAt = now
	return nil
}

// User is the directory record of an identity account.
type User struct {
	ID          id.UserID
	Email       string
	DisplayName string
	Role        Role
	CompanyID   *id.CompanyID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUser constructs a plain user.
func NewUser(userID id.UserID, email, displayName string, now time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be nil")
	}
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty")
	}
	return &User{
		ID:          userID,
		Email:       email,
		DisplayName: displayName,
		Role:        RoleUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// PromoteToCompany binds the user to the company they now represent.
func (u *User) PromoteToCompany(companyID id.CompanyID, now time.Time) {
	u.Role = RoleCompany
	u.CompanyID = &companyID
	u.UpdatedAt = now
}
