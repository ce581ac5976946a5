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

func TestNewCompany(t *testing.T) {
	now := time.Now()

	c, err := NewCompany(id.CompanyID(uuid.New()), "  Acme Bakery ", now)
	require.NoError(t, err)
	assert.Equal(t, "Acme Bakery", c.Name)
	assert.False(t, c.Claimed)

	_, err = NewCompany(id.CompanyID(uuid.New()), " ", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewCompany(id.CompanyID{}, "Acme", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCompanyMarkClaimedOnce(t *testing.T) {
	now := time.Now()
	c, err := NewCompany(id.CompanyID(uuid.New()), "Acme", now)
	require.NoError(t, err)

	require.NoError(t, c.MarkClaimed("Jane Doe", now.Add(time.Minute)))
	assert.True(t, c.Claimed)
	assert.Equal(t, "Jane Doe", c.ClaimedByName)
	require.NotNil(t, c.ClaimedAt)

	err = c.MarkClaimed("Someone Else", now.Add(time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Equal(t, "Jane Doe", c.ClaimedByName)
}

func TestUserPromotion(t *testing.T) {
	now := time.Now()
	u, err := NewUser(id.UserID(uuid.New()), "owner@acme.com", "Owner", now)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, u.Role)
	assert.Nil(t, u.CompanyID)

	companyID := id.CompanyID(uuid.New())
	u.PromoteToCompany(companyID, now)
	assert.Equal(t, RoleCompany, u.Role)
	require.NotNil(t, u.CompanyID)
	assert.Equal(t, companyID, *u.CompanyID)
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, Role("owner").IsValid())
}
