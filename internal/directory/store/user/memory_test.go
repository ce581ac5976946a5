package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"claimdesk/internal/directory/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newUser(email string) *models.User {
	u, err := models.NewUser(id.UserID(uuid.New()), email, "Owner", s.now)
	s.Require().NoError(err)
	return u
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicates() {
	u := s.newUser("owner@acme.com")
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.ErrorIs(s.store.Create(s.ctx, u), sentinel.ErrConflict)
	s.ErrorIs(s.store.Create(s.ctx, s.newUser("OWNER@acme.com")), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestDelete() {
	u := s.newUser("owner@acme.com")
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.Require().NoError(s.store.Delete(s.ctx, u.ID))
	_, err := s.store.FindByID(s.ctx, u.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, u.ID), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestPromoteToCompany() {
	u := s.newUser("owner@acme.com")
	s.Require().NoError(s.store.Create(s.ctx, u))
	companyID := id.CompanyID(uuid.New())

	s.Require().NoError(s.store.PromoteToCompany(s.ctx, u.ID, companyID, s.now))

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleCompany, found.Role)
	s.Require().NotNil(found.CompanyID)
	s.Equal(companyID, *found.CompanyID)

	s.ErrorIs(s.store.PromoteToCompany(s.ctx, id.UserID(uuid.New()), companyID, s.now), sentinel.ErrNotFound)
}
