//go:build integration

package claimrequest_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"claimdesk/internal/claim/models"
	"claimdesk/internal/claim/store/claimrequest"
	dirmodels "claimdesk/internal/directory/models"
	"claimdesk/internal/directory/store/company"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *claimrequest.PostgresStore
	companies *company.PostgresStore
	now       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = claimrequest.NewPostgres(s.postgres.DB)
	s.companies = company.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "claim_requests", "companies"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) newCompany() id.CompanyID {
	c, err := dirmodels.NewCompany(id.CompanyID(uuid.New()), "Acme Bakery", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.companies.Create(context.Background(), c))
	return c.ID
}

func (s *PostgresStoreSuite) newClaim(companyID id.CompanyID) *models.ClaimRequest {
	c, err := models.NewClaimRequest(id.ClaimRequestID(uuid.New()), companyID, "Acme Bakery",
		id.UserID(uuid.New()), "owner@acme.com", "boss@acme.com", "654321", s.now)
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	companyID := s.newCompany()
	c := s.newClaim(companyID)
	requester := id.UserID(uuid.New())
	c.RequesterID = &requester
	c.ContactPhone = "+49 30 1234567"
	s.Require().NoError(s.store.Create(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.TrackingNumber, found.TrackingNumber)
	s.Equal(requester, *found.RequesterID)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("+49 30 1234567", found.ContactPhone)

	s.ErrorIs(s.store.Create(ctx, s.newClaim(companyID)), sentinel.ErrConflict)

	pending, err := s.store.FindPendingByCompany(ctx, companyID)
	s.Require().NoError(err)
	s.Equal(c.ID, pending.ID)

	s.Require().NoError(s.store.Delete(ctx, c.ID))
	_, err = s.store.FindPendingByCompany(ctx, companyID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteAndStatusFilter() {
	ctx := context.Background()
	companyID := s.newCompany()
	c := s.newClaim(companyID)
	s.Require().NoError(s.store.Create(ctx, c))

	updated, err := s.store.Execute(ctx, c.ID,
		func(c *models.ClaimRequest) error { return nil },
		func(c *models.ClaimRequest) { _ = c.MarkBusinessVerified(s.now) },
	)
	s.Require().NoError(err)
	s.True(updated.BusinessEmailVerified)

	_, err = s.store.UpdateIfStatus(ctx, c.ID, models.StatusPending, func(c *models.ClaimRequest) error {
		return c.Reject(s.now)
	})
	s.Require().NoError(err)

	rejected, err := s.store.ListByCompany(ctx, companyID, models.StatusRejected, models.StatusApproved)
	s.Require().NoError(err)
	s.Len(rejected, 1)
	s.True(rejected[0].BusinessEmailVerified)
}

func (s *PostgresStoreSuite) TestUpdateIfStatusHasSingleWinner() {
	ctx := context.Background()
	c := s.newClaim(s.newCompany())
	c.BusinessEmailVerified = true
	c.SupervisorEmailVerified = true
	s.Require().NoError(s.store.Create(ctx, c))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.UpdateIfStatus(ctx, c.ID, models.StatusPending, func(c *models.ClaimRequest) error {
				return c.Approve(s.now)
			})
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(9), losers.Load())
}
