//go:build integration

package company_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"claimdesk/internal/directory/models"
	"claimdesk/internal/directory/store/company"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *company.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = company.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "claim_requests", "users", "companies"))
}

func (s *PostgresStoreSuite) TestRoundTripAndConflicts() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	c, err := models.NewCompany(id.CompanyID(uuid.New()), "Acme", now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, c))
	s.ErrorIs(s.store.Create(ctx, c), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.Name, found.Name)
	s.False(found.Claimed)
	s.Nil(found.ClaimedAt)

	_, err = s.store.FindByID(ctx, id.CompanyID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentMarkClaimed() {
	ctx := context.Background()
	c, err := models.NewCompany(id.CompanyID(uuid.New()), "Acme", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, c))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.MarkClaimed(ctx, c.ID, "racer", time.Now())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	err = s.store.MarkClaimed(ctx, id.CompanyID(uuid.New()), "x", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
