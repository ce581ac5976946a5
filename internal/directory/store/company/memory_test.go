package company

import (
	"context"
	"sync"
	"sync/atomic"
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

func (s *InMemoryStoreSuite) newCompany(name string) *models.Company {
	c, err := models.NewCompany(id.CompanyID(uuid.New()), name, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	c := s.newCompany("Acme")

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Acme", found.Name)

	s.Run("duplicate id conflicts", func() {
		err := s.store.Create(s.ctx, c)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.CompanyID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestFindReturnsCopy() {
	c := s.newCompany("Acme")
	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	found.Name = "mutated"

	again, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Acme", again.Name)
}

func (s *InMemoryStoreSuite) TestMarkClaimed() {
	c := s.newCompany("Acme")

	s.Require().NoError(s.store.MarkClaimed(s.ctx, c.ID, "Jane Doe", s.now))
	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(found.Claimed)
	s.Equal("Jane Doe", found.ClaimedByName)

	s.Run("second claim conflicts", func() {
		err := s.store.MarkClaimed(s.ctx, c.ID, "John Roe", s.now)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown company", func() {
		err := s.store.MarkClaimed(s.ctx, id.CompanyID(uuid.New()), "x", s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentMarkClaimedHasOneWinner() {
	c := s.newCompany("Acme")
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.MarkClaimed(s.ctx, c.ID, "racer", s.now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
