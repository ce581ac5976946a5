//go:build integration

package token_test

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
	"claimdesk/internal/claim/store/token"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *token.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = token.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "verification_tokens"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) issue(hash string, ttl time.Duration) *models.VerificationToken {
	t, err := models.NewVerificationToken(id.TokenID(uuid.New()), hash, "boss@acme.com",
		id.ClaimRequestID(uuid.New()), id.CompanyID(uuid.New()), ttl, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), t))
	return t
}

func (s *PostgresStoreSuite) TestConsumeLifecycle() {
	ctx := context.Background()
	issued := s.issue("pg-hash", 7*24*time.Hour)

	found, err := s.store.FindByHash(ctx, "pg-hash")
	s.Require().NoError(err)
	s.Equal(issued.ClaimRequestID, found.ClaimRequestID)
	s.False(found.Used)

	consumed, err := s.store.Consume(ctx, "pg-hash", s.now.Add(time.Minute), nil)
	s.Require().NoError(err)
	s.True(consumed.Used)

	_, err = s.store.Consume(ctx, "pg-hash", s.now.Add(2*time.Minute), nil)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.Consume(ctx, "pg-hash", s.now.Add(8*24*time.Hour), nil)
	s.ErrorIs(err, sentinel.ErrExpired)

	_, err = s.store.Consume(ctx, "missing", s.now, nil)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExpiryInstantIsRedeemable() {
	ctx := context.Background()
	issued := s.issue("pg-boundary", time.Hour)

	_, err := s.store.Consume(ctx, "pg-boundary", issued.ExpiresAt.Add(time.Microsecond), nil)
	s.ErrorIs(err, sentinel.ErrExpired)

	consumed, err := s.store.Consume(ctx, "pg-boundary", issued.ExpiresAt, nil)
	s.Require().NoError(err)
	s.True(consumed.Used)
}

func (s *PostgresStoreSuite) TestExpiredTokenStaysUnused() {
	ctx := context.Background()
	s.issue("pg-expired", time.Hour)

	_, err := s.store.Consume(ctx, "pg-expired", s.now.Add(2*time.Hour), nil)
	s.ErrorIs(err, sentinel.ErrExpired)

	found, err := s.store.FindByHash(ctx, "pg-expired")
	s.Require().NoError(err)
	s.False(found.Used)
	s.Nil(found.UsedAt)
}

func (s *PostgresStoreSuite) TestConcurrentConsumeIsExactlyOnce() {
	ctx := context.Background()
	s.issue("pg-race", time.Hour)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		used      atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Consume(ctx, "pg-race", s.now, nil)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(15), used.Load())
}
