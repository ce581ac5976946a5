//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/ratelimit/models"
	"claimdesk/internal/ratelimit/store/bucket"
	"claimdesk/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedis(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestFixedWindow() {
	ctx := context.Background()
	key := models.NewIPKey(models.ClassClaims, "203.0.113.7")

	for i := 1; i <= 3; i++ {
		result, err := s.store.Allow(ctx, key, 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, key, 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Greater(result.RetryAfter, 0)
	s.LessOrEqual(result.RetryAfter, 60)

	ttl, err := s.redis.Client.PTTL(ctx, key).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	key := models.NewIPKey(models.ClassIdentity, "203.0.113.8")

	_, err := s.store.Allow(ctx, key, 1, 200*time.Millisecond)
	s.Require().NoError(err)
	result, err := s.store.Allow(ctx, key, 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Eventually(func() bool {
		result, err := s.store.Allow(ctx, key, 1, 200*time.Millisecond)
		return err == nil && result.Allowed
	}, 2*time.Second, 100*time.Millisecond)
}
