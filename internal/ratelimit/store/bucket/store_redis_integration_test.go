//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gonogo/internal/ratelimit/store/bucket"
	"gonogo/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// Concurrent Allow calls against one key admit exactly limit requests.
func (s *RedisStoreSuite) TestConcurrentAllow() {
	ctx := context.Background()
	key := "concurrent-test"
	limit := 10
	const goroutines = 50

	var wg sync.WaitGroup
	var allowedCount atomic.Int32
	for range goroutines {
		wg.Go(func() {
			result, err := s.store.Allow(ctx, key, limit, time.Minute)
			s.Require().NoError(err)
			if result.Allowed {
				allowedCount.Add(1)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(limit), allowedCount.Load())
	count, err := s.store.GetCurrentCount(ctx, key)
	s.Require().NoError(err)
	s.Equal(limit, count)
}

func (s *RedisStoreSuite) TestDenyThenResume() {
	ctx := context.Background()
	key := "resume-test"
	window := time.Second

	for range 3 {
		result, err := s.store.Allow(ctx, key, 3, window)
		s.Require().NoError(err)
		s.Require().True(result.Allowed)
	}

	denied, err := s.store.Allow(ctx, key, 3, window)
	s.Require().NoError(err)
	s.False(denied.Allowed)
	s.Equal(3, denied.Limit)
	s.Positive(denied.RetryAfter)
	s.LessOrEqual(denied.RetryAfter, window)

	time.Sleep(denied.RetryAfter + 50*time.Millisecond)

	resumed, err := s.store.Allow(ctx, key, 3, window)
	s.Require().NoError(err)
	s.True(resumed.Allowed)
}

func (s *RedisStoreSuite) TestAllowNAndReset() {
	ctx := context.Background()
	key := "allown-test"

	result, err := s.store.AllowN(ctx, key, 7, 10, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(3, result.Remaining)

	result, err = s.store.AllowN(ctx, key, 4, 10, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Require().NoError(s.store.Reset(ctx, key))
	count, err := s.store.GetCurrentCount(ctx, key)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisStoreSuite) TestKeyExpires() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ttl-test", 5, 500*time.Millisecond)
	s.Require().NoError(err)

	ttl, err := s.redis.Client.PTTL(ctx, "ttl-test").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, 500*time.Millisecond)
}
