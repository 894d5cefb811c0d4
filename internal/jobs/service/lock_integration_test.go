//go:build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gonogo/internal/jobs/service"
	"gonogo/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	ctx   context.Context
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ctx = context.Background()
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLockerSuite) TestSecondInstanceIsRefusedUntilRelease() {
	first := service.NewRedisLocker(s.redis.Client.Client)
	second := service.NewRedisLocker(s.redis.Client.Client)

	release, err := first.Obtain(s.ctx, "gonogo:jobs:recover", 30*time.Second)
	s.Require().NoError(err)

	_, err = second.Obtain(s.ctx, "gonogo:jobs:recover", 30*time.Second)
	s.ErrorIs(err, service.ErrLockHeld)

	s.Require().NoError(release(s.ctx))

	release, err = second.Obtain(s.ctx, "gonogo:jobs:recover", 30*time.Second)
	s.Require().NoError(err)
	s.NoError(release(s.ctx))
}

func (s *RedisLockerSuite) TestLockExpiresWithTTL() {
	locker := service.NewRedisLocker(s.redis.Client.Client)

	_, err := locker.Obtain(s.ctx, "gonogo:jobs:recover", 200*time.Millisecond)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		release, err := locker.Obtain(s.ctx, "gonogo:jobs:recover", time.Second)
		if err != nil {
			return false
		}
		_ = release(s.ctx)
		return true
	}, 3*time.Second, 50*time.Millisecond)
}
