package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/ports/outbound"
)

type CacheRepositoryTestSuite struct {
	suite.Suite
	server *miniredis.Miniredis
	repo   *CacheRepository
	ctx    context.Context
}

func (s *CacheRepositoryTestSuite) SetupTest() {
	s.server = miniredis.RunT(s.T())
	client := goredis.NewClient(&goredis.Options{Addr: s.server.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.repo = NewCacheRepository(client, "tymenu:", zap.NewNop())
	s.ctx = context.Background()
}

func (s *CacheRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, "nope")
	s.ErrorIs(err, outbound.ErrCacheMiss)
}

func (s *CacheRepositoryTestSuite) TestSetGetDelete() {
	s.Require().NoError(s.repo.Set(s.ctx, "session:1", []byte("data"), time.Hour))
	s.True(s.server.Exists("tymenu:session:1"))

	got, err := s.repo.Get(s.ctx, "session:1")
	s.Require().NoError(err)
	s.Equal([]byte("data"), got)

	ok, err := s.repo.Exists(s.ctx, "session:1")
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.repo.Delete(s.ctx, "session:1", "other"))
	ok, err = s.repo.Exists(s.ctx, "session:1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CacheRepositoryTestSuite) TestTTLExpires() {
	s.Require().NoError(s.repo.Set(s.ctx, "k", []byte("v"), time.Second))
	s.server.FastForward(2 * time.Second)

	_, err := s.repo.Get(s.ctx, "k")
	s.ErrorIs(err, outbound.ErrCacheMiss)
}

func (s *CacheRepositoryTestSuite) TestIncrementWindow() {
	for want := int64(1); want <= 3; want++ {
		n, err := s.repo.Increment(s.ctx, "rl:1.2.3.4", time.Minute)
		s.Require().NoError(err)
		s.Equal(want, n)
	}
	s.Equal(time.Minute, s.server.TTL("tymenu:rl:1.2.3.4"))

	s.server.FastForward(time.Minute + time.Second)
	n, err := s.repo.Increment(s.ctx, "rl:1.2.3.4", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func TestCacheRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CacheRepositoryTestSuite))
}
