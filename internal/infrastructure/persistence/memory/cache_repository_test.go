package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tymenu/tymenu/internal/ports/outbound"
)

func newRepo(t *testing.T) (*CacheRepository, *time.Time) {
	t.Helper()
	repo := NewCacheRepository(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	t.Cleanup(repo.Close)
	return repo, &now
}

func TestCacheRepository_GetSetDelete(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))
	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Callers cannot mutate the stored value.
	got[0] = 'x'
	again, _ := repo.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, repo.Delete(ctx, "k"))
	ok, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepository_Expiry(t *testing.T) {
	repo, now := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))
	*now = now.Add(30 * time.Second)
	ok, _ := repo.Exists(ctx, "k")
	assert.True(t, ok)

	*now = now.Add(time.Minute)
	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_Increment(t *testing.T) {
	repo, now := newRepo(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := repo.Increment(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	*now = now.Add(time.Minute + time.Second)
	n, err := repo.Increment(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCacheRepository_ConcurrentIncrement(t *testing.T) {
	repo := NewCacheRepository(time.Millisecond)
	defer repo.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Increment(ctx, "hits", 0)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, "50", string(got))
}
