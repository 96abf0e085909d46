package services

import (
	"context"
	"testing"
	"time"

	"rewards-dashboard/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*RedisLeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := NewRedisLeaderboardCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisLeaderboardCacheRoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, 10)
	assert.ErrorIs(t, err, ErrCacheMiss)

	entries := []models.LeaderboardEntry{
		{Rank: 1, WalletAddress: walletA, Username: "alice", Points: 300, TasksCompleted: 4},
		{Rank: 2, WalletAddress: walletB, Username: "bob", Points: 120, TasksCompleted: 1},
	}
	require.NoError(t, cache.Set(ctx, 10, entries, 30*time.Second))

	assert.True(t, mr.Exists("leaderboard:top:10"))
	assert.Equal(t, 30*time.Second, mr.TTL("leaderboard:top:10"))

	got, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	// pages are cached per limit
	_, err = cache.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrCacheMiss)

	mr.FastForward(31 * time.Second)
	_, err = cache.Get(ctx, 10)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisLeaderboardCacheCorruptValue(t *testing.T) {
	cache, mr := newRedisCache(t)
	require.NoError(t, mr.Set("leaderboard:top:10", "not json"))

	_, err := cache.Get(context.Background(), 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisLeaderboardCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisLeaderboardCache(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	_, err = NewRedisLeaderboardCache(ctx, "not-a-url")
	assert.Error(t, err)
}

func TestLeaderboardTopThroughRedis(t *testing.T) {
	env := newTestEnv(t)
	cache, mr := newRedisCache(t)
	ctx := context.Background()
	env.connect(t, walletA)

	lb := NewLeaderboardService(env.st, cache, time.Minute)
	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.True(t, mr.Exists("leaderboard:top:10"), "store result is written back")

	cached, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, top, cached)
}
