package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	entries map[int][]models.LeaderboardEntry
	getErr  error
	sets    int
}

func (f *fakeCache) Get(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[limit]
	if !ok {
		return nil, ErrCacheMiss
	}
	return e, nil
}

func (f *fakeCache) Set(_ context.Context, limit int, entries []models.LeaderboardEntry, _ time.Duration) error {
	f.sets++
	f.entries[limit] = entries
	return nil
}

// seedBoard leaves B ahead of A on tasks at equal points, and C last.
func seedBoard(t *testing.T, env *testEnv) {
	ctx := context.Background()
	env.connect(t, walletA)
	env.advance(time.Second)
	env.connect(t, walletB)
	env.advance(time.Second)
	env.connect(t, walletC)

	_, _, err := env.svc.Admin.GrantPoints(ctx, walletA, GrantInput{Points: 100})
	require.NoError(t, err)
	for _, title := range []string{"One", "Two"} {
		task := env.task(t, title, 50)
		_, err := env.svc.Tasks.Complete(ctx, walletB, task.ID)
		require.NoError(t, err)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	env := newTestEnv(t)
	seedBoard(t, env)

	top, err := env.svc.Leaderboard.Top(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, walletB, top[0].WalletAddress)
	assert.Equal(t, walletA, top[1].WalletAddress)
	assert.Equal(t, walletC, top[2].WalletAddress)
	assert.Equal(t, int64(2), top[1].Rank)
	assert.Equal(t, utils.ShortWallet(walletA), top[1].Username)
}

func TestRank(t *testing.T) {
	env := newTestEnv(t)
	seedBoard(t, env)

	r, err := env.svc.Leaderboard.Rank(context.Background(), walletA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Rank)
	assert.Equal(t, int64(3), r.TotalUsers)
	assert.InDelta(t, 66.67, r.Percentile, 0.01)

	_, err = env.svc.Leaderboard.Rank(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLeaderboardCache(t *testing.T) {
	env := newTestEnv(t)
	seedBoard(t, env)
	cache := &fakeCache{entries: map[int][]models.LeaderboardEntry{}}
	lb := NewLeaderboardService(env.st, cache, time.Minute)
	ctx := context.Background()

	_, err := lb.Top(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.entries, MaxLeaderboardLimit)

	cache.entries[MaxLeaderboardLimit] = []models.LeaderboardEntry{{Rank: 1, WalletAddress: "cached"}}
	top, err := lb.Top(ctx, 500)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "cached", top[0].WalletAddress)

	cache.getErr = errors.New("redis down")
	top, err = lb.Top(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, top, 3)

	require.NoError(t, lb.Warm(ctx))
	assert.Contains(t, cache.entries, DefaultLeaderboardLimit)
}
