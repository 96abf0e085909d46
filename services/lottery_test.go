package services

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickDistinct(t *testing.T) {
	for i := 0; i < 50; i++ {
		idx, err := pick(rand.Reader, 10, 4)
		require.NoError(t, err)
		require.Len(t, idx, 4)
		seen := map[int]bool{}
		for _, v := range idx {
			assert.False(t, seen[v])
			assert.True(t, v >= 0 && v < 10)
			seen[v] = true
		}
	}

	idx, err := pick(rand.Reader, 2, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1}, idx)
}

func TestDrawAwardsEligibleOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Lottery.Draw(ctx)
	assert.ErrorIs(t, err, ErrNoEntrants)

	for wallet, pts := range map[string]int64{walletA: 200, walletB: 150, walletC: 50} {
		env.connect(t, wallet)
		_, _, err := env.svc.Admin.GrantPoints(ctx, wallet, GrantInput{Points: pts})
		require.NoError(t, err)
	}

	winners, err := env.svc.Lottery.Draw(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, winners[0].DrawID, winners[1].DrawID)
	got := []string{winners[0].WalletAddress, winners[1].WalletAddress}
	assert.ElementsMatch(t, []string{walletA, walletB}, got)

	assert.Equal(t, int64(700), env.user(t, walletA).Points)
	assert.Equal(t, int64(650), env.user(t, walletB).Points)
	assert.Equal(t, int64(50), env.user(t, walletC).Points)

	listed, err := env.svc.Lottery.Winners(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}
