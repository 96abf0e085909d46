package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionSyncCreditsWholeMinutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	session, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)
	assert.True(t, session.Active)

	env.advance(3*time.Minute + 30*time.Second)
	res, err := env.svc.Extension.Sync(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Minutes)
	assert.Equal(t, int64(3), res.Points)

	// the leftover 30s carries over
	env.advance(30 * time.Second)
	res, err = env.svc.Extension.Sync(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Minutes)

	// gaps past the max sync gap are capped
	env.advance(8 * time.Minute)
	res, err = env.svc.Extension.Sync(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Minutes)
	assert.Equal(t, int64(9), res.User.Points)
	assert.Equal(t, int64(9), res.User.ExtensionMinutes)
	assert.Equal(t, int64(9), res.Session.MinutesCredited)
}

func TestExtensionSyncAfterIdleTimeoutExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)
	_, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)

	// no sweep has run; the sync itself must notice the session went idle
	env.advance(20 * time.Minute)
	_, err = env.svc.Extension.Sync(ctx, walletA)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, env.user(t, walletA).Points, "idle time is never credited")

	open, err := env.st.CountOpenSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, open)

	_, err = env.svc.Extension.Toggle(ctx, walletA, true)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestExtensionToggleAfterIdleTimeoutExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)
	_, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)

	env.advance(11 * time.Minute)
	_, err = env.svc.Extension.Toggle(ctx, walletA, false)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, env.user(t, walletA).Points)
}

func TestExtensionToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)
	_, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)

	env.advance(2 * time.Minute)
	res, err := env.svc.Extension.Toggle(ctx, walletA, false)
	require.NoError(t, err)
	assert.False(t, res.Session.Active)
	assert.Equal(t, int64(2), res.Minutes, "pausing settles elapsed time")

	env.advance(4 * time.Minute)
	res, err = env.svc.Extension.Sync(ctx, walletA)
	require.NoError(t, err)
	assert.Zero(t, res.Minutes)

	_, err = env.svc.Extension.Toggle(ctx, walletA, true)
	require.NoError(t, err)
	env.advance(time.Minute)
	res, err = env.svc.Extension.Sync(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Minutes)
	assert.Equal(t, int64(3), res.User.Points)
}

func TestExtensionReconnectClosesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	first, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)
	env.advance(time.Minute)
	second, err := env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	open, err := env.st.CountOpenSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)
}

func TestExtensionSweepIdle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	_, err := env.svc.Extension.Sync(ctx, walletA)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = env.svc.Extension.Connect(ctx, walletA)
	require.NoError(t, err)

	env.advance(5 * time.Minute)
	closed, err := env.svc.Extension.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	env.advance(6 * time.Minute)
	closed, err = env.svc.Extension.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	_, err = env.svc.Extension.Sync(ctx, walletA)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, env.user(t, walletA).Points, "idle time is never credited")
}
