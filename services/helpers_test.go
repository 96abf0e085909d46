package services

import (
	"context"
	"testing"
	"time"

	"rewards-dashboard/config"
	"rewards-dashboard/models"
	"rewards-dashboard/store/memory"

	"github.com/stretchr/testify/require"
)

const (
	walletA     = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	walletB     = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	walletC     = "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"
	adminWallet = "0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb"
	bypassKey   = "let-me-in"
)

type testEnv struct {
	st  *memory.Store
	svc *Services
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }
	env.st = memory.New().WithClock(clock)
	env.svc = New(env.st, Options{
		Rewards:        config.DefaultRewards,
		Lottery:        config.LotteryConfig{Winners: 2, PrizePoints: 500, MinPoints: 100},
		AdminWallets:   []string{adminWallet},
		AdminBypassKey: bypassKey,
		Clock:          clock,
	})
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) connect(t *testing.T, wallet string) *models.User {
	t.Helper()
	res, err := e.svc.Users.Connect(context.Background(), wallet, "")
	require.NoError(t, err)
	return res.User
}

func (e *testEnv) task(t *testing.T, title string, points int64) *models.Task {
	t.Helper()
	task, err := e.svc.Tasks.Create(context.Background(), TaskInput{Title: title, Points: &points})
	require.NoError(t, err)
	return task
}

func (e *testEnv) user(t *testing.T, wallet string) *models.User {
	t.Helper()
	u, err := e.svc.Users.Get(context.Background(), wallet)
	require.NoError(t, err)
	return u
}
