package workers

import (
	"context"
	"errors"
	"testing"

	"rewards-dashboard/models"
	"rewards-dashboard/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrawer struct {
	calls int
	err   error
}

func (f *fakeDrawer) Draw(context.Context) ([]models.LotteryWinner, error) {
	f.calls++
	return nil, f.err
}

type fakeWarmer struct{ calls int }

func (f *fakeWarmer) Warm(context.Context) error {
	f.calls++
	return errors.New("cache down")
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) SweepIdle(context.Context) (int, error) {
	f.calls++
	return 0, nil
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	s, err := NewScheduler(Jobs{
		Lottery:         &fakeDrawer{},
		LotterySchedule: "0 0 * * 1",
		Leaderboard:     &fakeWarmer{},
		Sessions:        &fakeSweeper{},
	})
	require.NoError(t, err)
	defer s.Shutdown()

	assert.ElementsMatch(t, []string{"lottery-draw", "leaderboard-warmup", "extension-sweep"}, s.JobNames())
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewScheduler(Jobs{Lottery: &fakeDrawer{}, LotterySchedule: "every monday"})
	assert.Error(t, err)
}

func TestJobsTolerateErrors(t *testing.T) {
	drawer := &fakeDrawer{err: services.ErrNoEntrants}
	warmer := &fakeWarmer{}
	sweeper := &fakeSweeper{}
	s, err := NewScheduler(Jobs{Lottery: drawer, Leaderboard: warmer, Sessions: sweeper})
	require.NoError(t, err)
	defer s.Shutdown()

	ctx := context.Background()
	s.DrawLottery(ctx)
	drawer.err = errors.New("db down")
	s.DrawLottery(ctx)
	s.WarmLeaderboard(ctx)
	s.SweepSessions(ctx)

	assert.Equal(t, 2, drawer.calls)
	assert.Equal(t, 1, warmer.calls)
	assert.Equal(t, 1, sweeper.calls)
}
