package services

import (
	"context"
	"testing"

	"rewards-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAchievementUnlocksOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	first, err := env.svc.Achievements.Create(ctx, AchievementInput{
		Title:        "First Steps",
		Criteria:     models.CriteriaTasksCompleted,
		Threshold:    1,
		RewardPoints: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, "first-steps", first.Code)

	t1 := env.task(t, "One", 30)
	t2 := env.task(t, "Two", 30)

	res, err := env.svc.Tasks.Complete(ctx, walletA, t1.ID)
	require.NoError(t, err)
	require.Len(t, res.Receipt.Achievements, 1)
	assert.Equal(t, first.ID, res.Receipt.Achievements[0].ID)
	assert.Equal(t, int64(55), res.User.Points)

	res, err = env.svc.Tasks.Complete(ctx, walletA, t2.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Receipt.Achievements)
	assert.Equal(t, int64(85), res.User.Points)

	views, err := env.svc.Achievements.ListForWallet(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Unlocked)
	assert.NotNil(t, views[0].UnlockedAt)
	assert.Equal(t, int64(1), views[0].Progress)
}

func TestAchievementProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)

	_, err := env.svc.Achievements.Create(ctx, AchievementInput{
		Title:     "Centurion",
		Criteria:  models.CriteriaPoints,
		Threshold: 100,
	})
	require.NoError(t, err)
	task := env.task(t, "Half", 40)
	_, err = env.svc.Tasks.Complete(ctx, walletA, task.ID)
	require.NoError(t, err)

	views, err := env.svc.Achievements.ListForWallet(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Unlocked)
	assert.Equal(t, int64(40), views[0].Progress)
}

func TestAchievementValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Achievements.Create(ctx, AchievementInput{Title: "X", Criteria: "karma", Threshold: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.Achievements.Create(ctx, AchievementInput{Title: "X", Criteria: models.CriteriaPoints})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Achievements.Create(ctx, AchievementInput{Title: "Dup", Criteria: models.CriteriaPoints, Threshold: 1})
	require.NoError(t, err)
	_, err = env.svc.Achievements.Create(ctx, AchievementInput{Title: "Dup", Criteria: models.CriteriaPoints, Threshold: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAchievementUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, err := env.svc.Achievements.Create(ctx, AchievementInput{Title: "Streaker", Criteria: models.CriteriaCheckInStreak, Threshold: 7})
	require.NoError(t, err)

	threshold := int64(3)
	updated, err := env.svc.Achievements.Update(ctx, a.ID, AchievementPatch{Threshold: &threshold, Active: boolp(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Threshold)
	assert.False(t, updated.Active)

	public, err := env.svc.Achievements.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, env.svc.Achievements.Delete(ctx, a.ID))
	_, err = env.svc.Achievements.Update(ctx, a.ID, AchievementPatch{})
	assert.ErrorIs(t, err, ErrAchievementNotFound)
}
