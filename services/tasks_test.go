package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolp(b bool) *bool { return &b }

func TestCompleteTaskIncrementsCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := env.connect(t, walletA)
	task := env.task(t, "Follow on X", 75)

	res, err := env.svc.Tasks.Complete(ctx, walletA, task.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Points+75, res.User.Points)
	assert.Equal(t, before.TasksCompleted+1, res.User.TasksCompleted)
	assert.Equal(t, int64(75), res.Receipt.Total())

	_, err = env.svc.Tasks.Complete(ctx, walletA, task.ID)
	assert.ErrorIs(t, err, ErrTaskCompleted)
	assert.Equal(t, int64(75), env.user(t, walletA).Points)
}

func TestCompleteTaskErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.task(t, "Join Discord", 10)

	_, err := env.svc.Tasks.Complete(ctx, walletA, task.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	env.connect(t, walletA)
	_, err = env.svc.Tasks.Complete(ctx, walletA, "not-a-uuid")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = env.svc.Tasks.Complete(ctx, walletA, "7f1c5a52-3f1e-4c41-9d0e-6d3b8f0a1b2c")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = env.svc.Tasks.Update(ctx, task.ID, TaskPatch{Active: boolp(false)})
	require.NoError(t, err)
	_, err = env.svc.Tasks.Complete(ctx, walletA, task.ID)
	assert.ErrorIs(t, err, ErrTaskInactive)
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.svc.Tasks.Create(ctx, TaskInput{Title: "Retweet Launch Post", Category: "social media"})
	require.NoError(t, err)
	assert.Equal(t, "retweet-launch-post", a.Slug)
	assert.Equal(t, "Social Media", a.Category)
	assert.Equal(t, int64(50), a.Points)
	assert.True(t, a.Active)

	b, err := env.svc.Tasks.Create(ctx, TaskInput{Title: "Retweet Launch Post"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Slug, b.Slug)
	assert.Equal(t, "General", b.Category)

	_, err = env.svc.Tasks.Create(ctx, TaskInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListForWalletMarksCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, walletA)
	done := env.task(t, "Done", 10)
	env.task(t, "Open", 10)

	_, err := env.svc.Tasks.Complete(ctx, walletA, done.ID)
	require.NoError(t, err)

	views, err := env.svc.Tasks.ListForWallet(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, views, 2)
	completed := map[string]bool{}
	for _, v := range views {
		completed[v.Title] = v.Completed
	}
	assert.True(t, completed["Done"])
	assert.False(t, completed["Open"])
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.task(t, "Temp", 10)

	require.NoError(t, env.svc.Tasks.Delete(ctx, task.ID))
	assert.ErrorIs(t, env.svc.Tasks.Delete(ctx, task.ID), ErrTaskNotFound)

	list, err := env.svc.Tasks.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadImageWithoutUploader(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Img", 10)
	_, err := env.svc.Tasks.UploadImage(context.Background(), task.ID, nil)
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
