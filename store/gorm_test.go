package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"rewards-dashboard/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := GormConfig()
	cfg.SkipDefaultTransaction = true
	cfg.DisableAutomaticPing = true
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormUserByWallet(t *testing.T) {
	st, mock := newMockStore(t)
	wallet := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	rows := sqlmock.NewRows([]string{"id", "wallet_address", "points", "tasks_completed", "referral_code", "created_at"}).
		AddRow("0b8f3c1e-7b0a-4c1d-9f55-2f1b7d1a9e10", wallet, 120, 3, "ABCD1234", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE wallet_address = $1`)).
		WithArgs(wallet, 1).
		WillReturnRows(rows)

	u, err := st.UserByWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, int64(120), u.Points)
	assert.Equal(t, 3, u.TasksCompleted)
	assert.Equal(t, "ABCD1234", u.ReferralCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserByWalletNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.UserByWallet(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCountUsers(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := st.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIncrementUserMissing(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE "users" SET "points"=points \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.IncrementUser(context.Background(), "0b8f3c1e-7b0a-4c1d-9f55-2f1b7d1a9e10", UserDelta{Points: 5})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIncrementUserNoop(t *testing.T) {
	st, mock := newMockStore(t)
	require.NoError(t, st.IncrementUser(context.Background(), "any", UserDelta{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrConflict)
	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestAhead(t *testing.T) {
	now := time.Now()
	a := &models.User{Points: 10, TasksCompleted: 1, Timestamps: models.Timestamps{CreatedAt: now}}
	b := &models.User{Points: 10, TasksCompleted: 1, Timestamps: models.Timestamps{CreatedAt: now.Add(time.Second)}}
	assert.True(t, Ahead(a, b))
	assert.False(t, Ahead(b, a))

	b.TasksCompleted = 2
	assert.True(t, Ahead(b, a))
	a.Points = 11
	assert.True(t, Ahead(a, b))
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestGormCreateTaskKeepsInactive(t *testing.T) {
	st, mock := newMockStore(t)
	// id, slug, title, description, category, link, image_url, points, active, sort_order, timestamps
	args := anyArgs(13)
	args[8] = false
	mock.ExpectExec(`INSERT INTO "tasks"`).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

	task := &models.Task{Slug: "follow-x", Title: "Follow on X", Points: 50, Active: false}
	require.NoError(t, st.CreateTask(context.Background(), task))
	assert.False(t, task.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateAchievementKeepsInactive(t *testing.T) {
	st, mock := newMockStore(t)
	// id, code, title, description, image_url, criteria, threshold, reward_points, active, timestamps
	args := anyArgs(12)
	args[8] = false
	mock.ExpectExec(`INSERT INTO "achievements"`).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.Achievement{Code: "first-task", Title: "First task", Criteria: models.CriteriaTasksCompleted, Threshold: 1}
	require.NoError(t, st.CreateAchievement(context.Background(), a))
	assert.False(t, a.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLockUserSelectsForUpdate(t *testing.T) {
	st, mock := newMockStore(t)
	id := "0b8f3c1e-7b0a-4c1d-9f55-2f1b7d1a9e10"
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "points"}).AddRow(id, 40))

	u, err := st.LockUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(40), u.Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOpenSessionSelectsForUpdate(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "extension_sessions" WHERE user_id = \$1 AND ended_at IS NULL .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.OpenSession(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSaveSessionWritesMutableColumns(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectExec(`UPDATE "extension_sessions" SET "active"=\$1,"last_sync_at"=\$2,"ended_at"=\$3,"minutes_credited"=\$4 WHERE`).
		WithArgs(false, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sess := &models.ExtensionSession{ID: "s1", UserID: "u1", LastSyncAt: now, EndedAt: &now, MinutesCredited: 7}
	require.NoError(t, st.SaveSession(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCloseIdleSession(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()
	cutoff := now.Add(-10 * time.Minute)
	query := `UPDATE "extension_sessions" SET "active"=\$1,"ended_at"=\$2 WHERE id = \$3 AND ended_at IS NULL AND last_sync_at < \$4`
	mock.ExpectExec(query).WithArgs(false, now, "s1", cutoff).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(false, now, "s2", cutoff).WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := st.CloseIdleSession(context.Background(), "s1", cutoff, now)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = st.CloseIdleSession(context.Background(), "s2", cutoff, now)
	require.NoError(t, err)
	assert.False(t, closed, "a session synced since the listing stays open")
	assert.NoError(t, mock.ExpectationsWereMet())
}
