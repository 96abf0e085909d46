// Package store persists the dashboard's records. Two implementations share the same semantics:
// GormStore (PostgreSQL) and memory.Store (process-local, for development and tests).
package store

import (
	"context"
	"errors"
	"time"

	"rewards-dashboard/models"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
)

// UserDelta is applied atomically to a user's counters.
type UserDelta struct {
	Points           int64
	TasksCompleted   int
	ReferralCount    int
	ExtensionMinutes int64
}

// IsZero reports whether applying d would change nothing.
func (d UserDelta) IsZero() bool {
	return d == UserDelta{}
}

// Store is the persistence boundary used by services.
type Store interface {
	// Tx runs fn atomically; any error rolls back every write made through tx.
	Tx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, userID string, p models.ProfilePatch) error
	SetCheckInState(ctx context.Context, userID string, streak int, day string) error
	// MarkProfileBonus flips ProfileBonusAwarded to true and reports whether this call flipped it.
	MarkProfileBonus(ctx context.Context, userID string) (bool, error)
	// SetReferrer links userID to referrerID only if no referrer is set yet; reports whether it did.
	SetReferrer(ctx context.Context, userID, referrerID string) (bool, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	// LockUser reads a user and holds a row lock on it until the enclosing Tx ends.
	LockUser(ctx context.Context, id string) (*models.User, error)
	UserByWallet(ctx context.Context, wallet string) (*models.User, error)
	UserByReferralCode(ctx context.Context, code string) (*models.User, error)
	IncrementUser(ctx context.Context, userID string, d UserDelta) error
	ListUsers(ctx context.Context, p models.Page) ([]models.User, int64, error)
	ListReferredUsers(ctx context.Context, referrerID string) ([]models.User, error)
	UsersWithMinPoints(ctx context.Context, minPoints int64) ([]models.User, error)

	// Leaderboard order: points desc, tasksCompleted desc, createdAt asc.
	TopUsers(ctx context.Context, limit int) ([]models.User, error)
	CountUsersAhead(ctx context.Context, u *models.User) (int64, error)
	CountUsers(ctx context.Context) (int64, error)

	AppendPointEvent(ctx context.Context, e *models.PointEvent) error
	ListPointEvents(ctx context.Context, userID string, p models.Page) ([]models.PointEvent, int64, error)

	CreateTask(ctx context.Context, t *models.Task) error
	SaveTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	TaskByID(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, activeOnly bool) ([]models.Task, error)
	CreateUserTask(ctx context.Context, ut *models.UserTask) error
	ListUserTasks(ctx context.Context, userID string) ([]models.UserTask, error)

	CreateAchievement(ctx context.Context, a *models.Achievement) error
	SaveAchievement(ctx context.Context, a *models.Achievement) error
	DeleteAchievement(ctx context.Context, id string) error
	AchievementByID(ctx context.Context, id string) (*models.Achievement, error)
	ListAchievements(ctx context.Context, activeOnly bool) ([]models.Achievement, error)
	CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error
	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)

	CreateCheckIn(ctx context.Context, c *models.CheckIn) error

	CreateLotteryWinners(ctx context.Context, winners []models.LotteryWinner) error
	ListLotteryWinners(ctx context.Context, limit int) ([]models.LotteryWinner, error)

	CreateOpinion(ctx context.Context, o *models.Opinion) error
	ListOpinions(ctx context.Context, p models.Page) ([]models.Opinion, int64, error)

	CreateSession(ctx context.Context, s *models.ExtensionSession) error
	// SaveSession writes the mutable session columns: active, last sync, end time and minutes credited.
	SaveSession(ctx context.Context, s *models.ExtensionSession) error
	// OpenSession returns the user's newest open session, locked until the enclosing Tx ends.
	OpenSession(ctx context.Context, userID string) (*models.ExtensionSession, error)
	ListIdleSessions(ctx context.Context, lastSyncBefore time.Time) ([]models.ExtensionSession, error)
	// CloseIdleSession ends session id only if it is still open and last synced before lastSyncBefore.
	CloseIdleSession(ctx context.Context, id string, lastSyncBefore, endedAt time.Time) (bool, error)
	CountOpenSessions(ctx context.Context) (int64, error)

	// Stats aggregates the admin overview; day is today's UTC date, since the new-user window start.
	Stats(ctx context.Context, day string, since time.Time) (*models.DashboardStats, error)
}

// Ahead reports whether a ranks strictly before b in leaderboard order.
func Ahead(a, b *models.User) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.TasksCompleted != b.TasksCompleted {
		return a.TasksCompleted > b.TasksCompleted
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
