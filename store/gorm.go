package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rewards-dashboard/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const leaderboardOrder = "points DESC, tasks_completed DESC, created_at ASC"

var (
	dbOnce sync.Once
	dbConn *gorm.DB
	dbErr  error
)

// Connect returns the process-wide database handle, opening it on first use.
func Connect(dsn string) (*gorm.DB, error) {
	dbOnce.Do(func() {
		dbConn, dbErr = gorm.Open(postgres.Open(dsn), GormConfig())
		if dbErr != nil {
			dbErr = fmt.Errorf("failed to connect to database: %w", dbErr)
		}
	})
	return dbConn, dbErr
}

// GormConfig is shared by Connect and tests so error translation behaves the same everywhere.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (s *GormStore) Tx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) first(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translate(s.db.WithContext(ctx).Where(query, args...).First(dest).Error)
}

// --- users ---

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	ensureID(&u.ID)
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) updateUser(ctx context.Context, userID string, updates map[string]interface{}) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) UpdateProfile(ctx context.Context, userID string, p models.ProfilePatch) error {
	updates := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("username", p.Username)
	set("email", p.Email)
	set("twitter", p.Twitter)
	set("discord", p.Discord)
	set("telegram", p.Telegram)
	set("avatar_url", p.AvatarURL)
	set("bio", p.Bio)
	if len(updates) == 0 {
		return nil
	}
	n, err := s.updateUser(ctx, userID, updates)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) SetCheckInState(ctx context.Context, userID string, streak int, day string) error {
	n, err := s.updateUser(ctx, userID, map[string]interface{}{
		"check_in_streak":   streak,
		"last_check_in_day": day,
	})
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) MarkProfileBonus(ctx context.Context, userID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND profile_bonus_awarded = ?", userID, false).
		Update("profile_bonus_awarded", true)
	return res.RowsAffected == 1, translate(res.Error)
}

func (s *GormStore) SetReferrer(ctx context.Context, userID, referrerID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND referred_by IS NULL", userID).
		Update("referred_by", referrerID)
	return res.RowsAffected == 1, translate(res.Error)
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) LockUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "wallet_address = ?", wallet); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "referral_code = ?", code); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) IncrementUser(ctx context.Context, userID string, d UserDelta) error {
	if d.IsZero() {
		return nil
	}
	updates := map[string]interface{}{}
	if d.Points != 0 {
		updates["points"] = gorm.Expr("points + ?", d.Points)
	}
	if d.TasksCompleted != 0 {
		updates["tasks_completed"] = gorm.Expr("tasks_completed + ?", d.TasksCompleted)
	}
	if d.ReferralCount != 0 {
		updates["referral_count"] = gorm.Expr("referral_count + ?", d.ReferralCount)
	}
	if d.ExtensionMinutes != 0 {
		updates["extension_minutes"] = gorm.Expr("extension_minutes + ?", d.ExtensionMinutes)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListUsers(ctx context.Context, p models.Page) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(p.Size).Offset(p.Offset()).
		Find(&users).Error
	return users, total, err
}

func (s *GormStore) ListReferredUsers(ctx context.Context, referrerID string) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("referred_by = ?", referrerID).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

func (s *GormStore) UsersWithMinPoints(ctx context.Context, minPoints int64) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("points >= ?", minPoints).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// --- leaderboard ---

func (s *GormStore) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order(leaderboardOrder).Limit(limit).Find(&users).Error
	return users, err
}

func (s *GormStore) CountUsersAhead(ctx context.Context, u *models.User) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("(points > ? OR (points = ? AND tasks_completed > ?) OR (points = ? AND tasks_completed = ? AND created_at < ?))",
			u.Points, u.Points, u.TasksCompleted, u.Points, u.TasksCompleted, u.CreatedAt).
		Count(&n).Error
	return n, err
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// --- ledger ---

func (s *GormStore) AppendPointEvent(ctx context.Context, e *models.PointEvent) error {
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return translate(s.db.WithContext(ctx).Create(e).Error)
}

func (s *GormStore) ListPointEvents(ctx context.Context, userID string, p models.Page) ([]models.PointEvent, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.PointEvent{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []models.PointEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(p.Size).Offset(p.Offset()).
		Find(&events).Error
	return events, total, err
}

// --- tasks ---

func (s *GormStore) CreateTask(ctx context.Context, t *models.Task) error {
	ensureID(&t.ID)
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *GormStore) SaveTask(ctx context.Context, t *models.Task) error {
	return translate(s.db.WithContext(ctx).Save(t).Error)
}

func (s *GormStore) DeleteTask(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	if err := s.first(ctx, &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) ListTasks(ctx context.Context, activeOnly bool) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Order("sort_order ASC, created_at ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var tasks []models.Task
	err := q.Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) CreateUserTask(ctx context.Context, ut *models.UserTask) error {
	ensureID(&ut.ID)
	return translate(s.db.WithContext(ctx).Create(ut).Error)
}

func (s *GormStore) ListUserTasks(ctx context.Context, userID string) ([]models.UserTask, error) {
	var uts []models.UserTask
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("completed_at DESC").Find(&uts).Error
	return uts, err
}

// --- achievements ---

func (s *GormStore) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	ensureID(&a.ID)
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

func (s *GormStore) SaveAchievement(ctx context.Context, a *models.Achievement) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}

func (s *GormStore) DeleteAchievement(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Achievement{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AchievementByID(ctx context.Context, id string) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.first(ctx, &a, "id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) ListAchievements(ctx context.Context, activeOnly bool) ([]models.Achievement, error) {
	q := s.db.WithContext(ctx).Order("threshold ASC, created_at ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var list []models.Achievement
	err := q.Find(&list).Error
	return list, err
}

func (s *GormStore) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	ensureID(&ua.ID)
	return translate(s.db.WithContext(ctx).Create(ua).Error)
}

func (s *GormStore) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var list []models.UserAchievement
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("awarded_at ASC").Find(&list).Error
	return list, err
}

// --- check-ins ---

func (s *GormStore) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	ensureID(&c.ID)
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

// --- lottery ---

func (s *GormStore) CreateLotteryWinners(ctx context.Context, winners []models.LotteryWinner) error {
	if len(winners) == 0 {
		return nil
	}
	for i := range winners {
		ensureID(&winners[i].ID)
	}
	return translate(s.db.WithContext(ctx).Create(&winners).Error)
}

func (s *GormStore) ListLotteryWinners(ctx context.Context, limit int) ([]models.LotteryWinner, error) {
	var winners []models.LotteryWinner
	err := s.db.WithContext(ctx).Order("drawn_at DESC, wallet_address ASC").Limit(limit).Find(&winners).Error
	return winners, err
}

// --- opinions ---

func (s *GormStore) CreateOpinion(ctx context.Context, o *models.Opinion) error {
	ensureID(&o.ID)
	return translate(s.db.WithContext(ctx).Create(o).Error)
}

func (s *GormStore) ListOpinions(ctx context.Context, p models.Page) ([]models.Opinion, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Opinion{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Opinion
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(p.Size).Offset(p.Offset()).Find(&list).Error
	return list, total, err
}

// --- extension sessions ---

func (s *GormStore) CreateSession(ctx context.Context, sess *models.ExtensionSession) error {
	ensureID(&sess.ID)
	return translate(s.db.WithContext(ctx).Create(sess).Error)
}

func (s *GormStore) SaveSession(ctx context.Context, sess *models.ExtensionSession) error {
	res := s.db.WithContext(ctx).Model(sess).
		Select("active", "last_sync_at", "ended_at", "minutes_credited").
		Updates(sess)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) OpenSession(ctx context.Context, userID string) (*models.ExtensionSession, error) {
	var sess models.ExtensionSession
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Order("started_at DESC").
		First(&sess).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (s *GormStore) ListIdleSessions(ctx context.Context, lastSyncBefore time.Time) ([]models.ExtensionSession, error) {
	var list []models.ExtensionSession
	err := s.db.WithContext(ctx).
		Where("ended_at IS NULL AND last_sync_at < ?", lastSyncBefore).
		Find(&list).Error
	return list, err
}

func (s *GormStore) CloseIdleSession(ctx context.Context, id string, lastSyncBefore, endedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ExtensionSession{}).
		Where("id = ? AND ended_at IS NULL AND last_sync_at < ?", id, lastSyncBefore).
		Updates(map[string]interface{}{"active": false, "ended_at": endedAt})
	return res.RowsAffected == 1, translate(res.Error)
}

func (s *GormStore) CountOpenSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ExtensionSession{}).
		Where("ended_at IS NULL AND active = ?", true).
		Count(&n).Error
	return n, err
}

// --- stats ---

func (s *GormStore) Stats(ctx context.Context, day string, since time.Time) (*models.DashboardStats, error) {
	db := s.db.WithContext(ctx)
	var st models.DashboardStats

	var sums struct {
		TotalPoints int64
		TotalTasks  int64
	}
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(points), 0) AS total_points, COALESCE(SUM(tasks_completed), 0) AS total_tasks").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	st.TotalPoints = sums.TotalPoints
	st.TotalTasksCompleted = sums.TotalTasks

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&st.TotalUsers, db.Model(&models.User{})},
		{&st.NewUsers24h, db.Model(&models.User{}).Where("created_at >= ?", since)},
		{&st.ActiveTasks, db.Model(&models.Task{}).Where("active = ?", true)},
		{&st.CheckInsToday, db.Model(&models.CheckIn{}).Where("day = ?", day)},
		{&st.ActiveExtensionSession, db.Model(&models.ExtensionSession{}).Where("ended_at IS NULL AND active = ?", true)},
		{&st.TotalOpinions, db.Model(&models.Opinion{})},
		{&st.LotteryDraws, db.Model(&models.LotteryWinner{}).Distinct("draw_id")},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return &st, nil
}

var _ Store = (*GormStore)(nil)
