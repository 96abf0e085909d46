// Package memory is an in-process store.Store used for local development (STORAGE_DRIVER=memory)
// and tests. Uniqueness rules match the database schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/store"

	"github.com/google/uuid"
)

type data struct {
	users            map[string]models.User
	tasks            map[string]models.Task
	userTasks        map[string]models.UserTask
	achievements     map[string]models.Achievement
	userAchievements map[string]models.UserAchievement
	checkIns         map[string]models.CheckIn
	sessions         map[string]models.ExtensionSession
	winners          []models.LotteryWinner
	opinions         []models.Opinion
	events           []models.PointEvent
}

func newData() *data {
	return &data{
		users:            map[string]models.User{},
		tasks:            map[string]models.Task{},
		userTasks:        map[string]models.UserTask{},
		achievements:     map[string]models.Achievement{},
		userAchievements: map[string]models.UserAchievement{},
		checkIns:         map[string]models.CheckIn{},
		sessions:         map[string]models.ExtensionSession{},
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		users:            cloneMap(d.users),
		tasks:            cloneMap(d.tasks),
		userTasks:        cloneMap(d.userTasks),
		achievements:     cloneMap(d.achievements),
		userAchievements: cloneMap(d.userAchievements),
		checkIns:         cloneMap(d.checkIns),
		sessions:         cloneMap(d.sessions),
		winners:          append([]models.LotteryWinner(nil), d.winners...),
		opinions:         append([]models.Opinion(nil), d.opinions...),
		events:           append([]models.PointEvent(nil), d.events...),
	}
}

// Store keeps everything in maps guarded by one mutex. Transactions hold the mutex for their whole
// duration and restore a snapshot on error.
type Store struct {
	mu   *sync.Mutex
	d    **data
	inTx bool
	now  func() time.Time
}

// New returns an empty store.
func New() *Store {
	d := newData()
	return &Store{mu: &sync.Mutex{}, d: &d, now: time.Now}
}

// WithClock sets the time source used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.d).clone()
	tx := &Store{mu: s.mu, d: s.d, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.d = snapshot
		return err
	}
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func page[T any](items []T, p models.Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.users {
		if existing.WalletAddress == u.WalletAddress || existing.ReferralCode == u.ReferralCode {
			return store.ErrConflict
		}
	}
	ensureID(&u.ID)
	if _, ok := d.users[u.ID]; ok {
		return store.ErrConflict
	}
	now := s.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	d.users[u.ID] = *u
	return nil
}

func (s *Store) mutateUser(userID string, fn func(u *models.User) bool) (bool, error) {
	defer s.lock()()
	d := *s.d
	u, ok := d.users[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	if !fn(&u) {
		return false, nil
	}
	u.UpdatedAt = s.now()
	d.users[userID] = u
	return true, nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, p models.ProfilePatch) error {
	_, err := s.mutateUser(userID, func(u *models.User) bool {
		set := func(dst *string, v *string) {
			if v != nil {
				*dst = *v
			}
		}
		set(&u.Username, p.Username)
		set(&u.Email, p.Email)
		set(&u.Twitter, p.Twitter)
		set(&u.Discord, p.Discord)
		set(&u.Telegram, p.Telegram)
		set(&u.AvatarURL, p.AvatarURL)
		set(&u.Bio, p.Bio)
		return true
	})
	return err
}

func (s *Store) SetCheckInState(ctx context.Context, userID string, streak int, day string) error {
	_, err := s.mutateUser(userID, func(u *models.User) bool {
		u.CheckInStreak = streak
		u.LastCheckInDay = day
		return true
	})
	return err
}

func (s *Store) MarkProfileBonus(ctx context.Context, userID string) (bool, error) {
	changed, err := s.mutateUser(userID, func(u *models.User) bool {
		if u.ProfileBonusAwarded {
			return false
		}
		u.ProfileBonusAwarded = true
		return true
	})
	if err == store.ErrNotFound {
		return false, nil
	}
	return changed, err
}

func (s *Store) SetReferrer(ctx context.Context, userID, referrerID string) (bool, error) {
	changed, err := s.mutateUser(userID, func(u *models.User) bool {
		if u.ReferredBy != nil {
			return false
		}
		u.ReferredBy = &referrerID
		return true
	})
	if err == store.ErrNotFound {
		return false, nil
	}
	return changed, err
}

func (s *Store) findUser(match func(u *models.User) bool) (*models.User, error) {
	defer s.lock()()
	for _, u := range (*s.d).users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.ID == id })
}

// LockUser is UserByID; transactions already hold the store mutex.
func (s *Store) LockUser(ctx context.Context, id string) (*models.User, error) {
	return s.UserByID(ctx, id)
}

func (s *Store) UserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.WalletAddress == wallet })
}

func (s *Store) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.ReferralCode == code })
}

func (s *Store) IncrementUser(ctx context.Context, userID string, delta store.UserDelta) error {
	defer s.lock()()
	d := *s.d
	u, ok := d.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Points += delta.Points
	u.TasksCompleted += delta.TasksCompleted
	u.ReferralCount += delta.ReferralCount
	u.ExtensionMinutes += delta.ExtensionMinutes
	u.UpdatedAt = s.now()
	d.users[userID] = u
	return nil
}

func (s *Store) sortedUsers(less func(a, b *models.User) bool) []models.User {
	users := make([]models.User, 0, len((*s.d).users))
	for _, u := range (*s.d).users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return less(&users[i], &users[j]) })
	return users
}

func newestFirst(a, b *models.User) bool { return a.CreatedAt.After(b.CreatedAt) }

func (s *Store) ListUsers(ctx context.Context, p models.Page) ([]models.User, int64, error) {
	defer s.lock()()
	users := s.sortedUsers(newestFirst)
	return page(users, p), int64(len(users)), nil
}

func (s *Store) ListReferredUsers(ctx context.Context, referrerID string) ([]models.User, error) {
	defer s.lock()()
	var out []models.User
	for _, u := range s.sortedUsers(newestFirst) {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) UsersWithMinPoints(ctx context.Context, minPoints int64) ([]models.User, error) {
	defer s.lock()()
	var out []models.User
	for _, u := range s.sortedUsers(func(a, b *models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }) {
		if u.Points >= minPoints {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- leaderboard ---

func (s *Store) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	defer s.lock()()
	users := s.sortedUsers(store.Ahead)
	if limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) CountUsersAhead(ctx context.Context, target *models.User) (int64, error) {
	defer s.lock()()
	var n int64
	for _, u := range (*s.d).users {
		if store.Ahead(&u, target) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len((*s.d).users)), nil
}

// --- ledger ---

func (s *Store) AppendPointEvent(ctx context.Context, e *models.PointEvent) error {
	defer s.lock()()
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	d := *s.d
	d.events = append(d.events, *e)
	return nil
}

func (s *Store) ListPointEvents(ctx context.Context, userID string, p models.Page) ([]models.PointEvent, int64, error) {
	defer s.lock()()
	var events []models.PointEvent
	for _, e := range (*s.d).events {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return page(events, p), int64(len(events)), nil
}

// --- tasks ---

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.tasks {
		if existing.Slug == t.Slug {
			return store.ErrConflict
		}
	}
	ensureID(&t.ID)
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	d.tasks[t.ID] = *t
	return nil
}

func (s *Store) SaveTask(ctx context.Context, t *models.Task) error {
	defer s.lock()()
	d := *s.d
	for id, existing := range d.tasks {
		if id != t.ID && existing.Slug == t.Slug {
			return store.ErrConflict
		}
	}
	t.UpdatedAt = s.now()
	d.tasks[t.ID] = *t
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	defer s.lock()()
	d := *s.d
	if _, ok := d.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.tasks, id)
	return nil
}

func (s *Store) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	defer s.lock()()
	t, ok := (*s.d).tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, activeOnly bool) ([]models.Task, error) {
	defer s.lock()()
	var tasks []models.Task
	for _, t := range (*s.d).tasks {
		if !activeOnly || t.Active {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].SortOrder != tasks[j].SortOrder {
			return tasks[i].SortOrder < tasks[j].SortOrder
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) CreateUserTask(ctx context.Context, ut *models.UserTask) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.userTasks {
		if existing.UserID == ut.UserID && existing.TaskID == ut.TaskID {
			return store.ErrConflict
		}
	}
	ensureID(&ut.ID)
	d.userTasks[ut.ID] = *ut
	return nil
}

func (s *Store) ListUserTasks(ctx context.Context, userID string) ([]models.UserTask, error) {
	defer s.lock()()
	var out []models.UserTask
	for _, ut := range (*s.d).userTasks {
		if ut.UserID == userID {
			out = append(out, ut)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

// --- achievements ---

func (s *Store) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.achievements {
		if existing.Code == a.Code {
			return store.ErrConflict
		}
	}
	ensureID(&a.ID)
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	d.achievements[a.ID] = *a
	return nil
}

func (s *Store) SaveAchievement(ctx context.Context, a *models.Achievement) error {
	defer s.lock()()
	d := *s.d
	for id, existing := range d.achievements {
		if id != a.ID && existing.Code == a.Code {
			return store.ErrConflict
		}
	}
	a.UpdatedAt = s.now()
	d.achievements[a.ID] = *a
	return nil
}

func (s *Store) DeleteAchievement(ctx context.Context, id string) error {
	defer s.lock()()
	d := *s.d
	if _, ok := d.achievements[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.achievements, id)
	return nil
}

func (s *Store) AchievementByID(ctx context.Context, id string) (*models.Achievement, error) {
	defer s.lock()()
	a, ok := (*s.d).achievements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAchievements(ctx context.Context, activeOnly bool) ([]models.Achievement, error) {
	defer s.lock()()
	var list []models.Achievement
	for _, a := range (*s.d).achievements {
		if !activeOnly || a.Active {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Threshold != list[j].Threshold {
			return list[i].Threshold < list[j].Threshold
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Store) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.userAchievements {
		if existing.UserID == ua.UserID && existing.AchievementID == ua.AchievementID {
			return store.ErrConflict
		}
	}
	ensureID(&ua.ID)
	d.userAchievements[ua.ID] = *ua
	return nil
}

func (s *Store) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	defer s.lock()()
	var out []models.UserAchievement
	for _, ua := range (*s.d).userAchievements {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.Before(out[j].AwardedAt) })
	return out, nil
}

// --- check-ins ---

func (s *Store) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	defer s.lock()()
	d := *s.d
	for _, existing := range d.checkIns {
		if existing.WalletAddress == c.WalletAddress && existing.Day == c.Day {
			return store.ErrConflict
		}
	}
	ensureID(&c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	d.checkIns[c.ID] = *c
	return nil
}

// --- lottery ---

func (s *Store) CreateLotteryWinners(ctx context.Context, winners []models.LotteryWinner) error {
	defer s.lock()()
	d := *s.d
	for i := range winners {
		ensureID(&winners[i].ID)
		d.winners = append(d.winners, winners[i])
	}
	return nil
}

func (s *Store) ListLotteryWinners(ctx context.Context, limit int) ([]models.LotteryWinner, error) {
	defer s.lock()()
	winners := append([]models.LotteryWinner(nil), (*s.d).winners...)
	sort.SliceStable(winners, func(i, j int) bool {
		if !winners[i].DrawnAt.Equal(winners[j].DrawnAt) {
			return winners[i].DrawnAt.After(winners[j].DrawnAt)
		}
		return winners[i].WalletAddress < winners[j].WalletAddress
	})
	if limit < len(winners) {
		winners = winners[:limit]
	}
	return winners, nil
}

// --- opinions ---

func (s *Store) CreateOpinion(ctx context.Context, o *models.Opinion) error {
	defer s.lock()()
	ensureID(&o.ID)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	d := *s.d
	d.opinions = append(d.opinions, *o)
	return nil
}

func (s *Store) ListOpinions(ctx context.Context, p models.Page) ([]models.Opinion, int64, error) {
	defer s.lock()()
	list := append([]models.Opinion(nil), (*s.d).opinions...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, p), int64(len(list)), nil
}

// --- extension sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *models.ExtensionSession) error {
	defer s.lock()()
	ensureID(&sess.ID)
	(*s.d).sessions[sess.ID] = *sess
	return nil
}

func (s *Store) SaveSession(ctx context.Context, sess *models.ExtensionSession) error {
	defer s.lock()()
	cur, ok := (*s.d).sessions[sess.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Active = sess.Active
	cur.LastSyncAt = sess.LastSyncAt
	cur.EndedAt = sess.EndedAt
	cur.MinutesCredited = sess.MinutesCredited
	(*s.d).sessions[sess.ID] = cur
	return nil
}

func (s *Store) OpenSession(ctx context.Context, userID string) (*models.ExtensionSession, error) {
	defer s.lock()()
	var found *models.ExtensionSession
	for _, sess := range (*s.d).sessions {
		if sess.UserID == userID && sess.Open() {
			if found == nil || sess.StartedAt.After(found.StartedAt) {
				cp := sess
				found = &cp
			}
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *Store) ListIdleSessions(ctx context.Context, lastSyncBefore time.Time) ([]models.ExtensionSession, error) {
	defer s.lock()()
	var out []models.ExtensionSession
	for _, sess := range (*s.d).sessions {
		if sess.Open() && sess.LastSyncAt.Before(lastSyncBefore) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Store) CloseIdleSession(ctx context.Context, id string, lastSyncBefore, endedAt time.Time) (bool, error) {
	defer s.lock()()
	sess, ok := (*s.d).sessions[id]
	if !ok || !sess.Open() || !sess.LastSyncAt.Before(lastSyncBefore) {
		return false, nil
	}
	sess.Active = false
	sess.EndedAt = &endedAt
	(*s.d).sessions[id] = sess
	return true, nil
}

func (s *Store) countOpenSessions() int64 {
	var n int64
	for _, sess := range (*s.d).sessions {
		if sess.Open() && sess.Active {
			n++
		}
	}
	return n
}

func (s *Store) CountOpenSessions(ctx context.Context) (int64, error) {
	defer s.lock()()
	return s.countOpenSessions(), nil
}

// --- stats ---

func (s *Store) Stats(ctx context.Context, day string, since time.Time) (*models.DashboardStats, error) {
	defer s.lock()()
	d := *s.d
	st := &models.DashboardStats{
		TotalUsers:             int64(len(d.users)),
		TotalOpinions:          int64(len(d.opinions)),
		ActiveExtensionSession: s.countOpenSessions(),
	}
	for _, u := range d.users {
		st.TotalPoints += u.Points
		st.TotalTasksCompleted += int64(u.TasksCompleted)
		if !u.CreatedAt.Before(since) {
			st.NewUsers24h++
		}
	}
	for _, t := range d.tasks {
		if t.Active {
			st.ActiveTasks++
		}
	}
	for _, c := range d.checkIns {
		if c.Day == day {
			st.CheckInsToday++
		}
	}
	draws := map[string]struct{}{}
	for _, w := range d.winners {
		draws[w.DrawID] = struct{}{}
	}
	st.LotteryDraws = int64(len(draws))
	return st, nil
}

var _ store.Store = (*Store)(nil)
