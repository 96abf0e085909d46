package models

import "time"

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Rank           int64  `json:"rank"`
	WalletAddress  string `json:"walletAddress"`
	Username       string `json:"username"`
	Points         int64  `json:"points"`
	TasksCompleted int    `json:"tasksCompleted"`
}

// UserRank is a single user's position on the leaderboard.
type UserRank struct {
	WalletAddress string  `json:"walletAddress"`
	Rank          int64   `json:"rank"`
	Points        int64   `json:"points"`
	TotalUsers    int64   `json:"totalUsers"`
	Percentile    float64 `json:"percentile"` // top X%
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers             int64     `json:"totalUsers"`
	NewUsers24h            int64     `json:"newUsers24h"`
	TotalPoints            int64     `json:"totalPoints"`
	TotalTasksCompleted    int64     `json:"totalTasksCompleted"`
	ActiveTasks            int64     `json:"activeTasks"`
	CheckInsToday          int64     `json:"checkInsToday"`
	ActiveExtensionSession int64     `json:"activeExtensionSessions"`
	TotalOpinions          int64     `json:"totalOpinions"`
	LotteryDraws           int64     `json:"lotteryDraws"`
	GeneratedAt            time.Time `json:"generatedAt"`
}

// Page is a 1-based pagination request.
type Page struct {
	Page int
	Size int
}

// Normalize clamps page/size into sane bounds (size 1..100, default 20).
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = 20
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

// Paginated wraps a page of items with totals.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginated builds a Paginated result.
func NewPaginated[T any](items []T, p Page, total int64) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		TotalItems: total,
		TotalPages: int((total + int64(p.Size) - 1) / int64(p.Size)),
	}
}

// AllModels lists every persisted model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Task{},
		&UserTask{},
		&Achievement{},
		&UserAchievement{},
		&CheckIn{},
		&LotteryWinner{},
		&Opinion{},
		&ExtensionSession{},
		&PointEvent{},
	}
}
