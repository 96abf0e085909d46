package models

import "time"

// Task is an admin-defined action worth a fixed number of points.
type Task struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string `gorm:"type:varchar(128);uniqueIndex;not null" json:"slug"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(32);index" json:"category"`
	Link        string `gorm:"type:text" json:"link"`
	ImageURL    string `gorm:"type:text" json:"imageUrl"`
	Points      int64  `gorm:"not null" json:"points"`
	Active      bool   `gorm:"not null;index" json:"active"`
	SortOrder   int    `gorm:"not null;default:0" json:"sortOrder"`

	Timestamps
}

// UserTask records that a user completed a task. One row per (user, task).
type UserTask struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_task" json:"userId"`
	TaskID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_task" json:"taskId"`
	PointsAwarded int64     `gorm:"not null" json:"pointsAwarded"`
	CompletedAt   time.Time `gorm:"not null" json:"completedAt"`
}

// TaskView is a task annotated with the caller's completion state.
type TaskView struct {
	Task
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
