package models

import "time"

// AchievementCriteria names the user counter an achievement threshold is compared against.
type AchievementCriteria string

const (
	CriteriaPoints           AchievementCriteria = "points"
	CriteriaTasksCompleted   AchievementCriteria = "tasks_completed"
	CriteriaCheckInStreak    AchievementCriteria = "check_in_streak"
	CriteriaReferrals        AchievementCriteria = "referrals"
	CriteriaExtensionMinutes AchievementCriteria = "extension_minutes"
)

// Valid reports whether c is a known criteria.
func (c AchievementCriteria) Valid() bool {
	switch c {
	case CriteriaPoints, CriteriaTasksCompleted, CriteriaCheckInStreak, CriteriaReferrals, CriteriaExtensionMinutes:
		return true
	}
	return false
}

// Achievement is unlocked once the user's counter for Criteria reaches Threshold.
type Achievement struct {
	ID           string              `gorm:"primaryKey;type:uuid" json:"id"`
	Code         string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Title        string              `gorm:"not null" json:"title"`
	Description  string              `gorm:"type:text" json:"description"`
	ImageURL     string              `gorm:"type:text" json:"imageUrl"`
	Criteria     AchievementCriteria `gorm:"type:varchar(32);not null" json:"criteria"`
	Threshold    int64               `gorm:"not null" json:"threshold"`
	RewardPoints int64               `gorm:"not null;default:0" json:"rewardPoints"`
	Active       bool                `gorm:"not null" json:"active"`

	Timestamps
}

// UserAchievement is an awarded achievement. One row per (user, achievement).
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"achievementId"`
	AwardedAt     time.Time `gorm:"not null" json:"awardedAt"`
}

// AchievementView is an achievement annotated with the caller's unlock state.
type AchievementView struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
	Progress   int64      `json:"progress"`
}
