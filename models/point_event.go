package models

import "time"

// PointSource labels where a points change came from.
type PointSource string

const (
	SourceTask        PointSource = "task"
	SourceReferral    PointSource = "referral"
	SourceCheckIn     PointSource = "check_in"
	SourceProfile     PointSource = "profile"
	SourceExtension   PointSource = "extension"
	SourceAchievement PointSource = "achievement"
	SourceLottery     PointSource = "lottery"
	SourceAdmin       PointSource = "admin"
)

// PointEvent is the append-only history of every points change.
type PointEvent struct {
	ID        string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string      `gorm:"type:uuid;not null;index:idx_point_events_user_created" json:"userId"`
	Source    PointSource `gorm:"type:varchar(32);not null" json:"source"`
	Points    int64       `gorm:"not null" json:"points"`
	Reference string      `gorm:"type:varchar(128)" json:"reference,omitempty"`
	Note      string      `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time   `gorm:"not null;index:idx_point_events_user_created" json:"createdAt"`
}
