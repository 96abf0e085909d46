package models

import (
	"time"

	"gorm.io/gorm"
)

// User is created on first wallet contact and mutated by every points-earning action.
type User struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"type:varchar(42);uniqueIndex;not null" json:"walletAddress"` // lowercase 0x-hex

	// Profile
	Username  string `gorm:"type:varchar(64)" json:"username"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Twitter   string `gorm:"type:varchar(64)" json:"twitter"`
	Discord   string `gorm:"type:varchar(64)" json:"discord"`
	Telegram  string `gorm:"type:varchar(64)" json:"telegram"`
	AvatarURL string `gorm:"type:text" json:"avatarUrl"`
	Bio       string `gorm:"type:text" json:"bio"`

	// Rewards
	Points           int64   `gorm:"not null;default:0;index" json:"points"`
	TasksCompleted   int     `gorm:"not null;default:0" json:"tasksCompleted"`
	ReferralCode     string  `gorm:"type:varchar(16);uniqueIndex;not null" json:"referralCode"`
	ReferredBy       *string `gorm:"type:uuid;index" json:"referredBy,omitempty"`
	ReferralCount    int     `gorm:"not null;default:0" json:"referralCount"`
	CheckInStreak    int     `gorm:"not null;default:0" json:"checkInStreak"`
	LastCheckInDay   string  `gorm:"type:varchar(10)" json:"lastCheckInDay,omitempty"`
	ExtensionMinutes int64   `gorm:"not null;default:0" json:"extensionMinutes"`

	ProfileBonusAwarded bool `gorm:"not null;default:false" json:"profileBonusAwarded"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ProfilePatch carries a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Twitter   *string `json:"twitter"`
	Discord   *string `json:"discord"`
	Telegram  *string `json:"telegram"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// ProfileCompletion reports how much of the public profile is filled in.
type ProfileCompletion struct {
	Percentage int      `json:"percentage"`
	Completed  []string `json:"completed"`
	Missing    []string `json:"missing"`
}

// ReferredUser is the public view of a user someone referred.
type ReferredUser struct {
	WalletAddress string    `json:"walletAddress"`
	Username      string    `json:"username"`
	Points        int64     `json:"points"`
	JoinedAt      time.Time `json:"joinedAt"`
}
