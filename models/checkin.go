package models

import "time"

// CheckIn is a daily check-in. Day is the UTC calendar date (YYYY-MM-DD);
// (WalletAddress, Day) is unique.
type CheckIn struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"userId"`
	WalletAddress string    `gorm:"type:varchar(42);not null;uniqueIndex:idx_wallet_day" json:"walletAddress"`
	Day           string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_wallet_day" json:"day"`
	Streak        int       `gorm:"not null" json:"streak"`
	PointsAwarded int64     `gorm:"not null" json:"pointsAwarded"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// CheckInStatus summarises a wallet's check-in state for today.
type CheckInStatus struct {
	CheckedInToday bool   `json:"checkedInToday"`
	Streak         int    `json:"streak"`
	LastCheckInDay string `json:"lastCheckInDay,omitempty"`
	NextReward     int64  `json:"nextReward"`
}
