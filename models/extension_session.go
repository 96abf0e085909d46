package models

import "time"

// ExtensionSession tracks one browser-extension connection. At most one session per user is open
// (EndedAt == nil) at a time.
type ExtensionSession struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string     `gorm:"type:uuid;not null;index" json:"userId"`
	WalletAddress   string     `gorm:"type:varchar(42);not null" json:"walletAddress"`
	Active          bool       `gorm:"not null;default:true" json:"active"`
	StartedAt       time.Time  `gorm:"not null" json:"startedAt"`
	LastSyncAt      time.Time  `gorm:"not null;index" json:"lastSyncAt"`
	EndedAt         *time.Time `gorm:"index" json:"endedAt,omitempty"`
	MinutesCredited int64      `gorm:"not null;default:0" json:"minutesCredited"`
}

// Open reports whether the session has not been closed.
func (s *ExtensionSession) Open() bool {
	return s.EndedAt == nil
}
