package models

import "time"

// Opinion is free-form feedback left on the dashboard.
type Opinion struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        *string   `gorm:"type:uuid;index" json:"userId,omitempty"`
	WalletAddress string    `gorm:"type:varchar(42)" json:"walletAddress,omitempty"`
	Rating        int       `gorm:"not null;default:0" json:"rating"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
