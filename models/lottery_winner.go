package models

import "time"

// LotteryWinner is one winner of a draw; all winners of a draw share DrawID.
type LotteryWinner struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	DrawID        string    `gorm:"type:uuid;not null;index" json:"drawId"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"userId"`
	WalletAddress string    `gorm:"type:varchar(42);not null" json:"walletAddress"`
	PrizePoints   int64     `gorm:"not null" json:"prizePoints"`
	DrawnAt       time.Time `gorm:"not null;index" json:"drawnAt"`
}
