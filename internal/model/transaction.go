package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the accounting record of one finished charging session.
type Transaction struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	SessionID        string          `gorm:"size:36;uniqueIndex;not null" json:"sessionId"`
	SlotNumber       int             `gorm:"index;not null" json:"slotNumber"`
	StartTime        time.Time       `gorm:"index;not null" json:"startTime"`
	EndTime          *time.Time      `json:"endTime"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	MinutesAllocated int             `gorm:"not null" json:"minutesAllocated"`
	Profile          Profile         `gorm:"not null" json:"profile"`
	FingerprintID    *int            `json:"fingerprintId,omitempty"`
	Reason           string          `gorm:"size:32;not null" json:"reason"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Reasons a session can end.
const (
	EndStopped      = "stopped"
	EndExpired      = "expired"
	EndOutOfService = "out_of_service"
)
