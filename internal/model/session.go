package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session describes a charging session that has just ended.
type Session struct {
	ID               string          `json:"sessionId"`
	SlotNumber       int             `json:"slotNumber"`
	Profile          Profile         `json:"profile"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	Amount           decimal.Decimal `json:"amount"`
	MinutesAllocated int             `json:"minutesAllocated"`
	FingerprintID    *int            `json:"fingerprintId,omitempty"`
}

// Transaction converts the session into its accounting record.
func (s Session) Transaction(reason string) Transaction {
	end := s.End
	return Transaction{
		SessionID:        s.ID,
		SlotNumber:       s.SlotNumber,
		StartTime:        s.Start,
		EndTime:          &end,
		Amount:           s.Amount,
		MinutesAllocated: s.MinutesAllocated,
		Profile:          s.Profile,
		FingerprintID:    s.FingerprintID,
		Reason:           reason,
	}
}
