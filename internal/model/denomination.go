package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Denomination is a currency unit accepted by the coin acceptor.
type Denomination struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:64;not null" json:"name"`
	Value           decimal.Decimal `gorm:"type:decimal(10,2);uniqueIndex;not null" json:"value"`
	ChargingMinutes int             `gorm:"not null" json:"chargingMinutes"`
	Active          bool            `gorm:"not null;default:true" json:"active"`
	DailyCount      int             `gorm:"not null;default:0" json:"dailyCount"`
	MonthlyCount    int             `gorm:"not null;default:0" json:"monthlyCount"`
	YearlyCount     int             `gorm:"not null;default:0" json:"yearlyCount"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// UsagePeriod selects which usage counter a reset applies to.
type UsagePeriod string

const (
	UsageDaily   UsagePeriod = "daily"
	UsageMonthly UsagePeriod = "monthly"
	UsageYearly  UsagePeriod = "yearly"
)

// Column returns the denominations column holding the counter for the period.
func (p UsagePeriod) Column() (string, bool) {
	switch p {
	case UsageDaily:
		return "daily_count", true
	case UsageMonthly:
		return "monthly_count", true
	case UsageYearly:
		return "yearly_count", true
	}
	return "", false
}

// DefaultDenominations is the coin set seeded into an empty database.
func DefaultDenominations() []Denomination {
	return []Denomination{
		{Name: "1 Peso", Value: decimal.NewFromInt(1), ChargingMinutes: 10, Active: true},
		{Name: "5 Pesos", Value: decimal.NewFromInt(5), ChargingMinutes: 30, Active: true},
		{Name: "10 Pesos", Value: decimal.NewFromInt(10), ChargingMinutes: 60, Active: true},
		{Name: "20 Pesos", Value: decimal.NewFromInt(20), ChargingMinutes: 120, Active: true},
	}
}
