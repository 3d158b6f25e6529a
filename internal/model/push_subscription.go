package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Slots []SubscriptionSlot `gorm:"foreignKey:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionSlot maps a push subscription to a slot it wants session-end alerts for.
type SubscriptionSlot struct {
	Endpoint   string `gorm:"primaryKey"`
	SlotNumber int    `gorm:"primaryKey;index"`
}
