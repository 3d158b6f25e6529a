package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"charging-kiosk-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	RecordTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	ListActiveDenominations(ctx context.Context) ([]model.Denomination, error)
	IncrementDenominationUsage(ctx context.Context, id int64) error
	ResetDenominationUsage(ctx context.Context, period model.UsagePeriod) error

	PutSubscription(ctx context.Context, sub model.PushSubscription, slots []int) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForSlot(ctx context.Context, slot int) ([]model.PushSubscription, error)
}

// TransactionFilter narrows ListTransactions. Zero values mean no filter.
type TransactionFilter struct {
	SlotNumber int
	Since      time.Time
	Limit      int
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// RecordTransaction persists the accounting record of a finished session.
// Recording the same session twice is a no-op.
func (s *gormStore) RecordTransaction(ctx context.Context, tx *model.Transaction) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(tx).Error
	if err != nil {
		return fmt.Errorf("failed to record transaction for session %s: %w", tx.SessionID, err)
	}
	return nil
}

// ListTransactions returns transactions newest first.
func (s *gormStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	q := s.db.WithContext(ctx).Order("start_time DESC")
	if filter.SlotNumber > 0 {
		q = q.Where("slot_number = ?", filter.SlotNumber)
	}
	if !filter.Since.IsZero() {
		q = q.Where("start_time >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var txs []model.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// ListActiveDenominations returns the denominations the acceptor currently takes.
func (s *gormStore) ListActiveDenominations(ctx context.Context) ([]model.Denomination, error) {
	var denominations []model.Denomination
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("value ASC").
		Find(&denominations).Error; err != nil {
		return nil, fmt.Errorf("failed to list active denominations: %w", err)
	}
	return denominations, nil
}

// IncrementDenominationUsage bumps all three usage counters of a denomination.
func (s *gormStore) IncrementDenominationUsage(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&model.Denomination{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"daily_count":   gorm.Expr("daily_count + ?", 1),
			"monthly_count": gorm.Expr("monthly_count + ?", 1),
			"yearly_count":  gorm.Expr("yearly_count + ?", 1),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to increment usage of denomination %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("denomination %d: %w", id, ErrNotFound)
	}
	return nil
}

// ResetDenominationUsage zeroes one usage counter across all denominations.
func (s *gormStore) ResetDenominationUsage(ctx context.Context, period model.UsagePeriod) error {
	column, ok := period.Column()
	if !ok {
		return fmt.Errorf("unknown usage period %q", period)
	}
	if err := s.db.WithContext(ctx).Model(&model.Denomination{}).
		Where("1 = 1").
		Update(column, 0).Error; err != nil {
		return fmt.Errorf("failed to reset %s usage: %w", period, err)
	}
	return nil
}

// PutSubscription creates or replaces a push subscription together with
// the slots it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, slots []int) error {
	sub.Slots = nil
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionSlot{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscribed slots: %w", err)
		}

		if len(slots) == 0 {
			return nil
		}
		seen := make(map[int]bool, len(slots))
		rows := make([]model.SubscriptionSlot, 0, len(slots))
		for _, n := range slots {
			if seen[n] {
				continue
			}
			seen[n] = true
			rows = append(rows, model.SubscriptionSlot{Endpoint: sub.Endpoint, SlotNumber: n})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save subscribed slots: %w", err)
		}
		return nil
	})
}

// GetSubscription loads a subscription and its slots.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Slots").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, fmt.Errorf("subscription %s: %w", endpoint, ErrNotFound)
	}
	if err != nil {
		return sub, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription and its slot mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionSlot{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscribed slots: %w", err)
		}
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// SubscriptionsForSlot returns every subscription following the slot.
func (s *gormStore) SubscriptionsForSlot(ctx context.Context, slot int) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_slots ss ON ss.endpoint = push_subscriptions.endpoint").
		Where("ss.slot_number = ?", slot).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for slot %d: %w", slot, err)
	}
	return subs, nil
}
