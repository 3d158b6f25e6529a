// Package kiosk runs the charging business flow on top of the slot
// orchestrator: paying for sessions, recording them when they end, expiring
// sessions whose time ran out, and watching the coin acceptor.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/ledger"
	"charging-kiosk-backend/internal/model"
	"charging-kiosk-backend/internal/notification"
	"charging-kiosk-backend/internal/slot"
)

var (
	// ErrNoCredit means no amount was given and the acceptor holds no credit.
	ErrNoCredit = errors.New("no coins inserted")
	// ErrInsufficientAmount means the amount buys no charging time.
	ErrInsufficientAmount = errors.New("amount does not buy any charging time")
	// ErrInvalidAmount means a negative amount was given.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Store is the persistence the kiosk needs.
type Store interface {
	ListActiveDenominations(ctx context.Context) ([]model.Denomination, error)
	IncrementDenominationUsage(ctx context.Context, id int64) error
	ResetDenominationUsage(ctx context.Context, period model.UsagePeriod) error
	RecordTransaction(ctx context.Context, tx *model.Transaction) error
}

// Notifier is told when a session ends.
type Notifier interface {
	Dispatch(ev notification.Event)
}

// Service ties payment, the slot state machine and accounting together.
type Service struct {
	cfg      config.SessionsConfig
	store    Store
	slots    *slot.Orchestrator
	coins    *CoinAcceptor
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the kiosk service. notifier may be nil.
func NewService(cfg config.SessionsConfig, store Store, slots *slot.Orchestrator, coins *CoinAcceptor, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		slots:    slots,
		coins:    coins,
		notifier: notifier,
		logger:   logger.With("component", "kiosk"),
		now:      time.Now,
	}
}

// Slots exposes the orchestrator for operations that need no accounting.
func (s *Service) Slots() *slot.Orchestrator {
	return s.slots
}

// Coins exposes the coin acceptor.
func (s *Service) Coins() *CoinAcceptor {
	return s.coins
}

// Ledger builds a ledger from the currently active denominations.
func (s *Service) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	denominations, err := s.store.ListActiveDenominations(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.New(denominations), nil
}

// Quote returns the minutes amount would buy.
func (s *Service) Quote(ctx context.Context, amount decimal.Decimal) (int, error) {
	if amount.IsNegative() {
		return 0, ErrInvalidAmount
	}
	l, err := s.Ledger(ctx)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", amount, err)
	}
	return l.MinutesForAmount(amount), nil
}

// Start pays for and starts a session. A zero amount spends the coin
// acceptor's credit, which is returned if the session does not start.
func (s *Service) Start(ctx context.Context, number int, amount decimal.Decimal, fingerprintID *int) (model.Slot, error) {
	if amount.IsNegative() {
		return model.Slot{}, ErrInvalidAmount
	}

	fromCredit := false
	if amount.IsZero() {
		if s.coins == nil {
			return model.Slot{}, ErrNoCredit
		}
		amount = s.coins.Take()
		if !amount.IsPositive() {
			return model.Slot{}, ErrNoCredit
		}
		fromCredit = true
	}
	refund := func() {
		if fromCredit {
			s.coins.Refund(amount)
		}
	}

	minutes, err := s.Quote(ctx, amount)
	if err != nil {
		refund()
		return model.Slot{}, err
	}
	if minutes == 0 {
		refund()
		return model.Slot{}, fmt.Errorf("%s: %w", amount, ErrInsufficientAmount)
	}

	started, err := s.slots.StartCharging(ctx, number, amount, minutes, fingerprintID)
	if err != nil {
		refund()
		return started, err
	}
	return started, nil
}

// Stop ends the session on a slot and records it.
func (s *Service) Stop(ctx context.Context, number int) (model.Session, error) {
	session, err := s.slots.StopCharging(ctx, number)
	if err != nil {
		return session, err
	}
	s.finish(ctx, session, model.EndStopped)
	return session, nil
}

// SetOutOfService parks a slot, recording the session it interrupted.
func (s *Service) SetOutOfService(ctx context.Context, number int) (model.Slot, error) {
	session, err := s.slots.SetOutOfService(ctx, number)
	if err != nil {
		return model.Slot{}, err
	}
	if session != nil {
		s.finish(ctx, *session, model.EndOutOfService)
	}
	return s.slots.Registry().Get(number)
}

// finish records an ended session and notifies subscribers. The slot has
// already moved on, so failures here are only logged.
func (s *Service) finish(ctx context.Context, session model.Session, reason string) {
	tx := session.Transaction(reason)
	if err := s.store.RecordTransaction(context.WithoutCancel(ctx), &tx); err != nil {
		s.logger.Error("failed to record transaction", "slot", session.SlotNumber, "session", session.ID, "error", err)
	} else {
		s.logger.Info("transaction recorded", "slot", session.SlotNumber, "session", session.ID,
			"amount", session.Amount.String(), "reason", reason)
	}
	if s.notifier != nil {
		s.notifier.Dispatch(notification.Event{Slot: session.SlotNumber, Reason: reason})
	}
}

// Run stops expired sessions every sweep interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.AutoStop {
		s.logger.Info("session auto-stop is disabled")
		return
	}
	s.logger.Info("starting session sweeper", "interval", s.cfg.SweepInterval.String())

	timer := time.NewTimer(s.cfg.SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.SweepInterval)
		}
	}
}

// SweepOnce stops every session whose allotted time has passed and returns
// how many were stopped. Slots still sanitizing are picked up by a later sweep.
func (s *Service) SweepOnce(ctx context.Context) int {
	now := s.now()
	stopped := 0
	for _, cur := range s.slots.Registry().List() {
		if cur.Status != model.StatusInUse && cur.Status != model.StatusLocked {
			continue
		}
		session, ok, err := s.slots.StopExpired(ctx, cur.Number, now)
		if err != nil {
			s.logger.Error("failed to stop expired session", "slot", cur.Number, "error", err)
			continue
		}
		if !ok {
			continue
		}
		s.finish(ctx, session, model.EndExpired)
		stopped++
	}
	return stopped
}
