package kiosk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"charging-kiosk-backend/internal/ledger"
)

// CoinReader reads the coin acceptor through the device gateway.
type CoinReader interface {
	ReadCoinSlotValue(ctx context.Context) (decimal.Decimal, error)
}

// CoinAcceptor polls the coin slot and accumulates inserted money as credit
// until a session spends it.
type CoinAcceptor struct {
	reader   CoinReader
	store    Store
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	credit decimal.Decimal
}

// NewCoinAcceptor creates an acceptor polling every interval.
func NewCoinAcceptor(reader CoinReader, store Store, interval time.Duration, logger *slog.Logger) *CoinAcceptor {
	return &CoinAcceptor{
		reader:   reader,
		store:    store,
		interval: interval,
		logger:   logger.With("component", "coins"),
		credit:   decimal.Zero,
	}
}

// Run polls the coin slot until ctx is done.
func (a *CoinAcceptor) Run(ctx context.Context) {
	a.logger.Info("starting coin acceptor polling", "interval", a.interval.String())

	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("coin acceptor polling shutting down")
			return
		case <-timer.C:
			a.PollOnce(ctx)
			timer.Reset(a.interval)
		}
	}
}

// PollOnce reads one coin and credits it. It returns the value read, zero
// when nothing was inserted.
func (a *CoinAcceptor) PollOnce(ctx context.Context) decimal.Decimal {
	value, err := a.reader.ReadCoinSlotValue(ctx)
	if err != nil {
		a.logger.Debug("coin slot read failed", "error", err)
		return decimal.Zero
	}
	if !value.IsPositive() {
		return decimal.Zero
	}

	total := a.Credit(value)
	a.logger.Info("coin inserted", "value", value.String(), "credit", total.String())
	a.countUsage(ctx, value)
	return value
}

// countUsage bumps the usage counters of the denomination matching value.
func (a *CoinAcceptor) countUsage(ctx context.Context, value decimal.Decimal) {
	denominations, err := a.store.ListActiveDenominations(ctx)
	if err != nil {
		a.logger.Error("failed to load denominations", "error", err)
		return
	}
	d, ok := ledger.New(denominations).Match(value)
	if !ok {
		a.logger.Warn("coin does not match an active denomination", "value", value.String())
		return
	}
	if err := a.store.IncrementDenominationUsage(ctx, d.ID); err != nil {
		a.logger.Error("failed to count coin usage", "denomination", d.Name, "error", err)
	}
}

// Credit adds value to the accumulated credit and returns the new total.
func (a *CoinAcceptor) Credit(value decimal.Decimal) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.credit = a.credit.Add(value)
	return a.credit
}

// Balance returns the accumulated credit.
func (a *CoinAcceptor) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credit
}

// Take empties the credit and returns what it held.
func (a *CoinAcceptor) Take() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	taken := a.credit
	a.credit = decimal.Zero
	return taken
}

// Refund gives back credit taken for a session that did not start.
func (a *CoinAcceptor) Refund(value decimal.Decimal) {
	if !value.IsPositive() {
		return
	}
	a.Credit(value)
	a.logger.Info("credit refunded", "value", value.String())
}
