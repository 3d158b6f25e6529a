// Package ledger converts inserted money into charging minutes.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"charging-kiosk-backend/internal/model"
)

// Ledger is a read-only snapshot of the active denominations.
type Ledger struct {
	// sorted by value, largest first
	denoms []model.Denomination
}

// New builds a ledger from the given denominations. Inactive entries and
// entries with a non-positive value are ignored.
func New(denoms []model.Denomination) *Ledger {
	active := make([]model.Denomination, 0, len(denoms))
	for _, d := range denoms {
		if !d.Active || !d.Value.IsPositive() {
			continue
		}
		active = append(active, d)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Value.GreaterThan(active[j].Value)
	})
	return &Ledger{denoms: active}
}

// MinutesForAmount greedily decomposes amount into the largest denominations
// first and sums the minutes they grant. A remainder smaller than every
// active denomination earns nothing.
func (l *Ledger) MinutesForAmount(amount decimal.Decimal) int {
	minutes := 0
	remaining := amount
	for _, d := range l.denoms {
		if remaining.LessThan(d.Value) {
			continue
		}
		count, rest := remaining.QuoRem(d.Value, 0)
		minutes += int(count.IntPart()) * d.ChargingMinutes
		remaining = rest
	}
	return minutes
}

// Match returns the active denomination whose face value equals value.
func (l *Ledger) Match(value decimal.Decimal) (model.Denomination, bool) {
	for _, d := range l.denoms {
		if d.Value.Equal(value) {
			return d, true
		}
	}
	return model.Denomination{}, false
}

// Denominations returns the active denominations, largest first.
func (l *Ledger) Denominations() []model.Denomination {
	out := make([]model.Denomination, len(l.denoms))
	copy(out, l.denoms)
	return out
}
