package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"charging-kiosk-backend/internal/model"
)

func pesos(n string) decimal.Decimal {
	return decimal.RequireFromString(n)
}

func TestLedger_MinutesForAmount(t *testing.T) {
	l := New(model.DefaultDenominations())

	testCases := []struct {
		name     string
		amount   string
		expected int
	}{
		{name: "zero", amount: "0", expected: 0},
		{name: "single smallest coin", amount: "1", expected: 10},
		{name: "twenty plus five", amount: "25", expected: 150},
		{name: "remainder below five is still counted in ones", amount: "7", expected: 50},
		{name: "all four denominations", amount: "36", expected: 220},
		{name: "fractional change is discarded", amount: "5.75", expected: 30},
		{name: "negative amount grants nothing", amount: "-5", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, l.MinutesForAmount(pesos(tc.amount)))
		})
	}
}

// Without the one-peso coin a leftover of two pesos buys no time.
func TestLedger_DiscardsRemainderBelowSmallestDenomination(t *testing.T) {
	denoms := model.DefaultDenominations()
	denoms[0].Active = false
	l := New(denoms)

	assert.Equal(t, 30, l.MinutesForAmount(pesos("7")))
	assert.Equal(t, 0, l.MinutesForAmount(pesos("4.99")))
}

func TestLedger_NoActiveDenominations(t *testing.T) {
	denoms := model.DefaultDenominations()
	for i := range denoms {
		denoms[i].Active = false
	}
	l := New(denoms)

	assert.Equal(t, 0, l.MinutesForAmount(pesos("100")))
	assert.Equal(t, 0, New(nil).MinutesForAmount(pesos("100")))
}

func TestLedger_IgnoresNonPositiveValues(t *testing.T) {
	l := New([]model.Denomination{
		{Name: "broken", Value: decimal.Zero, ChargingMinutes: 99, Active: true},
		{Name: "5 Pesos", Value: pesos("5"), ChargingMinutes: 30, Active: true},
	})
	assert.Equal(t, 60, l.MinutesForAmount(pesos("12")))
}

// With minutes proportional to face value the greedy total never drops as
// the amount grows.
func TestLedger_MonotonicAndNonNegative(t *testing.T) {
	denoms := model.DefaultDenominations()
	for i := range denoms {
		denoms[i].ChargingMinutes = int(denoms[i].Value.IntPart()) * 6
	}
	l := New(denoms)

	prev := 0
	for cents := int64(0); cents <= 10000; cents += 25 {
		got := l.MinutesForAmount(decimal.New(cents, -2))
		assert.GreaterOrEqual(t, got, 0)
		assert.GreaterOrEqual(t, got, prev, "minutes decreased at %d cents", cents)
		prev = got
	}
}

// The seeded coin set rewards ones more generously than fives; greedy still
// takes the five.
func TestLedger_GreedyPrefersLargerCoins(t *testing.T) {
	l := New(model.DefaultDenominations())

	assert.Equal(t, 40, l.MinutesForAmount(pesos("4")))
	assert.Equal(t, 30, l.MinutesForAmount(pesos("5")))
}

func TestLedger_Match(t *testing.T) {
	l := New(model.DefaultDenominations())

	d, ok := l.Match(pesos("10.00"))
	assert.True(t, ok)
	assert.Equal(t, "10 Pesos", d.Name)

	_, ok = l.Match(pesos("2"))
	assert.False(t, ok)
}
