package kiosk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/logging"
	"charging-kiosk-backend/internal/model"
)

func TestCoinAcceptor_PollOnce(t *testing.T) {
	st := newMockStore()
	reader := &stubReader{values: []decimal.Decimal{
		decimal.NewFromInt(5),
		decimal.NewFromInt(3),
		decimal.NewFromInt(20),
	}}
	a := NewCoinAcceptor(reader, st, time.Second, logging.Discard())
	ctx := context.Background()

	assert.True(t, decimal.NewFromInt(5).Equal(a.PollOnce(ctx)))
	assert.True(t, decimal.NewFromInt(3).Equal(a.PollOnce(ctx)), "unknown coins still count as credit")
	assert.True(t, decimal.NewFromInt(20).Equal(a.PollOnce(ctx)))
	assert.True(t, a.PollOnce(ctx).IsZero(), "nothing inserted")

	assert.True(t, decimal.NewFromInt(28).Equal(a.Balance()))
	assert.Equal(t, []int64{2, 4}, st.incremented)

	reader.err = errors.New("gateway down")
	assert.True(t, a.PollOnce(ctx).IsZero())
	assert.True(t, decimal.NewFromInt(28).Equal(a.Balance()))
}

func TestCoinAcceptor_TakeAndRefund(t *testing.T) {
	a := NewCoinAcceptor(&stubReader{}, newMockStore(), time.Second, logging.Discard())

	a.Credit(decimal.NewFromInt(10))
	taken := a.Take()
	assert.True(t, decimal.NewFromInt(10).Equal(taken))
	assert.True(t, a.Balance().IsZero())

	a.Credit(decimal.NewFromInt(1))
	a.Refund(taken)
	assert.True(t, decimal.NewFromInt(11).Equal(a.Balance()))

	a.Refund(decimal.NewFromInt(-3))
	assert.True(t, decimal.NewFromInt(11).Equal(a.Balance()))
}

func TestCoinAcceptor_Run(t *testing.T) {
	reader := &stubReader{values: []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(1)}}
	a := NewCoinAcceptor(reader, newMockStore(), 5*time.Millisecond, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	assert.Eventually(t, func() bool {
		return decimal.NewFromInt(2).Equal(a.Balance())
	}, time.Second, 5*time.Millisecond)
}

func TestCounterResetter(t *testing.T) {
	st := newMockStore()
	cfg := config.CoinsConfig{
		DailyResetSpec:   "0 0 * * *",
		MonthlyResetSpec: "0 0 1 * *",
		YearlyResetSpec:  "0 0 1 1 *",
	}

	r, err := NewCounterResetter(cfg, st, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, r.Jobs())
	r.Start()
	r.Stop()

	r.Reset(context.Background(), model.UsageMonthly)
	assert.Equal(t, []model.UsagePeriod{model.UsageMonthly}, st.resets)

	cfg.YearlyResetSpec = config.DisabledSchedule
	r, err = NewCounterResetter(cfg, st, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, r.Jobs())

	cfg.DailyResetSpec = "every day"
	_, err = NewCounterResetter(cfg, st, logging.Discard())
	assert.ErrorContains(t, err, "daily")
}
