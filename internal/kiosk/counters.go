package kiosk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/model"
)

// CounterResetter zeroes denomination usage counters on a cron schedule.
type CounterResetter struct {
	cron   *cron.Cron
	store  Store
	logger *slog.Logger
}

// NewCounterResetter schedules one reset per configured spec. A spec of
// config.DisabledSchedule, or an empty one, leaves that period unscheduled.
func NewCounterResetter(cfg config.CoinsConfig, store Store, logger *slog.Logger) (*CounterResetter, error) {
	r := &CounterResetter{
		cron:   cron.New(),
		store:  store,
		logger: logger.With("component", "counters"),
	}

	schedule := []struct {
		spec   string
		period model.UsagePeriod
	}{
		{cfg.DailyResetSpec, model.UsageDaily},
		{cfg.MonthlyResetSpec, model.UsageMonthly},
		{cfg.YearlyResetSpec, model.UsageYearly},
	}
	for _, s := range schedule {
		if s.spec == "" || s.spec == config.DisabledSchedule {
			continue
		}
		period := s.period
		if _, err := r.cron.AddFunc(s.spec, func() { r.Reset(context.Background(), period) }); err != nil {
			return nil, fmt.Errorf("invalid %s reset schedule %q: %w", period, s.spec, err)
		}
	}
	return r, nil
}

// Start runs the scheduler in the background.
func (r *CounterResetter) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running reset to finish.
func (r *CounterResetter) Stop() {
	<-r.cron.Stop().Done()
}

// Jobs returns the number of scheduled resets.
func (r *CounterResetter) Jobs() int {
	return len(r.cron.Entries())
}

// Reset zeroes the counters of one period now.
func (r *CounterResetter) Reset(ctx context.Context, period model.UsagePeriod) {
	if err := r.store.ResetDenominationUsage(ctx, period); err != nil {
		r.logger.Error("failed to reset usage counters", "period", period, "error", err)
		return
	}
	r.logger.Info("usage counters reset", "period", period)
}
