package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCapabilities(t *testing.T) {
	testCases := []struct {
		profile   Profile
		binds     bool
		lockable  bool
		sanitizes bool
	}{
		{ProfileOpen, false, false, false},
		{ProfilePhone, true, true, true},
		{ProfileLaptop, true, true, false},
		{ProfileSecure, true, true, false},
	}
	for _, tc := range testCases {
		t.Run(tc.profile.String(), func(t *testing.T) {
			assert.Equal(t, tc.binds, tc.profile.BindsFingerprint())
			assert.Equal(t, tc.lockable, tc.profile.Lockable())
			assert.Equal(t, tc.sanitizes, tc.profile.Sanitizes())
		})
	}
}

func TestProfileText(t *testing.T) {
	p, err := ParseProfile(" Laptop ")
	require.NoError(t, err)
	assert.Equal(t, ProfileLaptop, p)

	_, err = ParseProfile("tablet")
	assert.Error(t, err)

	raw, err := json.Marshal(struct{ P Profile }{ProfileSecure})
	require.NoError(t, err)
	assert.JSONEq(t, `{"P":"secure"}`, string(raw))

	var decoded struct{ P Profile }
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, ProfileSecure, decoded.P)
	assert.Error(t, json.Unmarshal([]byte(`{"P":"tablet"}`), &decoded))

	assert.Equal(t, "profile(9)", Profile(9).String())
}

func TestStatusActive(t *testing.T) {
	assert.False(t, StatusAvailable.Active())
	assert.True(t, StatusInUse.Active())
	assert.True(t, StatusSanitizing.Active())
	assert.True(t, StatusLocked.Active())
	assert.False(t, StatusOutOfService.Active())
}

func TestSlotExpiresAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Slot{SessionStart: &start, MinutesAllocated: 45}

	at, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, start.Add(45*time.Minute), at)

	end := start.Add(time.Minute)
	s.SessionEnd = &end
	_, ok = s.ExpiresAt()
	assert.False(t, ok, "ended sessions do not expire")

	_, ok = Slot{}.ExpiresAt()
	assert.False(t, ok)
}

func TestSessionTransaction(t *testing.T) {
	fp := 4
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Session{
		ID:               "abc",
		SlotNumber:       13,
		Profile:          ProfileLaptop,
		Start:            start,
		End:              start.Add(time.Hour),
		Amount:           decimal.NewFromInt(10),
		MinutesAllocated: 60,
		FingerprintID:    &fp,
	}

	tx := s.Transaction(EndExpired)
	assert.Equal(t, "abc", tx.SessionID)
	assert.Equal(t, 13, tx.SlotNumber)
	assert.Equal(t, start, tx.StartTime)
	require.NotNil(t, tx.EndTime)
	assert.Equal(t, start.Add(time.Hour), *tx.EndTime)
	assert.Equal(t, EndExpired, tx.Reason)
	assert.Equal(t, 60, tx.MinutesAllocated)
	assert.Equal(t, &fp, tx.FingerprintID)
}

func TestUsagePeriodColumn(t *testing.T) {
	for period, want := range map[UsagePeriod]string{
		UsageDaily:   "daily_count",
		UsageMonthly: "monthly_count",
		UsageYearly:  "yearly_count",
	} {
		got, ok := period.Column()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := UsagePeriod("hourly").Column()
	assert.False(t, ok)
}

func TestDefaultDenominations(t *testing.T) {
	denominations := DefaultDenominations()
	require.Len(t, denominations, 4)
	for _, d := range denominations {
		assert.True(t, d.Active)
		assert.True(t, d.Value.IsPositive())
		assert.Positive(t, d.ChargingMinutes)
	}
}
