package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/gateway"
	"charging-kiosk-backend/internal/logging"
	"charging-kiosk-backend/internal/model"
	"charging-kiosk-backend/internal/notification"
	"charging-kiosk-backend/internal/slot"
)

// mockStore is a mock implementation of the kiosk Store interface.
type mockStore struct {
	mu           sync.Mutex
	denoms       []model.Denomination
	listErr      error
	recordErr    error
	transactions []model.Transaction
	incremented  []int64
	resets       []model.UsagePeriod
}

func newMockStore() *mockStore {
	denoms := model.DefaultDenominations()
	for i := range denoms {
		denoms[i].ID = int64(i + 1)
	}
	return &mockStore{denoms: denoms}
}

func (m *mockStore) ListActiveDenominations(ctx context.Context) ([]model.Denomination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.denoms, m.listErr
}

func (m *mockStore) IncrementDenominationUsage(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incremented = append(m.incremented, id)
	return nil
}

func (m *mockStore) ResetDenominationUsage(ctx context.Context, period model.UsagePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, period)
	return nil
}

func (m *mockStore) RecordTransaction(ctx context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.transactions = append(m.transactions, *tx)
	return nil
}

func (m *mockStore) Transactions() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Transaction(nil), m.transactions...)
}

// okGateway accepts every command.
type okGateway struct{}

func (okGateway) SetRelay(context.Context, int, bool) error     { return nil }
func (okGateway) SetLock(context.Context, int, bool) error      { return nil }
func (okGateway) SetUVLight(context.Context, int, bool) error   { return nil }
func (okGateway) PulseUnlock(context.Context, int) error        { return nil }
func (okGateway) EnrollFingerprint(context.Context, int) error { return nil }
func (okGateway) VerifyFingerprint(_ context.Context, id int) (gateway.VerifyResult, error) {
	return gateway.VerifyResult{IsValid: true, FingerprintID: id}, nil
}

// recordingNotifier collects dispatched events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Dispatch(ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

// stubReader returns queued coin readings.
type stubReader struct {
	mu     sync.Mutex
	values []decimal.Decimal
	err    error
}

func (r *stubReader) ReadCoinSlotValue(context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return decimal.Zero, r.err
	}
	if len(r.values) == 0 {
		return decimal.Zero, nil
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v, nil
}

type fixture struct {
	svc      *Service
	store    *mockStore
	notifier *recordingNotifier
	coins    *CoinAcceptor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	registry, err := slot.NewRegistryFromLayout(config.DefaultLayout())
	require.NoError(t, err)
	orch := slot.NewOrchestrator(registry, okGateway{}, logging.Discard(), slot.WithSanitizeDwell(10*time.Millisecond))

	st := newMockStore()
	notifier := &recordingNotifier{}
	coins := NewCoinAcceptor(&stubReader{}, st, time.Second, logging.Discard())
	svc := NewService(config.SessionsConfig{AutoStop: true, SweepInterval: 10 * time.Millisecond},
		st, orch, coins, notifier, logging.Discard())
	return fixture{svc: svc, store: st, notifier: notifier, coins: coins}
}

func intPtr(v int) *int { return &v }

func TestService_Quote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	minutes, err := f.svc.Quote(ctx, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, 150, minutes)

	_, err = f.svc.Quote(ctx, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	f.store.listErr = errors.New("db down")
	_, err = f.svc.Quote(ctx, decimal.NewFromInt(5))
	assert.Error(t, err)
}

func TestService_StartWithExplicitAmount(t *testing.T) {
	f := newFixture(t)

	s, err := f.svc.Start(context.Background(), 13, decimal.NewFromInt(25), intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInUse, s.Status)
	assert.Equal(t, 150, s.MinutesAllocated)
	assert.True(t, decimal.NewFromInt(25).Equal(s.CoinsInserted))
	assert.Equal(t, 4, *s.FingerprintID)
}

func TestService_StartSpendsCredit(t *testing.T) {
	f := newFixture(t)
	f.coins.Credit(decimal.NewFromInt(10))

	s, err := f.svc.Start(context.Background(), 1, decimal.Zero, nil)
	require.NoError(t, err)
	assert.Equal(t, 60, s.MinutesAllocated)
	assert.True(t, f.coins.Balance().IsZero())
}

func TestService_StartFailuresKeepCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("no credit", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Start(ctx, 1, decimal.Zero, nil)
		assert.ErrorIs(t, err, ErrNoCredit)
	})

	t.Run("credit too small", func(t *testing.T) {
		f := newFixture(t)
		f.coins.Credit(decimal.RequireFromString("0.50"))

		_, err := f.svc.Start(ctx, 1, decimal.Zero, nil)
		assert.ErrorIs(t, err, ErrInsufficientAmount)
		assert.True(t, decimal.RequireFromString("0.5").Equal(f.coins.Balance()))
		assert.Equal(t, model.StatusAvailable, mustGet(t, f, 1).Status)
	})

	t.Run("slot busy", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Start(ctx, 1, decimal.NewFromInt(5), nil)
		require.NoError(t, err)

		f.coins.Credit(decimal.NewFromInt(20))
		_, err = f.svc.Start(ctx, 1, decimal.Zero, nil)
		assert.ErrorIs(t, err, slot.ErrInvalidState)
		assert.True(t, decimal.NewFromInt(20).Equal(f.coins.Balance()))
	})

	t.Run("negative amount", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Start(ctx, 1, decimal.NewFromInt(-5), nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func mustGet(t *testing.T, f fixture, number int) model.Slot {
	t.Helper()
	s, err := f.svc.Slots().Registry().Get(number)
	require.NoError(t, err)
	return s
}

func TestService_StopRecordsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, 4, decimal.NewFromInt(5), intPtr(9))
	require.NoError(t, err)

	session, err := f.svc.Stop(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, started.SessionID, session.ID)

	txs := f.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, started.SessionID, txs[0].SessionID)
	assert.Equal(t, 4, txs[0].SlotNumber)
	assert.Equal(t, model.EndStopped, txs[0].Reason)
	assert.Equal(t, 30, txs[0].MinutesAllocated)
	assert.Equal(t, model.ProfileSecure, txs[0].Profile)
	require.NotNil(t, txs[0].FingerprintID)
	assert.Equal(t, 9, *txs[0].FingerprintID)
	require.NotNil(t, txs[0].EndTime)

	assert.Equal(t, []notification.Event{{Slot: 4, Reason: model.EndStopped}}, f.notifier.Events())

	_, err = f.svc.Stop(ctx, 4)
	assert.ErrorIs(t, err, slot.ErrInvalidState)
	assert.Len(t, f.store.Transactions(), 1)
}

func TestService_StopSurvivesRecordingFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, 2, decimal.NewFromInt(5), nil)
	require.NoError(t, err)

	f.store.recordErr = errors.New("db down")
	_, err = f.svc.Stop(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, mustGet(t, f, 2).Status)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestService_SetOutOfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.SetOutOfService(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOutOfService, s.Status)
	assert.Empty(t, f.store.Transactions(), "no session was interrupted")

	_, err = f.svc.Start(ctx, 14, decimal.NewFromInt(10), intPtr(1))
	require.NoError(t, err)
	s, err = f.svc.SetOutOfService(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOutOfService, s.Status)

	txs := f.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, model.EndOutOfService, txs[0].Reason)
}

func TestService_SweepOnceStopsExpiredSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, 1, decimal.NewFromInt(1), nil) // 10 minutes
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, 2, decimal.NewFromInt(20), nil) // 120 minutes
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, 7, decimal.NewFromInt(1), intPtr(3)) // phone, 10 minutes
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return mustGet(t, f, 7).Status == model.StatusLocked
	}, time.Second, 5*time.Millisecond)

	assert.Zero(t, f.svc.SweepOnce(ctx), "nothing has expired yet")

	f.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.Equal(t, 2, f.svc.SweepOnce(ctx))

	assert.Equal(t, model.StatusAvailable, mustGet(t, f, 1).Status)
	assert.Equal(t, model.StatusInUse, mustGet(t, f, 2).Status)
	assert.Equal(t, model.StatusAvailable, mustGet(t, f, 7).Status)

	txs := f.store.Transactions()
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, model.EndExpired, tx.Reason)
	}
	assert.ElementsMatch(t, []notification.Event{
		{Slot: 1, Reason: model.EndExpired},
		{Slot: 7, Reason: model.EndExpired},
	}, f.notifier.Events())
}

func TestService_RunSweepsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.svc.Start(ctx, 1, decimal.NewFromInt(1), nil)
	require.NoError(t, err)
	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(f.store.Transactions()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestService_RunDisabled(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.AutoStop = false

	done := make(chan struct{})
	go func() {
		f.svc.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when auto-stop is off")
	}
}
