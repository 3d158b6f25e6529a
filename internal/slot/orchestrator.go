// Package slot owns the charging bays: the registry of their runtime state
// and the orchestrator that moves them through the charging lifecycle while
// driving relays, locks and UV lights through the device gateway.
//
// Every transition on a slot runs under that slot's own lock; different
// slots never contend. A returned error means the transition did not take
// place. Hardware trouble after a transition committed is logged and
// surfaced through the slot's Fault field instead.
package slot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"charging-kiosk-backend/internal/gateway"
	"charging-kiosk-backend/internal/model"
)

// DefaultSanitizeDwell is how long the UV light stays on.
const DefaultSanitizeDwell = 15 * time.Second

// Gateway is the subset of the device gateway the orchestrator drives.
type Gateway interface {
	SetRelay(ctx context.Context, slot int, on bool) error
	SetLock(ctx context.Context, slot int, locked bool) error
	SetUVLight(ctx context.Context, slot int, on bool) error
	PulseUnlock(ctx context.Context, slot int) error
	VerifyFingerprint(ctx context.Context, id int) (gateway.VerifyResult, error)
	EnrollFingerprint(ctx context.Context, id int) error
}

// Observer is told about every committed change to a slot, in order.
type Observer func(s model.Slot)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSanitizeDwell overrides the UV dwell.
func WithSanitizeDwell(d time.Duration) Option {
	return func(o *Orchestrator) { o.dwell = d }
}

// WithObserver registers a change observer. It is called with the slot's
// transition lock held and must not call back into the orchestrator.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator is the slot state machine.
type Orchestrator struct {
	registry *Registry
	gw       Gateway
	logger   *slog.Logger
	dwell    time.Duration
	observer Observer
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator over the registry.
func NewOrchestrator(registry *Registry, gw Gateway, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		gw:       gw,
		logger:   logger.With("component", "orchestrator"),
		dwell:    DefaultSanitizeDwell,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry exposes the slots for read access.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// apply commits a change to the slot and notifies the observer.
func (o *Orchestrator) apply(e *entry, fn func(s *model.Slot)) model.Slot {
	s := e.update(fn)
	if o.observer != nil {
		o.observer(s)
	}
	return s
}

func (o *Orchestrator) fault(e *entry, reason string) {
	o.apply(e, func(s *model.Slot) { s.Fault = reason })
}

// lockFor finds the slot and takes its transition lock. The caller must
// release it with e.op.Unlock.
func (o *Orchestrator) lockFor(number int) (*entry, error) {
	e, err := o.registry.entry(number)
	if err != nil {
		return nil, err
	}
	e.op.Lock()
	return e, nil
}

func (o *Orchestrator) rejectState(op string, s model.Slot) error {
	o.logger.Warn("transition rejected", "op", op, "slot", s.Number, "status", s.Status)
	return fmt.Errorf("%s slot %d while %s: %w", op, s.Number, s.Status, ErrInvalidState)
}

func (o *Orchestrator) rejectProfile(op string, s model.Slot) error {
	o.logger.Warn("transition rejected", "op", op, "slot", s.Number, "profile", s.Profile)
	return fmt.Errorf("%s slot %d (%s): %w", op, s.Number, s.Profile, ErrUnsupportedProfile)
}

// StartCharging begins a paid session on an Available slot.
//
// The session is committed (InUse) before the relay is energized. If the
// relay cannot be energized the session is rolled back and ErrHardware is
// returned. Phone slots then sanitize and lock once the dwell ends; other
// lockable slots lock immediately. Failures after the relay step keep the
// session running and set Fault.
func (o *Orchestrator) StartCharging(ctx context.Context, number int, amount decimal.Decimal, minutes int, fingerprintID *int) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()
	ctx = context.WithoutCancel(ctx)

	cur := e.snapshot()
	if cur.Status != model.StatusAvailable {
		return cur, o.rejectState("start", cur)
	}
	if cur.Fault != "" {
		o.logger.Warn("transition rejected", "op", "start", "slot", number, "fault", cur.Fault)
		return cur, fmt.Errorf("start slot %d: needs operator (%s): %w", number, cur.Fault, ErrInvalidState)
	}

	now := o.now()
	sessionID := uuid.NewString()
	o.apply(e, func(s *model.Slot) {
		if s.Profile.BindsFingerprint() && fingerprintID != nil {
			id := *fingerprintID
			s.FingerprintID = &id
		}
		s.SessionID = sessionID
		s.SessionStart = &now
		s.SessionEnd = nil
		s.CoinsInserted = amount
		s.MinutesAllocated = minutes
		s.Status = model.StatusInUse
	})
	if fingerprintID != nil && cur.Profile.BindsFingerprint() {
		o.logger.Info("slot secured with fingerprint", "slot", number, "fingerprint_id", *fingerprintID)
	}

	if err := o.gw.SetRelay(ctx, number, true); err != nil {
		o.logger.Error("failed to energize relay, rolling back session", "slot", number, "session", sessionID, "error", err)
		o.rollbackStart(ctx, e)
		return e.snapshot(), fmt.Errorf("start slot %d: energize relay: %w", number, ErrHardware)
	}
	o.apply(e, func(s *model.Slot) { s.RelayOn = true })
	o.logger.Info("charging started", "slot", number, "session", sessionID, "amount", amount.String(), "minutes", minutes)

	switch {
	case cur.Profile.Sanitizes():
		// Locking follows the dwell; a failed start leaves the slot InUse with Fault set.
		o.beginSanitization(ctx, e)
	case cur.Profile.Lockable():
		o.setLock(ctx, e, true)
	}
	return e.snapshot(), nil
}

// rollbackStart undoes a session whose relay never confirmed.
func (o *Orchestrator) rollbackStart(ctx context.Context, e *entry) {
	number := e.snapshot().Number
	o.apply(e, func(s *model.Slot) {
		s.Status = model.StatusAvailable
		s.SessionID = ""
		s.SessionStart = nil
		s.SessionEnd = nil
		s.CoinsInserted = decimal.Zero
		s.MinutesAllocated = 0
		s.FingerprintID = nil
	})
	// The relay may have switched even though the reply was lost.
	if err := o.gw.SetRelay(ctx, number, false); err != nil {
		o.logger.Error("relay state unknown after failed start", "slot", number, "error", err)
		o.fault(e, "relay state unknown after failed start")
	}
}

// StopCharging ends the session of an InUse or Locked slot and returns it
// for accounting. The slot is Available afterwards even if switching the
// relay or lock off failed; such failures set Fault.
func (o *Orchestrator) StopCharging(ctx context.Context, number int) (model.Session, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Session{}, err
	}
	defer e.op.Unlock()
	ctx = context.WithoutCancel(ctx)

	cur := e.snapshot()
	if cur.Status != model.StatusInUse && cur.Status != model.StatusLocked {
		return model.Session{}, o.rejectState("stop", cur)
	}

	session := o.endSession(e, cur, model.StatusAvailable)
	o.powerDown(ctx, e, cur)
	o.logger.Info("charging stopped", "slot", number, "session", session.ID)
	return session, nil
}

// StopExpired ends the session on a slot if its allotted time has passed
// at now. It reports false when there was nothing to stop, including slots
// still sanitizing.
func (o *Orchestrator) StopExpired(ctx context.Context, number int, now time.Time) (model.Session, bool, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Session{}, false, err
	}
	defer e.op.Unlock()
	ctx = context.WithoutCancel(ctx)

	cur := e.snapshot()
	if cur.Status != model.StatusInUse && cur.Status != model.StatusLocked {
		return model.Session{}, false, nil
	}
	expiresAt, ok := cur.ExpiresAt()
	if !ok || now.Before(expiresAt) {
		return model.Session{}, false, nil
	}

	session := o.endSession(e, cur, model.StatusAvailable)
	o.powerDown(ctx, e, cur)
	o.logger.Info("charging time expired", "slot", number, "session", session.ID, "expired_at", expiresAt)
	return session, true, nil
}

// endSession closes the running session and moves the slot to status.
func (o *Orchestrator) endSession(e *entry, cur model.Slot, status model.Status) model.Session {
	end := o.now()
	o.apply(e, func(s *model.Slot) {
		s.SessionEnd = &end
		s.Status = status
		s.FingerprintID = nil
	})

	session := model.Session{
		ID:               cur.SessionID,
		SlotNumber:       cur.Number,
		Profile:          cur.Profile,
		End:              end,
		Amount:           cur.CoinsInserted,
		MinutesAllocated: cur.MinutesAllocated,
		FingerprintID:    cur.FingerprintID,
	}
	if cur.SessionStart != nil {
		session.Start = *cur.SessionStart
	}
	return session
}

// powerDown switches off everything the slot's profile has.
func (o *Orchestrator) powerDown(ctx context.Context, e *entry, cur model.Slot) {
	if cur.Profile.Sanitizes() && cur.Status == model.StatusSanitizing {
		if err := o.gw.SetUVLight(ctx, cur.Number, false); err != nil {
			o.logger.Error("failed to switch off UV light", "slot", cur.Number, "error", err)
			o.fault(e, "uv light may still be on")
		}
	}
	o.setRelay(ctx, e, false)
	if cur.Profile.Lockable() {
		o.setLock(ctx, e, false)
	}
}

// SetRelay switches a slot's relay directly. The mirrored flag only changes
// once the gateway confirms.
func (o *Orchestrator) SetRelay(ctx context.Context, number int, on bool) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()

	if err := o.setRelay(context.WithoutCancel(ctx), e, on); err != nil {
		return e.snapshot(), err
	}
	return e.snapshot(), nil
}

// SetLock engages or releases a slot's lock directly.
func (o *Orchestrator) SetLock(ctx context.Context, number int, locked bool) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()

	cur := e.snapshot()
	if !cur.Profile.Lockable() {
		return cur, o.rejectProfile("lock", cur)
	}
	if err := o.setLock(context.WithoutCancel(ctx), e, locked); err != nil {
		return e.snapshot(), err
	}
	return e.snapshot(), nil
}

func (o *Orchestrator) setRelay(ctx context.Context, e *entry, on bool) error {
	number := e.snapshot().Number
	if err := o.gw.SetRelay(ctx, number, on); err != nil {
		o.logger.Error("failed to control relay", "slot", number, "on", on, "error", err)
		o.fault(e, fmt.Sprintf("relay %s command failed", onOff(on)))
		return fmt.Errorf("slot %d relay: %w", number, ErrHardware)
	}
	o.apply(e, func(s *model.Slot) { s.RelayOn = on })
	o.logger.Info("relay switched", "slot", number, "on", on)
	return nil
}

func (o *Orchestrator) setLock(ctx context.Context, e *entry, locked bool) error {
	number := e.snapshot().Number
	if err := o.gw.SetLock(ctx, number, locked); err != nil {
		o.logger.Error("failed to control lock", "slot", number, "locked", locked, "error", err)
		if locked {
			o.fault(e, "lock engage command failed")
		} else {
			o.fault(e, "lock release command failed")
		}
		return fmt.Errorf("slot %d lock: %w", number, ErrHardware)
	}
	o.apply(e, func(s *model.Slot) { s.LockEngaged = locked })
	o.logger.Info("lock switched", "slot", number, "locked", locked)
	return nil
}

// VerifyFingerprint asks the reader to match a live scan against id.
func (o *Orchestrator) VerifyFingerprint(ctx context.Context, id int) bool {
	res, err := o.gw.VerifyFingerprint(ctx, id)
	if err != nil {
		o.logger.Warn("fingerprint verification failed", "fingerprint_id", id, "error", err)
		return false
	}
	o.logger.Info("fingerprint verified", "fingerprint_id", id, "confidence", res.Confidence)
	return true
}

// EnrollFingerprint registers a new fingerprint template on the reader.
func (o *Orchestrator) EnrollFingerprint(ctx context.Context, id int) error {
	if err := o.gw.EnrollFingerprint(ctx, id); err != nil {
		o.logger.Warn("fingerprint enrollment failed", "fingerprint_id", id, "error", err)
		return fmt.Errorf("enroll fingerprint %d: %w", id, ErrHardware)
	}
	o.logger.Info("fingerprint enrolled", "fingerprint_id", id)
	return nil
}

// UnlockTemporary opens the lock of an occupied slot for a moment so the
// occupant can reach the device. The bound fingerprint authorizes directly;
// any other id must pass a live verification. Status and binding are kept.
func (o *Orchestrator) UnlockTemporary(ctx context.Context, number int, fingerprintID int) error {
	e, err := o.lockFor(number)
	if err != nil {
		return err
	}
	defer e.op.Unlock()
	ctx = context.WithoutCancel(ctx)

	cur := e.snapshot()
	if !cur.Profile.Lockable() {
		return o.rejectProfile("unlock", cur)
	}
	if cur.Status != model.StatusInUse && cur.Status != model.StatusLocked {
		return o.rejectState("unlock", cur)
	}

	if cur.FingerprintID == nil || *cur.FingerprintID != fingerprintID {
		o.logger.Warn("fingerprint does not match binding, verifying live", "slot", number, "fingerprint_id", fingerprintID)
		if !o.VerifyFingerprint(ctx, fingerprintID) {
			return fmt.Errorf("unlock slot %d: %w", number, ErrUnauthorized)
		}
	}

	if err := o.gw.PulseUnlock(ctx, number); err != nil {
		o.logger.Error("failed to temporarily unlock", "slot", number, "error", err)
		return fmt.Errorf("unlock slot %d: %w", number, ErrHardware)
	}
	o.logger.Info("slot temporarily unlocked", "slot", number)
	return nil
}

// SetOutOfService parks a slot from any status. A running session is ended
// and returned; hardware is switched off on a best-effort basis.
func (o *Orchestrator) SetOutOfService(ctx context.Context, number int) (*model.Session, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return nil, err
	}
	defer e.op.Unlock()
	ctx = context.WithoutCancel(ctx)

	cur := e.snapshot()
	if cur.Status == model.StatusOutOfService {
		return nil, nil
	}

	o.cancelSanitization(e)
	var ended *model.Session
	if cur.Status.Active() {
		session := o.endSession(e, cur, model.StatusOutOfService)
		ended = &session
	} else {
		o.apply(e, func(s *model.Slot) { s.Status = model.StatusOutOfService })
	}
	o.powerDown(ctx, e, cur)
	o.logger.Warn("slot taken out of service", "slot", number, "previous_status", cur.Status)
	return ended, nil
}

// ReturnToService makes an OutOfService slot Available and clears its fault.
func (o *Orchestrator) ReturnToService(_ context.Context, number int) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()

	cur := e.snapshot()
	if cur.Status != model.StatusOutOfService {
		return cur, o.rejectState("return to service", cur)
	}
	s := o.apply(e, func(s *model.Slot) {
		s.Status = model.StatusAvailable
		s.Fault = ""
	})
	o.logger.Info("slot returned to service", "slot", number)
	return s, nil
}

// ClearFault acknowledges a hardware fault after an operator checked the slot.
func (o *Orchestrator) ClearFault(_ context.Context, number int) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()

	s := o.apply(e, func(s *model.Slot) { s.Fault = "" })
	o.logger.Info("slot fault cleared", "slot", number)
	return s, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
