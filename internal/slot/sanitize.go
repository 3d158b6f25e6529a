package slot

import (
	"context"
	"fmt"
	"time"

	"charging-kiosk-backend/internal/model"
)

// StartUVSanitization runs the UV light of a Phone slot for the dwell, then
// locks it. It returns once the light is on; the rest of the sequence runs on
// a timer so neither the caller nor other slots wait for the dwell.
//
// While Sanitizing the slot rejects other transitions. If the light fails to
// switch on or off the sequence aborts: the slot goes back to InUse, unlocked,
// with Fault set.
func (o *Orchestrator) StartUVSanitization(ctx context.Context, number int) (model.Slot, error) {
	e, err := o.lockFor(number)
	if err != nil {
		return model.Slot{}, err
	}
	defer e.op.Unlock()

	cur := e.snapshot()
	if !cur.Profile.Sanitizes() {
		return cur, o.rejectProfile("sanitize", cur)
	}
	if cur.Status != model.StatusInUse && cur.Status != model.StatusLocked {
		return cur, o.rejectState("sanitize", cur)
	}

	if err := o.beginSanitization(context.WithoutCancel(ctx), e); err != nil {
		return e.snapshot(), err
	}
	return e.snapshot(), nil
}

// beginSanitization switches the light on and schedules finishSanitization.
// The caller holds e.op.
func (o *Orchestrator) beginSanitization(ctx context.Context, e *entry) error {
	s := o.apply(e, func(s *model.Slot) { s.Status = model.StatusSanitizing })

	if err := o.gw.SetUVLight(ctx, s.Number, true); err != nil {
		o.abortSanitization(ctx, e, "switch on", err)
		return fmt.Errorf("sanitize slot %d: %w", s.Number, ErrHardware)
	}
	o.logger.Info("UV sanitization started", "slot", s.Number, "dwell", o.dwell.String())

	e.gen++
	gen := e.gen
	start := time.Now()
	e.dwell = time.AfterFunc(o.dwell, func() {
		o.finishSanitization(e, gen, start)
	})
	return nil
}

// finishSanitization runs when the dwell elapses. A continuation whose dwell
// was cancelled or replaced while it waited for e.op does nothing.
func (o *Orchestrator) finishSanitization(e *entry, gen uint64, started time.Time) {
	e.op.Lock()
	defer e.op.Unlock()
	if e.gen != gen || e.dwell == nil {
		o.logger.Debug("stale sanitization continuation ignored", "slot", e.snapshot().Number)
		return
	}
	e.dwell = nil

	ctx := context.Background()
	cur := e.snapshot()

	// Parked by an operator during the dwell; the light was already switched off then.
	if cur.Status != model.StatusSanitizing {
		o.logger.Warn("sanitization finished on a slot that left sanitizing", "slot", cur.Number, "status", cur.Status)
		return
	}

	if err := o.gw.SetUVLight(ctx, cur.Number, false); err != nil {
		o.abortSanitization(ctx, e, "switch off", err)
		return
	}

	o.apply(e, func(s *model.Slot) { s.Status = model.StatusLocked })
	o.logger.Info("UV sanitization completed", "slot", cur.Number, "elapsed", time.Since(started).String())

	o.setLock(ctx, e, true)
}

// cancelSanitization drops a pending dwell continuation. The caller holds e.op.
// A continuation that already fired waits on e.op and then finds its
// generation superseded.
func (o *Orchestrator) cancelSanitization(e *entry) {
	if e.dwell == nil {
		return
	}
	e.dwell.Stop()
	e.dwell = nil
	e.gen++
}

// abortSanitization reverts to InUse after a UV failure. The light is not
// guaranteed to be off.
func (o *Orchestrator) abortSanitization(ctx context.Context, e *entry, step string, cause error) {
	number := e.snapshot().Number
	o.logger.Error("UV sanitization aborted", "slot", number, "step", step, "error", cause)

	// Best effort; the light may already be off.
	if err := o.gw.SetUVLight(ctx, number, false); err != nil {
		o.logger.Error("failed to switch off UV light after abort", "slot", number, "error", err)
	}
	o.apply(e, func(s *model.Slot) {
		s.Status = model.StatusInUse
		s.Fault = fmt.Sprintf("uv sanitization aborted (%s)", step)
	})
}

// PendingSanitizations reports how many dwell timers are still running.
func (o *Orchestrator) PendingSanitizations() int {
	pending := 0
	for _, n := range o.registry.numbers {
		e := o.registry.entries[n]
		e.op.Lock()
		if e.dwell != nil {
			pending++
		}
		e.op.Unlock()
	}
	return pending
}
