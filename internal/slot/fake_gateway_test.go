package slot

import (
	"context"
	"fmt"
	"sync"

	"charging-kiosk-backend/internal/gateway"
)

// call is one command received by fakeGateway.
type call struct {
	Op    string
	Slot  int
	Value bool
}

// fakeGateway records commands and fails the ones named in failOps.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []call
	failOps  map[string]bool
	verified map[int]bool // fingerprint ids that pass live verification
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failOps: map[string]bool{}, verified: map[int]bool{}}
}

func (f *fakeGateway) fail(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOps[op] = true
}

func (f *fakeGateway) allowFingerprint(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified[id] = true
}

func (f *fakeGateway) record(op string, slot int, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, Slot: slot, Value: value})
	if f.failOps[op] {
		return fmt.Errorf("%w: %s", gateway.ErrRequestFailed, op)
	}
	return nil
}

func (f *fakeGateway) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeGateway) SetRelay(_ context.Context, slot int, on bool) error {
	return f.record("relay", slot, on)
}

func (f *fakeGateway) SetLock(_ context.Context, slot int, locked bool) error {
	return f.record("lock", slot, locked)
}

func (f *fakeGateway) SetUVLight(_ context.Context, slot int, on bool) error {
	return f.record("uv", slot, on)
}

func (f *fakeGateway) PulseUnlock(_ context.Context, slot int) error {
	return f.record("pulse", slot, true)
}

func (f *fakeGateway) VerifyFingerprint(_ context.Context, id int) (gateway.VerifyResult, error) {
	if err := f.record("verify", id, true); err != nil {
		return gateway.VerifyResult{}, err
	}
	f.mu.Lock()
	ok := f.verified[id]
	f.mu.Unlock()
	if !ok {
		return gateway.VerifyResult{IsValid: false}, fmt.Errorf("%w: not matched", gateway.ErrRequestFailed)
	}
	return gateway.VerifyResult{IsValid: true, FingerprintID: id, Confidence: 95}, nil
}

func (f *fakeGateway) EnrollFingerprint(_ context.Context, id int) error {
	return f.record("enroll", id, true)
}
