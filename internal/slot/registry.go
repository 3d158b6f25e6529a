package slot

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"charging-kiosk-backend/internal/model"
	"charging-kiosk-backend/internal/parse"
)

// entry is one slot plus the locks guarding it.
//
// op serializes transitions (held across gateway calls); mu guards state and
// is only held for copies, so readers never wait on hardware.
type entry struct {
	op    sync.Mutex
	mu    sync.RWMutex
	state model.Slot
	dwell *time.Timer // pending sanitization continuation, guarded by op
	gen   uint64      // identifies the current dwell, guarded by op
}

func (e *entry) snapshot() model.Slot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return clone(e.state)
}

func (e *entry) update(fn func(s *model.Slot)) model.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	return clone(e.state)
}

func clone(s model.Slot) model.Slot {
	if s.SessionStart != nil {
		t := *s.SessionStart
		s.SessionStart = &t
	}
	if s.SessionEnd != nil {
		t := *s.SessionEnd
		s.SessionEnd = &t
	}
	if s.FingerprintID != nil {
		id := *s.FingerprintID
		s.FingerprintID = &id
	}
	return s
}

// Registry is the fixed set of charging slots. The set itself never changes
// after construction, so lookups need no lock.
type Registry struct {
	entries map[int]*entry
	numbers []int
}

// NewRegistry creates one Available slot per number in the given ranges.
func NewRegistry(ranges []parse.SlotRange) *Registry {
	r := &Registry{entries: make(map[int]*entry)}
	for _, sr := range ranges {
		for n := sr.First; n <= sr.Last; n++ {
			r.entries[n] = &entry{state: model.Slot{
				Number:  n,
				Profile: sr.Profile,
				Status:  model.StatusAvailable,
			}}
			r.numbers = append(r.numbers, n)
		}
	}
	sort.Ints(r.numbers)
	return r
}

// NewRegistryFromLayout parses a profile→range layout and builds the registry.
func NewRegistryFromLayout(layout map[string]string) (*Registry, error) {
	ranges, err := parse.ParseLayout(layout)
	if err != nil {
		return nil, fmt.Errorf("invalid slot layout: %w", err)
	}
	return NewRegistry(ranges), nil
}

// List returns snapshots of all slots ordered by number.
func (r *Registry) List() []model.Slot {
	out := make([]model.Slot, 0, len(r.numbers))
	for _, n := range r.numbers {
		out = append(out, r.entries[n].snapshot())
	}
	return out
}

// Get returns a snapshot of one slot.
func (r *Registry) Get(number int) (model.Slot, error) {
	e, err := r.entry(number)
	if err != nil {
		return model.Slot{}, err
	}
	return e.snapshot(), nil
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.numbers)
}

func (r *Registry) entry(number int) (*entry, error) {
	e, ok := r.entries[number]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", number, ErrSlotNotFound)
	}
	return e, nil
}
