package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"charging-kiosk-backend/internal/model"
)

// MaxSlots bounds the highest slot number a layout may name.
const MaxSlots = 256

var rangeRe = regexp.MustCompile(`^\s*(\d+)\s*(?:-\s*(\d+))?\s*$`)

// SlotRange is a contiguous, inclusive run of slot numbers sharing a profile.
type SlotRange struct {
	Profile model.Profile
	First   int
	Last    int
}

// ParseRange parses "7-12" or a single number such as "5".
func ParseRange(raw string) (first, last int, err error) {
	m := rangeRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("unable to parse slot range: %q", raw)
	}
	first, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("slot range %q: %w", raw, err)
	}
	last = first
	if m[2] != "" {
		if last, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, fmt.Errorf("slot range %q: %w", raw, err)
		}
	}
	if first < 1 {
		return 0, 0, fmt.Errorf("slot range %q must start at 1 or above", raw)
	}
	if last < first {
		return 0, 0, fmt.Errorf("slot range %q is reversed", raw)
	}
	if last > MaxSlots {
		return 0, 0, fmt.Errorf("slot range %q exceeds the %d slot limit", raw, MaxSlots)
	}
	return first, last, nil
}

// ParseLayout turns a profile→range map into ranges ordered by slot number.
// The ranges must cover 1..N without gaps or overlaps.
func ParseLayout(layout map[string]string) ([]SlotRange, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("slot layout is empty")
	}

	ranges := make([]SlotRange, 0, len(layout))
	for name, raw := range layout {
		profile, err := model.ParseProfile(name)
		if err != nil {
			return nil, err
		}
		first, last, err := ParseRange(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.ToLower(name), err)
		}
		ranges = append(ranges, SlotRange{Profile: profile, First: first, Last: last})
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].First < ranges[j].First })

	next := 1
	for _, r := range ranges {
		switch {
		case r.First < next:
			return nil, fmt.Errorf("slot range %d-%d (%s) overlaps a previous range", r.First, r.Last, r.Profile)
		case r.First > next:
			return nil, fmt.Errorf("slots %d-%d are not assigned to any profile", next, r.First-1)
		}
		next = r.Last + 1
	}
	return ranges, nil
}
