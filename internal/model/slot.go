package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the security/sanitization class of a charging slot.
type Profile int

const (
	ProfileOpen Profile = iota
	ProfilePhone
	ProfileLaptop
	ProfileSecure
)

var profileNames = map[Profile]string{
	ProfileOpen:   "open",
	ProfilePhone:  "phone",
	ProfileLaptop: "laptop",
	ProfileSecure: "secure",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("profile(%d)", int(p))
}

// ParseProfile maps a configured profile name onto a Profile.
func ParseProfile(name string) (Profile, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for p, pn := range profileNames {
		if pn == n {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown slot profile %q", name)
}

// MarshalText renders the profile by name in JSON and YAML.
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a profile name.
func (p *Profile) UnmarshalText(text []byte) error {
	parsed, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// BindsFingerprint reports whether an occupant's fingerprint is bound to the slot.
func (p Profile) BindsFingerprint() bool {
	return p == ProfilePhone || p == ProfileLaptop || p == ProfileSecure
}

// Lockable reports whether the slot has a solenoid lock.
func (p Profile) Lockable() bool {
	return p == ProfilePhone || p == ProfileLaptop || p == ProfileSecure
}

// Sanitizes reports whether the slot has a UV sanitizer.
func (p Profile) Sanitizes() bool {
	return p == ProfilePhone
}

// Status is the runtime state of a charging slot.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusInUse        Status = "in_use"
	StatusSanitizing   Status = "sanitizing"
	StatusLocked       Status = "locked"
	StatusOutOfService Status = "out_of_service"
)

// Active reports whether a charging session is running in this status.
func (s Status) Active() bool {
	return s == StatusInUse || s == StatusSanitizing || s == StatusLocked
}

// Slot is a point-in-time snapshot of one charging bay.
type Slot struct {
	Number           int             `json:"number"`
	Profile          Profile         `json:"profile"`
	Status           Status          `json:"status"`
	SessionID        string          `json:"sessionId,omitempty"`
	SessionStart     *time.Time      `json:"sessionStart,omitempty"`
	SessionEnd       *time.Time      `json:"sessionEnd,omitempty"`
	CoinsInserted    decimal.Decimal `json:"coinsInserted"`
	MinutesAllocated int             `json:"minutesAllocated"`
	RelayOn          bool            `json:"relayOn"`
	LockEngaged      bool            `json:"lockEngaged"`
	FingerprintID    *int            `json:"fingerprintId,omitempty"`
	Fault            string          `json:"fault,omitempty"`
}

// ExpiresAt returns when the allotted charging time of the current session runs out.
func (s Slot) ExpiresAt() (time.Time, bool) {
	if s.SessionStart == nil || s.SessionEnd != nil {
		return time.Time{}, false
	}
	return s.SessionStart.Add(time.Duration(s.MinutesAllocated) * time.Minute), true
}
