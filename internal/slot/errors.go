package slot

import "errors"

var (
	// ErrSlotNotFound is returned for a slot number outside the layout.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrInvalidState is returned when a transition is not allowed from the
	// slot's current status. Nothing is changed.
	ErrInvalidState = errors.New("invalid slot state for operation")

	// ErrUnsupportedProfile is returned when the slot's profile lacks the
	// hardware an operation needs. Nothing is changed.
	ErrUnsupportedProfile = errors.New("operation not supported by slot profile")

	// ErrUnauthorized is returned when a fingerprint could not be matched.
	ErrUnauthorized = errors.New("fingerprint not authorized")

	// ErrHardware is returned when the device gateway failed a command that
	// the operation depended on.
	ErrHardware = errors.New("device gateway command failed")
)
