// Package service implements the booking engine: the lifecycle manager,
// recurrence expander, auto-release sweep and waitlist/swap coordinator.
// Services depend on narrow store interfaces so the engine can be
// exercised in tests without a database.
package service

import "errors"

// Sentinel errors surfaced to callers. Handlers translate these into
// the wire-level error codes.
var (
	// ErrInvalidRange is returned when a window has start >= end, lies
	// in the past, or violates a policy bound such as the maximum
	// booking length.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrSlotUnavailable is returned when the requested window overlaps
	// an existing confirmed or active booking on the slot.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotDisabled is returned when the slot's administrative status
	// excludes it from booking.
	ErrSlotDisabled = errors.New("slot disabled")

	// ErrTooEarly is returned when check-in is attempted before the
	// check-in window opens.
	ErrTooEarly = errors.New("too early to check in")

	// ErrTooLate is returned when check-in is attempted after the
	// window closed or the booking was already released.
	ErrTooLate = errors.New("too late to check in")

	// ErrAlreadyCheckedIn is returned when the booking holder checked
	// in before.
	ErrAlreadyCheckedIn = errors.New("already checked in")

	// ErrBookingClosed is returned when a transition is attempted on a
	// booking in a terminal state.
	ErrBookingClosed = errors.New("booking closed")

	// ErrSwapClosed is returned when responding to a swap request that
	// is no longer pending (already answered or expired).
	ErrSwapClosed = errors.New("swap request closed")

	// ErrServiceUnavailable is returned after bounded retries of a
	// contended transaction were exhausted.
	ErrServiceUnavailable = errors.New("service unavailable")
)
