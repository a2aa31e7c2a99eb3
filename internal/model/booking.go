package model

import "time"

// Booking statuses. CONFIRMED and ACTIVE count against a slot's
// availability; the remaining statuses are terminal and free the slot.
const (
	BookingConfirmed = "CONFIRMED" // created, holder has not checked in yet
	BookingActive    = "ACTIVE"    // holder checked in
	BookingCompleted = "COMPLETED" // window elapsed after check-in
	BookingCancelled = "CANCELLED" // cancelled by owner or admin
	BookingNoShow    = "NO_SHOW"   // auto-released, holder never checked in
)

// Booking types distinguish how the booking came to exist.
const (
	BookingSingle            = "SINGLE"             // one-off booking
	BookingMultiDay          = "MULTI_DAY"          // spans more than one day
	BookingRecurringInstance = "RECURRING_INSTANCE" // materialized from a pattern
)

// Booking records a user's exclusive claim on a slot for a half-open
// time window [StartsAt, EndsAt). For a fixed slot no two bookings
// with status CONFIRMED or ACTIVE may have overlapping windows; the
// repository enforces this inside the same transaction as the write.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who holds the booking.
//  SlotID      – slot being reserved.
//  LotID       – lot of the slot, denormalized for lot-level queries.
//  PatternID   – recurring pattern that produced this booking, if any.
//  Status      – lifecycle state (see constants above).
//  BookingType – SINGLE, MULTI_DAY or RECURRING_INSTANCE.
//  StartsAt    – inclusive window start (UTC).
//  EndsAt      – exclusive window end (UTC).
//  CheckedInAt – when the holder checked in (nil until then).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
	ID          uint64     // bookings.id
	UserID      uint64     // bookings.user_id
	SlotID      uint64     // bookings.slot_id
	LotID       uint64     // bookings.lot_id
	PatternID   *uint64    // bookings.pattern_id (nullable)
	Status      string     // bookings.status
	BookingType string     // bookings.booking_type
	StartsAt    time.Time  // bookings.starts_at
	EndsAt      time.Time  // bookings.ends_at
	CheckedInAt *time.Time // bookings.checked_in_at (nullable)
	CreatedAt   time.Time  // bookings.created_at
	UpdatedAt   time.Time  // bookings.updated_at
}

// Terminal reports whether the booking reached a final state. Terminal
// bookings are immutable.
func (b Booking) Terminal() bool {
	switch b.Status {
	case BookingCompleted, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// CountsAgainstSlot reports whether the booking occupies its slot's
// window for conflict purposes.
func (b Booking) CountsAgainstSlot() bool {
	return b.Status == BookingConfirmed || b.Status == BookingActive
}

// Overlaps reports whether the booking's window intersects [start, end).
// Back-to-back windows sharing a boundary instant do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartsAt.Before(end) && b.EndsAt.After(start)
}
