package model

import "time"

// Waitlist entry statuses.
const (
	WaitlistPending   = "PENDING"   // waiting for a compatible slot to free up
	WaitlistFulfilled = "FULFILLED" // converted into a booking
	WaitlistExpired   = "EXPIRED"   // aged out before fulfillment
)

// WaitlistEntry records queued demand for a lot. Entries target a lot,
// not a specific slot; the slot is chosen at fulfillment time when a
// slot-freeing event makes room. Entries are served FIFO per lot by
// CreatedAt.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – waiting user.
//  LotID     – lot the user wants to park in.
//  StartsAt  – desired window start (UTC).
//  EndsAt    – desired window end (UTC, exclusive).
//  Status    – PENDING, FULFILLED or EXPIRED.
//  BookingID – booking created at fulfillment (nil until then).
//  CreatedAt – creation timestamp; FIFO ordering key.
//  UpdatedAt – last update timestamp.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	UserID    uint64    // waitlist_entries.user_id
	LotID     uint64    // waitlist_entries.lot_id
	StartsAt  time.Time // waitlist_entries.starts_at
	EndsAt    time.Time // waitlist_entries.ends_at
	Status    string    // waitlist_entries.status
	BookingID *uint64   // waitlist_entries.booking_id (nullable)
	CreatedAt time.Time // waitlist_entries.created_at
	UpdatedAt time.Time // waitlist_entries.updated_at
}
