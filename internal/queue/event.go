// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Event kinds published by the booking engine. Formatting and delivery
// of user-facing notifications happen downstream; the engine only emits
// the facts.
const (
	EventBookingCreated    = "booking.created"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingNoShow     = "booking.no_show"
	EventWaitlistFulfilled = "waitlist.fulfilled"
	EventSwapAccepted      = "swap.accepted"
)

// Event is the envelope for every engine notification. It carries just
// the identifiers a consumer needs to notify, log or trigger analytics
// without querying the primary database. Fields that do not apply to a
// given kind are zero and omitted from the JSON.
type Event struct {
	Kind       string    `json:"kind"`
	BookingID  uint64    `json:"booking_id,omitempty"`
	UserID     uint64    `json:"user_id,omitempty"`
	SlotID     uint64    `json:"slot_id,omitempty"`
	LotID      uint64    `json:"lot_id,omitempty"`
	WaitlistID uint64    `json:"waitlist_id,omitempty"`
	SwapID     uint64    `json:"swap_id,omitempty"`
	StartsAt   time.Time `json:"starts_at,omitempty"`
	EndsAt     time.Time `json:"ends_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
