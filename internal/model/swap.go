package model

import "time"

// Swap request statuses.
const (
	SwapPending  = "PENDING"  // awaiting the booking owner's decision
	SwapAccepted = "ACCEPTED" // booking reassigned to the requester
	SwapRejected = "REJECTED" // owner declined
	SwapExpired  = "EXPIRED"  // timed out without a decision
)

// SwapRequest lets a requester ask to take over somebody else's
// booking. On accept the booking's owner is reassigned after the
// requester is re-validated against conflicting bookings in the same
// window; on reject or timeout the request closes with no effect.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – booking the requester wants.
//  RequesterID – user asking to take over.
//  Status      – PENDING, ACCEPTED, REJECTED or EXPIRED.
//  ExpiresAt   – when a pending request times out.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type SwapRequest struct {
	ID          uint64    // swap_requests.id
	BookingID   uint64    // swap_requests.booking_id
	RequesterID uint64    // swap_requests.requester_id
	Status      string    // swap_requests.status
	ExpiresAt   time.Time // swap_requests.expires_at
	CreatedAt   time.Time // swap_requests.created_at
	UpdatedAt   time.Time // swap_requests.updated_at
}
