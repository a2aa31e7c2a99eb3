package model

import "time"

// Administrative slot statuses. A slot's occupied/free state is never
// stored here; it is derived from active bookings on the slot.
const (
	SlotAvailable = "AVAILABLE" // slot may be booked
	SlotDisabled  = "DISABLED"  // slot removed from service (maintenance etc.)
	SlotBlocked   = "BLOCKED"   // slot temporarily blocked by an admin
)

// Slot describes a single physical parking space, the unit of
// allocation. Slots are uniquely identified by their lot and number.
//
// Fields:
//  ID        – primary key identifier.
//  LotID     – lot to which this slot belongs.
//  ZoneID    – optional zone within the lot (nil when the lot has no zones).
//  Number    – human-readable slot number painted on the ground.
//  Status    – administrative status (AVAILABLE, DISABLED, BLOCKED).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Slot struct {
	ID        uint64    // slots.id
	LotID     uint64    // slots.lot_id
	ZoneID    *uint64   // slots.zone_id (nullable)
	Number    string    // slots.number
	Status    string    // slots.status
	CreatedAt time.Time // slots.created_at
	UpdatedAt time.Time // slots.updated_at
}

// Bookable reports whether the slot's administrative status allows new
// bookings. Disabled and blocked slots are excluded from allocation.
func (s Slot) Bookable() bool { return s.Status == SlotAvailable }
