package model

import "time"

// Lot is a physical parking facility owned by the organization.
// Slots always belong to exactly one lot; zones optionally
// subdivide a lot (e.g. floors or outdoor sections).
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the lot.
//  Address     – free-form street address.
//  MaxBookingDays – lot-level cap on booking length in days; 0 falls
//                back to the service-wide default.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Lot struct {
	ID             uint64    // lots.id
	Name           string    // lots.name
	Address        string    // lots.address
	MaxBookingDays uint32    // lots.max_booking_days (0 = use default)
	CreatedAt      time.Time // lots.created_at
	UpdatedAt      time.Time // lots.updated_at
}

// Zone is an optional sub-grouping of slots within a lot, such as a
// floor or a reserved visitor section.
//
// Fields:
//  ID        – primary key identifier.
//  LotID     – lot to which this zone belongs.
//  Name      – display name (e.g. "P2", "Visitors").
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Zone struct {
	ID        uint64    // zones.id
	LotID     uint64    // zones.lot_id
	Name      string    // zones.name
	CreatedAt time.Time // zones.created_at
	UpdatedAt time.Time // zones.updated_at
}
