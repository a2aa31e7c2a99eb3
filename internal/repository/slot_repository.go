package repository // repository defines data access for parking slots

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// SlotRepo provides methods to work with slots in the database. A
// slot's occupied/free state is never stored on the row; it is derived
// from active bookings, so this repository only manages the static
// inventory and the administrative status.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

const slotColumns = `id, lot_id, zone_id, number, status, created_at, updated_at`

func scanSlot(row interface{ Scan(...interface{}) error }) (model.Slot, error) {
	var s model.Slot
	var zone sql.NullInt64
	err := row.Scan(&s.ID, &s.LotID, &zone, &s.Number, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Slot{}, err
	}
	if zone.Valid {
		z := uint64(zone.Int64)
		s.ZoneID = &z
	}
	return s, nil
}

// Create inserts a single slot record. On success the slot's ID is
// populated. Duplicate numbers within a lot map to ErrConflict.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (lot_id, zone_id, number, status) VALUES (?, ?, ?, ?)`
	var zone interface{}
	if s.ZoneID != nil {
		zone = *s.ZoneID
	}
	if s.Status == "" {
		s.Status = model.SlotAvailable
	}
	res, err := exec(ctx, r.db).ExecContext(ctx, q, s.LotID, zone, s.Number, s.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a single slot. Returns ErrNotFound when missing.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	s, err := scanSlot(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.Slot{}, ErrNotFound
	}
	return s, err
}

// GetForUpdate fetches a slot while taking a row lock. It must run
// inside a WithTx transaction; the lock serializes all conflicting
// booking writes on the slot until the transaction ends.
func (r *SlotRepo) GetForUpdate(ctx context.Context, id uint64) (model.Slot, error) {
	s, err := scanSlot(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? LIMIT 1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return model.Slot{}, ErrNotFound
	}
	return s, err
}

// ListByLot returns all slots of a lot ordered by number.
func (r *SlotRepo) ListByLot(ctx context.Context, lotID uint64) ([]model.Slot, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE lot_id = ? ORDER BY number`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListFreeByLot returns the lot's AVAILABLE slots that have no
// confirmed or active booking overlapping [start, end). Used for
// availability listings and waitlist fulfillment.
func (r *SlotRepo) ListFreeByLot(ctx context.Context, lotID uint64, start, end time.Time) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots s
	           WHERE s.lot_id = ? AND s.status = 'AVAILABLE'
	             AND NOT EXISTS (
	                   SELECT 1 FROM bookings b
	                   WHERE b.slot_id = s.id
	                     AND b.status IN ('CONFIRMED','ACTIVE')
	                     AND b.starts_at < ? AND b.ends_at > ?)
	           ORDER BY s.number`
	rows, err := exec(ctx, r.db).QueryContext(ctx, q, lotID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// SetStatus updates a slot's administrative status. Returns ErrNotFound
// when the slot does not exist.
func (r *SlotRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE slots SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
