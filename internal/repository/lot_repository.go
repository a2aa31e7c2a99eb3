package repository // repository defines data access for lots and zones

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// LotRepo provides methods to work with parking lots and their zones.
// Lots are read-mostly: created once at setup and consulted on every
// booking for policy values.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *sql.DB) *LotRepo {
	return &LotRepo{db: db}
}

// Create inserts a lot record. On success the lot's ID is populated.
func (r *LotRepo) Create(ctx context.Context, l *model.Lot) error {
	const q = `INSERT INTO lots (name, address, max_booking_days) VALUES (?, ?, ?)`
	res, err := exec(ctx, r.db).ExecContext(ctx, q, l.Name, l.Address, l.MaxBookingDays)
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
	l.ID = uint64(id)
	return nil
}

// GetByID fetches a single lot. Returns ErrNotFound when missing.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (model.Lot, error) {
	const q = `SELECT id, name, address, max_booking_days, created_at, updated_at
	           FROM lots WHERE id = ? LIMIT 1`
	var l model.Lot
	err := exec(ctx, r.db).QueryRowContext(ctx, q, id).
		Scan(&l.ID, &l.Name, &l.Address, &l.MaxBookingDays, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Lot{}, ErrNotFound
	}
	return l, err
}

// List returns all lots ordered by name.
func (r *LotRepo) List(ctx context.Context) ([]model.Lot, error) {
	const q = `SELECT id, name, address, max_booking_days, created_at, updated_at
	           FROM lots ORDER BY name`
	rows, err := exec(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []model.Lot
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.MaxBookingDays, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// CreateZone inserts a zone under a lot. On success the zone's ID is populated.
func (r *LotRepo) CreateZone(ctx context.Context, z *model.Zone) error {
	const q = `INSERT INTO zones (lot_id, name) VALUES (?, ?)`
	res, err := exec(ctx, r.db).ExecContext(ctx, q, z.LotID, z.Name)
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
	z.ID = uint64(id)
	return nil
}

// ListZones returns all zones of a lot ordered by name.
func (r *LotRepo) ListZones(ctx context.Context, lotID uint64) ([]model.Zone, error) {
	const q = `SELECT id, lot_id, name, created_at, updated_at
	           FROM zones WHERE lot_id = ? ORDER BY name`
	rows, err := exec(ctx, r.db).QueryContext(ctx, q, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var zones []model.Zone
	for rows.Next() {
		var z model.Zone
		if err := rows.Scan(&z.ID, &z.LotID, &z.Name, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
