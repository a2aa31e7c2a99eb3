package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// SwapRepo provides data access to the swap_requests table. A request
// is only ever closed once: accept, reject and expiry all go through
// conditional UPDATEs guarded on status = PENDING.
type SwapRepo struct {
	db *sql.DB
}

// NewSwapRepo returns a new SwapRepo bound to the given database.
func NewSwapRepo(db *sql.DB) *SwapRepo { return &SwapRepo{db: db} }

const swapColumns = `id, booking_id, requester_id, status, expires_at, created_at, updated_at`

func scanSwap(row interface{ Scan(...interface{}) error }) (model.SwapRequest, error) {
	var s model.SwapRequest
	err := row.Scan(&s.ID, &s.BookingID, &s.RequesterID, &s.Status, &s.ExpiresAt,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.SwapRequest{}, err
	}
	return s, nil
}

// Create inserts a pending request and populates its ID.
func (r *SwapRepo) Create(ctx context.Context, s *model.SwapRequest) error {
	const q = `INSERT INTO swap_requests (booking_id, requester_id, status, expires_at)
	           VALUES (?, ?, 'PENDING', ?)`
	res, err := exec(ctx, r.db).ExecContext(ctx, q, s.BookingID, s.RequesterID, s.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SwapPending
	return nil
}

// GetByID fetches a single request. Returns ErrNotFound when missing.
func (r *SwapRepo) GetByID(ctx context.Context, id uint64) (model.SwapRequest, error) {
	s, err := scanSwap(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+swapColumns+` FROM swap_requests WHERE id = ? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.SwapRequest{}, ErrNotFound
	}
	return s, err
}

// ListForBookingOwner returns pending requests against bookings owned
// by the given user, oldest first, so owners can review what is asked
// of them.
func (r *SwapRepo) ListForBookingOwner(ctx context.Context, ownerID uint64) ([]model.SwapRequest, error) {
	const q = `SELECT sr.id, sr.booking_id, sr.requester_id, sr.status, sr.expires_at,
	                  sr.created_at, sr.updated_at
	           FROM swap_requests sr
	           JOIN bookings b ON b.id = sr.booking_id
	           WHERE b.user_id = ? AND sr.status = 'PENDING'
	           ORDER BY sr.created_at, sr.id`
	rows, err := exec(ctx, r.db).QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	return collectSwaps(rows)
}

// ListByRequester returns the user's own requests, newest first.
func (r *SwapRepo) ListByRequester(ctx context.Context, requesterID uint64) ([]model.SwapRequest, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+swapColumns+` FROM swap_requests
		 WHERE requester_id = ? ORDER BY id DESC`, requesterID)
	if err != nil {
		return nil, err
	}
	return collectSwaps(rows)
}

// Close transitions a pending request to the given terminal status
// (ACCEPTED, REJECTED or EXPIRED). Returns whether this call performed
// the transition.
func (r *SwapRepo) Close(ctx context.Context, id uint64, status string) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE swap_requests SET status = ?
		 WHERE id = ? AND status = 'PENDING'`, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireDue expires pending requests whose deadline passed. Returns the
// number of requests closed.
func (r *SwapRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE swap_requests SET status = 'EXPIRED'
		 WHERE status = 'PENDING' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectSwaps(rows *sql.Rows) ([]model.SwapRequest, error) {
	defer rows.Close()
	var out []model.SwapRequest
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
