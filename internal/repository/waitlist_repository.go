package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.
// Entries queue per lot in FIFO order by created_at; fulfillment and
// expiry use conditional UPDATEs so a concurrent fulfillment and expiry
// sweep cannot both claim the same entry.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, user_id, lot_id, starts_at, ends_at, status, booking_id,
	created_at, updated_at`

func scanWaitlistEntry(row interface{ Scan(...interface{}) error }) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var booking sql.NullInt64
	err := row.Scan(&e.ID, &e.UserID, &e.LotID, &e.StartsAt, &e.EndsAt, &e.Status, &booking,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	if booking.Valid {
		b := uint64(booking.Int64)
		e.BookingID = &b
	}
	return e, nil
}

// Create inserts a pending entry and populates its ID.
func (r *WaitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (user_id, lot_id, starts_at, ends_at, status)
	           VALUES (?, ?, ?, ?, 'PENDING')`
	res, err := exec(ctx, r.db).ExecContext(ctx, q,
		e.UserID, e.LotID, e.StartsAt.UTC(), e.EndsAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.WaitlistPending
	return nil
}

// GetByID fetches a single entry. Returns ErrNotFound when missing.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (model.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.WaitlistEntry{}, ErrNotFound
	}
	return e, err
}

// ListPendingByLot returns the lot's pending entries oldest first, the
// FIFO order fulfillment walks.
func (r *WaitlistRepo) ListPendingByLot(ctx context.Context, lotID uint64) ([]model.WaitlistEntry, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries
		 WHERE lot_id = ? AND status = 'PENDING' ORDER BY created_at, id`, lotID)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows)
}

// ListByUser returns the user's entries, newest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries
		 WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectWaitlistEntries(rows)
}

// Fulfill converts a pending entry into a fulfilled one, recording the
// booking created for it. Returns whether this call performed the
// transition.
func (r *WaitlistRepo) Fulfill(ctx context.Context, id, bookingID uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE waitlist_entries SET status = 'FULFILLED', booking_id = ?
		 WHERE id = ? AND status = 'PENDING'`, bookingID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireCreatedBefore expires pending entries older than the cutoff.
// Expiry only bounds queue growth; correctness never depends on it.
func (r *WaitlistRepo) ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE waitlist_entries SET status = 'EXPIRED'
		 WHERE status = 'PENDING' AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectWaitlistEntries(rows *sql.Rows) ([]model.WaitlistEntry, error) {
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
