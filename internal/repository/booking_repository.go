package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table. Bookings are
// the contended resource of the system: all writes that depend on
// conflict state must run inside a WithTx transaction holding the
// slot's row lock (SlotRepo.GetForUpdate), so the overlap check and
// the subsequent write form one atomic unit. Status transitions use
// conditional UPDATEs so concurrent writers (a human check-in racing
// the auto-release sweep) degrade to a no-op instead of a double
// transition. All timestamps are stored and compared in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// WithTx runs fn inside a transaction on this repository's database.
// See repository.WithTx for semantics.
func (r *BookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}

const bookingColumns = `id, user_id, slot_id, lot_id, pattern_id, status, booking_type,
	starts_at, ends_at, checked_in_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (model.Booking, error) {
	var b model.Booking
	var pattern sql.NullInt64
	var checkedIn sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.SlotID, &b.LotID, &pattern, &b.Status, &b.BookingType,
		&b.StartsAt, &b.EndsAt, &checkedIn, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if pattern.Valid {
		p := uint64(pattern.Int64)
		b.PatternID = &p
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}
	return b, nil
}

// CountOverlapping returns how many confirmed or active bookings on the
// slot overlap the half-open window [start, end). Bookings that merely
// touch at a boundary do not count. excludeID removes one booking from
// consideration (used by extend); pass 0 to consider all.
func (r *BookingRepo) CountOverlapping(ctx context.Context, slotID uint64, start, end time.Time, excludeID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	           WHERE slot_id = ? AND status IN ('CONFIRMED','ACTIVE')
	             AND starts_at < ? AND ends_at > ? AND id <> ?`
	var n int
	err := exec(ctx, r.db).QueryRowContext(ctx, q, slotID, end, start, excludeID).Scan(&n)
	return n, err
}

// CountOverlappingForUser returns how many confirmed or active bookings
// the user holds anywhere that overlap [start, end). Used to re-validate
// a swap requester before reassigning a booking.
func (r *BookingRepo) CountOverlappingForUser(ctx context.Context, userID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	           WHERE user_id = ? AND status IN ('CONFIRMED','ACTIVE')
	             AND starts_at < ? AND ends_at > ?`
	var n int
	err := exec(ctx, r.db).QueryRowContext(ctx, q, userID, end, start).Scan(&n)
	return n, err
}

// Create inserts a booking with status CONFIRMED and populates its ID.
// Callers must have verified absence of conflicts in the same
// transaction beforehand.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (user_id, slot_id, lot_id, pattern_id, status, booking_type, starts_at, ends_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var pattern interface{}
	if b.PatternID != nil {
		pattern = *b.PatternID
	}
	res, err := exec(ctx, r.db).ExecContext(ctx, q,
		b.UserID, b.SlotID, b.LotID, pattern, b.Status, b.BookingType,
		b.StartsAt.UTC(), b.EndsAt.UTC())
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
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a single booking. Returns ErrNotFound when missing.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// ListByUser returns the user's bookings ending after the given instant,
// newest window first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, endingAfter time.Time) ([]model.Booking, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = ? AND ends_at > ? ORDER BY starts_at DESC`, userID, endingAfter)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// CheckIn marks a confirmed, not-yet-checked-in booking as active. The
// conditional WHERE makes the transition a no-op when the auto-release
// sweep got there first; the boolean result reports whether this call
// performed the transition.
func (r *BookingRepo) CheckIn(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET status = 'ACTIVE', checked_in_at = ?
		 WHERE id = ? AND status = 'CONFIRMED' AND checked_in_at IS NULL`,
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Cancel transitions a confirmed or active booking to CANCELLED.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED'
		 WHERE id = ? AND status IN ('CONFIRMED','ACTIVE')`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkNoShow transitions a confirmed booking whose holder never checked
// in to NO_SHOW. A booking that was checked in or cancelled in the
// meantime is left untouched.
func (r *BookingRepo) MarkNoShow(ctx context.Context, id uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET status = 'NO_SHOW'
		 WHERE id = ? AND status = 'CONFIRMED' AND checked_in_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Complete transitions an active booking whose window elapsed to COMPLETED.
func (r *BookingRepo) Complete(ctx context.Context, id uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET status = 'COMPLETED'
		 WHERE id = ? AND status = 'ACTIVE'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetEnd moves a confirmed or active booking's end time. The caller
// must have re-run the conflict check (excluding this booking) in the
// same transaction.
func (r *BookingRepo) SetEnd(ctx context.Context, id uint64, newEnd time.Time) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET ends_at = ?
		 WHERE id = ? AND status IN ('CONFIRMED','ACTIVE')`, newEnd.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Reassign hands a confirmed booking over to a new owner. Used when a
// swap request is accepted; active or terminal bookings cannot change
// hands.
func (r *BookingRepo) Reassign(ctx context.Context, id, newUserID uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings SET user_id = ?
		 WHERE id = ? AND status = 'CONFIRMED'`, newUserID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListReleaseCandidates returns confirmed bookings whose holder has not
// checked in and whose start lies strictly before the given cutoff. The
// sweep computes cutoff = now - grace, so starts_at < cutoff is exactly
// start + grace < now while keeping the WHERE clause an index-friendly
// range condition.
func (r *BookingRepo) ListReleaseCandidates(ctx context.Context, cutoff time.Time) ([]model.Booking, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status = 'CONFIRMED' AND checked_in_at IS NULL AND starts_at < ?
		 ORDER BY starts_at`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListCompletionCandidates returns active bookings whose window has ended.
func (r *BookingRepo) ListCompletionCandidates(ctx context.Context, now time.Time) ([]model.Booking, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status = 'ACTIVE' AND ends_at <= ? ORDER BY ends_at`, now.UTC())
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ExistsForPatternDate reports whether the pattern already has a
// booking instance on the given calendar date, regardless of status.
// Cancelled instances count: re-expansion must not resurrect an
// occurrence the user explicitly removed.
func (r *BookingRepo) ExistsForPatternDate(ctx context.Context, patternID uint64, date time.Time) (bool, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var n int
	err := exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE pattern_id = ? AND starts_at >= ? AND starts_at < ?`,
		patternID, day, day.Add(24*time.Hour)).Scan(&n)
	return n > 0, err
}

// ListFutureConfirmedByPattern returns the pattern's confirmed
// instances starting after the given instant. Deleting a pattern
// cancels exactly this set; started or terminal instances are left
// alone.
func (r *BookingRepo) ListFutureConfirmedByPattern(ctx context.Context, patternID uint64, after time.Time) ([]model.Booking, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE pattern_id = ? AND status = 'CONFIRMED' AND starts_at > ?
		 ORDER BY starts_at`, patternID, after.UTC())
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
