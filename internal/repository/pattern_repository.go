package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// PatternRepo provides data access to the recurring_patterns table.
// Dates (start_date, end_date, last_expanded_date) are stored as DATE
// columns in UTC.
type PatternRepo struct {
	db *sql.DB
}

// NewPatternRepo returns a new PatternRepo bound to the given database.
func NewPatternRepo(db *sql.DB) *PatternRepo { return &PatternRepo{db: db} }

const patternColumns = `id, user_id, lot_id, slot_id, recur_interval, weekdays, day_of_month,
	start_minute, duration_minutes, start_date, end_date, last_expanded_date, active,
	created_at, updated_at`

func scanPattern(row interface{ Scan(...interface{}) error }) (model.RecurringPattern, error) {
	var p model.RecurringPattern
	var endDate, lastExpanded sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.LotID, &p.SlotID, &p.Interval, &p.Weekdays, &p.DayOfMonth,
		&p.StartMinute, &p.DurationMinutes, &p.StartDate, &endDate, &lastExpanded, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.RecurringPattern{}, err
	}
	if endDate.Valid {
		t := endDate.Time
		p.EndDate = &t
	}
	if lastExpanded.Valid {
		t := lastExpanded.Time
		p.LastExpandedDate = &t
	}
	return p, nil
}

// Create inserts a pattern and populates its ID.
func (r *PatternRepo) Create(ctx context.Context, p *model.RecurringPattern) error {
	const q = `INSERT INTO recurring_patterns
	           (user_id, lot_id, slot_id, recur_interval, weekdays, day_of_month,
	            start_minute, duration_minutes, start_date, end_date, active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)`
	var endDate interface{}
	if p.EndDate != nil {
		endDate = p.EndDate.UTC()
	}
	res, err := exec(ctx, r.db).ExecContext(ctx, q,
		p.UserID, p.LotID, p.SlotID, p.Interval, p.Weekdays, p.DayOfMonth,
		p.StartMinute, p.DurationMinutes, p.StartDate.UTC(), endDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Active = true
	return nil
}

// GetByID fetches a single pattern. Returns ErrNotFound when missing.
func (r *PatternRepo) GetByID(ctx context.Context, id uint64) (model.RecurringPattern, error) {
	p, err := scanPattern(exec(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM recurring_patterns WHERE id = ? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return model.RecurringPattern{}, ErrNotFound
	}
	return p, err
}

// ListActive returns all active patterns, oldest first. The expansion
// job iterates over this set each run.
func (r *PatternRepo) ListActive(ctx context.Context) ([]model.RecurringPattern, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+patternColumns+` FROM recurring_patterns WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectPatterns(rows)
}

// ListByUser returns the user's patterns, newest first.
func (r *PatternRepo) ListByUser(ctx context.Context, userID uint64) ([]model.RecurringPattern, error) {
	rows, err := exec(ctx, r.db).QueryContext(ctx,
		`SELECT `+patternColumns+` FROM recurring_patterns
		 WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectPatterns(rows)
}

// SetLastExpanded advances the pattern's expansion watermark. The
// watermark only moves forward so concurrent expansion runs cannot
// rewind each other.
func (r *PatternRepo) SetLastExpanded(ctx context.Context, id uint64, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	_, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE recurring_patterns SET last_expanded_date = ?
		 WHERE id = ? AND (last_expanded_date IS NULL OR last_expanded_date < ?)`,
		day, id, day)
	return err
}

// Deactivate marks a pattern inactive. Returns whether this call
// performed the transition.
func (r *PatternRepo) Deactivate(ctx context.Context, id uint64) (bool, error) {
	res, err := exec(ctx, r.db).ExecContext(ctx,
		`UPDATE recurring_patterns SET active = FALSE WHERE id = ? AND active`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func collectPatterns(rows *sql.Rows) ([]model.RecurringPattern, error) {
	defer rows.Close()
	var out []model.RecurringPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
