package model

import "time"

// Recurrence intervals supported by patterns.
const (
	IntervalWeekly  = "WEEKLY"  // repeats on selected weekdays
	IntervalMonthly = "MONTHLY" // repeats on one day of each month
)

// RecurringPattern describes a standing reservation request that the
// expansion job materializes into concrete bookings up to a rolling
// horizon. The pattern itself never occupies a slot; only its
// generated bookings do.
//
// Weekdays is a bitmask with bit 0 = Sunday through bit 6 = Saturday,
// matching time.Weekday, and is meaningful for WEEKLY patterns only.
// For MONTHLY patterns DayOfMonth selects the day; values past the end
// of a short month clamp to that month's last day.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user the generated bookings belong to.
//  LotID            – preferred lot.
//  SlotID           – preferred slot within the lot.
//  Interval         – WEEKLY or MONTHLY.
//  Weekdays         – weekday bitmask (WEEKLY only).
//  DayOfMonth       – day of month 1..31 (MONTHLY only).
//  StartMinute      – minutes after midnight UTC when each occurrence starts.
//  DurationMinutes  – length of each occurrence.
//  StartDate        – first date (inclusive) the pattern applies to.
//  EndDate          – last date (inclusive); nil means open-ended.
//  LastExpandedDate – last date already covered by an expansion run.
//  Active           – false once the pattern is deleted.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type RecurringPattern struct {
	ID               uint64     // recurring_patterns.id
	UserID           uint64     // recurring_patterns.user_id
	LotID            uint64     // recurring_patterns.lot_id
	SlotID           uint64     // recurring_patterns.slot_id
	Interval         string     // recurring_patterns.recur_interval
	Weekdays         uint8      // recurring_patterns.weekdays bitmask
	DayOfMonth       uint8      // recurring_patterns.day_of_month
	StartMinute      uint16     // recurring_patterns.start_minute
	DurationMinutes  uint32     // recurring_patterns.duration_minutes
	StartDate        time.Time  // recurring_patterns.start_date (date only)
	EndDate          *time.Time // recurring_patterns.end_date (nullable)
	LastExpandedDate *time.Time // recurring_patterns.last_expanded_date (nullable)
	Active           bool       // recurring_patterns.active
	CreatedAt        time.Time  // recurring_patterns.created_at
	UpdatedAt        time.Time  // recurring_patterns.updated_at
}

// WantsWeekday reports whether a WEEKLY pattern includes the given weekday.
func (p RecurringPattern) WantsWeekday(d time.Weekday) bool {
	return p.Weekdays&(1<<uint(d)) != 0
}

// OccurrenceWindow returns the concrete [start, end) window of an
// occurrence falling on the given calendar date.
func (p RecurringPattern) OccurrenceWindow(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := day.Add(time.Duration(p.StartMinute) * time.Minute)
	return start, start.Add(time.Duration(p.DurationMinutes) * time.Minute)
}
