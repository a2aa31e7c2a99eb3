package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/clock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// RecurrenceService materializes recurring patterns into concrete
// bookings up to a rolling horizon, so per-instance edit and cancel
// semantics apply to every occurrence. Expansion is idempotent: a
// (pattern, date) existence check guards every insert, and the
// last-expanded watermark advances only forward.
type RecurrenceService struct {
	patterns PatternStore
	bookings BookingStore
	slots    SlotStore
	booker   *BookingService
	clk      clock.Clock
	horizon  int // rolling horizon in days
}

// NewRecurrenceService constructs the expander. horizonDays controls
// the rolling window (e.g. 60): occurrences materialize for the dates
// [today, today+horizonDays).
func NewRecurrenceService(patterns PatternStore, bookings BookingStore, slots SlotStore, booker *BookingService, clk clock.Clock, horizonDays int) *RecurrenceService {
	if horizonDays <= 0 {
		horizonDays = 60
	}
	return &RecurrenceService{
		patterns: patterns,
		bookings: bookings,
		slots:    slots,
		booker:   booker,
		clk:      clk,
		horizon:  horizonDays,
	}
}

// CreatePatternInput describes a new standing reservation request.
type CreatePatternInput struct {
	UserID          uint64
	LotID           uint64
	SlotID          uint64
	Interval        string // WEEKLY or MONTHLY
	Weekdays        uint8  // WEEKLY: bitmask, bit 0 = Sunday
	DayOfMonth      uint8  // MONTHLY: 1..31, clamps in short months
	StartMinute     uint16 // minutes after midnight UTC
	DurationMinutes uint32
	StartDate       time.Time
	EndDate         *time.Time
}

// CreatePattern validates and stores a pattern, then expands it
// immediately so the user sees their occurrences right away. Expansion
// gaps (occupied preferred slot) do not fail creation.
func (s *RecurrenceService) CreatePattern(ctx context.Context, in CreatePatternInput) (model.RecurringPattern, error) {
	switch in.Interval {
	case model.IntervalWeekly:
		if in.Weekdays == 0 || in.Weekdays > 0x7F {
			return model.RecurringPattern{}, ErrInvalidRange
		}
	case model.IntervalMonthly:
		if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
			return model.RecurringPattern{}, ErrInvalidRange
		}
	default:
		return model.RecurringPattern{}, ErrInvalidRange
	}
	if in.DurationMinutes == 0 || in.StartMinute >= 24*60 {
		return model.RecurringPattern{}, ErrInvalidRange
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return model.RecurringPattern{}, ErrInvalidRange
	}

	slot, err := s.slots.GetByID(ctx, in.SlotID)
	if err != nil {
		return model.RecurringPattern{}, err
	}
	if slot.LotID != in.LotID {
		return model.RecurringPattern{}, repository.ErrNotFound
	}
	if !slot.Bookable() {
		return model.RecurringPattern{}, ErrSlotDisabled
	}

	p := model.RecurringPattern{
		UserID:          in.UserID,
		LotID:           in.LotID,
		SlotID:          in.SlotID,
		Interval:        in.Interval,
		Weekdays:        in.Weekdays,
		DayOfMonth:      in.DayOfMonth,
		StartMinute:     in.StartMinute,
		DurationMinutes: in.DurationMinutes,
		StartDate:       dateOnly(in.StartDate),
		EndDate:         in.EndDate,
	}
	if err := s.patterns.Create(ctx, &p); err != nil {
		return model.RecurringPattern{}, err
	}

	if _, err := s.ExpandPattern(ctx, p); err != nil {
		log.Printf("recurrence: initial expansion of pattern %d: %v", p.ID, err)
	}
	return p, nil
}

// ExpandDue expands every active pattern. Failures are isolated per
// pattern: one bad pattern is logged and the run continues; whatever it
// missed is retried on the next scheduled run via the same watermark.
func (s *RecurrenceService) ExpandDue(ctx context.Context) (int, error) {
	patterns, err := s.patterns.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range patterns {
		n, err := s.ExpandPattern(ctx, p)
		if err != nil {
			log.Printf("recurrence: pattern %d: %v", p.ID, err)
			continue
		}
		total += n
	}
	return total, nil
}

// ExpandPattern materializes the pattern's occurrences between the
// watermark and the horizon. An occurrence whose preferred slot is
// taken is skipped and logged as a gap, never silently moved to an
// unrelated slot, and a failed day does not abort the batch. Returns
// the number of bookings created.
func (s *RecurrenceService) ExpandPattern(ctx context.Context, p model.RecurringPattern) (int, error) {
	now := s.clk.Now()
	today := dateOnly(now)

	from := today
	if p.StartDate.After(from) {
		from = p.StartDate
	}
	if p.LastExpandedDate != nil {
		if next := p.LastExpandedDate.AddDate(0, 0, 1); next.After(from) {
			from = next
		}
	}
	to := today.AddDate(0, 0, s.horizon-1) // horizon end, inclusive
	if p.EndDate != nil && p.EndDate.Before(to) {
		to = dateOnly(*p.EndDate)
	}
	if to.Before(from) {
		return 0, nil
	}

	// The watermark only advances through days whose outcome is final:
	// created, already materialized, or an intentional gap. A day that
	// fails transiently (store error, contention) holds the watermark
	// back so the next run retries it.
	created := 0
	var retry *time.Time // first transiently failed day
	for _, day := range s.occurrenceDates(p, from, to) {
		exists, err := s.bookings.ExistsForPatternDate(ctx, p.ID, day)
		if err != nil {
			log.Printf("recurrence: pattern %d day %s: %v", p.ID, day.Format("2006-01-02"), err)
			if retry == nil {
				d := day
				retry = &d
			}
			continue
		}
		if exists {
			continue
		}
		start, _ := p.OccurrenceWindow(day)
		if !start.After(now) {
			continue // today's occurrence already began
		}
		pid := p.ID
		_, err = s.booker.Create(ctx, CreateBookingInput{
			UserID:    p.UserID,
			SlotID:    p.SlotID,
			StartsAt:  start,
			EndsAt:    start.Add(time.Duration(p.DurationMinutes) * time.Minute),
			PatternID: &pid,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrSlotUnavailable):
			// Preferred slot occupied: record the gap and move on.
			log.Printf("recurrence: pattern %d gap on %s: slot %d occupied",
				p.ID, day.Format("2006-01-02"), p.SlotID)
		default:
			log.Printf("recurrence: pattern %d day %s: %v", p.ID, day.Format("2006-01-02"), err)
			if retry == nil {
				d := day
				retry = &d
			}
		}
	}

	watermark := to
	if retry != nil {
		watermark = retry.AddDate(0, 0, -1)
	}
	if err := s.patterns.SetLastExpanded(ctx, p.ID, watermark); err != nil {
		return created, err
	}
	return created, nil
}

// DeletePattern deactivates the pattern and cancels its future,
// not-yet-started instances. Started or finished instances stay as
// they are. Every cancelled instance frees a window and is offered to
// the waitlist coordinator through the regular cancel path.
func (s *RecurrenceService) DeletePattern(ctx context.Context, id, actorID uint64, actorRole string) error {
	p, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != actorID && !isAdmin(actorRole) {
		return repository.ErrForbidden
	}
	if _, err := s.patterns.Deactivate(ctx, id); err != nil {
		return err
	}

	now := s.clk.Now()
	future, err := s.bookings.ListFutureConfirmedByPattern(ctx, id, now)
	if err != nil {
		return err
	}
	for _, b := range future {
		if err := s.booker.Cancel(ctx, b.ID, b.UserID, model.RoleUser); err != nil {
			log.Printf("recurrence: cancel instance %d of pattern %d: %v", b.ID, id, err)
		}
	}
	return nil
}

// Get returns a pattern visible to the actor: its owner or an admin.
func (s *RecurrenceService) Get(ctx context.Context, id, actorID uint64, actorRole string) (model.RecurringPattern, error) {
	p, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return model.RecurringPattern{}, err
	}
	if p.UserID != actorID && !isAdmin(actorRole) {
		return model.RecurringPattern{}, repository.ErrForbidden
	}
	return p, nil
}

// ListForUser returns the user's patterns.
func (s *RecurrenceService) ListForUser(ctx context.Context, userID uint64) ([]model.RecurringPattern, error) {
	return s.patterns.ListByUser(ctx, userID)
}

// occurrenceDates lists the calendar days in [from, to] on which the
// pattern occurs. Both bounds are date-only UTC midnights.
func (s *RecurrenceService) occurrenceDates(p model.RecurringPattern, from, to time.Time) []time.Time {
	var days []time.Time
	switch p.Interval {
	case model.IntervalWeekly:
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if p.WantsWeekday(d.Weekday()) {
				days = append(days, d)
			}
		}
	case model.IntervalMonthly:
		// Iterate month starts; a day-of-month beyond a month's length
		// clamps to that month's last day.
		month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !month.After(to) {
			day := int(p.DayOfMonth)
			if last := lastDayOfMonth(month); day > last {
				day = last
			}
			d := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
			if !d.Before(from) && !d.After(to) {
				days = append(days, d)
			}
			month = month.AddDate(0, 1, 0)
		}
	}
	return days
}

func lastDayOfMonth(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
