package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/clock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// Policy carries the booking policy values the engine consults. They
// come from configuration (and per-lot overrides for the booking cap)
// instead of ambient globals.
type Policy struct {
	MaxBookingDays int           // default cap on booking length
	CheckinEarly   time.Duration // how long before start check-in opens
	CheckinLate    time.Duration // how long after start check-in stays open
	ReleaseGrace   time.Duration // no-show grace after start
	TxRetries      int           // attempts for contended transactions
	TxRetryBackoff time.Duration // backoff between attempts, grows linearly
}

// BookingService is the only writer of booking state. Every mutating
// path that depends on conflict state runs its check-then-write inside
// one transaction holding the slot's row lock, and transitions use the
// stores' conditional updates. Slot-freeing transitions notify the
// configured SlotFreedListener; event publication is fire-and-forget.
type BookingService struct {
	bookings BookingStore
	slots    SlotStore
	lots     LotStore
	clk      clock.Clock
	notifier Notifier
	policy   Policy
	freed    SlotFreedListener
}

// NewBookingService constructs the lifecycle manager. The freed
// listener is attached later via SetFreedListener because the waitlist
// coordinator needs this service to create bookings.
func NewBookingService(bookings BookingStore, slots SlotStore, lots LotStore, clk clock.Clock, notifier Notifier, policy Policy) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if policy.TxRetries <= 0 {
		policy.TxRetries = 3
	}
	if policy.TxRetryBackoff <= 0 {
		policy.TxRetryBackoff = 50 * time.Millisecond
	}
	return &BookingService{
		bookings: bookings,
		slots:    slots,
		lots:     lots,
		clk:      clk,
		notifier: notifier,
		policy:   policy,
	}
}

// SetFreedListener wires the coordinator that is offered freed slot
// windows. Must be called during startup, before traffic.
func (s *BookingService) SetFreedListener(l SlotFreedListener) { s.freed = l }

// CreateBookingInput describes a booking request. PatternID is set only
// by the recurrence expander.
type CreateBookingInput struct {
	UserID    uint64
	SlotID    uint64
	StartsAt  time.Time
	EndsAt    time.Time
	PatternID *uint64
}

// Create validates the window against policy, verifies the slot is
// bookable and conflict-free, and inserts a CONFIRMED booking. The
// conflict check and insert share one transaction under the slot row
// lock, so two overlapping requests for the same slot serialize and
// the loser gets ErrSlotUnavailable.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	now := s.clk.Now()
	start, end := in.StartsAt.UTC(), in.EndsAt.UTC()
	if !start.Before(end) {
		return model.Booking{}, ErrInvalidRange
	}
	if !end.After(now) {
		return model.Booking{}, ErrInvalidRange
	}

	b := model.Booking{
		UserID:      in.UserID,
		SlotID:      in.SlotID,
		PatternID:   in.PatternID,
		Status:      model.BookingConfirmed,
		BookingType: classify(start, end, in.PatternID),
		StartsAt:    start,
		EndsAt:      end,
	}

	err := s.retryTx(ctx, func(ctx context.Context) error {
		slot, err := s.slots.GetForUpdate(ctx, in.SlotID)
		if err != nil {
			return err
		}
		if !slot.Bookable() {
			return ErrSlotDisabled
		}
		b.LotID = slot.LotID

		maxDays := s.policy.MaxBookingDays
		if lot, err := s.lots.GetByID(ctx, slot.LotID); err == nil && lot.MaxBookingDays > 0 {
			maxDays = int(lot.MaxBookingDays)
		}
		if maxDays > 0 && end.Sub(start) > time.Duration(maxDays)*24*time.Hour {
			return ErrInvalidRange
		}

		n, err := s.bookings.CountOverlapping(ctx, in.SlotID, start, end, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotUnavailable
		}
		return s.bookings.Create(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.notifier.Notify(ctx, queue.Event{
		Kind:       queue.EventBookingCreated,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SlotID:     b.SlotID,
		LotID:      b.LotID,
		StartsAt:   b.StartsAt,
		EndsAt:     b.EndsAt,
		OccurredAt: now,
	})
	return b, nil
}

// CheckIn marks the booking active. Only the holder (or an admin) may
// check in, and only within the configured window around the start.
// The conditional update makes a race against the auto-release sweep a
// no-op on one side: whoever matches first wins, the other caller gets
// a definite answer.
func (s *BookingService) CheckIn(ctx context.Context, id, actorID uint64, actorRole string) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return model.Booking{}, repository.ErrForbidden
	}
	if b.CheckedInAt != nil || b.Status == model.BookingActive {
		return model.Booking{}, ErrAlreadyCheckedIn
	}
	if b.Status != model.BookingConfirmed {
		return model.Booking{}, ErrTooLate
	}

	now := s.clk.Now()
	if now.Before(b.StartsAt.Add(-s.policy.CheckinEarly)) {
		return model.Booking{}, ErrTooEarly
	}
	if now.After(b.StartsAt.Add(s.policy.CheckinLate)) {
		return model.Booking{}, ErrTooLate
	}

	ok, err := s.bookings.CheckIn(ctx, id, now)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		// Lost the race against the sweep or another actor.
		return model.Booking{}, ErrTooLate
	}
	b.Status = model.BookingActive
	b.CheckedInAt = &now
	return b, nil
}

// Cancel transitions a confirmed or active booking to CANCELLED and
// offers the freed window to the waitlist coordinator.
func (s *BookingService) Cancel(ctx context.Context, id, actorID uint64, actorRole string) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return repository.ErrForbidden
	}
	if b.Terminal() {
		return ErrBookingClosed
	}

	ok, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookingClosed
	}
	b.Status = model.BookingCancelled

	s.notifier.Notify(ctx, queue.Event{
		Kind:       queue.EventBookingCancelled,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SlotID:     b.SlotID,
		LotID:      b.LotID,
		StartsAt:   b.StartsAt,
		EndsAt:     b.EndsAt,
		OccurredAt: s.clk.Now(),
	})
	s.offerFreed(ctx, b)
	return nil
}

// Extend moves the booking's end time after re-running the conflict
// check excluding the booking itself. On conflict the booking is left
// unmodified. Shrinking is permitted only for bookings that have not
// started yet; an active booking can only grow.
func (s *BookingService) Extend(ctx context.Context, id uint64, newEnd time.Time, actorID uint64, actorRole string) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return model.Booking{}, repository.ErrForbidden
	}
	if b.Terminal() {
		return model.Booking{}, ErrBookingClosed
	}

	now := s.clk.Now()
	newEnd = newEnd.UTC()
	if !newEnd.After(b.StartsAt) {
		return model.Booking{}, ErrInvalidRange
	}
	if newEnd.Before(b.EndsAt) && !now.Before(b.StartsAt) {
		return model.Booking{}, ErrInvalidRange
	}

	err = s.retryTx(ctx, func(ctx context.Context) error {
		if _, err := s.slots.GetForUpdate(ctx, b.SlotID); err != nil {
			return err
		}
		n, err := s.bookings.CountOverlapping(ctx, b.SlotID, b.StartsAt, newEnd, b.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotUnavailable
		}
		ok, err := s.bookings.SetEnd(ctx, b.ID, newEnd)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBookingClosed
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	b.EndsAt = newEnd
	return b, nil
}

// Get returns a booking visible to the actor: its holder or an admin.
func (s *BookingService) Get(ctx context.Context, id, actorID uint64, actorRole string) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return model.Booking{}, repository.ErrForbidden
	}
	return b, nil
}

// ListForUser returns the user's bookings that have not ended yet plus
// recently ended ones within a day, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID, s.clk.Now().Add(-24*time.Hour))
}

// offerFreed tells the coordinator about a freed window. Best-effort:
// the coordinator logs its own failures.
func (s *BookingService) offerFreed(ctx context.Context, b model.Booking) {
	if s.freed != nil {
		s.freed.SlotFreed(ctx, b)
	}
}

// retryTx runs fn inside a transaction, retrying on lock/transaction
// contention a bounded number of times with linear backoff before
// giving up with ErrServiceUnavailable.
func (s *BookingService) retryTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.policy.TxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * s.policy.TxRetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = s.bookings.WithTx(ctx, fn)
		if err != repository.ErrTxContention {
			return err
		}
		log.Printf("booking: transaction contention, attempt %d", attempt+1)
	}
	return ErrServiceUnavailable
}

// classify derives the booking type from its window and origin.
func classify(start, end time.Time, patternID *uint64) string {
	if patternID != nil {
		return model.BookingRecurringInstance
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Add(-time.Nanosecond).Date()
	if sy != ey || sm != em || sd != ed {
		return model.BookingMultiDay
	}
	return model.BookingSingle
}

// isAdmin reports whether the role may act on other users' resources.
func isAdmin(role string) bool {
	return role == model.RoleAdmin || role == model.RoleSuperadmin
}
