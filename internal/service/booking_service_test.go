package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/clock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

func testPolicy() Policy {
	return Policy{
		MaxBookingDays: 14,
		CheckinEarly:   15 * time.Minute,
		CheckinLate:    60 * time.Minute,
		ReleaseGrace:   15 * time.Minute,
	}
}

// bookingFixture wires a BookingService over the in-memory fakes with
// one lot and one available slot.
type bookingFixture struct {
	svc      *BookingService
	db       *memDB
	notifier *recordingNotifier
	lot      model.Lot
	slot     model.Slot
}

func newBookingFixture(now time.Time) *bookingFixture {
	db := newMemDB(now)
	lot := db.addLot(model.Lot{Name: "Central"})
	slot := db.addSlot(model.Slot{LotID: lot.ID, Number: "A-01", Status: model.SlotAvailable})
	notifier := &recordingNotifier{}
	svc := NewBookingService(&fakeBookings{db}, &fakeSlots{db}, &fakeLots{db}, clock.NewFixed(now), notifier, testPolicy())
	return &bookingFixture{svc: svc, db: db, notifier: notifier, lot: lot, slot: slot}
}

func TestBookingService_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	t.Run("creates confirmed booking", func(t *testing.T) {
		fx := newBookingFixture(now)
		b, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if b.Status != model.BookingConfirmed {
			t.Fatalf("expected status %s, got %s", model.BookingConfirmed, b.Status)
		}
		if b.BookingType != model.BookingSingle {
			t.Fatalf("expected type %s, got %s", model.BookingSingle, b.BookingType)
		}
		if b.LotID != fx.lot.ID {
			t.Fatalf("expected lot %d, got %d", fx.lot.ID, b.LotID)
		}
		if got := fx.notifier.kinds(); len(got) != 1 || got[0] != "booking.created" {
			t.Fatalf("expected booking.created event, got %v", got)
		}
	})

	t.Run("rejects overlapping window", func(t *testing.T) {
		fx := newBookingFixture(now)
		if _, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		}); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
		_, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 2, SlotID: fx.slot.ID, StartsAt: at(9, 30), EndsAt: at(10, 30),
		})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("accepts back-to-back window", func(t *testing.T) {
		fx := newBookingFixture(now)
		if _, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		}); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
		if _, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 2, SlotID: fx.slot.ID, StartsAt: at(10, 0), EndsAt: at(11, 0),
		}); err != nil {
			t.Fatalf("back-to-back should not conflict, got %v", err)
		}
	})

	t.Run("rejects empty and inverted windows", func(t *testing.T) {
		fx := newBookingFixture(now)
		for _, win := range [][2]time.Time{
			{at(9, 0), at(9, 0)},
			{at(10, 0), at(9, 0)},
		} {
			_, err := fx.svc.Create(context.Background(), CreateBookingInput{
				UserID: 1, SlotID: fx.slot.ID, StartsAt: win[0], EndsAt: win[1],
			})
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("window %v-%v: expected ErrInvalidRange, got %v", win[0], win[1], err)
			}
		}
	})

	t.Run("rejects window ending in the past", func(t *testing.T) {
		fx := newBookingFixture(now)
		_, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(6, 0), EndsAt: at(7, 0),
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("rejects disabled slot", func(t *testing.T) {
		fx := newBookingFixture(now)
		disabled := fx.db.addSlot(model.Slot{LotID: fx.lot.ID, Number: "A-02", Status: model.SlotDisabled})
		_, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: disabled.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		})
		if !errors.Is(err, ErrSlotDisabled) {
			t.Fatalf("expected ErrSlotDisabled, got %v", err)
		}
	})

	t.Run("caps booking length by policy", func(t *testing.T) {
		fx := newBookingFixture(now)
		_, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(9, 0).AddDate(0, 0, 15),
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("lot override tightens the cap", func(t *testing.T) {
		fx := newBookingFixture(now)
		lot := fx.db.addLot(model.Lot{Name: "Short stay", MaxBookingDays: 2})
		slot := fx.db.addSlot(model.Slot{LotID: lot.ID, Number: "B-01", Status: model.SlotAvailable})
		_, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: slot.ID, StartsAt: at(9, 0), EndsAt: at(9, 0).AddDate(0, 0, 3),
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange under lot cap, got %v", err)
		}
		if _, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: slot.ID, StartsAt: at(9, 0), EndsAt: at(9, 0).AddDate(0, 0, 2),
		}); err != nil {
			t.Fatalf("within lot cap should succeed, got %v", err)
		}
	})

	t.Run("cancelled booking frees the window", func(t *testing.T) {
		fx := newBookingFixture(now)
		b, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		})
		if err != nil {
			t.Fatalf("seed booking: %v", err)
		}
		if err := fx.svc.Cancel(context.Background(), b.ID, 1, model.RoleUser); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 2, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		}); err != nil {
			t.Fatalf("rebooking a cancelled window should succeed, got %v", err)
		}
	})

	t.Run("multi-day window is typed MULTI_DAY", func(t *testing.T) {
		fx := newBookingFixture(now)
		b, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(22, 0), EndsAt: at(22, 0).Add(10 * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if b.BookingType != model.BookingMultiDay {
			t.Fatalf("expected type %s, got %s", model.BookingMultiDay, b.BookingType)
		}
	})

	t.Run("window ending exactly at midnight stays SINGLE", func(t *testing.T) {
		fx := newBookingFixture(now)
		b, err := fx.svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(22, 0), EndsAt: at(22, 0).Add(2 * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if b.BookingType != model.BookingSingle {
			t.Fatalf("expected type %s, got %s", model.BookingSingle, b.BookingType)
		}
	})

	t.Run("gives up after repeated contention", func(t *testing.T) {
		fx := newBookingFixture(now)
		contended := &contentionBookings{fakeBookings: fakeBookings{fx.db}}
		svc := NewBookingService(contended, &fakeSlots{fx.db}, &fakeLots{fx.db}, clock.NewFixed(now), nil, testPolicy())
		_, err := svc.Create(context.Background(), CreateBookingInput{
			UserID: 1, SlotID: fx.slot.ID, StartsAt: at(9, 0), EndsAt: at(10, 0),
		})
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
		if contended.attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", contended.attempts)
		}
	})
}

// contentionBookings simulates a database that deadlocks on every
// transaction.
type contentionBookings struct {
	fakeBookings
	attempts int
}

func (c *contentionBookings) WithTx(context.Context, func(ctx context.Context) error) error {
	c.attempts++
	return repository.ErrTxContention
}

func TestBookingService_CheckIn(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	seed := func(now time.Time) (*bookingFixture, model.Booking) {
		fx := newBookingFixture(now)
		b := fx.db.addBooking(model.Booking{
			UserID: 1, SlotID: fx.slot.ID, LotID: fx.lot.ID,
			Status: model.BookingConfirmed, BookingType: model.BookingSingle,
			StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		})
		return fx, b
	}

	t.Run("succeeds inside the window", func(t *testing.T) {
		fx, b := seed(start.Add(-10 * time.Minute))
		got, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Status != model.BookingActive {
			t.Fatalf("expected ACTIVE, got %s", got.Status)
		}
		if got.CheckedInAt == nil {
			t.Fatalf("expected CheckedInAt to be set")
		}
	})

	t.Run("too early before the window opens", func(t *testing.T) {
		fx, b := seed(start.Add(-16 * time.Minute))
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); !errors.Is(err, ErrTooEarly) {
			t.Fatalf("expected ErrTooEarly, got %v", err)
		}
	})

	t.Run("too late after the window closes", func(t *testing.T) {
		fx, b := seed(start.Add(61 * time.Minute))
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); !errors.Is(err, ErrTooLate) {
			t.Fatalf("expected ErrTooLate, got %v", err)
		}
	})

	t.Run("boundary instants count as inside", func(t *testing.T) {
		for _, now := range []time.Time{start.Add(-15 * time.Minute), start.Add(60 * time.Minute)} {
			fx, b := seed(now)
			if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); err != nil {
				t.Fatalf("check-in at %v should succeed, got %v", now, err)
			}
		}
	})

	t.Run("second check-in fails", func(t *testing.T) {
		fx, b := seed(start)
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); err != nil {
			t.Fatalf("first check-in: %v", err)
		}
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); !errors.Is(err, ErrAlreadyCheckedIn) {
			t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
		}
	})

	t.Run("stranger is forbidden, admin is not", func(t *testing.T) {
		fx, b := seed(start)
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 99, model.RoleUser); !errors.Is(err, repository.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 99, model.RoleAdmin); err != nil {
			t.Fatalf("admin check-in should succeed, got %v", err)
		}
	})

	t.Run("cancelled booking cannot check in", func(t *testing.T) {
		fx, b := seed(start)
		if err := fx.svc.Cancel(context.Background(), b.ID, 1, model.RoleUser); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := fx.svc.CheckIn(context.Background(), b.ID, 1, model.RoleUser); !errors.Is(err, ErrTooLate) {
			t.Fatalf("expected ErrTooLate, got %v", err)
		}
	})
}

func TestBookingService_Cancel(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("terminal booking stays closed", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := fx.db.addBooking(model.Booking{
			UserID: 1, SlotID: fx.slot.ID, LotID: fx.lot.ID,
			Status:   model.BookingCompleted,
			StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-time.Hour),
		})
		if err := fx.svc.Cancel(context.Background(), b.ID, 1, model.RoleUser); !errors.Is(err, ErrBookingClosed) {
			t.Fatalf("expected ErrBookingClosed, got %v", err)
		}
	})

	t.Run("publishes cancellation event", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := fx.db.addBooking(model.Booking{
			UserID: 1, SlotID: fx.slot.ID, LotID: fx.lot.ID,
			Status:   model.BookingConfirmed,
			StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour),
		})
		if err := fx.svc.Cancel(context.Background(), b.ID, 1, model.RoleUser); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got := fx.notifier.kinds(); len(got) != 1 || got[0] != "booking.cancelled" {
			t.Fatalf("expected booking.cancelled event, got %v", got)
		}
		if got := fx.db.booking(b.ID); got.Status != model.BookingCancelled {
			t.Fatalf("expected CANCELLED, got %s", got.Status)
		}
	})
}

func TestBookingService_Extend(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	seed := func(fx *bookingFixture, userID uint64, start, end time.Time) model.Booking {
		return fx.db.addBooking(model.Booking{
			UserID: userID, SlotID: fx.slot.ID, LotID: fx.lot.ID,
			Status: model.BookingConfirmed, BookingType: model.BookingSingle,
			StartsAt: start, EndsAt: end,
		})
	}

	t.Run("extends into free space", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := seed(fx, 1, at(9, 0), at(10, 0))
		got, err := fx.svc.Extend(context.Background(), b.ID, at(11, 0), 1, model.RoleUser)
		if err != nil {
			t.Fatalf("extend: %v", err)
		}
		if !got.EndsAt.Equal(at(11, 0)) {
			t.Fatalf("expected end %v, got %v", at(11, 0), got.EndsAt)
		}
	})

	t.Run("conflict leaves the booking unmodified", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := seed(fx, 1, at(9, 0), at(10, 0))
		seed(fx, 2, at(10, 30), at(11, 30))
		_, err := fx.svc.Extend(context.Background(), b.ID, at(11, 0), 1, model.RoleUser)
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
		if got := fx.db.booking(b.ID); !got.EndsAt.Equal(at(10, 0)) {
			t.Fatalf("booking end changed to %v on failed extend", got.EndsAt)
		}
	})

	t.Run("may extend up to the next booking's start", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := seed(fx, 1, at(9, 0), at(10, 0))
		seed(fx, 2, at(11, 0), at(12, 0))
		if _, err := fx.svc.Extend(context.Background(), b.ID, at(11, 0), 1, model.RoleUser); err != nil {
			t.Fatalf("extend to boundary should succeed, got %v", err)
		}
	})

	t.Run("shrink allowed before start only", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := seed(fx, 1, at(9, 0), at(11, 0))
		if _, err := fx.svc.Extend(context.Background(), b.ID, at(10, 0), 1, model.RoleUser); err != nil {
			t.Fatalf("shrink before start should succeed, got %v", err)
		}

		started := newBookingFixture(at(9, 30))
		b2 := seed(started, 1, at(9, 0), at(11, 0))
		if _, err := started.svc.Extend(context.Background(), b2.ID, at(10, 0), 1, model.RoleUser); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("shrink after start: expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("new end must follow the start", func(t *testing.T) {
		fx := newBookingFixture(now)
		b := seed(fx, 1, at(9, 0), at(10, 0))
		if _, err := fx.svc.Extend(context.Background(), b.ID, at(9, 0), 1, model.RoleUser); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})
}

// lockingBookings serializes whole transactions behind one mutex, the
// way the real store's slot row lock serializes concurrent writers.
type lockingBookings struct {
	fakeBookings
	txMu sync.Mutex
}

func (f *lockingBookings) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(ctx)
}

func TestBookingService_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	db := newMemDB(now)
	lot := db.addLot(model.Lot{Name: "Central"})
	slot := db.addSlot(model.Slot{LotID: lot.ID, Number: "A-01", Status: model.SlotAvailable})
	bookings := &lockingBookings{fakeBookings: fakeBookings{db}}
	svc := NewBookingService(bookings, &fakeSlots{db}, &fakeLots{db}, clock.NewFixed(now), nil, testPolicy())

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateBookingInput{
				UserID: userID, SlotID: slot.ID, StartsAt: start, EndsAt: end,
			})
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != racers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", racers-1, won, lost)
	}

	// The stored set must hold the invariant: no two live bookings on
	// the slot overlap.
	db.mu.Lock()
	var live []model.Booking
	for _, b := range db.bookings {
		if b.SlotID == slot.ID && b.CountsAgainstSlot() {
			live = append(live, *b)
		}
	}
	db.mu.Unlock()
	if len(live) != 1 {
		t.Fatalf("expected exactly 1 live booking, got %d", len(live))
	}
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			if live[i].Overlaps(live[j].StartsAt, live[j].EndsAt) {
				t.Fatalf("bookings %d and %d overlap", live[i].ID, live[j].ID)
			}
		}
	}
}
