package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/clock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// WaitlistService coordinates queued demand and handoffs. It matches
// freed slots to pending waitlist entries FIFO per lot, and brokers
// swap requests between a booking's holder and a requester. It is the
// SlotFreedListener the lifecycle manager reports to.
type WaitlistService struct {
	waitlist WaitlistStore
	swaps    SwapStore
	bookings BookingStore
	slots    SlotStore
	lots     LotStore
	clk      clock.Clock
	notifier Notifier

	swapTTL     time.Duration // pending swap requests expire after this
	waitlistTTL time.Duration // 0 disables waitlist expiry
}

// NewWaitlistService constructs the coordinator.
func NewWaitlistService(waitlist WaitlistStore, swaps SwapStore, bookings BookingStore, slots SlotStore, lots LotStore, clk clock.Clock, notifier Notifier, swapTTL, waitlistTTL time.Duration) *WaitlistService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if swapTTL <= 0 {
		swapTTL = 24 * time.Hour
	}
	return &WaitlistService{
		waitlist:    waitlist,
		swaps:       swaps,
		bookings:    bookings,
		slots:       slots,
		lots:        lots,
		clk:         clk,
		notifier:    notifier,
		swapTTL:     swapTTL,
		waitlistTTL: waitlistTTL,
	}
}

// Join queues the user for the lot over the desired window.
func (s *WaitlistService) Join(ctx context.Context, userID, lotID uint64, startsAt, endsAt time.Time) (model.WaitlistEntry, error) {
	start, end := startsAt.UTC(), endsAt.UTC()
	if !start.Before(end) || !end.After(s.clk.Now()) {
		return model.WaitlistEntry{}, ErrInvalidRange
	}
	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return model.WaitlistEntry{}, err
	}
	e := model.WaitlistEntry{UserID: userID, LotID: lotID, StartsAt: start, EndsAt: end}
	if err := s.waitlist.Create(ctx, &e); err != nil {
		return model.WaitlistEntry{}, err
	}
	return e, nil
}

// GetEntry returns one waitlist entry, visible to its owner and admins.
func (s *WaitlistService) GetEntry(ctx context.Context, id, actorID uint64, actorRole string) (model.WaitlistEntry, error) {
	e, err := s.waitlist.GetByID(ctx, id)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	if e.UserID != actorID && !isAdmin(actorRole) {
		return model.WaitlistEntry{}, repository.ErrForbidden
	}
	return e, nil
}

// ListForUser returns the user's waitlist entries.
func (s *WaitlistService) ListForUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	return s.waitlist.ListByUser(ctx, userID)
}

// SlotFreed implements SlotFreedListener. It walks the lot's pending
// entries oldest first and fulfills every entry whose desired window
// now fits on the freed slot, each inside its own transaction so one
// failure leaves the rest of the queue untouched. Entries that do not
// fit stay pending. All of this is best-effort: the booking transition
// that freed the slot has already committed and is never rolled back.
func (s *WaitlistService) SlotFreed(ctx context.Context, freed model.Booking) {
	now := s.clk.Now()
	entries, err := s.waitlist.ListPendingByLot(ctx, freed.LotID)
	if err != nil {
		log.Printf("waitlist: list pending for lot %d: %v", freed.LotID, err)
		return
	}

	for _, e := range entries {
		if !e.EndsAt.After(now) {
			continue // desired window already passed; expiry sweep will close it
		}
		if err := s.fulfill(ctx, e, freed.SlotID); err != nil {
			if !errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrSlotDisabled) {
				log.Printf("waitlist: entry %d: %v", e.ID, err)
			}
			continue
		}
	}
}

// fulfill converts one pending entry into a booking on the freed slot.
// The conflict check, booking insert and entry transition share one
// transaction under the slot row lock, so two sweeps cannot double-book
// the slot or double-fulfill the entry.
func (s *WaitlistService) fulfill(ctx context.Context, e model.WaitlistEntry, slotID uint64) error {
	var b model.Booking
	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		slot, err := s.slots.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.Bookable() {
			return ErrSlotDisabled
		}
		n, err := s.bookings.CountOverlapping(ctx, slotID, e.StartsAt, e.EndsAt, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotUnavailable
		}
		b = model.Booking{
			UserID:      e.UserID,
			SlotID:      slotID,
			LotID:       e.LotID,
			Status:      model.BookingConfirmed,
			BookingType: classify(e.StartsAt, e.EndsAt, nil),
			StartsAt:    e.StartsAt,
			EndsAt:      e.EndsAt,
		}
		if err := s.bookings.Create(ctx, &b); err != nil {
			return err
		}
		ok, err := s.waitlist.Fulfill(ctx, e.ID, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrConflict // entry claimed concurrently; roll back the booking
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, queue.Event{
		Kind:       queue.EventWaitlistFulfilled,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SlotID:     b.SlotID,
		LotID:      b.LotID,
		WaitlistID: e.ID,
		StartsAt:   b.StartsAt,
		EndsAt:     b.EndsAt,
		OccurredAt: s.clk.Now(),
	})
	return nil
}

// RequestSwap lets a user ask to take over someone else's confirmed
// booking. The request carries an explicit expiry.
func (s *WaitlistService) RequestSwap(ctx context.Context, bookingID, requesterID uint64) (model.SwapRequest, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if b.UserID == requesterID {
		return model.SwapRequest{}, repository.ErrConflict
	}
	if b.Status != model.BookingConfirmed {
		return model.SwapRequest{}, ErrBookingClosed
	}
	sr := model.SwapRequest{
		BookingID:   bookingID,
		RequesterID: requesterID,
		ExpiresAt:   s.clk.Now().Add(s.swapTTL),
	}
	if err := s.swaps.Create(ctx, &sr); err != nil {
		return model.SwapRequest{}, err
	}
	return sr, nil
}

// AcceptSwap reassigns the booking to the requester. Only the booking's
// holder (or an admin) may accept, the request must still be pending
// and unexpired, and the requester is re-validated to hold no
// conflicting booking in the window. Close and reassign share one
// transaction under the slot lock.
func (s *WaitlistService) AcceptSwap(ctx context.Context, swapID, actorID uint64, actorRole string) (model.SwapRequest, error) {
	sr, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	b, err := s.bookings.GetByID(ctx, sr.BookingID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return model.SwapRequest{}, repository.ErrForbidden
	}
	if sr.Status != model.SwapPending {
		return model.SwapRequest{}, ErrSwapClosed
	}
	now := s.clk.Now()
	if !now.Before(sr.ExpiresAt) {
		if _, err := s.swaps.Close(ctx, swapID, model.SwapExpired); err != nil {
			log.Printf("swap: expire request %d: %v", swapID, err)
		}
		return model.SwapRequest{}, ErrSwapClosed
	}

	err = s.bookings.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.slots.GetForUpdate(ctx, b.SlotID); err != nil {
			return err
		}
		n, err := s.bookings.CountOverlappingForUser(ctx, sr.RequesterID, b.StartsAt, b.EndsAt)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotUnavailable
		}
		ok, err := s.swaps.Close(ctx, swapID, model.SwapAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSwapClosed
		}
		ok, err = s.bookings.Reassign(ctx, b.ID, sr.RequesterID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBookingClosed
		}
		return nil
	})
	if err != nil {
		return model.SwapRequest{}, err
	}
	sr.Status = model.SwapAccepted

	s.notifier.Notify(ctx, queue.Event{
		Kind:       queue.EventSwapAccepted,
		BookingID:  b.ID,
		UserID:     sr.RequesterID,
		SlotID:     b.SlotID,
		LotID:      b.LotID,
		SwapID:     sr.ID,
		StartsAt:   b.StartsAt,
		EndsAt:     b.EndsAt,
		OccurredAt: now,
	})
	return sr, nil
}

// RejectSwap closes a pending request with no effect on the booking.
func (s *WaitlistService) RejectSwap(ctx context.Context, swapID, actorID uint64, actorRole string) error {
	sr, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return err
	}
	b, err := s.bookings.GetByID(ctx, sr.BookingID)
	if err != nil {
		return err
	}
	if b.UserID != actorID && !isAdmin(actorRole) {
		return repository.ErrForbidden
	}
	ok, err := s.swaps.Close(ctx, swapID, model.SwapRejected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSwapClosed
	}
	return nil
}

// ListSwapsForOwner returns pending requests against the user's bookings.
func (s *WaitlistService) ListSwapsForOwner(ctx context.Context, ownerID uint64) ([]model.SwapRequest, error) {
	return s.swaps.ListForBookingOwner(ctx, ownerID)
}

// ListSwapsByRequester returns the user's own swap requests.
func (s *WaitlistService) ListSwapsByRequester(ctx context.Context, requesterID uint64) ([]model.SwapRequest, error) {
	return s.swaps.ListByRequester(ctx, requesterID)
}

// ExpireDue closes timed-out swap requests and, when a waitlist TTL is
// configured, expires stale pending waitlist entries. Runs from the
// periodic scheduler.
func (s *WaitlistService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clk.Now()
	n, err := s.swaps.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	total := int(n)
	if s.waitlistTTL > 0 {
		m, err := s.waitlist.ExpireCreatedBefore(ctx, now.Add(-s.waitlistTTL))
		if err != nil {
			return total, err
		}
		total += int(m)
	}
	return total, nil
}
