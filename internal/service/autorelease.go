package service

import (
	"context"
	"log"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
)

// ReleaseOverdue is the auto-release sweep. It transitions confirmed
// bookings whose holder never checked in within the grace period to
// NO_SHOW, frees their slots and offers each freed window to the
// waitlist coordinator. The per-booking conditional update means a
// check-in that lands between candidate selection and the transition
// simply wins: the sweep's update matches nothing and moves on. One
// failing booking never aborts the sweep; it is logged and picked up
// again on the next run.
func (s *BookingService) ReleaseOverdue(ctx context.Context) (int, error) {
	now := s.clk.Now()
	candidates, err := s.bookings.ListReleaseCandidates(ctx, now.Add(-s.policy.ReleaseGrace))
	if err != nil {
		return 0, err
	}

	released := 0
	for _, b := range candidates {
		ok, err := s.bookings.MarkNoShow(ctx, b.ID)
		if err != nil {
			log.Printf("auto-release: booking %d: %v", b.ID, err)
			continue
		}
		if !ok {
			continue // checked in or cancelled since selection
		}
		released++
		b.Status = model.BookingNoShow

		s.notifier.Notify(ctx, queue.Event{
			Kind:       queue.EventBookingNoShow,
			BookingID:  b.ID,
			UserID:     b.UserID,
			SlotID:     b.SlotID,
			LotID:      b.LotID,
			StartsAt:   b.StartsAt,
			EndsAt:     b.EndsAt,
			OccurredAt: now,
		})
		s.offerFreed(ctx, b)
	}
	return released, nil
}

// CompleteElapsed closes out active bookings whose window has ended.
// Completion frees no future capacity, so the coordinator is not told.
func (s *BookingService) CompleteElapsed(ctx context.Context) (int, error) {
	candidates, err := s.bookings.ListCompletionCandidates(ctx, s.clk.Now())
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range candidates {
		ok, err := s.bookings.Complete(ctx, b.ID)
		if err != nil {
			log.Printf("auto-complete: booking %d: %v", b.ID, err)
			continue
		}
		if ok {
			completed++
		}
	}
	return completed, nil
}
