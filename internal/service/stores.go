package service

import (
	"context"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
)

// The store interfaces below describe exactly what the engine needs
// from persistence. The repository package satisfies them with MySQL;
// tests satisfy them with in-memory fakes. Methods named *ForUpdate or
// called inside WithTx participate in the surrounding transaction.

// BookingStore persists bookings and performs the conditional status
// transitions the engine relies on. Every (bool, error) result reports
// whether the conditional update matched, so racing writers observe a
// no-op instead of a double transition.
type BookingStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64, endingAfter time.Time) ([]model.Booking, error)
	CountOverlapping(ctx context.Context, slotID uint64, start, end time.Time, excludeID uint64) (int, error)
	CountOverlappingForUser(ctx context.Context, userID uint64, start, end time.Time) (int, error)
	CheckIn(ctx context.Context, id uint64, at time.Time) (bool, error)
	Cancel(ctx context.Context, id uint64) (bool, error)
	MarkNoShow(ctx context.Context, id uint64) (bool, error)
	Complete(ctx context.Context, id uint64) (bool, error)
	SetEnd(ctx context.Context, id uint64, newEnd time.Time) (bool, error)
	Reassign(ctx context.Context, id, newUserID uint64) (bool, error)
	ListReleaseCandidates(ctx context.Context, cutoff time.Time) ([]model.Booking, error)
	ListCompletionCandidates(ctx context.Context, now time.Time) ([]model.Booking, error)
	ExistsForPatternDate(ctx context.Context, patternID uint64, date time.Time) (bool, error)
	ListFutureConfirmedByPattern(ctx context.Context, patternID uint64, after time.Time) ([]model.Booking, error)
}

// SlotStore reads the slot directory. GetForUpdate locks the slot row
// for the duration of the surrounding transaction, serializing all
// conflicting booking writes on that slot.
type SlotStore interface {
	GetByID(ctx context.Context, id uint64) (model.Slot, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Slot, error)
}

// LotStore reads lot records for policy values.
type LotStore interface {
	GetByID(ctx context.Context, id uint64) (model.Lot, error)
}

// PatternStore persists recurring patterns.
type PatternStore interface {
	Create(ctx context.Context, p *model.RecurringPattern) error
	GetByID(ctx context.Context, id uint64) (model.RecurringPattern, error)
	ListActive(ctx context.Context) ([]model.RecurringPattern, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.RecurringPattern, error)
	SetLastExpanded(ctx context.Context, id uint64, date time.Time) error
	Deactivate(ctx context.Context, id uint64) (bool, error)
}

// WaitlistStore persists waitlist entries.
type WaitlistStore interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	GetByID(ctx context.Context, id uint64) (model.WaitlistEntry, error)
	ListPendingByLot(ctx context.Context, lotID uint64) ([]model.WaitlistEntry, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error)
	Fulfill(ctx context.Context, id, bookingID uint64) (bool, error)
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SwapStore persists swap requests.
type SwapStore interface {
	Create(ctx context.Context, s *model.SwapRequest) error
	GetByID(ctx context.Context, id uint64) (model.SwapRequest, error)
	ListForBookingOwner(ctx context.Context, ownerID uint64) ([]model.SwapRequest, error)
	ListByRequester(ctx context.Context, requesterID uint64) ([]model.SwapRequest, error)
	Close(ctx context.Context, id uint64, status string) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers engine events to the notification collaborator.
// Implementations must be fire-and-forget: they may log failures but
// never surface them, so a broker outage cannot fail a committed
// booking mutation.
type Notifier interface {
	Notify(ctx context.Context, ev queue.Event)
}

// NopNotifier discards events. Used when no broker is configured.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, queue.Event) {}

// SlotFreedListener is told about every slot-freeing transition
// (cancel, no-show) so freed capacity can be offered to queued demand.
type SlotFreedListener interface {
	SlotFreed(ctx context.Context, freed model.Booking)
}
