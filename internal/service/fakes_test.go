package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// memDB is the shared backing store for the per-interface fakes. One
// mutex covers everything. fakeBookings.WithTx is a plain passthrough,
// fine for single-goroutine tests; lockingBookings wraps it with a
// transaction mutex where interleaving matters.
type memDB struct {
	mu       sync.Mutex
	bookings map[uint64]*model.Booking
	slots    map[uint64]*model.Slot
	lots     map[uint64]*model.Lot
	patterns map[uint64]*model.RecurringPattern
	waitlist map[uint64]*model.WaitlistEntry
	swaps    map[uint64]*model.SwapRequest
	nextID   uint64
	now      time.Time // used as CreatedAt for FIFO ordering
}

func newMemDB(now time.Time) *memDB {
	return &memDB{
		bookings: map[uint64]*model.Booking{},
		slots:    map[uint64]*model.Slot{},
		lots:     map[uint64]*model.Lot{},
		patterns: map[uint64]*model.RecurringPattern{},
		waitlist: map[uint64]*model.WaitlistEntry{},
		swaps:    map[uint64]*model.SwapRequest{},
		now:      now,
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) addSlot(s model.Slot) model.Slot {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == 0 {
		s.ID = db.id()
	}
	db.slots[s.ID] = &s
	return s
}

func (db *memDB) addLot(l model.Lot) model.Lot {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == 0 {
		l.ID = db.id()
	}
	db.lots[l.ID] = &l
	return l
}

func (db *memDB) addBooking(b model.Booking) model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b.ID == 0 {
		b.ID = db.id()
	}
	db.bookings[b.ID] = &b
	return b
}

func (db *memDB) booking(id uint64) model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.bookings[id]
}

// fakeBookings implements BookingStore.
type fakeBookings struct{ db *memDB }

func (f *fakeBookings) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b.ID = f.db.id()
	b.CreatedAt = f.db.now
	cp := *b
	f.db.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return *b, nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID uint64, endingAfter time.Time) ([]model.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Booking
	for _, b := range f.db.bookings {
		if b.UserID == userID && b.EndsAt.After(endingAfter) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

func (f *fakeBookings) CountOverlapping(_ context.Context, slotID uint64, start, end time.Time, excludeID uint64) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, b := range f.db.bookings {
		if b.SlotID == slotID && b.ID != excludeID && b.CountsAgainstSlot() && b.Overlaps(start, end) {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookings) CountOverlappingForUser(_ context.Context, userID uint64, start, end time.Time) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, b := range f.db.bookings {
		if b.UserID == userID && b.CountsAgainstSlot() && b.Overlaps(start, end) {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookings) CheckIn(_ context.Context, id uint64, at time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.Status != model.BookingConfirmed || b.CheckedInAt != nil {
		return false, nil
	}
	b.Status = model.BookingActive
	b.CheckedInAt = &at
	return true, nil
}

func (f *fakeBookings) Cancel(_ context.Context, id uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || !b.CountsAgainstSlot() {
		return false, nil
	}
	b.Status = model.BookingCancelled
	return true, nil
}

func (f *fakeBookings) MarkNoShow(_ context.Context, id uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.Status != model.BookingConfirmed || b.CheckedInAt != nil {
		return false, nil
	}
	b.Status = model.BookingNoShow
	return true, nil
}

func (f *fakeBookings) Complete(_ context.Context, id uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.Status != model.BookingActive {
		return false, nil
	}
	b.Status = model.BookingCompleted
	return true, nil
}

func (f *fakeBookings) SetEnd(_ context.Context, id uint64, newEnd time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || !b.CountsAgainstSlot() {
		return false, nil
	}
	b.EndsAt = newEnd
	return true, nil
}

func (f *fakeBookings) Reassign(_ context.Context, id, newUserID uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.bookings[id]
	if !ok || b.Status != model.BookingConfirmed {
		return false, nil
	}
	b.UserID = newUserID
	return true, nil
}

func (f *fakeBookings) ListReleaseCandidates(_ context.Context, cutoff time.Time) ([]model.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Booking
	for _, b := range f.db.bookings {
		if b.Status == model.BookingConfirmed && b.CheckedInAt == nil && b.StartsAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeBookings) ListCompletionCandidates(_ context.Context, now time.Time) ([]model.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Booking
	for _, b := range f.db.bookings {
		if b.Status == model.BookingActive && !b.EndsAt.After(now) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (f *fakeBookings) ExistsForPatternDate(_ context.Context, patternID uint64, date time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	next := day.Add(24 * time.Hour)
	for _, b := range f.db.bookings {
		if b.PatternID != nil && *b.PatternID == patternID &&
			!b.StartsAt.Before(day) && b.StartsAt.Before(next) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookings) ListFutureConfirmedByPattern(_ context.Context, patternID uint64, after time.Time) ([]model.Booking, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Booking
	for _, b := range f.db.bookings {
		if b.PatternID != nil && *b.PatternID == patternID &&
			b.Status == model.BookingConfirmed && b.StartsAt.After(after) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// fakeSlots implements SlotStore.
type fakeSlots struct{ db *memDB }

func (f *fakeSlots) GetByID(_ context.Context, id uint64) (model.Slot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.slots[id]
	if !ok {
		return model.Slot{}, repository.ErrNotFound
	}
	return *s, nil
}

func (f *fakeSlots) GetForUpdate(ctx context.Context, id uint64) (model.Slot, error) {
	return f.GetByID(ctx, id)
}

// fakeLots implements LotStore.
type fakeLots struct{ db *memDB }

func (f *fakeLots) GetByID(_ context.Context, id uint64) (model.Lot, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	l, ok := f.db.lots[id]
	if !ok {
		return model.Lot{}, repository.ErrNotFound
	}
	return *l, nil
}

// fakePatterns implements PatternStore.
type fakePatterns struct{ db *memDB }

func (f *fakePatterns) Create(_ context.Context, p *model.RecurringPattern) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p.ID = f.db.id()
	p.Active = true
	cp := *p
	f.db.patterns[p.ID] = &cp
	return nil
}

func (f *fakePatterns) GetByID(_ context.Context, id uint64) (model.RecurringPattern, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.patterns[id]
	if !ok {
		return model.RecurringPattern{}, repository.ErrNotFound
	}
	return *p, nil
}

func (f *fakePatterns) ListActive(_ context.Context) ([]model.RecurringPattern, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.RecurringPattern
	for _, p := range f.db.patterns {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePatterns) ListByUser(_ context.Context, userID uint64) ([]model.RecurringPattern, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.RecurringPattern
	for _, p := range f.db.patterns {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePatterns) SetLastExpanded(_ context.Context, id uint64, date time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.patterns[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.LastExpandedDate == nil || date.After(*p.LastExpandedDate) {
		d := date
		p.LastExpandedDate = &d
	}
	return nil
}

func (f *fakePatterns) Deactivate(_ context.Context, id uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.patterns[id]
	if !ok || !p.Active {
		return false, nil
	}
	p.Active = false
	return true, nil
}

// fakeWaitlist implements WaitlistStore.
type fakeWaitlist struct{ db *memDB }

func (f *fakeWaitlist) Create(_ context.Context, e *model.WaitlistEntry) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e.ID = f.db.id()
	e.Status = model.WaitlistPending
	if e.CreatedAt.IsZero() {
		e.CreatedAt = f.db.now
	}
	cp := *e
	f.db.waitlist[e.ID] = &cp
	return nil
}

func (f *fakeWaitlist) GetByID(_ context.Context, id uint64) (model.WaitlistEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.waitlist[id]
	if !ok {
		return model.WaitlistEntry{}, repository.ErrNotFound
	}
	return *e, nil
}

func (f *fakeWaitlist) ListPendingByLot(_ context.Context, lotID uint64) ([]model.WaitlistEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range f.db.waitlist {
		if e.LotID == lotID && e.Status == model.WaitlistPending {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeWaitlist) ListByUser(_ context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range f.db.waitlist {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWaitlist) Fulfill(_ context.Context, id, bookingID uint64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.waitlist[id]
	if !ok || e.Status != model.WaitlistPending {
		return false, nil
	}
	e.Status = model.WaitlistFulfilled
	e.BookingID = &bookingID
	return true, nil
}

func (f *fakeWaitlist) ExpireCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, e := range f.db.waitlist {
		if e.Status == model.WaitlistPending && e.CreatedAt.Before(cutoff) {
			e.Status = model.WaitlistExpired
			n++
		}
	}
	return n, nil
}

// fakeSwaps implements SwapStore.
type fakeSwaps struct{ db *memDB }

func (f *fakeSwaps) Create(_ context.Context, s *model.SwapRequest) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s.ID = f.db.id()
	s.Status = model.SwapPending
	cp := *s
	f.db.swaps[s.ID] = &cp
	return nil
}

func (f *fakeSwaps) GetByID(_ context.Context, id uint64) (model.SwapRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.swaps[id]
	if !ok {
		return model.SwapRequest{}, repository.ErrNotFound
	}
	return *s, nil
}

func (f *fakeSwaps) ListForBookingOwner(_ context.Context, ownerID uint64) ([]model.SwapRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.SwapRequest
	for _, s := range f.db.swaps {
		if b, ok := f.db.bookings[s.BookingID]; ok && b.UserID == ownerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSwaps) ListByRequester(_ context.Context, requesterID uint64) ([]model.SwapRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.SwapRequest
	for _, s := range f.db.swaps {
		if s.RequesterID == requesterID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSwaps) Close(_ context.Context, id uint64, status string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.swaps[id]
	if !ok || s.Status != model.SwapPending {
		return false, nil
	}
	s.Status = status
	return true, nil
}

func (f *fakeSwaps) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, s := range f.db.swaps {
		if s.Status == model.SwapPending && !now.Before(s.ExpiresAt) {
			s.Status = model.SwapExpired
			n++
		}
	}
	return n, nil
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev queue.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}
