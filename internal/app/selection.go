package app

import (
	"context"
	"sync"
	"time"

	"owner_stay/internal/domain"
)

// Selection is the transient two-click range pick. Zero times mean "not
// chosen yet"; End is only ever set strictly after Start.
type Selection struct {
	Start time.Time
	End   time.Time
}

func (s Selection) HasStart() bool { return !s.Start.IsZero() }
func (s Selection) HasEnd() bool   { return !s.End.IsZero() }
func (s Selection) Complete() bool { return s.HasStart() && s.HasEnd() }

// ClickOutcome tells the caller what a click meant.
type ClickOutcome struct {
	// ProposeCancelID is set when an owner-booked day was clicked: the click
	// proposes cancelling that booking (by id, never by date) instead of
	// changing the selection.
	ProposeCancelID string

	// Validation is set when the click completed a range.
	Validation *domain.ValidationResult
}

// Session is the interactive calendar controller for one owner/cabin view.
// It owns the selection state machine, gates the confirm action on the last
// validation run, and keeps create/cancel single-flight.
type Session struct {
	svc     *CalendarService
	booking *BookingService

	ownerID string
	cabinID string
	from    time.Time
	to      time.Time

	mu      sync.Mutex
	snap    domain.Snapshot
	loaded  bool
	sel     Selection
	lastVal *domain.ValidationResult
	busy    bool

	now func() time.Time
}

func NewSession(svc *CalendarService, booking *BookingService, ownerID, cabinID string, from, to time.Time) *Session {
	return &Session{
		svc:     svc,
		booking: booking,
		ownerID: ownerID,
		cabinID: cabinID,
		from:    domain.Day(from),
		to:      domain.Day(to),
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, for tests that freeze time.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Load fetches (or re-fetches) the snapshot this session renders from.
// The current selection survives a reload so a failed commit can be retried
// without re-picking dates.
func (s *Session) Load(ctx context.Context) error {
	snap, err := s.svc.Snapshot(ctx, s.ownerID, s.cabinID, s.from, s.to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Busy reports whether a create/cancel call is in flight; the confirm action
// must be disabled while it is.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Selection returns the current pick.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// CanConfirm is true only when the last validation run for the current
// selection passed and no mutation is in flight. Committing still re-validates.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && s.sel.Complete() && s.lastVal != nil && s.lastVal.Valid
}

// DayStates renders the calendar under the current selection.
func (s *Session) DayStates() []domain.DayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeriveDayStates(s.snap, s.now(), s.sel)
}

// Click advances the two-click range picker:
//   - no start yet: an available day becomes the start
//   - start but no end: a later day becomes the end and triggers validation;
//     a day at or before the start restarts the pick there
//   - both chosen: any click discards the range and starts over from that day
//
// Clicks on past, guest-booked and peak-blocked days are ignored; a click on
// an owner-booked day proposes cancellation of that booking instead.
func (s *Session) Click(day time.Time) ClickOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	day = domain.Day(day)
	states := DeriveDayStates(s.snap, s.now(), s.sel)
	var st domain.DayState
	for _, d := range states {
		if d.Date.Equal(day) {
			st = d
			break
		}
	}

	switch st.Kind {
	case domain.DayOwnerBooked:
		return ClickOutcome{ProposeCancelID: st.BookingID}
	case domain.DayPast, domain.DayGuestBooked, domain.DayPeakBlocked, "":
		return ClickOutcome{}
	}

	switch {
	case !s.sel.HasStart():
		s.sel = Selection{Start: day}
	case !s.sel.HasEnd() && day.After(s.sel.Start):
		s.sel.End = day
		v := Validate(s.now(), s.sel.Start, s.sel.End, s.svc.rules, s.snap.Avail, s.snap.Allowance)
		s.lastVal = &v
		return ClickOutcome{Validation: &v}
	case !s.sel.HasEnd():
		// clicked at or before the start: restart the pick
		s.sel = Selection{Start: day}
	default:
		s.sel = Selection{Start: day}
		s.lastVal = nil
	}
	return ClickOutcome{}
}

// ClearSelection discards the pick and its validation state.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = Selection{}
	s.lastVal = nil
}

// Confirm commits the selected range. Validation runs again with a fresh
// clock immediately before the RMS call: advance notice, allowance and remote
// conflicts can all have changed since the range was picked. On success the
// snapshot is re-fetched from the RMS and the selection cleared; on any
// failure the selection is preserved for retry.
func (s *Session) Confirm(ctx context.Context, guests int, specialRequests string) (domain.RMSBooking, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.RMSBooking{}, domain.ErrBusy
	}
	if !s.sel.Complete() {
		s.mu.Unlock()
		return domain.RMSBooking{}, ErrNoSelection
	}
	s.busy = true
	sel := s.sel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	out, err := s.booking.Create(ctx, domain.CreateBookingRequest{
		OwnerID:         s.ownerID,
		CabinID:         s.cabinID,
		CheckInDate:     sel.Start,
		CheckOutDate:    sel.End,
		Guests:          guests,
		SpecialRequests: specialRequests,
	}, s.from, s.to)

	s.mu.Lock()
	defer s.mu.Unlock()
	if out.Snapshot != nil {
		// fresh state from the mandatory post-mutation re-fetch (also
		// arrives on conflict, where the stale selection must re-render)
		s.snap = *out.Snapshot
	}
	if err != nil {
		return domain.RMSBooking{}, err
	}
	s.sel = Selection{}
	s.lastVal = nil
	return out.Booking, nil
}

// CancelBooking cancels one of the owner's bookings by id, re-checking the
// cancellation window against the booking's check-in date first.
func (s *Session) CancelBooking(ctx context.Context, bookingID, reason string) (domain.CancelBookingResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.CancelBookingResult{}, domain.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	out, err := s.booking.Cancel(ctx, domain.CancelBookingRequest{
		BookingID: bookingID,
		OwnerID:   s.ownerID,
		Reason:    reason,
	}, s.cabinID, s.from, s.to)

	s.mu.Lock()
	defer s.mu.Unlock()
	if out.Snapshot != nil {
		s.snap = *out.Snapshot
	}
	return out.Result, err
}
