package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"owner_stay/internal/domain"
)

// ErrNoSelection: confirm was invoked without a completed date range.
var ErrNoSelection = errors.New("no date range selected")

// ValidationFailedError carries a ValidationResult across the commit path.
// Rule violations are expected and frequent; they are data, not operational
// faults, and are never logged as such.
type ValidationFailedError struct {
	Result domain.ValidationResult
}

func (e *ValidationFailedError) Error() string {
	return strings.Join(e.Result.Errors, "; ")
}

// CancelWindowError: the booking's check-in is too close to cancel.
type CancelWindowError struct {
	Hours   int
	CheckIn time.Time
}

func (e *CancelWindowError) Error() string {
	return fmt.Sprintf("bookings can only be cancelled at least %d hours before check-in (%s)",
		e.Hours, domain.DayString(e.CheckIn))
}

// BookingService runs the commit and cancellation protocols: validate with a
// fresh clock, fire the RMS call once, and on any outcome that may have
// changed remote state re-fetch the snapshot instead of patching it locally.
type BookingService struct {
	rms    domain.RMSClient
	cal    *CalendarService
	ledger domain.StayLedger // optional
	now    func() time.Time
}

func NewBookingService(rms domain.RMSClient, cal *CalendarService, ledger domain.StayLedger) *BookingService {
	return &BookingService{rms: rms, cal: cal, ledger: ledger, now: time.Now}
}

// WithClock replaces the wall clock, for tests that freeze time.
func (b *BookingService) WithClock(now func() time.Time) *BookingService {
	b.now = now
	return b
}

// CreateOutcome is what a successful (or state-changing) create leaves
// behind. Snapshot is non-nil whenever remote state may have changed
// (success, conflict, unknown outcome); it is always a fresh read from the
// RMS, never a local patch.
type CreateOutcome struct {
	Booking    domain.RMSBooking
	Validation domain.ValidationResult // carries non-blocking warnings
	Snapshot   *domain.Snapshot
}

// CancelOutcome mirrors CreateOutcome for the cancellation path.
type CancelOutcome struct {
	Result   domain.CancelBookingResult
	Snapshot *domain.Snapshot
}

// Create books the requested range.
func (b *BookingService) Create(ctx context.Context, req domain.CreateBookingRequest, from, to time.Time) (CreateOutcome, error) {
	if b.rms.ReadOnly() {
		return CreateOutcome{}, domain.ErrNotConfigured
	}

	snap, err := b.cal.Snapshot(ctx, req.OwnerID, req.CabinID, from, to)
	if err != nil {
		return CreateOutcome{}, err
	}

	// Re-validate immediately before committing; an earlier pass in the
	// session proves nothing once the clock or remote state has moved.
	v := Validate(b.now(), req.CheckInDate, req.CheckOutDate, b.cal.rules, snap.Avail, snap.Allowance)
	if !v.Valid {
		return CreateOutcome{Validation: v}, &ValidationFailedError{Result: v}
	}

	res, err := b.rms.CreateOwnerBooking(ctx, req)
	switch {
	case errors.Is(err, domain.ErrConflict):
		// another channel took the dates between validate and commit:
		// expected race, refresh and tell the user the selection is stale
		log.Warn().Str("owner", req.OwnerID).Str("cabin", req.CabinID).Msg("booking create conflicted")
		b.record(ctx, req, "", domain.LedgerCreate, domain.OutcomeConflict, res.Error)
		fresh := b.refetch(ctx, req.OwnerID, req.CabinID, from, to)
		return CreateOutcome{Validation: v, Snapshot: fresh}, fmt.Errorf("%s: %w", staleMessage(res.Error), domain.ErrConflict)

	case errors.Is(err, domain.ErrOutcomeUnknown):
		// the request may have landed; only a re-fetch can tell
		log.Error().Err(err).Str("owner", req.OwnerID).Str("cabin", req.CabinID).Msg("booking create outcome unknown")
		b.record(ctx, req, "", domain.LedgerCreate, domain.OutcomeError, err.Error())
		fresh := b.refetch(ctx, req.OwnerID, req.CabinID, from, to)
		return CreateOutcome{Validation: v, Snapshot: fresh}, err

	case err != nil:
		// unreachable/misconfigured/unknown RMS failure: nothing was
		// mutated, cached state stays as it is
		log.Error().Err(err).Str("owner", req.OwnerID).Str("cabin", req.CabinID).Msg("booking create failed")
		return CreateOutcome{Validation: v}, err
	}

	if !res.Success {
		// server-side rules this core does not know about
		if len(res.ValidationErrors) > 0 {
			return CreateOutcome{Validation: v}, &ValidationFailedError{Result: domain.ValidationResult{
				Errors:          res.ValidationErrors,
				NightsRequested: v.NightsRequested,
				DaysRemaining:   v.DaysRemaining,
			}}
		}
		return CreateOutcome{Validation: v}, &domain.RMSError{Message: res.Error}
	}

	var booking domain.RMSBooking
	if res.Booking != nil {
		booking = *res.Booking
	}
	b.record(ctx, req, booking.ID, domain.LedgerCreate, domain.OutcomeSuccess, "")
	fresh := b.refetch(ctx, req.OwnerID, req.CabinID, from, to)
	return CreateOutcome{Booking: booking, Validation: v, Snapshot: fresh}, nil
}

// Cancel cancels one booking by id. DaysReturned in the result is user
// feedback only; the authoritative remaining-days figure comes from the
// re-fetched snapshot.
func (b *BookingService) Cancel(ctx context.Context, req domain.CancelBookingRequest, cabinID string, from, to time.Time) (CancelOutcome, error) {
	if b.rms.ReadOnly() {
		return CancelOutcome{}, domain.ErrNotConfigured
	}

	snap, err := b.cal.Snapshot(ctx, req.OwnerID, cabinID, from, to)
	if err != nil {
		return CancelOutcome{}, err
	}
	booking, ok := snap.Allowance.BookingByID(req.BookingID)
	if !ok {
		return CancelOutcome{}, fmt.Errorf("booking %s: %w", req.BookingID, domain.ErrNotFound)
	}
	if !CanCancel(b.now(), booking.CheckInDate, b.cal.rules) {
		return CancelOutcome{}, &CancelWindowError{
			Hours:   b.cal.rules.CancellationHours,
			CheckIn: booking.CheckInDate,
		}
	}

	res, err := b.rms.CancelOwnerBooking(ctx, req)
	switch {
	case errors.Is(err, domain.ErrConflict):
		log.Warn().Str("booking", req.BookingID).Msg("booking cancel conflicted")
		b.recordCancel(ctx, req, booking, cabinID, domain.OutcomeConflict, res.Error)
		fresh := b.refetch(ctx, req.OwnerID, cabinID, from, to)
		return CancelOutcome{Result: res, Snapshot: fresh}, fmt.Errorf("%s: %w", staleMessage(res.Error), domain.ErrConflict)

	case errors.Is(err, domain.ErrOutcomeUnknown):
		log.Error().Err(err).Str("booking", req.BookingID).Msg("booking cancel outcome unknown")
		b.recordCancel(ctx, req, booking, cabinID, domain.OutcomeError, err.Error())
		fresh := b.refetch(ctx, req.OwnerID, cabinID, from, to)
		return CancelOutcome{Result: res, Snapshot: fresh}, err

	case err != nil:
		log.Error().Err(err).Str("booking", req.BookingID).Msg("booking cancel failed")
		return CancelOutcome{Result: res}, err
	}

	if !res.Success {
		return CancelOutcome{Result: res}, &domain.RMSError{Message: res.Error}
	}

	b.recordCancel(ctx, req, booking, cabinID, domain.OutcomeSuccess, "")
	fresh := b.refetch(ctx, req.OwnerID, cabinID, from, to)
	return CancelOutcome{Result: res, Snapshot: fresh}, nil
}

// refetch invalidates the cached snapshot and reads the post-mutation state
// back from the RMS. Best effort: a failed re-read leaves the cache empty so
// the next load goes remote.
func (b *BookingService) refetch(ctx context.Context, ownerID, cabinID string, from, to time.Time) *domain.Snapshot {
	b.cal.Invalidate(ctx, ownerID, cabinID)
	snap, err := b.cal.Snapshot(ctx, ownerID, cabinID, from, to)
	if err != nil {
		log.Error().Err(err).Str("owner", ownerID).Str("cabin", cabinID).Msg("post-mutation refetch failed")
		return nil
	}
	return &snap
}

func (b *BookingService) record(ctx context.Context, req domain.CreateBookingRequest, bookingID, action, outcome, detail string) {
	if b.ledger == nil {
		return
	}
	in, out := domain.Day(req.CheckInDate), domain.Day(req.CheckOutDate)
	e := domain.LedgerEntry{
		ID:        uuid.NewString(),
		OwnerID:   req.OwnerID,
		CabinID:   req.CabinID,
		Action:    action,
		BookingID: bookingID,
		CheckIn:   &in,
		CheckOut:  &out,
		Nights:    domain.NightsBetween(in, out),
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := b.ledger.Record(ctx, e); err != nil {
		log.Error().Err(err).Str("owner", req.OwnerID).Msg("ledger write failed")
	}
}

func (b *BookingService) recordCancel(ctx context.Context, req domain.CancelBookingRequest, booking domain.RMSBooking, cabinID, outcome, detail string) {
	if b.ledger == nil {
		return
	}
	in, out := domain.Day(booking.CheckInDate), domain.Day(booking.CheckOutDate)
	e := domain.LedgerEntry{
		ID:        uuid.NewString(),
		OwnerID:   req.OwnerID,
		CabinID:   cabinID,
		Action:    domain.LedgerCancel,
		BookingID: req.BookingID,
		CheckIn:   &in,
		CheckOut:  &out,
		Nights:    booking.Nights,
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := b.ledger.Record(ctx, e); err != nil {
		log.Error().Err(err).Str("booking", req.BookingID).Msg("ledger write failed")
	}
}

func staleMessage(remote string) string {
	if remote != "" {
		return remote
	}
	return "the selected dates are no longer available"
}
