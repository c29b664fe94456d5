package domain

import (
	"context"
	"time"
)

// RMSClient is the gateway to the reservation management system, the sole
// source of truth for bookings, availability and allowances. Create/cancel
// are fire-once: callers confirm via the response before touching any local
// view, and treat ambiguous failures as unknown-outcome.
type RMSClient interface {
	GetAvailability(ctx context.Context, cabinID string, start, end time.Time) (Availability, error)
	GetOwnerAllowance(ctx context.Context, ownerID, cabinID string) (OwnerBookingAllowance, error)
	CreateOwnerBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResult, error)
	CancelOwnerBooking(ctx context.Context, req CancelBookingRequest) (CancelBookingResult, error)

	// ReadOnly reports whether owner mutations are disabled for lack of
	// configuration. Availability reads may still work.
	ReadOnly() bool
}

type CreateBookingRequest struct {
	OwnerID         string
	CabinID         string
	CheckInDate     time.Time
	CheckOutDate    time.Time
	Guests          int
	SpecialRequests string
}

type CreateBookingResult struct {
	Success          bool
	Booking          *RMSBooking
	Error            string
	ValidationErrors []string
}

type CancelBookingRequest struct {
	BookingID string
	OwnerID   string
	Reason    string
}

type CancelBookingResult struct {
	Success      bool
	Booking      *RMSBooking
	DaysReturned int
	Error        string
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// LedgerEntry is one audited owner action: a create/cancel round-trip outcome
// or an applied allowance reset.
type LedgerEntry struct {
	ID        string
	OwnerID   string
	CabinID   string
	Action    string // create|cancel|reset
	BookingID string
	CheckIn   *time.Time
	CheckOut  *time.Time
	Nights    int
	Outcome   string // success|conflict|error
	Detail    string
	CreatedAt time.Time
}

const (
	LedgerCreate = "create"
	LedgerCancel = "cancel"
	LedgerReset  = "reset"

	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// StayLedger is the durable store that owns persistence around the core:
// audit rows for every mutation outcome and the application of allowance
// resets the tracker decides.
type StayLedger interface {
	Record(ctx context.Context, e LedgerEntry) error
	ApplyReset(ctx context.Context, ownerID, cabinID string, resetOn time.Time) error
	LastReset(ctx context.Context, ownerID, cabinID string) (time.Time, bool, error)
	ListEntries(ctx context.Context, ownerID, cabinID string, limit int) ([]LedgerEntry, error)
}
