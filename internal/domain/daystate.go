package domain

import "time"

// DayStateKind is the render state of one calendar day. Exactly one kind
// applies per day; precedence is resolved by the calendar service, so
// contradictory combinations (a day both past and selected) cannot occur.
type DayStateKind string

const (
	DayPast          DayStateKind = "past"
	DayGuestBooked   DayStateKind = "guest_booked"
	DayOwnerBooked   DayStateKind = "owner_booked"
	DayPeakBlocked   DayStateKind = "peak_blocked"
	DaySelectedStart DayStateKind = "selected_start"
	DaySelectedEnd   DayStateKind = "selected_end"
	DayInRange       DayStateKind = "in_range"
	DayAvailable     DayStateKind = "available"
)

// Selectable reports whether clicking the day can start a new range.
// Owner-booked days are clickable too, but only to initiate cancellation.
func (k DayStateKind) Selectable() bool {
	return k == DayAvailable || k == DaySelectedStart || k == DaySelectedEnd || k == DayInRange
}

type DayState struct {
	Date time.Time
	Kind DayStateKind

	// BookingID is set for guest_booked and owner_booked days.
	BookingID string
	// PeakID is set for peak_blocked days.
	PeakID string
}
