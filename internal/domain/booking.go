package domain

import "time"

type BookingType string

const (
	BookingGuest BookingType = "guest"
	BookingOwner BookingType = "owner"
)

// BookedDate is one occupied calendar day on a cabin. Unique per (cabin, date).
type BookedDate struct {
	Date        time.Time
	BookingType BookingType
	BookingID   string
	GuestName   *string
	Nights      *int
}

// PeakPeriod is a blackout range during which owner bookings are blocked.
// Boundaries are inclusive on both ends.
type PeakPeriod struct {
	ID          string
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Description *string
}

// Covers reports whether day falls inside [StartDate, EndDate].
func (p PeakPeriod) Covers(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

// RMSBooking is a booking as the system of record reports it.
type RMSBooking struct {
	ID           string
	CabinID      string
	BookingType  BookingType
	CheckInDate  time.Time
	CheckOutDate time.Time
	Nights       int
	Status       string
	GuestName    *string
}

// Availability is the RMS view of a cabin over a date range.
type Availability struct {
	BookedDates []BookedDate
	PeakPeriods []PeakPeriod
}

// BookedOn returns the booked-date entry covering day, if any.
func (a Availability) BookedOn(day time.Time) (BookedDate, bool) {
	d := Day(day)
	for _, bd := range a.BookedDates {
		if Day(bd.Date).Equal(d) {
			return bd, true
		}
	}
	return BookedDate{}, false
}

// PeakOn returns the peak period covering day, if any.
func (a Availability) PeakOn(day time.Time) (PeakPeriod, bool) {
	for _, p := range a.PeakPeriods {
		if p.Covers(day) {
			return p, true
		}
	}
	return PeakPeriod{}, false
}

// Snapshot is a consistent availability+allowance read for one owner/cabin
// view. Both halves are always fetched together so validation and rendering
// see the same state.
type Snapshot struct {
	OwnerID   string
	CabinID   string
	From      time.Time // first visible day, inclusive
	To        time.Time // last visible day, inclusive
	Avail     Availability
	Allowance OwnerBookingAllowance
	ReadOnly  bool
	FetchedAt time.Time
}
