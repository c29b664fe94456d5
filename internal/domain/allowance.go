package domain

import "time"

// OwnerBookingRules configures the validation engine. Hours are wall-clock
// hours; ResetDate is an "MM-DD" anniversary anchor.
type OwnerBookingRules struct {
	AnnualDayLimit      int
	MinNights           int
	MaxNights           int
	AdvanceBookingHours int
	CancellationHours   int
	PeakPeriodsBlocked  bool
	ResetDate           string
}

func DefaultRules() OwnerBookingRules {
	return OwnerBookingRules{
		AnnualDayLimit:      180,
		MinNights:           2,
		MaxNights:           14,
		AdvanceBookingHours: 48,
		CancellationHours:   48,
		PeakPeriodsBlocked:  true,
		ResetDate:           "01-01",
	}
}

// OwnerBookingAllowance is the annual personal-use quota for one owner/cabin.
// Invariant: DaysUsed + DaysRemaining == DaysLimit.
type OwnerBookingAllowance struct {
	OwnerID       string
	CabinID       string
	Year          int
	DaysUsed      int
	DaysLimit     int
	DaysRemaining int
	Bookings      []RMSBooking
	LastResetDate time.Time
	NextResetDate time.Time
}

// BookingByID finds a booking in the allowance's booking list.
func (a OwnerBookingAllowance) BookingByID(id string) (RMSBooking, bool) {
	for _, b := range a.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return RMSBooking{}, false
}
