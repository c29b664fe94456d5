package rms

import (
	"owner_stay/internal/domain"
)

// Wire shapes for the RMS JSON surface. Dates are always YYYY-MM-DD strings,
// never timestamps; conversion to UTC-midnight time.Time happens here so the
// rest of the code only sees calendar days.

type availabilityDTO struct {
	BookedDates []bookedDateDTO `json:"bookedDates"`
	PeakPeriods []peakPeriodDTO `json:"peakPeriods"`
}

type bookedDateDTO struct {
	Date        string  `json:"date"`
	BookingType string  `json:"bookingType"`
	BookingID   string  `json:"bookingId"`
	GuestName   *string `json:"guestName,omitempty"`
	Nights      *int    `json:"nights,omitempty"`
}

type peakPeriodDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Description *string `json:"description,omitempty"`
}

type allowanceDTO struct {
	OwnerID       string       `json:"ownerId"`
	CabinID       string       `json:"cabinId"`
	Year          int          `json:"year"`
	DaysUsed      int          `json:"daysUsed"`
	DaysLimit     int          `json:"daysLimit"`
	DaysRemaining int          `json:"daysRemaining"`
	Bookings      []bookingDTO `json:"bookings"`
	LastResetDate string       `json:"lastResetDate"`
	NextResetDate string       `json:"nextResetDate"`
}

type bookingDTO struct {
	ID           string  `json:"id"`
	CabinID      string  `json:"cabinId"`
	BookingType  string  `json:"bookingType"`
	CheckInDate  string  `json:"checkInDate"`
	CheckOutDate string  `json:"checkOutDate"`
	Nights       int     `json:"nights"`
	Status       string  `json:"status"`
	GuestName    *string `json:"guestName,omitempty"`
}

type createBookingDTO struct {
	OwnerID         string `json:"ownerId"`
	CabinID         string `json:"cabinId"`
	CheckInDate     string `json:"checkInDate"`
	CheckOutDate    string `json:"checkOutDate"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type cancelBookingDTO struct {
	BookingID string `json:"bookingId"`
	OwnerID   string `json:"ownerId"`
	Reason    string `json:"reason,omitempty"`
}

// mutationEnvelope covers both create and cancel responses.
type mutationEnvelope struct {
	Success          bool        `json:"success"`
	Booking          *bookingDTO `json:"booking,omitempty"`
	DaysReturned     int         `json:"daysReturned,omitempty"`
	Error            string      `json:"error,omitempty"`
	ValidationErrors []string    `json:"validationErrors,omitempty"`
}

func (d availabilityDTO) toDomain() (domain.Availability, error) {
	out := domain.Availability{}
	for _, bd := range d.BookedDates {
		day, err := domain.ParseDate(bd.Date)
		if err != nil {
			return domain.Availability{}, err
		}
		out.BookedDates = append(out.BookedDates, domain.BookedDate{
			Date:        day,
			BookingType: domain.BookingType(bd.BookingType),
			BookingID:   bd.BookingID,
			GuestName:   bd.GuestName,
			Nights:      bd.Nights,
		})
	}
	for _, p := range d.PeakPeriods {
		start, err := domain.ParseDate(p.StartDate)
		if err != nil {
			return domain.Availability{}, err
		}
		end, err := domain.ParseDate(p.EndDate)
		if err != nil {
			return domain.Availability{}, err
		}
		out.PeakPeriods = append(out.PeakPeriods, domain.PeakPeriod{
			ID:          p.ID,
			Name:        p.Name,
			StartDate:   start,
			EndDate:     end,
			Description: p.Description,
		})
	}
	return out, nil
}

func (d allowanceDTO) toDomain() (domain.OwnerBookingAllowance, error) {
	a := domain.OwnerBookingAllowance{
		OwnerID:       d.OwnerID,
		CabinID:       d.CabinID,
		Year:          d.Year,
		DaysUsed:      d.DaysUsed,
		DaysLimit:     d.DaysLimit,
		DaysRemaining: d.DaysRemaining,
	}
	for _, b := range d.Bookings {
		bk, err := b.toDomain()
		if err != nil {
			return domain.OwnerBookingAllowance{}, err
		}
		a.Bookings = append(a.Bookings, bk)
	}
	var err error
	if d.LastResetDate != "" {
		if a.LastResetDate, err = domain.ParseDate(d.LastResetDate); err != nil {
			return domain.OwnerBookingAllowance{}, err
		}
	}
	if d.NextResetDate != "" {
		if a.NextResetDate, err = domain.ParseDate(d.NextResetDate); err != nil {
			return domain.OwnerBookingAllowance{}, err
		}
	}
	return a, nil
}

func (d bookingDTO) toDomain() (domain.RMSBooking, error) {
	in, err := domain.ParseDate(d.CheckInDate)
	if err != nil {
		return domain.RMSBooking{}, err
	}
	out, err := domain.ParseDate(d.CheckOutDate)
	if err != nil {
		return domain.RMSBooking{}, err
	}
	nights := d.Nights
	if nights == 0 {
		nights = domain.NightsBetween(in, out)
	}
	return domain.RMSBooking{
		ID:           d.ID,
		CabinID:      d.CabinID,
		BookingType:  domain.BookingType(d.BookingType),
		CheckInDate:  in,
		CheckOutDate: out,
		Nights:       nights,
		Status:       d.Status,
		GuestName:    d.GuestName,
	}, nil
}
