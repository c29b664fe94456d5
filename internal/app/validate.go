package app

import (
	"fmt"
	"time"

	"owner_stay/internal/domain"
)

// Validate checks a proposed owner stay against the booking rules, current
// availability and the owner's allowance. It is pure: identical inputs and an
// identical now produce an identical result.
//
// Every applicable rule is evaluated; nothing short-circuits, so a range that
// is both peak-blocked and over allowance reports both violations. Booking
// ranges are half-open [checkIn, checkOut); peak periods are closed
// [start, end], and the closed convention wins at a peak boundary: a stay
// whose last night lands on peakEnd is blocked even though checkout is the
// day after.
func Validate(
	now time.Time,
	checkIn, checkOut time.Time,
	rules domain.OwnerBookingRules,
	avail domain.Availability,
	allowance domain.OwnerBookingAllowance,
) domain.ValidationResult {
	checkIn = domain.Day(checkIn)
	checkOut = domain.Day(checkOut)

	remaining := DaysRemaining(allowance)
	res := domain.ValidationResult{DaysRemaining: remaining}

	ordered := checkOut.After(checkIn)
	if !ordered {
		res.Errors = append(res.Errors, "check-out date must be after check-in date")
	}

	var nights int
	if ordered {
		nights = domain.NightsBetween(checkIn, checkOut)
		res.NightsRequested = nights

		if nights < rules.MinNights {
			res.Errors = append(res.Errors,
				fmt.Sprintf("stay is %d night(s); minimum stay is %d nights", nights, rules.MinNights))
		}
		if nights > rules.MaxNights {
			res.Errors = append(res.Errors,
				fmt.Sprintf("stay is %d nights; maximum stay is %d nights", nights, rules.MaxNights))
		}
	}

	// Advance notice is checked against the wall clock, so a result that was
	// valid earlier in a session can legitimately fail at commit time.
	if checkIn.Sub(now) < time.Duration(rules.AdvanceBookingHours)*time.Hour {
		res.Errors = append(res.Errors,
			fmt.Sprintf("bookings require at least %d hours advance notice", rules.AdvanceBookingHours))
	}

	// Conflicts: collect every occupied day in [checkIn, checkOut), not just
	// the first, so the user sees the full picture at once.
	peaks := map[string]domain.PeakPeriod{}
	domain.EachDay(checkIn, checkOut, func(day time.Time) {
		if _, booked := avail.BookedOn(day); booked {
			res.ConflictingDates = append(res.ConflictingDates, day)
		}
		if rules.PeakPeriodsBlocked {
			if p, hit := avail.PeakOn(day); hit {
				peaks[p.ID] = p
			}
		}
	})
	if n := len(res.ConflictingDates); n > 0 {
		res.Errors = append(res.Errors,
			fmt.Sprintf("%d day(s) in the requested range are already booked", n))
	}
	for _, p := range avail.PeakPeriods {
		if hit, ok := peaks[p.ID]; ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("dates fall within the %s peak period (%s to %s); owner bookings are blocked",
					hit.Name, domain.DayString(hit.StartDate), domain.DayString(hit.EndDate)))
		}
	}

	if ordered {
		if nights > remaining {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%d nights requested but only %d allowance days remaining", nights, remaining))
		}
		if left := remaining - nights; left >= 0 && left < 7 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("only %d allowance days will remain after this stay", left))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// CanCancel applies the cancellation window against the booking's actual
// check-in date, not the time the booking was made.
func CanCancel(now time.Time, checkIn time.Time, rules domain.OwnerBookingRules) bool {
	return domain.Day(checkIn).Sub(now) >= time.Duration(rules.CancellationHours)*time.Hour
}
