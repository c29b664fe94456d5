package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"owner_stay/internal/domain"
)

// Pure allowance math. Nothing here touches a clock, the network or storage;
// callers supply now so tests can freeze it. Zeroing DaysUsed when a reset is
// due belongs to the stay ledger, not to these functions.

// DaysRemaining returns the unused portion of the annual quota.
func DaysRemaining(a domain.OwnerBookingAllowance) int {
	return a.DaysLimit - a.DaysUsed
}

// Normalize recomputes the derived DaysRemaining field so the invariant
// DaysUsed + DaysRemaining == DaysLimit holds regardless of what the RMS sent.
func Normalize(a domain.OwnerBookingAllowance) domain.OwnerBookingAllowance {
	a.DaysRemaining = a.DaysLimit - a.DaysUsed
	return a
}

// NextResetDate returns the next occurrence of the "MM-DD" anchor strictly
// after now: this year's anchor if still ahead, otherwise next year's.
func NextResetDate(anchor string, now time.Time) (time.Time, error) {
	m, d, err := parseAnchor(anchor)
	if err != nil {
		return time.Time{}, err
	}
	this := time.Date(now.UTC().Year(), m, d, 0, 0, 0, 0, time.UTC)
	if this.After(now) {
		return this, nil
	}
	return this.AddDate(1, 0, 0), nil
}

// LastResetDate returns the most recent occurrence of the anchor at or before
// now: this year's anchor if it has already occurred, otherwise last year's.
func LastResetDate(anchor string, now time.Time) (time.Time, error) {
	m, d, err := parseAnchor(anchor)
	if err != nil {
		return time.Time{}, err
	}
	this := time.Date(now.UTC().Year(), m, d, 0, 0, 0, 0, time.UTC)
	if this.After(now) {
		return this.AddDate(-1, 0, 0), nil
	}
	return this, nil
}

// ShouldReset reports whether an anchor anniversary has passed since the
// stored last reset. The decision is pure; applying it is the ledger's job.
func ShouldReset(storedLastReset time.Time, anchor string, now time.Time) (bool, error) {
	last, err := LastResetDate(anchor, now)
	if err != nil {
		return false, err
	}
	return last.After(storedLastReset), nil
}

// ApplyReset returns the allowance as it stands after an annual reset: usage
// zeroed, reset boundaries moved to the current anniversary window.
func ApplyReset(a domain.OwnerBookingAllowance, anchor string, now time.Time) (domain.OwnerBookingAllowance, error) {
	last, err := LastResetDate(anchor, now)
	if err != nil {
		return a, err
	}
	next, err := NextResetDate(anchor, now)
	if err != nil {
		return a, err
	}
	a.DaysUsed = 0
	a.Year = last.Year()
	a.LastResetDate = last
	a.NextResetDate = next
	return Normalize(a), nil
}

func parseAnchor(anchor string) (time.Month, int, error) {
	parts := strings.SplitN(anchor, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid reset anchor %q: want MM-DD", anchor)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("invalid reset anchor month in %q", anchor)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, fmt.Errorf("invalid reset anchor day in %q", anchor)
	}
	return time.Month(m), d, nil
}
