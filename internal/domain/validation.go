package domain

import "time"

// ValidationResult is the full outcome of checking a proposed stay.
// Violations are data, never error values; every applicable rule that fails
// contributes an entry to Errors.
type ValidationResult struct {
	Valid            bool
	Errors           []string
	Warnings         []string
	NightsRequested  int
	DaysRemaining    int
	ConflictingDates []time.Time
}
