package domain

import "errors"

var (
	// ErrConflict: the RMS rejected a mutation because the dates were taken
	// by commit time. Recoverable by a forced re-fetch.
	ErrConflict = errors.New("dates are no longer available")

	// ErrNotConfigured: RMS endpoint or credentials missing. The owner
	// booking feature degrades to a read-only calendar.
	ErrNotConfigured = errors.New("rms is not configured")

	// ErrUnavailable: the RMS could not be reached before any request was
	// sent. Safe to retry; no local state may change.
	ErrUnavailable = errors.New("rms is unreachable")

	// ErrOutcomeUnknown: a create/cancel request may or may not have been
	// applied. The caller must re-fetch to learn the true state rather than
	// assume either outcome.
	ErrOutcomeUnknown = errors.New("rms call outcome unknown")

	ErrNotFound = errors.New("not found")

	// ErrBusy: a create or cancel call for this view is already in flight.
	ErrBusy = errors.New("a booking request is already in flight")
)

// RMSError carries a verbatim error string from the system of record.
// The message is shown to the user without transformation.
type RMSError struct {
	Status  int
	Message string
}

func (e *RMSError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rms request failed"
}
