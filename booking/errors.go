/*
errors.go - Centralized error taxonomy for the booking engine

PURPOSE:
  All error types in one place. The API layer maps these to HTTP statuses
  and stable machine-readable kinds; callers use errors.Is.

ERROR CATEGORIES:
  1. Request errors  - the caller's request is not allowed right now
  2. Conflict errors - storage-level concurrency failures (never leak to
     API callers; the engine remaps them first)
  3. Not-found / storage errors

USAGE:
    if errors.Is(err, booking.ErrSeatUnavailable) { ... }
    kind := booking.Kind(err) // "seat_unavailable"
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWindowClosed is returned when the operation is attempted outside
	// its allowed daily window.
	ErrWindowClosed = errors.New("booking window is closed")

	// ErrUnauthorized is returned when the caller is not a member of the
	// workspace (or, for admin reads, not an admin of it).
	ErrUnauthorized = errors.New("not authorized for this workspace")

	// ErrSeatUnavailable is returned when the seat is inactive,
	// non-reservable, or already held for the day (including losing a
	// booking race).
	ErrSeatUnavailable = errors.New("seat unavailable")

	// ErrDuplicateBooking is returned when the user already holds an active
	// reservation in the workspace for the day.
	ErrDuplicateBooking = errors.New("user already has an active reservation today")

	// ErrNoActiveReservation is returned by cancel when there is nothing to
	// cancel (never booked, already cancelled, or already expired).
	ErrNoActiveReservation = errors.New("no active reservation to cancel")

	// ErrNotFound is returned when a referenced seat or reservation does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrSeatConflict is the store-level signal that the per-(seat,date)
	// uniqueness constraint rejected a write. The engine remaps it before
	// it reaches a caller.
	ErrSeatConflict = errors.New("seat uniqueness conflict")

	// ErrUserConflict is the store-level signal that the
	// per-(user,workspace,date) uniqueness constraint rejected a write.
	ErrUserConflict = errors.New("user uniqueness conflict")

	// ErrStaleTransition is returned by Transition when the row is no
	// longer in the expected state (a concurrent transition won).
	ErrStaleTransition = errors.New("reservation already transitioned")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SeatUnavailableError carries the reason a seat could not be booked.
type SeatUnavailableError struct {
	SeatID SeatID
	Reason string // "inactive", "not_reservable", "taken"
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %s unavailable: %s", e.SeatID, e.Reason)
}

func (e *SeatUnavailableError) Unwrap() error { return ErrSeatUnavailable }

// =============================================================================
// CLASSIFIERS
// =============================================================================

// IsClientError reports whether the error is a request-level rejection the
// caller can act on, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrWindowClosed) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrSeatUnavailable) ||
		errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrNoActiveReservation) ||
		errors.Is(err, ErrNotFound)
}

// IsConflict reports whether the error is a storage-level concurrency
// failure. These must never reach API callers.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSeatConflict) ||
		errors.Is(err, ErrUserConflict) ||
		errors.Is(err, ErrStaleTransition)
}

// Kind returns a stable machine-readable identifier for the error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate_booking"
	case errors.Is(err, ErrNoActiveReservation):
		return "no_active_reservation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
