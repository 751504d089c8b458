// Package ledger owns the booking state machine and the seat-count
// invariant: the number of CONFIRMED bookings for a trip never
// exceeds the vehicle's capacity, and available_seats always equals
// capacity minus that count after a committed operation. Every
// operation that reads seats to decide a write does so while holding
// the trip's database row lock.
package ledger

import "errors"

// Each failure below is a distinct sentinel so the HTTP layer can
// render a specific message instead of a generic error.
var (
	// ErrPastTrip is returned when booking or cancelling against a
	// trip whose date has already passed.
	ErrPastTrip = errors.New("trip is in the past")

	// ErrBookingWindow is returned when the trip date is more than
	// two days ahead; bookings open two days out.
	ErrBookingWindow = errors.New("trip is outside the booking window")

	// ErrSoldOut is returned when the trip has no available seats.
	ErrSoldOut = errors.New("trip is sold out")

	// ErrNotOwner is returned when a non-staff caller tries to cancel
	// somebody else's booking.
	ErrNotOwner = errors.New("booking belongs to another customer")

	// ErrAlreadyCancelled is returned when cancelling a booking that
	// is already in the terminal CANCELLED state.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrNotConfirmed is returned when cancelling a booking that has
	// not been confirmed yet; pending bookings resolve through the
	// payment pipeline, not through cancellation.
	ErrNotConfirmed = errors.New("booking is not confirmed")

	// ErrMissingPhone is returned when a mobile-money booking carries
	// no payer phone number.
	ErrMissingPhone = errors.New("phone number required for mobile money")

	// ErrPaymentInit is returned when the charge could not be
	// initiated with the gateway. The booking is not created.
	ErrPaymentInit = errors.New("payment initiation failed")
)
