package model

import "time"

// Booking status values.  A booking is created PENDING (mobile money)
// or directly CONFIRMED (cash / staff); CANCELLED is terminal.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Payment status values carried on a booking.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
	PaymentExpired  = "EXPIRED"
)

// Payment methods accepted at booking time.
const (
	MethodCash        = "CASH"
	MethodMobileMoney = "MOBILE_MONEY"
)

// Booking represents a row in the `bookings` table.  Every booking
// is for exactly one seat on one trip.  SeatNumber is assigned only
// when the booking is confirmed; a PENDING mobile-money booking holds
// no seat at all, by design.  PaymentRef carries the external gateway
// reference for mobile-money bookings and is empty for cash.
//
// Fields:
//  ID            – primary key identifier.
//  TripID        – trip being booked.
//  CustomerID    – user the seat is for.
//  Seats         – number of seats (always 1 in the current scope).
//  SeatNumber    – assigned seat, nil until confirmation.
//  PriceCents    – price copied from the route at booking time.
//  PaymentMethod – CASH or MOBILE_MONEY.
//  PaymentStatus – PENDING, PAID, FAILED, REFUNDED or EXPIRED.
//  BookingStatus – PENDING, CONFIRMED or CANCELLED.
//  PaymentRef    – external payment reference (nullable).
//  CancelledBy   – user id that cancelled the booking (nullable).
//  CancelReason  – free-text cancellation reason (nullable).
//  CancelledAt   – when the booking was cancelled (nullable).
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Booking struct {
	ID            uint64     // bookings.id
	TripID        uint64     // bookings.trip_id
	CustomerID    uint64     // bookings.customer_id
	Seats         uint32     // bookings.seats
	SeatNumber    *uint32    // bookings.seat_number (nullable)
	PriceCents    uint32     // bookings.price_cents
	PaymentMethod string     // bookings.payment_method
	PaymentStatus string     // bookings.payment_status
	BookingStatus string     // bookings.booking_status
	PaymentRef    *string    // bookings.payment_ref (nullable)
	CancelledBy   *uint64    // bookings.cancelled_by (nullable)
	CancelReason  *string    // bookings.cancel_reason (nullable)
	CancelledAt   *time.Time // bookings.cancelled_at (nullable)
	CreatedAt     time.Time  // bookings.created_at
	UpdatedAt     time.Time  // bookings.updated_at
}
