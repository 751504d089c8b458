// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into
// notification log entries.
package queue

// Queue names used on the broker.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking reaches
// CONFIRMED/PAID. It carries enough for downstream consumers to
// notify or log without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	TripID      uint64 `json:"trip_id"`
	CustomerID  uint64 `json:"customer_id"`
	SeatNumber  uint32 `json:"seat_number"`
	PriceCents  uint32 `json:"price_cents"`
	Method      string `json:"payment_method"`
	ConfirmedAt string `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a booking reaches
// CANCELLED, whatever drove it there (user cancel, payment failure,
// expiry, sold out during payment).
type BookingCancelledEvent struct {
	BookingID     uint64 `json:"booking_id"`
	TripID        uint64 `json:"trip_id"`
	CustomerID    uint64 `json:"customer_id"`
	PaymentStatus string `json:"payment_status"`
	Reason        string `json:"reason"`
	CancelledAt   string `json:"cancelled_at"`
}
