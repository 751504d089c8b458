package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// Actor identifies who is performing a ledger operation. Identity is
// resolved by the HTTP layer and passed in explicitly; the ledger
// never reads it from ambient state.
type Actor struct {
	UserID uint64
	Role   string
}

// IsStaff reports whether the actor carries the STAFF role.
func (a Actor) IsStaff() bool { return a.Role == model.RoleStaff }

// ChargeInitiator starts a mobile-money charge and returns the
// external reference to poll. Satisfied by the payment gateway
// client.
type ChargeInitiator interface {
	InitiateCharge(ctx context.Context, phone string, amountCents uint32) (string, error)
}

// Notifier receives after-the-fact booking outcomes. Failures to
// notify never roll anything back; implementations log and move on.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b model.Booking)
	BookingCancelled(ctx context.Context, b model.Booking, reason string)
}

// Ledger serializes competing seat mutations for a trip. All
// validate-then-mutate sequences run inside one transaction that
// opens with an exclusive row lock on the trip (trip first, then the
// booking, always in that order).
type Ledger struct {
	DB       *sql.DB
	Trips    *repository.TripRepo
	Bookings *repository.BookingRepo
	Routes   *repository.RouteRepo
	Payments *repository.PaymentRepo
	Gateway  ChargeInitiator
	Events   Notifier // optional
}

// New constructs a Ledger. Gateway and Events may be nil when the
// deployment has no mobile-money or notification wiring.
func New(db *sql.DB, trips *repository.TripRepo, bookings *repository.BookingRepo,
	routes *repository.RouteRepo, payments *repository.PaymentRepo,
	gateway ChargeInitiator, events Notifier) *Ledger {
	if db == nil || trips == nil || bookings == nil || routes == nil || payments == nil {
		panic("nil dependency passed to ledger.New")
	}
	return &Ledger{DB: db, Trips: trips, Bookings: bookings, Routes: routes,
		Payments: payments, Gateway: gateway, Events: events}
}

// bookingWindowDays is how far ahead bookings open. The scheduled
// generator targets the same horizon, so every bookable trip exists.
const bookingWindowDays = 2

// CreateInput carries everything needed to create a booking.
type CreateInput struct {
	TripID        uint64
	CustomerID    uint64
	Phone         string // payer MSISDN, required for mobile money
	PaymentMethod string // model.MethodCash or model.MethodMobileMoney
	Actor         Actor
}

// CreateBooking books one seat on a trip.
//
// Cash and staff-initiated bookings confirm immediately: the seat
// number is assigned and available_seats decremented inside the
// locked transaction. Mobile-money bookings initiate a charge and
// stay PENDING without reserving a seat; inventory is deliberately
// not held hostage to a payment that may never complete, accepting a
// narrow oversell race on the last seat that ConfirmPayment resolves.
func (l *Ledger) CreateBooking(ctx context.Context, in CreateInput) (*model.Booking, error) {
	immediate := in.Actor.IsStaff() || in.PaymentMethod == model.MethodCash
	if !immediate && in.Phone == "" {
		return nil, ErrMissingPhone
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	trip, err := l.Trips.GetForUpdateTx(ctx, tx, in.TripID)
	if err != nil {
		return nil, err
	}
	if err := validateTripDate(trip.TripDate, time.Now()); err != nil {
		return nil, err
	}
	if trip.AvailableSeats == 0 {
		return nil, ErrSoldOut
	}

	route, err := l.Routes.GetByID(ctx, trip.RouteID)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		TripID:        trip.ID,
		CustomerID:    in.CustomerID,
		Seats:         1,
		PriceCents:    route.PriceCents,
		PaymentMethod: in.PaymentMethod,
	}

	if immediate {
		seat, err := l.Bookings.NextSeatTx(ctx, tx, trip.ID)
		if err != nil {
			return nil, err
		}
		b.SeatNumber = &seat
		b.PaymentStatus = model.PaymentPaid
		b.BookingStatus = model.BookingConfirmed
		if err := l.Bookings.CreateTx(ctx, tx, b); err != nil {
			return nil, err
		}
		if err := l.Trips.SetSeatsTx(ctx, tx, trip.ID, trip.AvailableSeats-1); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		l.notifyConfirmed(ctx, *b)
		return b, nil
	}

	// Mobile money: the charge is initiated while the trip lock is
	// held so the seats-available validation stays current through
	// booking creation.
	ref, err := l.Gateway.InitiateCharge(ctx, in.Phone, route.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}
	b.PaymentRef = &ref
	b.PaymentStatus = model.PaymentPending
	b.BookingStatus = model.BookingPending
	if err := l.Bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	ptx := &model.PaymentTransaction{
		ExternalRef: ref,
		Phone:       in.Phone,
		AmountCents: route.PriceCents,
		Status:      model.TxPending,
		BookingID:   &b.ID,
	}
	if err := l.Payments.CreateTx(ctx, tx, ptx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// ConfirmPayment drives a booking to CONFIRMED/PAID after the gateway
// reports the charge succeeded. Invoked only by the reconciliation
// poller. The operation is idempotent: once the payment transaction
// is SUCCESS, repeat calls are no-ops, which is what guarantees
// exactly-once seat confirmation across overlapping poll cycles.
//
// A pending booking holds no seat, so the seat may be gone by the
// time the payment lands; in that case the booking is cancelled with
// a "sold out during payment" reason and flagged for a manual refund
// rather than overselling.
func (l *Ledger) ConfirmPayment(ctx context.Context, ref string) error {
	ptx, err := l.Payments.GetByRef(ctx, ref)
	if err != nil {
		return err
	}
	if ptx.Status == model.TxSuccess {
		return nil
	}

	// Non-locking read to learn the trip; locks are then taken
	// trip-first like every other ledger operation.
	peek, err := l.Bookings.GetByPaymentRef(ctx, ref)
	if err != nil {
		return err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	trip, err := l.Trips.GetForUpdateTx(ctx, tx, peek.TripID)
	if err != nil {
		return err
	}
	b, err := l.Bookings.GetForUpdateTx(ctx, tx, peek.ID)
	if err != nil {
		return err
	}

	if b.BookingStatus != model.BookingPending {
		// Expired or otherwise closed before the payment landed.
		// Record the money as received so the case surfaces for
		// manual handling, but leave the booking alone.
		msg := fmt.Sprintf("booking already %s before confirmation", b.BookingStatus)
		if err := l.Payments.SetStatusTx(ctx, tx, ref, model.TxSuccess, msg); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		log.Printf("ledger: payment %s landed on closed booking %d (%s)", ref, b.ID, b.BookingStatus)
		return nil
	}

	if trip.AvailableSeats == 0 {
		// Payment succeeded but a faster booking took the last seat.
		// Business exception: cancel and flag for a manual refund.
		const reason = "sold out during payment"
		if err := l.Bookings.CancelTx(ctx, tx, b.ID, model.PaymentRefunded, nil, reason); err != nil {
			return err
		}
		if err := l.Payments.SetStatusTx(ctx, tx, ref, model.TxSuccess, "refund required: "+reason); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		log.Printf("ledger: booking %d cancelled, %s (payment %s needs refund)", b.ID, reason, ref)
		l.notifyCancelled(ctx, b, reason)
		return nil
	}

	seat, err := l.Bookings.NextSeatTx(ctx, tx, trip.ID)
	if err != nil {
		return err
	}
	if err := l.Bookings.ConfirmTx(ctx, tx, b.ID, seat); err != nil {
		return err
	}
	if err := l.Trips.SetSeatsTx(ctx, tx, trip.ID, trip.AvailableSeats-1); err != nil {
		return err
	}
	if err := l.Payments.SetStatusTx(ctx, tx, ref, model.TxSuccess, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	b.SeatNumber = &seat
	b.BookingStatus = model.BookingConfirmed
	b.PaymentStatus = model.PaymentPaid
	l.notifyConfirmed(ctx, b)
	return nil
}

// FailPayment closes a pending booking whose charge the gateway
// reported as failed or cancelled. No seat was held, so no seat is
// released. Idempotent in the same way as ConfirmPayment.
func (l *Ledger) FailPayment(ctx context.Context, ref, reason string) error {
	ptx, err := l.Payments.GetByRef(ctx, ref)
	if err != nil {
		return err
	}
	if ptx.Status != model.TxPending {
		return nil
	}
	peek, err := l.Bookings.GetByPaymentRef(ctx, ref)
	if err != nil {
		return err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := l.Bookings.GetForUpdateTx(ctx, tx, peek.ID)
	if err != nil {
		return err
	}
	if b.BookingStatus != model.BookingPending {
		committed = true
		return tx.Commit()
	}
	if err := l.Bookings.CancelTx(ctx, tx, b.ID, model.PaymentFailed, nil, reason); err != nil {
		return err
	}
	if err := l.Payments.SetStatusTx(ctx, tx, ref, model.TxFailed, reason); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	l.notifyCancelled(ctx, b, reason)
	return nil
}

// ExpireStale cancels bookings still PENDING/PENDING created before
// the cutoff, marking them CANCELLED/EXPIRED. Each booking is closed
// in its own transaction with a fresh status check, so a concurrent
// confirmation that already won is left untouched.
func (l *Ledger) ExpireStale(ctx context.Context, createdBefore time.Time) (int, error) {
	ids, err := l.Bookings.ListStalePending(ctx, createdBefore)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		done, err := l.expireOne(ctx, id)
		if err != nil {
			log.Printf("ledger: expiring booking %d failed: %v", id, err)
			continue
		}
		if done {
			expired++
		}
	}
	return expired, nil
}

// expireOne reports whether the booking was actually transitioned;
// a booking that closed between listing and locking is a no-op.
func (l *Ledger) expireOne(ctx context.Context, id uint64) (bool, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := l.Bookings.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if b.BookingStatus != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		committed = true
		return false, tx.Commit()
	}
	if err := l.Bookings.CancelTx(ctx, tx, id, model.PaymentExpired, nil, "payment expired"); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	l.notifyCancelled(ctx, b, "payment expired")
	return true, nil
}

// Cancel cancels a confirmed booking on behalf of its owner or a
// staff member, releasing the seat back to the trip.
func (l *Ledger) Cancel(ctx context.Context, bookingID uint64, actor Actor, reason string) (*model.Booking, error) {
	peek, err := l.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	trip, err := l.Trips.GetForUpdateTx(ctx, tx, peek.TripID)
	if err != nil {
		return nil, err
	}
	b, err := l.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.CustomerID != actor.UserID && !actor.IsStaff() {
		return nil, ErrNotOwner
	}
	switch b.BookingStatus {
	case model.BookingCancelled:
		return nil, ErrAlreadyCancelled
	case model.BookingConfirmed:
		// cancellable
	default:
		return nil, ErrNotConfirmed
	}
	if err := validateTripDate(trip.TripDate, time.Now()); err != nil {
		if errors.Is(err, ErrPastTrip) {
			return nil, ErrPastTrip
		}
		// A confirmed booking can exist only inside the window, but
		// window drift is no reason to refuse a cancellation.
	}

	by := actor.UserID
	if err := l.Bookings.CancelTx(ctx, tx, b.ID, model.PaymentRefunded, &by, reason); err != nil {
		return nil, err
	}
	if err := l.Trips.SetSeatsTx(ctx, tx, trip.ID, trip.AvailableSeats+1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	now := time.Now().UTC()
	b.BookingStatus = model.BookingCancelled
	b.PaymentStatus = model.PaymentRefunded
	b.CancelledBy = &by
	b.CancelReason = &reason
	b.CancelledAt = &now
	l.notifyCancelled(ctx, b, reason)
	return &b, nil
}

// validateTripDate rejects trips in the past and trips further out
// than the booking window. Dates compare as calendar days in UTC.
func validateTripDate(tripDate, now time.Time) error {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	trip, today := day(tripDate), day(now)
	if trip.Before(today) {
		return ErrPastTrip
	}
	if trip.After(today.AddDate(0, 0, bookingWindowDays)) {
		return ErrBookingWindow
	}
	return nil
}

func (l *Ledger) notifyConfirmed(ctx context.Context, b model.Booking) {
	if l.Events == nil {
		return
	}
	l.Events.BookingConfirmed(ctx, b)
}

func (l *Ledger) notifyCancelled(ctx context.Context, b model.Booking, reason string) {
	if l.Events == nil {
		return
	}
	l.Events.BookingCancelled(ctx, b, reason)
}
