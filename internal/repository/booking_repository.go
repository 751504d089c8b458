package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/imanzi/transit-seat-booking/internal/model"
)

// BookingRepo provides data access to the `bookings` table. State
// transitions (confirm, cancel) always run inside a transaction that
// holds the booking's trip row lock; the repository only executes the
// statements, the ledger owns the ordering.
type BookingRepo struct{ DB *sql.DB }

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingCols = `id, trip_id, customer_id, seats, seat_number, price_cents,
	payment_method, payment_status, booking_status, payment_ref,
	cancelled_by, cancel_reason, cancelled_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
	var (
		seatNo    sql.NullInt64
		ref       sql.NullString
		cancBy    sql.NullInt64
		cancWhy   sql.NullString
		cancAt    sql.NullTime
	)
	err := row.Scan(&b.ID, &b.TripID, &b.CustomerID, &b.Seats, &seatNo, &b.PriceCents,
		&b.PaymentMethod, &b.PaymentStatus, &b.BookingStatus, &ref,
		&cancBy, &cancWhy, &cancAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}
	if seatNo.Valid {
		v := uint32(seatNo.Int64)
		b.SeatNumber = &v
	}
	if ref.Valid {
		b.PaymentRef = &ref.String
	}
	if cancBy.Valid {
		v := uint64(cancBy.Int64)
		b.CancelledBy = &v
	}
	if cancWhy.Valid {
		b.CancelReason = &cancWhy.String
	}
	if cancAt.Valid {
		b.CancelledAt = &cancAt.Time
	}
	return nil
}

// CreateTx inserts a booking within an existing transaction and
// populates its generated ID. The ledger calls this with the trip row
// lock already held.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var seatNo, ref any
	if b.SeatNumber != nil {
		seatNo = *b.SeatNumber
	}
	if b.PaymentRef != nil {
		ref = *b.PaymentRef
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (trip_id, customer_id, seats, seat_number, price_cents,
			payment_method, payment_status, booking_status, payment_ref)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		b.TripID, b.CustomerID, b.Seats, seatNo, b.PriceCents,
		b.PaymentMethod, b.PaymentStatus, b.BookingStatus, ref)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a booking without locking it.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	row := r.DB.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE id=? LIMIT 1", id)
	if err := scanBooking(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// GetForUpdateTx fetches a booking inside tx with an exclusive row
// lock. The ledger takes the trip lock first, then the booking lock,
// always in that order.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	var b model.Booking
	row := tx.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE id=? FOR UPDATE", id)
	if err := scanBooking(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// GetByPaymentRef fetches the booking carrying the given external
// payment reference, without locking. The ledger uses this to learn
// the trip id before taking locks in trip-then-booking order.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, ref string) (model.Booking, error) {
	var b model.Booking
	row := r.DB.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE payment_ref=? LIMIT 1", ref)
	if err := scanBooking(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// NextSeatTx returns the next seat number for a trip: one past the
// highest seat number any CONFIRMED booking holds. Freed numbers are
// never reused, so a cancellation in the middle of the manifest can
// never hand an occupied seat to a later confirmation. Callers hold
// the trip row lock.
func (r *BookingRepo) NextSeatTx(ctx context.Context, tx *sql.Tx, tripID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seat_number), 0) + 1 FROM bookings WHERE trip_id=? AND booking_status=?",
		tripID, model.BookingConfirmed).Scan(&n)
	return n, err
}

// ConfirmTx moves a booking to CONFIRMED/PAID and assigns its seat
// number.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, seatNumber uint32) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET booking_status=?, payment_status=?, seat_number=?, updated_at=NOW()
		WHERE id=?`,
		model.BookingConfirmed, model.PaymentPaid, seatNumber, id)
	return err
}

// CancelTx moves a booking to CANCELLED with the given payment status
// (FAILED, REFUNDED or EXPIRED) and records the audit fields.
// cancelledBy is nil for system-initiated cancellations (payment
// failures, expiry).
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, paymentStatus string, cancelledBy *uint64, reason string) error {
	var by any
	if cancelledBy != nil {
		by = *cancelledBy
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET booking_status=?, payment_status=?, cancelled_by=?, cancel_reason=?,
			cancelled_at=NOW(), updated_at=NOW()
		WHERE id=?`,
		model.BookingCancelled, paymentStatus, by, reason, id)
	return err
}

// PendingPayment pairs a booking with its external payment reference
// for the verification cycle.
type PendingPayment struct {
	BookingID  uint64
	PaymentRef string
}

// ListAwaitingVerification returns the bookings the verification
// cycle should poll: still PENDING on both axes, carrying a payment
// reference, and created after the given horizon. Bookings older than
// the horizon stop being polled and are left for the expiry cycle.
func (r *BookingRepo) ListAwaitingVerification(ctx context.Context, createdAfter time.Time) ([]PendingPayment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, payment_ref FROM bookings
		WHERE booking_status=? AND payment_status=? AND payment_ref IS NOT NULL AND payment_ref <> ''
		  AND created_at >= ?
		ORDER BY id`,
		model.BookingPending, model.PaymentPending, createdAfter.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingPayment
	for rows.Next() {
		var p PendingPayment
		if err := rows.Scan(&p.BookingID, &p.PaymentRef); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListStalePending returns ids of bookings still PENDING/PENDING that
// were created before the cutoff. The expiry cycle closes these out.
func (r *BookingRepo) ListStalePending(ctx context.Context, createdBefore time.Time) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM bookings
		WHERE booking_status=? AND payment_status=? AND created_at < ?
		ORDER BY id`,
		model.BookingPending, model.PaymentPending, createdBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByCustomer returns a customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE customer_id=? ORDER BY id DESC", customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
