package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

type fakeGateway struct {
	ref    string
	err    error
	phone  string
	amount uint32
}

func (f *fakeGateway) InitiateCharge(ctx context.Context, phone string, amountCents uint32) (string, error) {
	f.phone = phone
	f.amount = amountCents
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}

type fakeNotifier struct {
	confirmed []uint64
	cancelled []string
}

func (f *fakeNotifier) BookingConfirmed(ctx context.Context, b model.Booking) {
	f.confirmed = append(f.confirmed, b.ID)
}

func (f *fakeNotifier) BookingCancelled(ctx context.Context, b model.Booking, reason string) {
	f.cancelled = append(f.cancelled, reason)
}

func newTestLedger(t *testing.T, gw ChargeInitiator, ev Notifier) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	l := New(db,
		repository.NewTripRepo(db),
		repository.NewBookingRepo(db),
		repository.NewRouteRepo(db),
		repository.NewPaymentRepo(db),
		gw, ev)
	return l, mock
}

var (
	qTripLock    = regexp.QuoteMeta("FROM trips WHERE id=? FOR UPDATE")
	qRoute       = regexp.QuoteMeta("FROM routes r WHERE r.id=?")
	qNextSeat    = regexp.QuoteMeta("SELECT COALESCE(MAX(seat_number), 0) + 1 FROM bookings WHERE trip_id=?")
	qBookingLock = regexp.QuoteMeta("FROM bookings WHERE id=? FOR UPDATE")
	qBookingPeek = regexp.QuoteMeta("FROM bookings WHERE id=? LIMIT 1")
	qByRef       = regexp.QuoteMeta("WHERE payment_ref=?")
	qPaymentGet  = regexp.QuoteMeta("FROM payment_transactions WHERE external_ref=?")
	qSetSeats    = regexp.QuoteMeta("UPDATE trips SET available_seats=?")
	qSetPayment  = regexp.QuoteMeta("UPDATE payment_transactions SET status=?")
)

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tripRow(tripDate time.Time, seats uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "trip_date", "route_id", "time_slot_id", "vehicle_id",
		"available_seats", "current_location", "status", "created_at",
	}).AddRow(1, tripDate, 2, 7, 4, seats, "ORIGIN", model.TripScheduled, time.Now())
}

func routeRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "origin", "destination", "price_cents", "duration_min",
		"turnaround_min", "is_active", "created_at", "updated_at",
	}).AddRow(2, "Kigali", "Huye", 350000, 90, nil, true, now, now)
}

func bookingRow(id uint64, bookingStatus, paymentStatus string, ref any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "trip_id", "customer_id", "seats", "seat_number", "price_cents",
		"payment_method", "payment_status", "booking_status", "payment_ref",
		"cancelled_by", "cancel_reason", "cancelled_at", "created_at", "updated_at",
	}).AddRow(id, 1, 8, 1, nil, 350000,
		model.MethodMobileMoney, paymentStatus, bookingStatus, ref,
		nil, nil, nil, now, now)
}

func paymentRow(ref, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "external_ref", "phone", "amount_cents", "status",
		"error_message", "booking_id", "created_at", "updated_at",
	}).AddRow(31, ref, "250788000001", 350000, status, nil, 21, now, now)
}

func TestCreateBookingCashAssignsNextSeat(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 5))
	mock.ExpectQuery(qRoute).WithArgs(2).WillReturnRows(routeRow())
	mock.ExpectQuery(qNextSeat).WithArgs(1, model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(1, 8, 1, 4, 350000, model.MethodCash, model.PaymentPaid, model.BookingConfirmed, nil).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(qSetSeats).WithArgs(4, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodCash,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.SeatNumber == nil || *b.SeatNumber != 4 {
		t.Fatalf("seat = %v, want 4", b.SeatNumber)
	}
	if b.BookingStatus != model.BookingConfirmed || b.PaymentStatus != model.PaymentPaid {
		t.Fatalf("status = %s/%s", b.BookingStatus, b.PaymentStatus)
	}
	if len(events.confirmed) != 1 {
		t.Fatalf("confirmed events = %d, want 1", len(events.confirmed))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateBookingNeverReusesCancelledSeatNumber(t *testing.T) {
	// Seats 1-3 were confirmed and seat 2's booking was cancelled, so
	// two confirmed bookings remain and one seat is free. The highest
	// confirmed seat number is still 3; the new booking must not get
	// a number a confirmed passenger already holds.
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 1))
	mock.ExpectQuery(qRoute).WithArgs(2).WillReturnRows(routeRow())
	mock.ExpectQuery(qNextSeat).WithArgs(1, model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(1, 8, 1, 4, 350000, model.MethodCash, model.PaymentPaid, model.BookingConfirmed, nil).
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectExec(qSetSeats).WithArgs(0, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodCash,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.SeatNumber == nil || *b.SeatNumber == 3 {
		t.Fatalf("seat = %v, reassigned a seat a confirmed booking holds", b.SeatNumber)
	}
	if *b.SeatNumber != 4 {
		t.Fatalf("seat = %d, want 4", *b.SeatNumber)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateBookingSoldOut(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 0))
	mock.ExpectRollback()

	_, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodCash,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if !errors.Is(err, ErrSoldOut) {
		t.Fatalf("err = %v, want ErrSoldOut", err)
	}
}

func TestCreateBookingRejectsOutsideWindow(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today().AddDate(0, 0, 5), 5))
	mock.ExpectRollback()

	_, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodCash,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if !errors.Is(err, ErrBookingWindow) {
		t.Fatalf("err = %v, want ErrBookingWindow", err)
	}
}

func TestCreateBookingRejectsPastTrip(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today().AddDate(0, 0, -1), 5))
	mock.ExpectRollback()

	_, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodCash,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if !errors.Is(err, ErrPastTrip) {
		t.Fatalf("err = %v, want ErrPastTrip", err)
	}
}

func TestCreateBookingMobileMoneyStaysPending(t *testing.T) {
	gw := &fakeGateway{ref: "ref-123"}
	l, mock := newTestLedger(t, gw, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 5))
	mock.ExpectQuery(qRoute).WithArgs(2).WillReturnRows(routeRow())
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(1, 8, 1, nil, 350000, model.MethodMobileMoney, model.PaymentPending, model.BookingPending, "ref-123").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec("INSERT INTO payment_transactions").
		WithArgs("ref-123", "250788000001", 350000, model.TxPending, 21).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	b, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		Phone:         "250788000001",
		PaymentMethod: model.MethodMobileMoney,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.SeatNumber != nil {
		t.Fatalf("pending booking must hold no seat, got %d", *b.SeatNumber)
	}
	if b.BookingStatus != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		t.Fatalf("status = %s/%s", b.BookingStatus, b.PaymentStatus)
	}
	if b.PaymentRef == nil || *b.PaymentRef != "ref-123" {
		t.Fatalf("payment ref = %v", b.PaymentRef)
	}
	if gw.amount != 350000 {
		t.Fatalf("charged %d, want route price", gw.amount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateBookingMissingPhone(t *testing.T) {
	l, _ := newTestLedger(t, &fakeGateway{ref: "r"}, nil)

	_, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		PaymentMethod: model.MethodMobileMoney,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if !errors.Is(err, ErrMissingPhone) {
		t.Fatalf("err = %v, want ErrMissingPhone", err)
	}
}

func TestCreateBookingGatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	l, mock := newTestLedger(t, gw, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 5))
	mock.ExpectQuery(qRoute).WithArgs(2).WillReturnRows(routeRow())
	mock.ExpectRollback()

	_, err := l.CreateBooking(context.Background(), CreateInput{
		TripID:        1,
		CustomerID:    8,
		Phone:         "250788000001",
		PaymentMethod: model.MethodMobileMoney,
		Actor:         Actor{UserID: 8, Role: model.RoleCustomer},
	})
	if !errors.Is(err, ErrPaymentInit) {
		t.Fatalf("err = %v, want ErrPaymentInit", err)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	// Payment already SUCCESS: nothing else may run.
	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxSuccess))

	if err := l.ConfirmPayment(context.Background(), "ref-123"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if len(events.confirmed) != 0 {
		t.Fatal("repeat confirmation must not emit events")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirmPaymentAssignsSeat(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxPending))
	mock.ExpectQuery(qByRef).WithArgs("ref-123").WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectQuery(qNextSeat).WithArgs(1, model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec("seat_number=").
		WithArgs(model.BookingConfirmed, model.PaymentPaid, 4, 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetSeats).WithArgs(1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetPayment).WithArgs(model.TxSuccess, nil, "ref-123").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := l.ConfirmPayment(context.Background(), "ref-123"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if len(events.confirmed) != 1 {
		t.Fatalf("confirmed events = %d, want 1", len(events.confirmed))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirmPaymentSoldOutDuringPayment(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxPending))
	mock.ExpectQuery(qByRef).WithArgs("ref-123").WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 0))
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectExec("cancelled_by=").
		WithArgs(model.BookingCancelled, model.PaymentRefunded, nil, "sold out during payment", 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetPayment).
		WithArgs(model.TxSuccess, "refund required: sold out during payment", "ref-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := l.ConfirmPayment(context.Background(), "ref-123"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if len(events.cancelled) != 1 || events.cancelled[0] != "sold out during payment" {
		t.Fatalf("cancelled events = %v", events.cancelled)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirmPaymentOnClosedBookingLeavesBookingAlone(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxPending))
	mock.ExpectQuery(qByRef).WithArgs("ref-123").WillReturnRows(bookingRow(21, model.BookingCancelled, model.PaymentExpired, "ref-123"))
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(bookingRow(21, model.BookingCancelled, model.PaymentExpired, "ref-123"))
	mock.ExpectExec(qSetPayment).
		WithArgs(model.TxSuccess, "booking already CANCELLED before confirmation", "ref-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := l.ConfirmPayment(context.Background(), "ref-123"); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFailPaymentClosesPendingBooking(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxPending))
	mock.ExpectQuery(qByRef).WithArgs("ref-123").WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectExec("cancelled_by=").
		WithArgs(model.BookingCancelled, model.PaymentFailed, nil, "payment rejected", 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetPayment).
		WithArgs(model.TxFailed, "payment rejected", "ref-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := l.FailPayment(context.Background(), "ref-123", "payment rejected"); err != nil {
		t.Fatalf("FailPayment: %v", err)
	}
	if len(events.cancelled) != 1 {
		t.Fatalf("cancelled events = %d, want 1", len(events.cancelled))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFailPaymentIdempotent(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectQuery(qPaymentGet).WithArgs("ref-123").WillReturnRows(paymentRow("ref-123", model.TxFailed))

	if err := l.FailPayment(context.Background(), "ref-123", "whatever"); err != nil {
		t.Fatalf("FailPayment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelRejectsNonOwner(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	confirmed := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{
			"id", "trip_id", "customer_id", "seats", "seat_number", "price_cents",
			"payment_method", "payment_status", "booking_status", "payment_ref",
			"cancelled_by", "cancel_reason", "cancelled_at", "created_at", "updated_at",
		}).AddRow(21, 1, 8, 1, 4, 350000,
			model.MethodCash, model.PaymentPaid, model.BookingConfirmed, nil,
			nil, nil, nil, now, now)
	}

	mock.ExpectQuery(qBookingPeek).WithArgs(21).WillReturnRows(confirmed())
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(confirmed())
	mock.ExpectRollback()

	_, err := l.Cancel(context.Background(), 21, Actor{UserID: 9, Role: model.RoleCustomer}, "mine now")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestCancelReleasesSeat(t *testing.T) {
	events := &fakeNotifier{}
	l, mock := newTestLedger(t, nil, events)

	confirmed := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{
			"id", "trip_id", "customer_id", "seats", "seat_number", "price_cents",
			"payment_method", "payment_status", "booking_status", "payment_ref",
			"cancelled_by", "cancel_reason", "cancelled_at", "created_at", "updated_at",
		}).AddRow(21, 1, 8, 1, 4, 350000,
			model.MethodCash, model.PaymentPaid, model.BookingConfirmed, nil,
			nil, nil, nil, now, now)
	}

	mock.ExpectQuery(qBookingPeek).WithArgs(21).WillReturnRows(confirmed())
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).WillReturnRows(confirmed())
	mock.ExpectExec("cancelled_by=").
		WithArgs(model.BookingCancelled, model.PaymentRefunded, 8, "plans changed", 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetSeats).WithArgs(3, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := l.Cancel(context.Background(), 21, Actor{UserID: 8, Role: model.RoleCustomer}, "plans changed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if b.BookingStatus != model.BookingCancelled || b.PaymentStatus != model.PaymentRefunded {
		t.Fatalf("status = %s/%s", b.BookingStatus, b.PaymentStatus)
	}
	if len(events.cancelled) != 1 {
		t.Fatalf("cancelled events = %d, want 1", len(events.cancelled))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectQuery(qBookingPeek).WithArgs(21).
		WillReturnRows(bookingRow(21, model.BookingCancelled, model.PaymentExpired, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).
		WillReturnRows(bookingRow(21, model.BookingCancelled, model.PaymentExpired, nil))
	mock.ExpectRollback()

	_, err := l.Cancel(context.Background(), 21, Actor{UserID: 8, Role: model.RoleCustomer}, "again")
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("err = %v, want ErrAlreadyCancelled", err)
	}
}

func TestCancelPendingNotConfirmed(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	mock.ExpectQuery(qBookingPeek).WithArgs(21).
		WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectBegin()
	mock.ExpectQuery(qTripLock).WithArgs(1).WillReturnRows(tripRow(today(), 2))
	mock.ExpectQuery(qBookingLock).WithArgs(21).
		WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-123"))
	mock.ExpectRollback()

	_, err := l.Cancel(context.Background(), 21, Actor{UserID: 8, Role: model.RoleCustomer}, "nope")
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("err = %v, want ErrNotConfirmed", err)
	}
}

func TestExpireStaleSkipsConfirmed(t *testing.T) {
	l, mock := newTestLedger(t, nil, nil)

	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	mock.ExpectQuery("FROM bookings").
		WithArgs(model.BookingPending, model.PaymentPending, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21).AddRow(22))

	// 21 is still pending and expires; 22 confirmed in the meantime.
	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(21).
		WillReturnRows(bookingRow(21, model.BookingPending, model.PaymentPending, "ref-a"))
	mock.ExpectExec("cancelled_by=").
		WithArgs(model.BookingCancelled, model.PaymentExpired, nil, "payment expired", 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(22).
		WillReturnRows(bookingRow(22, model.BookingConfirmed, model.PaymentPaid, "ref-b"))
	mock.ExpectCommit()

	n, err := l.ExpireStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1 (the confirmed booking is a no-op)", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestValidateTripDate(t *testing.T) {
	now := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		trip time.Time
		want error
	}{
		{"today", time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), nil},
		{"tomorrow", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), nil},
		{"window edge", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), nil},
		{"past window", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), ErrBookingWindow},
		{"yesterday", time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), ErrPastTrip},
	}
	for _, tc := range cases {
		if got := validateTripDate(tc.trip, now); !errors.Is(got, tc.want) {
			t.Errorf("%s: validateTripDate = %v, want %v", tc.name, got, tc.want)
		}
	}
}
