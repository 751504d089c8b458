package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/imanzi/transit-seat-booking/internal/ledger"
	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// BookingHandler exposes booking creation, cancellation and listing.
// All seat accounting lives in the ledger; this layer only resolves
// the caller's identity, shapes the request and maps ledger errors
// onto HTTP statuses with specific, human-readable reasons.
type BookingHandler struct {
	Ledger   *ledger.Ledger
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(l *ledger.Ledger, bookings *repository.BookingRepo, users *repository.UserRepo) *BookingHandler {
	if l == nil || bookings == nil || users == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: l, Bookings: bookings, Users: users}
}

type createBookingReq struct {
	TripID        uint64 `json:"trip_id"`
	PaymentMethod string `json:"payment_method"`
	Phone         string `json:"phone"`
	// CustomerID lets staff book on behalf of a customer; ignored for
	// customer callers.
	CustomerID uint64 `json:"customer_id"`
}

type bookingResp struct {
	ID            uint64  `json:"id"`
	TripID        uint64  `json:"trip_id"`
	CustomerID    uint64  `json:"customer_id"`
	SeatNumber    *uint32 `json:"seat_number"`
	PriceCents    uint32  `json:"price_cents"`
	PaymentMethod string  `json:"payment_method"`
	PaymentStatus string  `json:"payment_status"`
	BookingStatus string  `json:"booking_status"`
	PaymentRef    *string `json:"payment_ref,omitempty"`
	CancelReason  *string `json:"cancel_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:            b.ID,
		TripID:        b.TripID,
		CustomerID:    b.CustomerID,
		SeatNumber:    b.SeatNumber,
		PriceCents:    b.PriceCents,
		PaymentMethod: b.PaymentMethod,
		PaymentStatus: b.PaymentStatus,
		BookingStatus: b.BookingStatus,
		PaymentRef:    b.PaymentRef,
		CancelReason:  b.CancelReason,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles POST /v1/bookings. Cash and staff bookings confirm
// synchronously; mobile-money bookings come back PENDING with a
// payment reference the client can poll its booking on.
func (h *BookingHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.TripID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip_id is required"})
	}
	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if method != model.MethodCash && method != model.MethodMobileMoney {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method must be CASH or MOBILE_MONEY"})
	}

	customerID := actor.UserID
	if actor.IsStaff() && req.CustomerID != 0 {
		customerID = req.CustomerID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	phone := strings.TrimSpace(req.Phone)
	if method == model.MethodMobileMoney && phone == "" {
		// Fall back to the phone number on the customer's account.
		if u, err := h.Users.GetByID(ctx, customerID); err == nil {
			phone = u.Phone
		}
	}

	b, err := h.Ledger.CreateBooking(ctx, ledger.CreateInput{
		TripID:        req.TripID,
		CustomerID:    customerID,
		Phone:         phone,
		PaymentMethod: method,
		Actor:         actor,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(*b))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel handles DELETE /v1/bookings/:id. Only the owner or staff
// may cancel, and only confirmed bookings on trips that have not yet
// departed.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req cancelReq
	_ = c.Bind(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled by user"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Ledger.Cancel(ctx, id, actor, reason)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(*b))
}

// ListMine handles GET /v1/bookings: the caller's bookings, newest
// first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListByCustomer(ctx, actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// bookingError maps ledger and repository sentinels onto HTTP
// responses. Every failure kind gets its own message so clients can
// render something specific.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrTripNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, ledger.ErrPastTrip):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trip is in the past"})
	case errors.Is(err, ledger.ErrBookingWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookings open two days before departure"})
	case errors.Is(err, ledger.ErrMissingPhone):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone number required for mobile money"})
	case errors.Is(err, ledger.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "trip is sold out"})
	case errors.Is(err, ledger.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
	case errors.Is(err, ledger.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, ledger.ErrNotConfirmed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "only confirmed bookings can be cancelled"})
	case errors.Is(err, ledger.ErrPaymentInit):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment initiation failed, try again"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
