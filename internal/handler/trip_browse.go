package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// TripHandler serves the public trip browse endpoint. Listing is
// read-only and sits behind the response-cache middleware; seat
// counts may therefore lag by the cache TTL, which is fine because
// the ledger re-validates under lock anyway.
type TripHandler struct {
	Trips *repository.TripRepo
}

// NewTripHandler constructs a TripHandler.
func NewTripHandler(trips *repository.TripRepo) *TripHandler {
	if trips == nil {
		panic("nil repository passed to NewTripHandler")
	}
	return &TripHandler{Trips: trips}
}

// Browse handles GET /v1/trips?date=YYYY-MM-DD[&route_id=N]. It
// lists the trips scheduled on the date, joined with route, slot and
// vehicle data.
func (h *TripHandler) Browse(c echo.Context) error {
	dateStr := c.QueryParam("date")
	if dateStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	var routeID uint64
	if s := c.QueryParam("route_id"); s != "" {
		routeID, err = strconv.ParseUint(s, 10, 64)
		if err != nil || routeID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route_id"})
		}
	}

	trips, err := h.Trips.Browse(c.Request().Context(), date, routeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if trips == nil {
		trips = []repository.TripSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"date": dateStr, "trips": trips})
}
