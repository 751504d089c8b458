package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/imanzi/transit-seat-booking/internal/generator"
)

// OpsHandler exposes staff-only operational endpoints for trip
// generation.
type OpsHandler struct {
	Gen *generator.Generator
}

func NewOpsHandler(g *generator.Generator) *OpsHandler {
	if g == nil {
		panic("nil generator passed to NewOpsHandler")
	}
	return &OpsHandler{Gen: g}
}

type generateReq struct {
	Date string `json:"date"`
	From string `json:"from"`
	To   string `json:"to"`
}

const maxGenerateRangeDays = 31

// Generate handles POST /v1/ops/trips/generate. Accepts either a
// single "date" or a "from"/"to" pair, all YYYY-MM-DD. Generation is
// idempotent, so re-running a date only fills gaps.
func (h *OpsHandler) Generate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	if d := strings.TrimSpace(req.Date); d != "" {
		date, err := time.ParseInLocation("2006-01-02", d, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		n, err := h.Gen.GenerateForDate(ctx, date)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed", "generated": n})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"generated": n,
			"per_date":  map[string]int{d: n},
		})
	}

	from, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.From), time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.To), time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to is before from"})
	}
	if to.Sub(from) > maxGenerateRangeDays*24*time.Hour {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "range too large, max 31 days"})
	}

	total, perDate, err := h.Gen.GenerateRange(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed", "generated": total, "per_date": perDate})
	}
	return c.JSON(http.StatusOK, echo.Map{"generated": total, "per_date": perDate})
}

// Readiness handles GET /v1/ops/readiness, reporting whether enough
// routes, slots and vehicles are configured for generation to run.
func (h *OpsHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r, err := h.Gen.Readiness(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, r)
}
