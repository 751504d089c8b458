package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/imanzi/transit-seat-booking/internal/model"
)

// RouteRepo provides read access to the route templates and the
// route↔time-slot association consumed by the trip generator. Routes
// themselves are administered by a separate back-office service; this
// service only ever reads them, except for the insert helpers used in
// tests and seeding.
type RouteRepo struct{ DB *sql.DB }

// NewRouteRepo returns a RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{DB: db} }

// GenerationPair is one active (route, time slot) combination that the
// generator must expand into a trip. Departure is the slot's
// time-of-day in "HH:MM:SS" form.
type GenerationPair struct {
	Route      model.Route
	TimeSlotID uint64
	Departure  string
}

const routeCols = "r.id, r.origin, r.destination, r.price_cents, r.duration_min, r.turnaround_min, r.is_active, r.created_at, r.updated_at"

func scanRoute(row interface{ Scan(...any) error }, r *model.Route) error {
	var turnaround sql.NullInt64
	err := row.Scan(&r.ID, &r.Origin, &r.Destination, &r.PriceCents, &r.DurationMin,
		&turnaround, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return err
	}
	if turnaround.Valid {
		v := int(turnaround.Int64)
		r.TurnaroundMin = &v
	}
	return nil
}

// GetByID fetches a single route.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (model.Route, error) {
	var rt model.Route
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+routeCols+" FROM routes r WHERE r.id=? LIMIT 1", id)
	if err := scanRoute(row, &rt); err != nil {
		return model.Route{}, err
	}
	return rt, nil
}

// ActivePairs returns every (route, time slot) combination eligible
// for trip generation: the link, the route and the slot must all be
// active. Results are ordered by route then departure so generation
// output is deterministic.
func (r *RouteRepo) ActivePairs(ctx context.Context) ([]GenerationPair, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+routeCols+`, ts.id, ts.departure
		FROM route_time_slots rts
		JOIN routes r ON r.id = rts.route_id AND r.is_active = 1
		JOIN time_slots ts ON ts.id = rts.time_slot_id AND ts.is_active = 1
		WHERE rts.is_active = 1
		ORDER BY r.id, ts.departure`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []GenerationPair
	for rows.Next() {
		var p GenerationPair
		var turnaround sql.NullInt64
		if err := rows.Scan(&p.Route.ID, &p.Route.Origin, &p.Route.Destination,
			&p.Route.PriceCents, &p.Route.DurationMin, &turnaround,
			&p.Route.IsActive, &p.Route.CreatedAt, &p.Route.UpdatedAt,
			&p.TimeSlotID, &p.Departure); err != nil {
			return nil, err
		}
		if turnaround.Valid {
			v := int(turnaround.Int64)
			p.Route.TurnaroundMin = &v
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ReadinessCounts reports how many active rows exist for each piece of
// configuration the generator depends on. The scheduled generation
// job refuses to run until every count is non-zero.
type ReadinessCounts struct {
	Routes        int
	TimeSlots     int
	Vehicles      int
	RouteSlots    int
	RouteVehicles int
}

// ReadinessCounts gathers the active-row counts in a single query.
func (r *RouteRepo) ReadinessCounts(ctx context.Context) (ReadinessCounts, error) {
	var c ReadinessCounts
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM routes WHERE is_active = 1),
			(SELECT COUNT(*) FROM time_slots WHERE is_active = 1),
			(SELECT COUNT(*) FROM vehicles WHERE is_active = 1),
			(SELECT COUNT(*) FROM route_time_slots WHERE is_active = 1),
			(SELECT COUNT(*) FROM route_vehicles WHERE is_active = 1)`).
		Scan(&c.Routes, &c.TimeSlots, &c.Vehicles, &c.RouteSlots, &c.RouteVehicles)
	return c, err
}

// CreateRoute inserts a route template and returns its id. Used by
// seeding and tests; the back-office owns routes in production.
func (r *RouteRepo) CreateRoute(ctx context.Context, rt model.Route) (uint64, error) {
	var turnaround any
	if rt.TurnaroundMin != nil {
		turnaround = *rt.TurnaroundMin
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO routes (origin, destination, price_cents, duration_min, turnaround_min, is_active) VALUES (?,?,?,?,?,?)",
		rt.Origin, rt.Destination, rt.PriceCents, rt.DurationMin, turnaround, rt.IsActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// CreateTimeSlot inserts a departure time slot and returns its id.
func (r *RouteRepo) CreateTimeSlot(ctx context.Context, departure string, active bool) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO time_slots (departure, is_active) VALUES (?,?)", departure, active)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// LinkTimeSlot associates a route with a time slot for generation.
// Re-linking an existing pair just re-activates it.
func (r *RouteRepo) LinkTimeSlot(ctx context.Context, routeID, slotID uint64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO route_time_slots (route_id, time_slot_id, is_active) VALUES (?,?,1)
		ON DUPLICATE KEY UPDATE is_active = 1`, routeID, slotID)
	return err
}

// LinkVehicle associates a vehicle with a route for assignment.
func (r *RouteRepo) LinkVehicle(ctx context.Context, routeID, vehicleID uint64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO route_vehicles (route_id, vehicle_id, is_active) VALUES (?,?,1)
		ON DUPLICATE KEY UPDATE is_active = 1`, routeID, vehicleID)
	return err
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062). Shared by the repositories that map unique-key
// violations onto sentinel errors.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
