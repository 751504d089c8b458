package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/imanzi/transit-seat-booking/internal/model"
)

// TripRepo provides data access to the `trips` table. Trips are
// created only by the generator; the booking ledger mutates
// available_seats, always inside a transaction that first takes the
// trip's row lock via GetForUpdateTx so that concurrent seat
// decisions never interleave.
type TripRepo struct{ DB *sql.DB }

// NewTripRepo returns a TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{DB: db} }

// dateOnly renders a time as the DATE literal MySQL stores for
// trip_date. All trip dates are treated as calendar days in UTC.
func dateOnly(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Exists reports whether a trip already exists for the unique
// (date, route, slot) triple. The generator checks this before
// attempting an insert so re-runs are cheap no-ops.
func (r *TripRepo) Exists(ctx context.Context, date time.Time, routeID, slotID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM trips WHERE trip_date=? AND route_id=? AND time_slot_id=? LIMIT 1",
		dateOnly(date), routeID, slotID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a trip and populates its generated ID. A duplicate
// (date, route, slot) insert is reported as ErrDuplicateTrip; the
// unique key is the backstop for two generation runs racing.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO trips (trip_date, route_id, time_slot_id, vehicle_id, available_seats, current_location, status)
		VALUES (?,?,?,?,?,?,?)`,
		dateOnly(t.TripDate), t.RouteID, t.TimeSlotID, t.VehicleID,
		t.AvailableSeats, t.CurrentLocation, t.Status)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateTrip
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

const tripCols = "id, trip_date, route_id, time_slot_id, vehicle_id, available_seats, current_location, status, created_at"

func scanTrip(row interface{ Scan(...any) error }, t *model.Trip) error {
	return row.Scan(&t.ID, &t.TripDate, &t.RouteID, &t.TimeSlotID, &t.VehicleID,
		&t.AvailableSeats, &t.CurrentLocation, &t.Status, &t.CreatedAt)
}

// GetByID fetches a trip without locking it.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (model.Trip, error) {
	var t model.Trip
	row := r.DB.QueryRowContext(ctx, "SELECT "+tripCols+" FROM trips WHERE id=? LIMIT 1", id)
	if err := scanTrip(row, &t); err != nil {
		if err == sql.ErrNoRows {
			return model.Trip{}, ErrTripNotFound
		}
		return model.Trip{}, err
	}
	return t, nil
}

// GetForUpdateTx fetches a trip inside tx while taking an exclusive
// row lock on it. Every read of available_seats whose outcome decides
// a write must go through here; the lock is held until the
// transaction commits or rolls back.
func (r *TripRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Trip, error) {
	var t model.Trip
	row := tx.QueryRowContext(ctx, "SELECT "+tripCols+" FROM trips WHERE id=? FOR UPDATE", id)
	if err := scanTrip(row, &t); err != nil {
		if err == sql.ErrNoRows {
			return model.Trip{}, ErrTripNotFound
		}
		return model.Trip{}, err
	}
	return t, nil
}

// SetSeatsTx writes a new available_seats value for a trip. Callers
// must hold the trip's row lock in the same transaction.
func (r *TripRepo) SetSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, seats uint32) error {
	_, err := tx.ExecContext(ctx, "UPDATE trips SET available_seats=? WHERE id=?", seats, id)
	return err
}

// VehicleDayTrip is one existing assignment of a vehicle on a date,
// carrying just what the availability check needs: when the trip
// departs, how long the route occupies the vehicle, and where the
// vehicle starts and ends up.
type VehicleDayTrip struct {
	Departure     string // time slot departure, "HH:MM:SS"
	DurationMin   int    // route duration
	TurnaroundMin *int   // per-route override, nil for the tiered default
	Origin        string // route origin
	Destination   string // route destination
}

// ListForVehicleOnDate returns the trips already assigned to a
// vehicle on a date, joined with route and slot data for the
// availability window computation.
func (r *TripRepo) ListForVehicleOnDate(ctx context.Context, vehicleID uint64, date time.Time) ([]VehicleDayTrip, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT ts.departure, rt.duration_min, rt.turnaround_min, rt.origin, rt.destination
		FROM trips t
		JOIN time_slots ts ON ts.id = t.time_slot_id
		JOIN routes rt ON rt.id = t.route_id
		WHERE t.vehicle_id = ? AND t.trip_date = ?`,
		vehicleID, dateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VehicleDayTrip
	for rows.Next() {
		var vt VehicleDayTrip
		var turnaround sql.NullInt64
		if err := rows.Scan(&vt.Departure, &vt.DurationMin, &turnaround, &vt.Origin, &vt.Destination); err != nil {
			return nil, err
		}
		if turnaround.Valid {
			v := int(turnaround.Int64)
			vt.TurnaroundMin = &v
		}
		out = append(out, vt)
	}
	return out, rows.Err()
}

// TripSummary is the denormalized row served by the public trip
// browse endpoint.
type TripSummary struct {
	ID             uint64    `json:"id"`
	TripDate       time.Time `json:"trip_date"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Departure      string    `json:"departure"`
	PriceCents     uint32    `json:"price_cents"`
	AvailableSeats uint32    `json:"available_seats"`
	PlateNo        string    `json:"plate_no"`
	Status         string    `json:"status"`
}

// Browse lists the trips on a date, optionally filtered by route,
// joined with route, slot and vehicle data for display. Ordered by
// departure time so callers see the day in chronological order.
func (r *TripRepo) Browse(ctx context.Context, date time.Time, routeID uint64) ([]TripSummary, error) {
	q := `
		SELECT t.id, t.trip_date, rt.origin, rt.destination, ts.departure,
		       rt.price_cents, t.available_seats, v.plate_no, t.status
		FROM trips t
		JOIN routes rt ON rt.id = t.route_id
		JOIN time_slots ts ON ts.id = t.time_slot_id
		JOIN vehicles v ON v.id = t.vehicle_id
		WHERE t.trip_date = ?`
	args := []any{dateOnly(date)}
	if routeID != 0 {
		q += " AND t.route_id = ?"
		args = append(args, routeID)
	}
	q += " ORDER BY ts.departure, t.id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TripSummary
	for rows.Next() {
		var s TripSummary
		if err := rows.Scan(&s.ID, &s.TripDate, &s.Origin, &s.Destination, &s.Departure,
			&s.PriceCents, &s.AvailableSeats, &s.PlateNo, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
