package repository

import (
	"context"
	"database/sql"

	"github.com/imanzi/transit-seat-booking/internal/model"
)

// VehicleRepo provides read access to the vehicle fleet and the
// route↔vehicle association. Like routes, vehicles are administered
// elsewhere; the generator only needs to enumerate candidates for a
// route.
type VehicleRepo struct{ DB *sql.DB }

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{DB: db} }

// GetByID fetches a single vehicle.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
	var v model.Vehicle
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, plate_no, capacity, is_active, created_at, updated_at FROM vehicles WHERE id=? LIMIT 1",
		id).Scan(&v.ID, &v.PlateNo, &v.Capacity, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// ActiveForRoute returns the active vehicles with an active link to
// the given route, in link order. The generator assigns the first one
// that passes the availability check.
func (r *VehicleRepo) ActiveForRoute(ctx context.Context, routeID uint64) ([]model.Vehicle, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT v.id, v.plate_no, v.capacity, v.is_active, v.created_at, v.updated_at
		FROM route_vehicles rv
		JOIN vehicles v ON v.id = rv.vehicle_id AND v.is_active = 1
		WHERE rv.route_id = ? AND rv.is_active = 1
		ORDER BY v.id`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.PlateNo, &v.Capacity, &v.IsActive, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Create inserts a vehicle and returns its id. Used by seeding and tests.
func (r *VehicleRepo) Create(ctx context.Context, v model.Vehicle) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO vehicles (plate_no, capacity, is_active) VALUES (?,?,?)",
		v.PlateNo, v.Capacity, v.IsActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}
