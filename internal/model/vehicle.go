package model

import "time"

// Vehicle represents a row in the `vehicles` table.  Capacity is the
// number of passenger seats and is copied onto every trip the
// vehicle is assigned to as the initial available-seat count.
//
// Fields:
//  ID        – primary key identifier.
//  PlateNo   – unique registration plate.
//  Capacity  – number of passenger seats.
//  IsActive  – whether the vehicle may be assigned to trips.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Vehicle struct {
	ID        uint64    // vehicles.id
	PlateNo   string    // vehicles.plate_no
	Capacity  uint32    // vehicles.capacity
	IsActive  bool      // vehicles.is_active
	CreatedAt time.Time // vehicles.created_at
	UpdatedAt time.Time // vehicles.updated_at
}
