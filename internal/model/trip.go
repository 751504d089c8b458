package model

import "time"

// Trip status values.  Only SCHEDULED matters to this service; the
// remaining states are written by the fleet-tracking side.
const (
	TripScheduled = "SCHEDULED"
	TripDeparted  = "DEPARTED"
	TripArrived   = "ARRIVED"
	TripCancelled = "CANCELLED"
)

// LocationOrigin is the current_location value every generated trip
// starts with.
const LocationOrigin = "ORIGIN"

// Trip represents a row in the `trips` table: one scheduled run of a
// vehicle on a route at a time slot on a date.  The triple
// (trip_date, route_id, time_slot_id) is unique, which is what makes
// generation idempotent.  AvailableSeats starts at the vehicle's
// capacity and is only ever mutated under the trip's row lock.
//
// Invariant: 0 <= AvailableSeats <= vehicle capacity, and
// AvailableSeats equals capacity minus the number of CONFIRMED
// bookings after every committed mutation.
//
// Fields:
//  ID              – primary key identifier.
//  TripDate        – calendar date of the trip (date only, UTC).
//  RouteID         – route being run.
//  TimeSlotID      – departure slot.
//  VehicleID       – vehicle assigned at generation time.
//  AvailableSeats  – seats still open for confirmed bookings.
//  CurrentLocation – coarse location marker, defaults to ORIGIN.
//  Status          – trip status (SCHEDULED, DEPARTED, ...).
//  CreatedAt       – timestamp of creation.
type Trip struct {
	ID              uint64    // trips.id
	TripDate        time.Time // trips.trip_date
	RouteID         uint64    // trips.route_id
	TimeSlotID      uint64    // trips.time_slot_id
	VehicleID       uint64    // trips.vehicle_id
	AvailableSeats  uint32    // trips.available_seats
	CurrentLocation string    // trips.current_location
	Status          string    // trips.status
	CreatedAt       time.Time // trips.created_at
}
