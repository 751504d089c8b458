package model

import "time"

// Route represents a row in the `routes` table.  A route is the
// template every trip is generated from: it fixes the origin and
// destination towns, the ticket price and how long the journey
// takes.  Routes are administered outside this service; the core
// only ever reads them.
//
// Fields:
//  ID            – primary key identifier.
//  Origin        – departure town of the route.
//  Destination   – arrival town of the route.
//  PriceCents    – fixed ticket price in cents.
//  DurationMin   – journey duration in minutes.
//  TurnaroundMin – optional override for the turnaround buffer in
//                  minutes; when nil the tiered default applies
//                  (see TurnaroundFor).
//  IsActive      – whether trips may be generated for this route.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Route struct {
	ID            uint64    // routes.id
	Origin        string    // routes.origin
	Destination   string    // routes.destination
	PriceCents    uint32    // routes.price_cents
	DurationMin   int       // routes.duration_min
	TurnaroundMin *int      // routes.turnaround_min (nullable)
	IsActive      bool      // routes.is_active
	CreatedAt     time.Time // routes.created_at
	UpdatedAt     time.Time // routes.updated_at
}

// TurnaroundFor returns the turnaround buffer in minutes for a route.
// An explicit per-route override wins; otherwise the buffer is tiered
// by journey duration: up to an hour 15 minutes, up to four hours 30
// minutes, anything longer a full hour.
func (r Route) TurnaroundFor() int {
	if r.TurnaroundMin != nil {
		return *r.TurnaroundMin
	}
	return DefaultTurnaround(r.DurationMin)
}

// DefaultTurnaround returns the tiered turnaround buffer for a
// journey duration, in minutes.
func DefaultTurnaround(durationMin int) int {
	switch {
	case durationMin <= 60:
		return 15
	case durationMin <= 240:
		return 30
	default:
		return 60
	}
}

// TimeSlot represents a row in the `time_slots` table: a departure
// time-of-day that routes can be linked to.  The Departure field is
// stored as "HH:MM:SS" in the database.
//
// Fields:
//  ID        – primary key identifier.
//  Departure – departure time-of-day in "HH:MM:SS" form.
//  IsActive  – whether the slot participates in generation.
//  CreatedAt – timestamp of creation.
type TimeSlot struct {
	ID        uint64    // time_slots.id
	Departure string    // time_slots.departure
	IsActive  bool      // time_slots.is_active
	CreatedAt time.Time // time_slots.created_at
}

// RouteTimeSlot links a route to a time slot eligible for trip
// generation.  Only pairs with IsActive true are expanded into
// trips.
type RouteTimeSlot struct {
	RouteID    uint64 // route_time_slots.route_id
	TimeSlotID uint64 // route_time_slots.time_slot_id
	IsActive   bool   // route_time_slots.is_active
}

// RouteVehicle links a route to a vehicle eligible for assignment on
// that route.  Only vehicles with an active link are considered by
// the generator.
type RouteVehicle struct {
	RouteID   uint64 // route_vehicles.route_id
	VehicleID uint64 // route_vehicles.vehicle_id
	IsActive  bool   // route_vehicles.is_active
}
