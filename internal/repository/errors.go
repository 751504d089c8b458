// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking ledger and handlers to distinguish between different failure
// scenarios without string matching. For example, ErrTripNotFound maps
// to an HTTP 404 while ErrDuplicateTrip signals that the generator
// attempted to create a trip that already exists for its
// (date, route, slot) triple.
package repository

import "errors"

// ErrTripNotFound is returned when no trip exists for the given id,
// or the trip row has disappeared between lookup and lock.
var ErrTripNotFound = errors.New("trip not found")

// ErrBookingNotFound is returned when a booking lookup matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPaymentNotFound is returned when no payment transaction exists
// for the given external reference.
var ErrPaymentNotFound = errors.New("payment transaction not found")

// ErrDuplicateTrip is returned when inserting a trip violates the
// unique (trip_date, route_id, time_slot_id) constraint. The
// generator treats this as "already generated" and moves on.
var ErrDuplicateTrip = errors.New("trip already exists for date, route and slot")

// ErrEmailExists is returned when registering a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")
