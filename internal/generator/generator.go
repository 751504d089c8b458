// Package generator materializes a day's trip instances from the
// active route/time-slot/vehicle templates. Generation is idempotent
// per date: the unique (date, route, slot) key on trips means a
// re-run only fills the gaps that earlier runs left behind.
package generator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// Generator expands active route↔time-slot links into trips,
// assigning the first linked vehicle that passes the availability
// check. Unassignable slots are skipped and logged, never fatal: the
// next run picks them up once more vehicles are linked.
type Generator struct {
	Routes   *repository.RouteRepo
	Vehicles *repository.VehicleRepo
	Trips    *repository.TripRepo
}

// New constructs a Generator. All repositories must be non-nil.
func New(routes *repository.RouteRepo, vehicles *repository.VehicleRepo, trips *repository.TripRepo) *Generator {
	if routes == nil || vehicles == nil || trips == nil {
		panic("nil repository passed to generator.New")
	}
	return &Generator{Routes: routes, Vehicles: vehicles, Trips: trips}
}

// GenerateForDate creates the missing trips for a date and returns
// how many were created. Existing trips are skipped; slots with no
// available vehicle are skipped and logged as gaps.
func (g *Generator) GenerateForDate(ctx context.Context, date time.Time) (int, error) {
	pairs, err := g.Routes.ActivePairs(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range pairs {
		exists, err := g.Trips.Exists(ctx, date, p.Route.ID, p.TimeSlotID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		vehicle, ok, err := g.pickVehicle(ctx, p, date)
		if err != nil {
			return created, err
		}
		if !ok {
			log.Printf("trip-generator: no vehicle available for route %d slot %d on %s; skipping",
				p.Route.ID, p.TimeSlotID, date.UTC().Format("2006-01-02"))
			continue
		}

		trip := &model.Trip{
			TripDate:        date,
			RouteID:         p.Route.ID,
			TimeSlotID:      p.TimeSlotID,
			VehicleID:       vehicle.ID,
			AvailableSeats:  vehicle.Capacity,
			CurrentLocation: model.LocationOrigin,
			Status:          model.TripScheduled,
		}
		if err := g.Trips.Create(ctx, trip); err != nil {
			// Another run won the race for this slot; that is the
			// idempotent outcome we wanted anyway.
			if errors.Is(err, repository.ErrDuplicateTrip) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// pickVehicle returns the first active vehicle linked to the pair's
// route that is free at the pair's departure on the date.
func (g *Generator) pickVehicle(ctx context.Context, p repository.GenerationPair, date time.Time) (model.Vehicle, bool, error) {
	depMin, err := departureMinutes(p.Departure)
	if err != nil {
		return model.Vehicle{}, false, err
	}
	candidates, err := g.Vehicles.ActiveForRoute(ctx, p.Route.ID)
	if err != nil {
		return model.Vehicle{}, false, err
	}
	for _, v := range candidates {
		existing, err := g.Trips.ListForVehicleOnDate(ctx, v.ID, date)
		if err != nil {
			return model.Vehicle{}, false, err
		}
		free, err := vehicleAvailable(depMin, p.Route, existing)
		if err != nil {
			return model.Vehicle{}, false, err
		}
		if free {
			return v, true, nil
		}
	}
	return model.Vehicle{}, false, nil
}

// GenerateRange runs GenerateForDate for every day in [from, to]
// inclusive, returning the total and a per-date breakdown keyed by
// "YYYY-MM-DD". Used for initial bulk setup.
func (g *Generator) GenerateRange(ctx context.Context, from, to time.Time) (int, map[string]int, error) {
	total := 0
	perDate := make(map[string]int)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		n, err := g.GenerateForDate(ctx, d)
		total += n
		perDate[d.UTC().Format("2006-01-02")] = n
		if err != nil {
			return total, perDate, err
		}
	}
	return total, perDate, nil
}

// Readiness reports whether the system is configured enough for
// scheduled generation to be worth running, and which pieces are
// missing when it is not.
type Readiness struct {
	Configured bool     `json:"configured"`
	Missing    []string `json:"missing,omitempty"`
}

// Readiness checks that at least one active route, time slot, vehicle
// and one active link of each association type exist.
func (g *Generator) Readiness(ctx context.Context) (Readiness, error) {
	c, err := g.Routes.ReadinessCounts(ctx)
	if err != nil {
		return Readiness{}, err
	}
	var missing []string
	if c.Routes == 0 {
		missing = append(missing, "no active routes")
	}
	if c.TimeSlots == 0 {
		missing = append(missing, "no active time slots")
	}
	if c.Vehicles == 0 {
		missing = append(missing, "no active vehicles")
	}
	if c.RouteSlots == 0 {
		missing = append(missing, "no active route-time-slot links")
	}
	if c.RouteVehicles == 0 {
		missing = append(missing, "no active route-vehicle links")
	}
	return Readiness{Configured: len(missing) == 0, Missing: missing}, nil
}

// RunScheduled generates trips for two days ahead on a fixed
// interval, skipping the run entirely while the system is not yet
// configured. It blocks until ctx is cancelled, so callers run it in
// a goroutine.
func (g *Generator) RunScheduled(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		g.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (g *Generator) runOnce(ctx context.Context) {
	ready, err := g.Readiness(ctx)
	if err != nil {
		log.Printf("trip-generator: readiness check failed: %v", err)
		return
	}
	if !ready.Configured {
		log.Printf("trip-generator: not configured yet (%v); skipping run", ready.Missing)
		return
	}
	target := time.Now().UTC().AddDate(0, 0, 2)
	n, err := g.GenerateForDate(ctx, target)
	if err != nil {
		log.Printf("trip-generator: generation for %s failed after %d trips: %v",
			target.Format("2006-01-02"), n, err)
		return
	}
	if n > 0 {
		log.Printf("trip-generator: generated %d trips for %s", n, target.Format("2006-01-02"))
	}
}
