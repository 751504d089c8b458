package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// departureMinutes parses a "HH:MM:SS" (or "HH:MM") time-of-day into
// minutes since midnight. Seconds are ignored; slots are defined on
// whole minutes.
func departureMinutes(dep string) (int, error) {
	parts := strings.Split(dep, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed departure time %q", dep)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed departure time %q", dep)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed departure time %q", dep)
	}
	return h*60 + m, nil
}

// occupiedUntil returns the end of a trip's occupancy window in
// minutes since midnight: departure plus route duration plus the
// turnaround buffer (per-route override or tiered default).
func occupiedUntil(depMin int, t repository.VehicleDayTrip) int {
	buffer := model.DefaultTurnaround(t.DurationMin)
	if t.TurnaroundMin != nil {
		buffer = *t.TurnaroundMin
	}
	return depMin + t.DurationMin + buffer
}

// vehicleAvailable decides whether a vehicle can take a trip on the
// given route departing at candidateDep (minutes since midnight),
// given the trips already assigned to it that day.
//
// Two assignments conflict when either departure falls inside the
// other trip's occupancy window, so a candidate that departs earlier
// but is still en route at an existing departure is rejected too. The
// one exception: if the trip that runs first ends at the origin of
// the trip that runs second, the vehicle is treated as immediately
// turnable. That shortcut ignores the precise turnaround instant and
// can over-assign in dense schedules; a true fix needs the vehicle's
// next-available timestamp.
func vehicleAvailable(candidateDep int, route model.Route, existing []repository.VehicleDayTrip) (bool, error) {
	candidateEnd := candidateDep + route.DurationMin + route.TurnaroundFor()
	for _, t := range existing {
		depMin, err := departureMinutes(t.Departure)
		if err != nil {
			return false, err
		}
		switch {
		case candidateDep >= depMin && candidateDep <= occupiedUntil(depMin, t):
			// Existing trip runs first.
			if t.Destination != route.Origin {
				return false, nil
			}
		case depMin >= candidateDep && depMin <= candidateEnd:
			// Candidate would run first.
			if route.Destination != t.Origin {
				return false, nil
			}
		}
	}
	return true, nil
}
