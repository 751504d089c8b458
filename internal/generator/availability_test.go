package generator

import (
	"testing"

	"github.com/imanzi/transit-seat-booking/internal/model"
	"github.com/imanzi/transit-seat-booking/internal/repository"
)

func TestDepartureMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:30:00", 510, false},
		{"00:00:00", 0, false},
		{"23:59:00", 1439, false},
		{"06:15", 375, false},
		{"24:00:00", 0, true},
		{"08:60:00", 0, true},
		{"0830", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := departureMinutes(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("departureMinutes(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("departureMinutes(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("departureMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestOccupiedUntilUsesTieredDefault(t *testing.T) {
	// 90 minute journey falls in the 30 minute buffer tier.
	trip := repository.VehicleDayTrip{Departure: "08:30:00", DurationMin: 90, Destination: "Kigali"}
	got := occupiedUntil(510, trip)
	if want := 510 + 90 + 30; got != want {
		t.Fatalf("occupiedUntil = %d, want %d", got, want)
	}
}

func TestOccupiedUntilHonorsOverride(t *testing.T) {
	override := 5
	trip := repository.VehicleDayTrip{Departure: "08:30:00", DurationMin: 90, TurnaroundMin: &override}
	got := occupiedUntil(510, trip)
	if want := 510 + 90 + 5; got != want {
		t.Fatalf("occupiedUntil = %d, want %d", got, want)
	}
}

func TestVehicleAvailable(t *testing.T) {
	// Vehicle left Kigali for Huye at 08:30 on a 90 minute route with
	// the default 30 minute buffer, so it is occupied until 10:30.
	existing := []repository.VehicleDayTrip{
		{Departure: "08:30:00", DurationMin: 90, Origin: "Kigali", Destination: "Huye"},
	}
	route := func(origin, destination string) model.Route {
		return model.Route{Origin: origin, Destination: destination, DurationMin: 90}
	}

	cases := []struct {
		name  string
		dep   string
		route model.Route
		want  bool
	}{
		{"inside window wrong origin", "10:15:00", route("Musanze", "Kigali"), false},
		{"inside window at destination", "10:15:00", route("Huye", "Kigali"), true},
		{"after window", "10:31:00", route("Kigali", "Huye"), true},
		{"ends before existing departs", "05:00:00", route("Kigali", "Huye"), true},
		{"exact window end", "10:30:00", route("Musanze", "Kigali"), false},
		// Departs earlier but is still en route at 08:30, so the
		// vehicle cannot make the existing departure.
		{"spans existing departure", "08:00:00", route("Kigali", "Musanze"), false},
		{"spans existing departure ending at its origin", "07:00:00", route("Musanze", "Kigali"), true},
	}
	for _, tc := range cases {
		dep, err := departureMinutes(tc.dep)
		if err != nil {
			t.Fatalf("%s: bad departure %q: %v", tc.name, tc.dep, err)
		}
		got, err := vehicleAvailable(dep, tc.route, existing)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: vehicleAvailable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestVehicleAvailableRejectsEarlierOverlappingCandidate(t *testing.T) {
	// Existing assignment departs Kigali at 09:00 for Musanze. A
	// candidate leaving Kigali at 08:00 on a 90 minute route is still
	// out at 09:00 and must not be admitted.
	existing := []repository.VehicleDayTrip{
		{Departure: "09:00:00", DurationMin: 120, Origin: "Kigali", Destination: "Musanze"},
	}
	route := model.Route{Origin: "Kigali", Destination: "Huye", DurationMin: 90}
	got, err := vehicleAvailable(8*60, route, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("vehicle reported available while en route at the existing departure")
	}
}

func TestVehicleAvailableNoTrips(t *testing.T) {
	got, err := vehicleAvailable(510, model.Route{Origin: "Kigali", Destination: "Huye", DurationMin: 90}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("vehicle with no trips should be available")
	}
}

func TestVehicleAvailableMalformedExisting(t *testing.T) {
	existing := []repository.VehicleDayTrip{{Departure: "garbage", DurationMin: 60}}
	if _, err := vehicleAvailable(510, model.Route{Origin: "Kigali", Destination: "Huye", DurationMin: 90}, existing); err == nil {
		t.Fatal("expected error for malformed existing departure")
	}
}
