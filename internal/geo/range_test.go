package geo

import (
	"testing"
)

func TestLocationsInRange_ProximityOrder(t *testing.T) {
	locations := LocationsInRange(Coord{Latitude: 52.1, Longitude: 20.1}, 100_000)

	expected := []Location{
		LocationFromSigned(52, 20),
		LocationFromSigned(52, 19),
		LocationFromSigned(52, 21),
		LocationFromSigned(51, 20),
		LocationFromSigned(51, 19),
		LocationFromSigned(51, 21),
	}

	if len(locations) != len(expected) {
		t.Fatalf("expected %d locations, got %d: %v", len(expected), len(locations), locations)
	}
	for i, want := range expected {
		if locations[i] != want {
			t.Errorf("position %d: expected %v, got %v", i, want, locations[i])
		}
	}
}

func TestLocationsInRange_AntimeridianWrap(t *testing.T) {
	locations := LocationsInRange(Coord{Latitude: 29.0, Longitude: -179.5}, 100_000)

	expected := []Location{
		LocationFromSigned(29, -180),
		LocationFromSigned(29, 179),
		LocationFromSigned(29, -179),
		LocationFromSigned(28, -180),
		LocationFromSigned(28, 179),
		LocationFromSigned(28, -179),
	}

	if len(locations) != len(expected) {
		t.Fatalf("expected %d locations, got %d: %v", len(expected), len(locations), locations)
	}
	for i, want := range expected {
		if locations[i] != want {
			t.Errorf("position %d: expected %v, got %v", i, want, locations[i])
		}
	}

	// No duplicates across the wrap.
	seen := make(map[Location]bool)
	for _, loc := range locations {
		if seen[loc] {
			t.Errorf("duplicate location %v", loc)
		}
		seen[loc] = true
	}
}

func TestLocationsInRange_IncludesCenterTile(t *testing.T) {
	cases := []Coord{
		{Latitude: 0.5, Longitude: 0.5},
		{Latitude: -33.9, Longitude: 18.4},
		{Latitude: 64.1, Longitude: -21.9},
		{Latitude: 89.5, Longitude: 0.0},
	}
	for _, center := range cases {
		locations := LocationsInRange(center, 50_000)
		if len(locations) == 0 {
			t.Fatalf("center %v: empty range", center)
		}
		if locations[0] != LocationOf(center) {
			t.Errorf("center %v: first tile %v is not the containing cell %v",
				center, locations[0], LocationOf(center))
		}
	}
}

func TestLocationsInRange_PolarNoDuplicates(t *testing.T) {
	// At this latitude the longitude span covers the whole circle, so
	// cells on both sides of the wrap land on the same tiles.
	locations := LocationsInRange(Coord{Latitude: 89.5, Longitude: 0.0}, 200_000)

	if len(locations) == 0 {
		t.Fatal("empty polar range")
	}
	seen := make(map[Location]bool, len(locations))
	for _, loc := range locations {
		if seen[loc] {
			t.Errorf("duplicate location %v", loc)
		}
		seen[loc] = true
	}
	// A full circle holds 360 tiles per latitude row; anything beyond a
	// few rows means wrapped cells were not deduplicated.
	if len(locations) > 360*3 {
		t.Errorf("polar range returned %d tiles", len(locations))
	}
}

func TestLocationsInRange_LargerRadiusIsSuperset(t *testing.T) {
	center := Coord{Latitude: 47.2, Longitude: 11.3}

	small := LocationsInRange(center, 60_000)
	large := LocationsInRange(center, 180_000)

	inLarge := make(map[Location]bool, len(large))
	for _, loc := range large {
		inLarge[loc] = true
	}
	for _, loc := range small {
		if !inLarge[loc] {
			t.Errorf("tile %v in 60km range but missing from 180km range", loc)
		}
	}
}
