package tiles

import (
	"testing"

	"github.com/Faultbox/peakview/internal/geo"
)

func TestReconcileOrdersRequestsByProximity(t *testing.T) {
	m := NewManager()
	requests, unload := m.Reconcile(geo.Coord{Latitude: 52.1, Longitude: 20.1}, 100000)

	if len(unload) != 0 {
		t.Errorf("first reconcile should unload nothing, got %v", unload)
	}
	want := []geo.Location{
		geo.LocationFromSigned(52, 20),
		geo.LocationFromSigned(52, 19),
		geo.LocationFromSigned(52, 21),
		geo.LocationFromSigned(51, 20),
		geo.LocationFromSigned(51, 19),
		geo.LocationFromSigned(51, 21),
	}
	if len(requests) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(requests))
	}
	for i, req := range requests {
		if req.Location != want[i] {
			t.Errorf("request %d: got %s, want %s", i, req.Location, want[i])
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	m := NewManager()
	center := geo.Coord{Latitude: 52.1, Longitude: 20.1}

	m.Reconcile(center, 100000)
	requests, unload := m.Reconcile(center, 100000)
	if len(requests) != 0 || len(unload) != 0 {
		t.Errorf("second reconcile must be a no-op, got %d requests, %d unloads",
			len(requests), len(unload))
	}
}

func TestReconcileUnloadsOutOfRangeTiles(t *testing.T) {
	m := NewManager()
	first, _ := m.Reconcile(geo.Coord{Latitude: 52.1, Longitude: 20.1}, 100000)

	_, unload := m.Reconcile(geo.Coord{Latitude: -33.9, Longitude: 18.4}, 100000)
	if len(unload) != len(first) {
		t.Fatalf("expected all %d tiles unloaded, got %d", len(first), len(unload))
	}
	for _, location := range unload {
		if m.Wanted(location) {
			t.Errorf("unloaded tile %s still tracked", location)
		}
	}
}

func TestStillWantedGenerations(t *testing.T) {
	m := NewManager()
	center := geo.Coord{Latitude: 52.1, Longitude: 20.1}

	requests, _ := m.Reconcile(center, 100000)
	req := requests[0]
	if !m.StillWanted(req.Location, req.Generation) {
		t.Fatal("fresh request should be wanted")
	}

	// The tile leaves range and comes back: the old in-flight result
	// must not be committable against the new generation.
	m.Reconcile(geo.Coord{Latitude: -33.9, Longitude: 18.4}, 100000)
	again, _ := m.Reconcile(center, 100000)

	if m.StillWanted(req.Location, req.Generation) {
		t.Error("stale generation should be rejected")
	}
	for _, r := range again {
		if r.Location == req.Location {
			if !m.StillWanted(r.Location, r.Generation) {
				t.Error("re-requested generation should be wanted")
			}
			if r.Generation == req.Generation {
				t.Error("re-request must get a fresh generation")
			}
		}
	}
}

func TestForgetRetriesOnNextReconcile(t *testing.T) {
	m := NewManager()
	center := geo.Coord{Latitude: 52.1, Longitude: 20.1}

	requests, _ := m.Reconcile(center, 100000)
	failed := requests[0].Location
	m.Forget(failed)

	again, _ := m.Reconcile(center, 100000)
	if len(again) != 1 || again[0].Location != failed {
		t.Fatalf("expected the forgotten tile to be re-requested, got %v", again)
	}
}
