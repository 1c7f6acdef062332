package viewer

import (
	"context"
	"errors"
	gomath "math"
	"testing"
	"time"

	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/internal/tiles"
)

func TestEyeCoordRoundTrip(t *testing.T) {
	cases := []geo.Coord{
		{Latitude: 49.2, Longitude: 20.0},
		{Latitude: -33.9, Longitude: 18.4},
		{Latitude: 0, Longitude: 0},
		{Latitude: 63.4, Longitude: -19.2},
	}

	for _, want := range cases {
		eye := geo.Transform(2500, want.Latitude, want.Longitude)
		got := eyeCoord(eye)

		if gomath.Abs(float64(got.Latitude-want.Latitude)) > 1e-3 {
			t.Errorf("latitude round trip: want %v, got %v", want.Latitude, got.Latitude)
		}
		if gomath.Abs(float64(got.Longitude-want.Longitude)) > 1e-3 {
			t.Errorf("longitude round trip: want %v, got %v", want.Longitude, got.Longitude)
		}
	}
}

// failingFetcher errors every heightmap fetch.
type failingFetcher struct{}

func (failingFetcher) FetchHeightmap(ctx context.Context, location geo.Location) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failingFetcher) FetchPeaks(ctx context.Context, location geo.Location) ([]byte, error) {
	return nil, nil
}

func TestDrainNotificationsForgetsFailedTiles(t *testing.T) {
	manager := tiles.NewManager()
	scheduler := tiles.NewScheduler(failingFetcher{}, labels.DefaultMeasurer(), 1, 2)
	defer scheduler.Close()

	a := &App{manager: manager, scheduler: scheduler}

	toRequest, _ := manager.Reconcile(geo.Coord{Latitude: 49.5, Longitude: 20.5}, 1000)
	if len(toRequest) == 0 {
		t.Fatal("expected at least the center tile to be requested")
	}
	location := toRequest[0].Location
	if !scheduler.Submit(toRequest[0]) {
		t.Fatal("submit rejected")
	}

	// The failure notification must make the manager forget the tile so
	// the next reconcile retries it.
	deadline := time.Now().Add(5 * time.Second)
	for manager.Wanted(location) {
		if time.Now().After(deadline) {
			t.Fatal("failed tile still tracked after drain")
		}
		a.drainNotifications()
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEyeCoordZeroVector(t *testing.T) {
	got := eyeCoord(geo.Transform(-geo.R0, 0, 0))
	if got.Latitude != 0 || got.Longitude != 0 {
		t.Errorf("degenerate eye should map to the origin, got %+v", got)
	}
}
