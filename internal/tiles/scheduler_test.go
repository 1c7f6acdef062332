package tiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/geo"
)

// fakeFetcher serves canned payloads and can fail or hang per location.
type fakeFetcher struct {
	heightmaps map[geo.Location][]byte
	peaksCSV   map[geo.Location][]byte
	failing    map[geo.Location]error
	block      chan struct{}
}

func (f *fakeFetcher) FetchHeightmap(ctx context.Context, location geo.Location) ([]byte, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.failing[location]; err != nil {
		return nil, err
	}
	return f.heightmaps[location], nil
}

func (f *fakeFetcher) FetchPeaks(ctx context.Context, location geo.Location) ([]byte, error) {
	return f.peaksCSV[location], nil
}

func waitResult(t *testing.T, s *Scheduler) Result {
	t.Helper()
	select {
	case result := <-s.Results():
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func TestSchedulerProcessesEmptyTile(t *testing.T) {
	location := geo.LocationFromSigned(49, 20)
	fetcher := &fakeFetcher{
		peaksCSV: map[geo.Location][]byte{
			location: []byte("latitude,longitude,name,elevation\n49.2,20.1,Niski,500\n49.5,20.4,Wysoki,2000\n"),
		},
	}
	s := NewScheduler(fetcher, labels.DefaultMeasurer(), 2, 4)
	defer s.Close()

	if !s.Submit(Request{Location: location, Generation: 1}) {
		t.Fatal("submit rejected")
	}
	result := waitResult(t, s)

	if result.Location != location || result.Generation != 1 {
		t.Fatalf("unexpected result identity: %+v", result)
	}
	// No heightmap data yields the placeholder quad.
	if len(result.Mesh.Vertices) != 4 || len(result.Mesh.Indices) != 6 {
		t.Errorf("expected placeholder mesh, got %d vertices, %d indices",
			len(result.Mesh.Vertices), len(result.Mesh.Indices))
	}
	// Peaks arrive highest first with matching measured widths.
	if len(result.Peaks) != 2 || result.Peaks[0].Name != "Wysoki" {
		t.Fatalf("unexpected peaks: %+v", result.Peaks)
	}
	if len(result.LabelWidths) != 2 || result.LabelWidths[0] != labels.DefaultMeasurer().Measure("Wysoki") {
		t.Errorf("unexpected label widths: %v", result.LabelWidths)
	}
	// Without a raster there is no ground height to settle the camera on.
	if result.HasCenterHeight {
		t.Error("placeholder tile must not report a center height")
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	good := geo.LocationFromSigned(49, 20)
	bad := geo.LocationFromSigned(49, 21)
	fetcher := &fakeFetcher{
		failing: map[geo.Location]error{bad: errors.New("backend down")},
	}
	s := NewScheduler(fetcher, labels.DefaultMeasurer(), 2, 4)
	defer s.Close()

	s.Submit(Request{Location: bad, Generation: 1})
	s.Submit(Request{Location: good, Generation: 2})

	result := waitResult(t, s)
	if result.Location != good {
		t.Fatalf("expected the healthy tile to complete, got %s", result.Location)
	}

	// Both terminal transitions must be reported, and the live count
	// must wind down to zero.
	var sawError bool
	var sawFinished bool
	deadline := time.After(5 * time.Second)
	for !(sawError && sawFinished) {
		select {
		case n := <-s.Notifications():
			switch n.Kind {
			case TaskErrored:
				if n.Location != bad || n.Err == nil {
					t.Fatalf("unexpected error notification: %+v", n)
				}
				sawError = true
			case TaskFinished:
				if n.Location != good {
					t.Fatalf("unexpected finish notification: %+v", n)
				}
				sawFinished = true
			}
			if sawError && sawFinished && n.Info.Remaining != 0 {
				t.Errorf("final transition should report 0 remaining, got %d", n.Info.Remaining)
			}
		case <-deadline:
			t.Fatal("timed out waiting for notifications")
		}
	}
}

func TestSchedulerCloseAbortsWithoutCommitting(t *testing.T) {
	fetcher := &fakeFetcher{block: make(chan struct{})}
	s := NewScheduler(fetcher, labels.DefaultMeasurer(), 1, 1)

	s.Submit(Request{Location: geo.LocationFromSigned(49, 20), Generation: 1})
	// Give the worker time to enter the blocked fetch.
	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case result := <-s.Results():
		t.Fatalf("aborted task committed a result: %+v", result)
	default:
	}

	if s.Submit(Request{Location: geo.LocationFromSigned(49, 21), Generation: 2}) {
		t.Error("submit must be rejected after Close")
	}
}

func TestSchedulerSubmitAlwaysRejectedAfterClose(t *testing.T) {
	// A closed context and a free queue slot are both ready select arms,
	// so a plain two-way select would accept roughly half the submits.
	for i := 0; i < 50; i++ {
		s := NewScheduler(&fakeFetcher{}, labels.DefaultMeasurer(), 1, 8)
		s.Close()
		for gen := uint64(1); gen <= 4; gen++ {
			if s.Submit(Request{Location: geo.LocationFromSigned(49, 20), Generation: gen}) {
				t.Fatalf("iteration %d: submit accepted after Close", i)
			}
		}
	}
}
