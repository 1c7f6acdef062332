package tiles

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/peakview/internal/dem"
	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/engine/terrain"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/internal/logger"
	"github.com/Faultbox/peakview/internal/peaks"
)

// peakAnchorLift raises label anchors this many meters above the terrain
// so they are not swallowed by the surface they sit on.
const peakAnchorLift float32 = 10.0

// Request asks the scheduler to load one tile.
type Request struct {
	Location   geo.Location
	Generation uint64
	Center     geo.Coord
}

// NotificationKind is a task state transition.
type NotificationKind int

const (
	TaskStarted NotificationKind = iota
	TaskFinished
	TaskErrored
)

// TaskInfo describes a task transition for progress display. Remaining
// is the live task count after the transition, so a consumer showing
// "N operations pending" always counts down to zero.
type TaskInfo struct {
	Task      string
	Remaining int
}

// Notification is emitted on every task state transition.
type Notification struct {
	Kind     NotificationKind
	Location geo.Location
	Info     TaskInfo
	Err      error
}

// Result is a fully processed tile ready to be committed by the render
// thread.
type Result struct {
	Location    geo.Location
	Generation  uint64
	Mesh        *terrain.Mesh
	Peaks       []*peaks.Instance
	LabelWidths []float32

	// CenterHeight is the terrain height under the request's viewer
	// position, when this tile contains it. The viewer uses it to drop
	// the camera onto the terrain once the ground under it is known.
	CenterHeight    float32
	HasCenterHeight bool
}

// Fetcher provides tile data. Empty payloads mean the backend has no
// data for the tile.
type Fetcher interface {
	FetchHeightmap(ctx context.Context, location geo.Location) ([]byte, error)
	FetchPeaks(ctx context.Context, location geo.Location) ([]byte, error)
}

// Scheduler runs tile fetch and mesh building off the render thread.
// Requests go through a bounded queue, so a burst of requests blocks the
// submitter instead of dropping tiles. A failing tile never aborts its
// siblings.
type Scheduler struct {
	fetcher  Fetcher
	measurer labels.Measurer

	requests      chan Request
	results       chan Result
	notifications chan Notification

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	wg     sync.WaitGroup

	mu   sync.Mutex
	live map[geo.Location]struct{}
}

// NewScheduler starts a scheduler with the given worker cap and request
// queue size.
func NewScheduler(fetcher Fetcher, measurer labels.Measurer, workers, queueSize int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group := new(errgroup.Group)
	group.SetLimit(workers)

	s := &Scheduler{
		fetcher:       fetcher,
		measurer:      measurer,
		requests:      make(chan Request, queueSize),
		results:       make(chan Result, queueSize),
		notifications: make(chan Notification, 64),
		ctx:           ctx,
		cancel:        cancel,
		group:         group,
		live:          make(map[geo.Location]struct{}),
	}

	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Submit queues a tile request, blocking when the queue is full. It
// reports false once the scheduler is closed.
func (s *Scheduler) Submit(req Request) bool {
	// Closed takes priority over a free queue slot: with both select
	// arms ready the runtime picks randomly, which would let requests
	// slip in after Close.
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.requests <- req:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Results delivers processed tiles. The render thread drains this once
// per frame.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Notifications delivers task transitions. The channel is buffered and
// lossy: when nobody keeps up, transitions are dropped rather than
// blocking tile processing.
func (s *Scheduler) Notifications() <-chan Notification {
	return s.notifications
}

// Close aborts in-flight work and waits for it to wind down. No result
// is committed after Close returns.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
	s.group.Wait()
}

func (s *Scheduler) dispatch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case req := <-s.requests:
			// Go blocks while all workers are busy, which backs
			// pressure up through the request queue to Submit.
			s.group.Go(func() error {
				s.run(req)
				return nil
			})
		}
	}
}

func (s *Scheduler) run(req Request) {
	task := fmt.Sprintf("loading tile %s", req.Location)
	s.transition(TaskStarted, req.Location, task, nil)

	result, err := s.process(req)
	if err != nil {
		logger.Error("tile load failed",
			zap.String("location", req.Location.String()),
			zap.Error(err))
		s.transition(TaskErrored, req.Location, task, err)
		return
	}

	// A canceled scheduler must never commit a partial tile.
	select {
	case s.results <- result:
		s.transition(TaskFinished, req.Location, task, nil)
	case <-s.ctx.Done():
	}
}

// process runs the fetch and CPU-bound stages of one tile pipeline.
func (s *Scheduler) process(req Request) (Result, error) {
	var heightmap, peakCSV []byte

	fetchGroup, ctx := errgroup.WithContext(s.ctx)
	fetchGroup.Go(func() error {
		data, err := s.fetcher.FetchHeightmap(ctx, req.Location)
		heightmap = data
		return err
	})
	fetchGroup.Go(func() error {
		data, err := s.fetcher.FetchPeaks(ctx, req.Location)
		peakCSV = data
		return err
	})
	if err := fetchGroup.Wait(); err != nil {
		return Result{}, fmt.Errorf("fetching %s: %w", req.Location, err)
	}

	var raster *dem.Raster
	var mesh *terrain.Mesh
	if heightmap == nil {
		// No data for this tile (open ocean): a placeholder quad keeps
		// rendering free of missing-terrain special cases.
		mesh = terrain.BuildEmpty(req.Location)
	} else {
		var err error
		raster, err = dem.Read(heightmap)
		if err != nil {
			return Result{}, fmt.Errorf("decoding raster for %s: %w", req.Location, err)
		}
		mesh, err = terrain.Build(raster)
		if err != nil {
			return Result{}, fmt.Errorf("building mesh for %s: %w", req.Location, err)
		}
	}

	instances, widths, err := s.buildPeaks(req.Location, peakCSV, raster)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Location:    req.Location,
		Generation:  req.Generation,
		Mesh:        mesh,
		Peaks:       instances,
		LabelWidths: widths,
	}
	// ValueAt bounds-checks, so only the tile actually containing the
	// viewer reports a center height.
	if raster != nil {
		if h, ok := raster.ValueAt(req.Center.Longitude, req.Center.Latitude); ok {
			result.CenterHeight = h
			result.HasCenterHeight = true
		}
	}
	return result, nil
}

// buildPeaks places the tile's peaks in world space, highest first, and
// pre-measures their label widths.
func (s *Scheduler) buildPeaks(location geo.Location, peakCSV []byte, raster *dem.Raster) ([]*peaks.Instance, []float32, error) {
	if peakCSV == nil {
		return nil, nil, nil
	}
	parsed, err := peaks.Read(bytes.NewReader(peakCSV))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing peaks for %s: %w", location, err)
	}
	peaks.SortByElevation(parsed)

	instances := make([]*peaks.Instance, 0, len(parsed))
	widths := make([]float32, 0, len(parsed))
	for _, peak := range parsed {
		height := peak.Elevation
		if raster != nil {
			if h, ok := raster.ValueAt(peak.Longitude, peak.Latitude); ok {
				height = h
			}
		}
		instances = append(instances, &peaks.Instance{
			Position:  geo.Transform(height+peakAnchorLift, peak.Latitude, peak.Longitude),
			Name:      peak.Name,
			Elevation: peak.Elevation,
		})
		widths = append(widths, s.measurer.Measure(peak.Name))
	}
	return instances, widths, nil
}

// transition updates the live set and emits a notification. The emit is
// non-blocking: progress display is best-effort.
func (s *Scheduler) transition(kind NotificationKind, location geo.Location, task string, err error) {
	s.mu.Lock()
	if kind == TaskStarted {
		s.live[location] = struct{}{}
	} else {
		delete(s.live, location)
	}
	remaining := len(s.live)
	s.mu.Unlock()

	n := Notification{
		Kind:     kind,
		Location: location,
		Info:     TaskInfo{Task: task, Remaining: remaining},
		Err:      err,
	}
	select {
	case s.notifications <- n:
	default:
	}
}
