// Package viewer implements the main application loop: camera movement,
// tile streaming, rendering and peak label resolution.
package viewer

import (
	"fmt"
	gomath "math"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/peakview/internal/backend"
	"github.com/Faultbox/peakview/internal/config"
	"github.com/Faultbox/peakview/internal/engine/camera"
	"github.com/Faultbox/peakview/internal/engine/depthvis"
	"github.com/Faultbox/peakview/internal/engine/input"
	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/engine/scene"
	"github.com/Faultbox/peakview/internal/engine/window"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/internal/logger"
	"github.com/Faultbox/peakview/internal/tiles"
	"github.com/Faultbox/peakview/pkg/math"
)

const (
	// minFlySpeed is the floor for camera speed in meters per second.
	// Speed otherwise scales with height so low flights stay controllable.
	minFlySpeed = 100.0
	// rotSpeed is the keyboard look speed in radians per second.
	rotSpeed = 1.2
	// minHeight keeps the eye above the reference sphere.
	minHeight = 10.0
	// groundLift is how far above the sampled terrain the camera settles
	// when its home tile arrives.
	groundLift = 10.0
)

// App is the running viewer instance.
type App struct {
	cfg     *config.Config
	running bool

	window    *window.Window
	input     *input.Input
	scene     *scene.Scene
	camera    camera.Camera
	manager   *tiles.Manager
	scheduler *tiles.Scheduler
	readback  *depthvis.Readback

	// sunDir is the fixed world-space light direction, chosen once from
	// the starting position so lighting does not swim as the camera moves.
	sunDir math.Vec3

	lastCenter   geo.Coord
	lastResolved depthvis.DepthState
	placements   []labels.Placement
	grounded     bool
}

// New creates the viewer: window, GL state, scene and the streaming
// pipeline.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	var err error
	a.window, err = window.New(window.Config{
		Title:      "Peakview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}

	if err := gl.Init(); err != nil {
		a.window.Close()
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	logger.Info("OpenGL initialized", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.53, 0.71, 0.92, 1.0)

	a.scene, err = scene.New()
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("creating scene: %w", err)
	}

	a.input = input.New()

	start := geo.Coord{Latitude: cfg.Stream.Latitude, Longitude: cfg.Stream.Longitude}
	a.camera = camera.New()
	a.camera.Reset(start, cfg.Stream.HeightMeters)

	// Sun sits above a point north-east of the start, shining toward it.
	a.sunDir = geo.Transform(0, start.Latitude+20, start.Longitude+30).Normalize().Scale(-1)

	client := backend.New(cfg.Backend.URL, cfg.Backend.Timeout)
	a.scheduler = tiles.NewScheduler(client, labels.DefaultMeasurer(),
		cfg.Stream.Workers, cfg.Stream.QueueSize)
	a.manager = tiles.NewManager()

	dw, dh := a.window.DrawableSize()
	a.readback = depthvis.NewReadback(dw, dh)
	gl.Viewport(0, 0, int32(dw), int32(dh))

	logger.Info("viewer initialized",
		zap.Float32("latitude", start.Latitude),
		zap.Float32("longitude", start.Longitude),
		zap.Float32("height", cfg.Stream.HeightMeters),
	)
	return a, nil
}

// Run drives the frame loop until quit.
func (a *App) Run() error {
	a.running = true
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	// Force an initial reconcile.
	a.lastCenter = geo.Coord{Latitude: 91}

	for a.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if a.input.Update() {
			a.running = false
			break
		}
		for _, event := range a.input.Events() {
			switch event.Type {
			case input.EventWindowResize:
				a.resize()
			case input.EventKeyDown:
				if event.Key == sdl.SCANCODE_ESCAPE {
					a.running = false
				}
			}
		}

		a.update(dt)
		a.commitResults()
		a.drainNotifications()
		a.render()
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("frame stats",
				zap.Int("fps", frameCount),
				zap.Int("labels", len(a.placements)),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// Close tears down the pipeline and the window.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.readback != nil {
		a.readback.Destroy()
	}
	if a.scene != nil {
		a.scene.Destroy()
	}
	if a.window != nil {
		a.window.Close()
	}
}

func (a *App) resize() {
	dw, dh := a.window.DrawableSize()
	gl.Viewport(0, 0, int32(dw), int32(dh))
	a.readback.Resize(dw, dh)
}

// update applies camera movement and reconciles the resident tile set
// against the new position.
func (a *App) update(dt float32) {
	a.moveCamera(dt)

	center := eyeCoord(a.camera.Eye)
	if center == a.lastCenter {
		return
	}
	a.lastCenter = center

	toRequest, toUnload := a.manager.Reconcile(center, a.cfg.Stream.RadiusMeters)
	for _, location := range toUnload {
		a.scene.Unload(location)
	}
	for _, request := range toRequest {
		if !a.scheduler.Submit(request) {
			logger.Warn("tile request rejected, scheduler closed",
				zap.Stringer("location", request.Location))
			a.manager.Forget(request.Location)
		}
	}
}

func (a *App) moveCamera(dt float32) {
	speed := a.camera.Eye.Length() - geo.R0
	if speed < minFlySpeed {
		speed = minFlySpeed
	}
	step := speed * dt

	if a.input.IsKeyHeld(sdl.SCANCODE_W) {
		a.camera.Eye = a.camera.Eye.Add(a.camera.Direction().Scale(step))
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_S) {
		a.camera.Eye = a.camera.Eye.Sub(a.camera.Direction().Scale(step))
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_D) {
		a.camera.Eye = a.camera.Eye.Add(a.camera.Right().Scale(step))
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_A) {
		a.camera.Eye = a.camera.Eye.Sub(a.camera.Right().Scale(step))
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_SPACE) {
		a.camera.Eye = a.camera.Eye.Add(a.camera.Up().Scale(step))
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_LSHIFT) {
		a.camera.Eye = a.camera.Eye.Sub(a.camera.Up().Scale(step))
	}

	rot := rotSpeed * dt
	if a.input.IsKeyHeld(sdl.SCANCODE_LEFT) {
		a.camera.Yaw -= rot
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_RIGHT) {
		a.camera.Yaw += rot
	}
	// Positive pitch looks down in the local frame.
	if a.input.IsKeyHeld(sdl.SCANCODE_UP) {
		a.camera.Pitch -= rot
	}
	if a.input.IsKeyHeld(sdl.SCANCODE_DOWN) {
		a.camera.Pitch += rot
	}
	limit := float32(gomath.Pi/2) - 0.01
	if a.camera.Pitch > limit {
		a.camera.Pitch = limit
	}
	if a.camera.Pitch < -limit {
		a.camera.Pitch = -limit
	}

	// Keep the eye above the reference sphere.
	if h := a.camera.Eye.Length() - geo.R0; h < minHeight {
		a.camera.Eye = a.camera.Eye.Normalize().Scale(geo.R0 + minHeight)
	}
}

// commitResults moves finished tiles into the scene, dropping any whose
// request generation has gone stale.
func (a *App) commitResults() {
	for {
		select {
		case result := <-a.scheduler.Results():
			if !a.manager.StillWanted(result.Location, result.Generation) {
				logger.Debug("dropping stale tile result",
					zap.Stringer("location", result.Location))
				continue
			}
			a.scene.Apply(result)
			// The first tile that knows the ground under the viewer drops
			// the camera onto it.
			if !a.grounded && result.HasCenterHeight {
				a.camera.Reset(eyeCoord(a.camera.Eye), result.CenterHeight+groundLift)
				a.grounded = true
			}
			logger.Debug("tile resident",
				zap.Stringer("location", result.Location),
				zap.Int("vertices", len(result.Mesh.Vertices)),
				zap.Int("peaks", len(result.Peaks)),
			)
		default:
			return
		}
	}
}

func (a *App) drainNotifications() {
	for {
		select {
		case n := <-a.scheduler.Notifications():
			switch n.Kind {
			case tiles.TaskErrored:
				logger.Warn("tile load failed",
					zap.Stringer("location", n.Location),
					zap.Int("pending", n.Info.Remaining),
					zap.Error(n.Err))
				// Forgetting makes the next reconcile retry it.
				a.manager.Forget(n.Location)
			case tiles.TaskStarted, tiles.TaskFinished:
				logger.Debug("tile work status",
					zap.String("task", n.Info.Task),
					zap.Int("pending", n.Info.Remaining))
			}
		default:
			return
		}
	}
}

// render draws the frame and runs the asynchronous depth capture that
// feeds peak visibility and label layout.
func (a *App) render() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	dw, dh := a.window.DrawableSize()
	viewProj := a.camera.ViewProjection(float32(dw), float32(dh))
	a.scene.Draw(viewProj, a.sunDir)

	state := depthvis.DepthState{Width: dw, Height: dh, Camera: a.camera}
	if a.readback.Phase() == depthvis.PhaseIdle && state != a.lastResolved {
		if err := a.readback.Request(state); err != nil {
			logger.Warn("depth capture failed", zap.Error(err))
		}
	}
	if err := a.readback.Poll(); err != nil {
		logger.Warn("depth capture failed", zap.Error(err))
	}
	if buf, captured, ok := a.readback.Take(); ok {
		a.resolveVisibility(buf, captured, state)
	}
}

func (a *App) resolveVisibility(buf []byte, captured, current depthvis.DepthState) {
	groups, ok := depthvis.Resolve(buf, captured, current, a.scene.Peaks())
	if !ok {
		// The camera moved while the capture was in flight; the next
		// frame requests a fresh one.
		return
	}

	placements := labels.Layout(groups, a.scene.LabelWidth, labels.LineHeight+labels.LinePadding)
	if len(placements) != len(a.placements) {
		a.window.SetTitle(fmt.Sprintf("Peakview - %d peaks", len(placements)))
	}
	a.placements = placements
	a.lastResolved = captured
}

// Placements exposes the current label layout, anchored to visible
// peaks.
func (a *App) Placements() []labels.Placement {
	return a.placements
}

// eyeCoord converts an earth-centered eye position back to geographic
// degrees, for deciding which tiles are in range.
func eyeCoord(eye math.Vec3) geo.Coord {
	r := eye.Length()
	if r == 0 {
		return geo.Coord{}
	}
	lat := gomath.Asin(float64(eye.Z)/float64(r)) * 180 / gomath.Pi
	lon := gomath.Atan2(float64(eye.Y), float64(eye.X)) * 180 / gomath.Pi
	return geo.Coord{Latitude: float32(lat), Longitude: float32(lon)}
}
