// Package tiles tracks which terrain tiles should be resident and runs
// the background work that loads them.
package tiles

import (
	"sync"

	"github.com/Faultbox/peakview/internal/geo"
)

// Manager owns the set of tiles that are loaded or on their way to being
// loaded. Reconcile computes the load/unload delta when the viewer
// moves; the generation counter guards against committing results for
// tiles that have since left the wanted range.
//
// A failed tile is simply forgotten: it is absent from the set, so the
// next Reconcile requests it again. That re-request is the retry policy,
// there is no separate timer.
type Manager struct {
	mu      sync.Mutex
	tiles   map[geo.Location]uint64
	nextGen uint64
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{tiles: make(map[geo.Location]uint64)}
}

// Reconcile computes which tiles to request and which to unload for the
// given viewer position, and updates the tracked set accordingly.
// Requests come back closest-first. Calling it again without moving
// yields two empty slices.
func (m *Manager) Reconcile(center geo.Coord, radiusMeters float32) (toRequest []Request, toUnload []geo.Location) {
	wanted := geo.LocationsInRange(center, radiusMeters)

	m.mu.Lock()
	defer m.mu.Unlock()

	wantedSet := make(map[geo.Location]struct{}, len(wanted))
	for _, location := range wanted {
		wantedSet[location] = struct{}{}
	}

	for location := range m.tiles {
		if _, ok := wantedSet[location]; !ok {
			toUnload = append(toUnload, location)
			delete(m.tiles, location)
		}
	}

	for _, location := range wanted {
		if _, ok := m.tiles[location]; ok {
			continue
		}
		m.nextGen++
		m.tiles[location] = m.nextGen
		toRequest = append(toRequest, Request{
			Location:   location,
			Generation: m.nextGen,
			Center:     center,
		})
	}
	return toRequest, toUnload
}

// Wanted reports whether the tile is currently tracked.
func (m *Manager) Wanted(location geo.Location) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tiles[location]
	return ok
}

// StillWanted reports whether a result produced for the given request
// generation may be committed. A tile that left range and re-entered has
// a newer generation, so stale in-flight results are rejected.
func (m *Manager) StillWanted(location geo.Location, generation uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen, ok := m.tiles[location]
	return ok && gen == generation
}

// Forget drops a tile from the tracked set, typically after its load
// failed, so the next Reconcile requests it again.
func (m *Manager) Forget(location geo.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tiles, location)
}
