// Package depthvis decides which peaks are visible by comparing their
// projected depth against a captured terrain depth buffer.
package depthvis

import (
	"encoding/binary"
	gomath "math"
	"sort"

	"github.com/Faultbox/peakview/internal/engine/camera"
	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/internal/peaks"
	"github.com/Faultbox/peakview/pkg/math"
)

// VisibilityMargin is the slack, in view-space meters, granted to a peak
// before the terrain in front of it hides it. Without it peaks sitting
// exactly on the terrain surface flicker at silhouette edges.
const VisibilityMargin float32 = 10.0

// DepthState fingerprints the conditions a depth capture was made under.
// A capture is only valid for resolution while the live state still
// compares equal.
type DepthState struct {
	Width  int
	Height int
	Camera camera.Camera
}

// Pad256 rounds a byte count up to the next multiple of 256, the row
// alignment of the captured depth buffer.
func Pad256(n int) int {
	return (n + 255) &^ 255
}

// Resolve updates the Visible flag of every peak against a captured
// depth buffer and returns the screen anchors of the visible peaks,
// grouped per tile in location order, ready for label layout.
//
// depth holds [0,1] float32 samples, little-endian, rows top-down and
// padded to Pad256(width*4) bytes. Resolve reports false without
// touching any peak when the capture is stale, i.e. the fingerprint no
// longer matches the current one.
func Resolve(depth []byte, captured, current DepthState, tilePeaks map[geo.Location][]*peaks.Instance) ([]labels.Group, bool) {
	if captured != current {
		return nil, false
	}

	width := captured.Width
	height := captured.Height
	stride := Pad256(width * 4)
	projection := captured.Camera.ViewProjection(float32(width), float32(height))

	locations := make([]geo.Location, 0, len(tilePeaks))
	for location := range tilePeaks {
		locations = append(locations, location)
	}
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Compare(locations[j]) < 0
	})

	var groups []labels.Group
	for _, location := range locations {
		group := labels.Group{Location: location}
		for i, peak := range tilePeaks[location] {
			x, y, visible := resolvePeak(depth, projection, width, height, stride, peak)
			peak.Visible = visible
			if visible {
				group.Anchors = append(group.Anchors, labels.Anchor{
					ID: labels.LabelID(i),
					X:  x,
					Y:  y,
				})
			}
		}
		if len(group.Anchors) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, true
}

func resolvePeak(depth []byte, projection math.Mat4, width, height, stride int, peak *peaks.Instance) (int, int, bool) {
	ndc, w := projection.ProjectPoint(peak.Position)
	if w <= 0 {
		return 0, 0, false
	}
	if ndc.X <= -1 || ndc.X >= 1 || ndc.Y <= -1 || ndc.Y >= 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, false
	}

	x := int(0.5 * (ndc.X + 1) * float32(width))
	y := int(-0.5 * (ndc.Y - 1) * float32(height))

	offset := x*4 + y*stride
	if offset < 0 || offset+4 > len(depth) {
		return 0, 0, false
	}
	sample := gomath.Float32frombits(binary.LittleEndian.Uint32(depth[offset:]))

	// GL NDC z is [-1,1]; depth samples are [0,1].
	peakDist := camera.DistFromDepth(0.5 * (ndc.Z + 1))
	terrainDist := camera.DistFromDepth(sample)
	if peakDist-VisibilityMargin >= terrainDist {
		return 0, 0, false
	}
	return x, y, true
}
