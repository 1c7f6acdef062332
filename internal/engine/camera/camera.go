// Package camera provides a free camera on the ECEF globe.
package camera

import (
	gomath "math"

	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/pkg/math"
)

// Near and far clip planes in meters. All depth linearization assumes
// these exact values.
const (
	Near float32 = 50.0
	Far  float32 = 500000.0
)

// DefaultFovY is the vertical field of view in radians.
const DefaultFovY = float32(gomath.Pi / 4)

// DistFromDepth converts a [0,1] depth-buffer sample to linear view-space
// distance.
func DistFromDepth(depth float32) float32 {
	return Far * Near / (Far - depth*(Far-Near))
}

// Camera is an eye position on the globe plus a pitch/yaw orientation
// relative to the local horizon. The zero pitch/yaw direction points
// along the local tangent plane. Camera is a comparable value type so it
// can fingerprint a captured depth buffer.
type Camera struct {
	Eye   math.Vec3
	Pitch float32
	Yaw   float32
	FovY  float32
}

// New returns a camera at the origin with the default field of view.
func New() Camera {
	return Camera{FovY: DefaultFovY}
}

// Reset places the eye at the given coordinate and height above the
// reference sphere, keeping the current orientation.
func (c *Camera) Reset(coord geo.Coord, height float32) {
	c.Eye = geo.Transform(height, coord.Latitude, coord.Longitude)
}

// Up is the local vertical at the eye, pointing away from the globe
// center.
func (c Camera) Up() math.Vec3 {
	return c.Eye.Normalize()
}

// Direction is the view direction: pitch/yaw applied in the local frame,
// then rotated so that "down" matches the globe's local vertical.
func (c Camera) Direction() math.Vec3 {
	globRotation := math.QuatFromRotationArc(math.Vec3{Y: -1}, c.Up())

	cosPitch := float32(gomath.Cos(float64(c.Pitch)))
	local := math.Vec3{
		X: float32(gomath.Cos(float64(c.Yaw))) * cosPitch,
		Y: float32(gomath.Sin(float64(c.Pitch))),
		Z: float32(gomath.Sin(float64(c.Yaw))) * cosPitch,
	}
	return globRotation.Rotate(local)
}

// Right is the view direction rotated a quarter turn around the local
// vertical, used for strafing.
func (c Camera) Right() math.Vec3 {
	q := math.QuatFromAxisAngle(c.Up(), float32(-0.5*gomath.Pi))
	return q.Rotate(c.Direction())
}

// View returns the view matrix.
func (c Camera) View() math.Mat4 {
	return math.LookAt(c.Eye, c.Eye.Add(c.Direction()), c.Up())
}

// ViewProjection returns the combined view-projection matrix for a
// viewport of the given pixel size.
func (c Camera) ViewProjection(width, height float32) math.Mat4 {
	fovY := c.FovY
	if fovY == 0 {
		fovY = DefaultFovY
	}
	proj := math.Perspective(fovY, width/height, Near, Far)
	return proj.Mul(c.View())
}
