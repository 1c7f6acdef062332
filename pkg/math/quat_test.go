package math

import (
	"math"
	"testing"
)

func quatNear(a, b Quat, eps float32) bool {
	// q and -q encode the same rotation.
	if a.Dot(b) < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
	}
	return abs(a.X-b.X) < eps && abs(a.Y-b.Y) < eps &&
		abs(a.Z-b.Z) < eps && abs(a.W-b.W) < eps
}

func vecNear(a, b Vec3, eps float32) bool {
	return abs(a.X-b.X) < eps && abs(a.Y-b.Y) < eps && abs(a.Z-b.Z) < eps
}

func TestQuatIdentityRotate(t *testing.T) {
	v := Vec3{1, 2, 3}
	if got := QuatIdentity().Rotate(v); !vecNear(got, v, 0.0001) {
		t.Errorf("identity rotation changed vector: %v", got)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Z takes X to Y.
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/2))
	got := q.Rotate(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{0, 1, 0}, 0.001) {
		t.Errorf("rotate X by 90 around Z: got %v, want (0, 1, 0)", got)
	}
}

func TestQuatFromRotationArc(t *testing.T) {
	from := Vec3{0, -1, 0}
	to := Vec3{1, 1, 1}.Normalize()

	q := QuatFromRotationArc(from, to)
	if got := q.Rotate(from); !vecNear(got, to, 0.001) {
		t.Errorf("arc rotation: got %v, want %v", got, to)
	}
}

func TestQuatFromRotationArcParallel(t *testing.T) {
	v := Vec3{0, 1, 0}
	if q := QuatFromRotationArc(v, v); !quatNear(q, QuatIdentity(), 0.001) {
		t.Errorf("parallel vectors should give identity, got %v", q)
	}
}

func TestQuatFromRotationArcAntiparallel(t *testing.T) {
	from := Vec3{0, 1, 0}
	to := Vec3{0, -1, 0}

	q := QuatFromRotationArc(from, to)
	if got := q.Rotate(from); !vecNear(got, to, 0.001) {
		t.Errorf("antiparallel arc: got %v, want %v", got, to)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 2, Y: 0, Z: 0, W: 0}.Normalize()
	if !quatNear(q, Quat{X: 1}, 0.0001) {
		t.Errorf("Normalize: got %v", q)
	}

	// Degenerate quaternion falls back to identity.
	if q := (Quat{}).Normalize(); !quatNear(q, QuatIdentity(), 0.0001) {
		t.Errorf("Normalize zero: got %v", q)
	}
}

func TestQuatRotatePreservesLength(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 1, 0}.Normalize(), 1.3)
	v := Vec3{3, -4, 12}
	if got := q.Rotate(v).Length(); abs(got-v.Length()) > 0.001 {
		t.Errorf("rotation changed length: got %f, want %f", got, v.Length())
	}
}
