package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Perspective(float32(math.Pi/3), 16.0/9.0, 50, 500000)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformPointIdentity(t *testing.T) {
	m := Identity()
	p := Vec3{1, 2, 3}
	if got := m.TransformPoint(p); got != p {
		t.Errorf("TransformPoint identity: got %v, want %v", got, p)
	}
}

func TestLookAtOrigin(t *testing.T) {
	// Camera at +Z looking at origin: origin maps to -eyeDistance on the
	// view Z axis.
	view := LookAt(Vec3{0, 0, 10}, Vec3{}, Vec3{0, 1, 0})
	got := view.TransformPoint(Vec3{})
	if abs(got.X) > 0.001 || abs(got.Y) > 0.001 || abs(got.Z+10) > 0.001 {
		t.Errorf("LookAt origin: got %v, want (0, 0, -10)", got)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(50), float32(500000)
	proj := Perspective(float32(math.Pi/3), 1, near, far)

	// Point on the near plane projects to NDC z = -1, far plane to z = +1.
	nearNDC, w := proj.ProjectPoint(Vec3{0, 0, -near})
	if w <= 0 {
		t.Fatalf("near plane clip w: got %f", w)
	}
	if abs(nearNDC.Z+1) > 0.001 {
		t.Errorf("near plane NDC z: got %f, want -1", nearNDC.Z)
	}
	farNDC, _ := proj.ProjectPoint(Vec3{0, 0, -far})
	if abs(farNDC.Z-1) > 0.001 {
		t.Errorf("far plane NDC z: got %f, want 1", farNDC.Z)
	}
}

func TestProjectPointBehindCamera(t *testing.T) {
	proj := Perspective(float32(math.Pi/3), 1, 50, 500000)

	// Points behind the camera have negative clip w.
	_, w := proj.ProjectPoint(Vec3{0, 0, 100})
	if w >= 0 {
		t.Errorf("point behind camera: clip w %f should be negative", w)
	}
}

func TestMulVec4(t *testing.T) {
	m := Identity()
	v := Vec4{1, 2, 3, 1}
	if got := m.MulVec4(v); got != v {
		t.Errorf("MulVec4 identity: got %v, want %v", got, v)
	}
}
