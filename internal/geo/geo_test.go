package geo

import (
	gomath "math"
	"testing"
)

func TestLocationFromSigned(t *testing.T) {
	cases := []struct {
		lat, lon int
		want     string
	}{
		{49, 20, "49N 20E"},
		{-34, 18, "34S 18E"},
		{29, -180, "29N 180W"},
		{0, 0, "0N 0E"},
	}
	for _, c := range cases {
		loc := LocationFromSigned(c.lat, c.lon)
		if loc.String() != c.want {
			t.Errorf("LocationFromSigned(%d, %d) = %q, want %q", c.lat, c.lon, loc, c.want)
		}
		if loc.Latitude.Degree < 0 || loc.Longitude.Degree < 0 {
			t.Errorf("LocationFromSigned(%d, %d): negative degree", c.lat, c.lon)
		}
		backLat, backLon := loc.Signed()
		if backLat != c.lat || backLon != c.lon {
			t.Errorf("Signed() round trip: got (%d, %d), want (%d, %d)", backLat, backLon, c.lat, c.lon)
		}
	}
}

func TestLocationOf_FloorsTowardCell(t *testing.T) {
	cases := []struct {
		coord    Coord
		lat, lon int
	}{
		{Coord{49.99, 20.01}, 49, 20},
		{Coord{-0.5, -0.5}, -1, -1},
		{Coord{-33.001, 18.999}, -34, 18},
		{Coord{12.0, -180.0}, 12, -180},
	}
	for _, c := range cases {
		got := LocationOf(c.coord)
		want := LocationFromSigned(c.lat, c.lon)
		if got != want {
			t.Errorf("LocationOf(%v) = %v, want %v", c.coord, got, want)
		}
	}
}

func TestLocationRequestParams(t *testing.T) {
	loc := LocationFromSigned(49, 20)
	if got := loc.RequestParams(); got != "latitude=49N&longitude=20E" {
		t.Errorf("unexpected request params: %q", got)
	}
	loc = LocationFromSigned(-12, -77)
	if got := loc.RequestParams(); got != "latitude=12S&longitude=77W" {
		t.Errorf("unexpected request params: %q", got)
	}
}

func TestLocationCompare(t *testing.T) {
	a := LocationFromSigned(10, 20)
	b := LocationFromSigned(10, 21)
	c := LocationFromSigned(11, 0)
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 {
		t.Error("expected a < b by longitude")
	}
	if b.Compare(c) >= 0 {
		t.Error("expected b < c by latitude")
	}
	if a.Compare(a) != 0 {
		t.Error("expected a == a")
	}
}

func TestTransform(t *testing.T) {
	// On the equator at the prime meridian the point sits on the +X axis.
	p := Transform(0, 0, 0)
	if gomath.Abs(float64(p.X-R0)) > 1 || gomath.Abs(float64(p.Y)) > 1 || gomath.Abs(float64(p.Z)) > 1 {
		t.Errorf("equator/prime meridian: got %v", p)
	}

	// The north pole sits on the +Z axis, radius lengthens with height.
	p = Transform(1000, 90, 0)
	if gomath.Abs(float64(p.Z-(R0+1000))) > 1 {
		t.Errorf("north pole: got %v", p)
	}

	// All transformed points lie on the sphere of radius R0+h.
	p = Transform(2500, 47.5, -122.3)
	r := gomath.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z))
	if gomath.Abs(r-float64(R0+2500)) > 1 {
		t.Errorf("radius %f, want %f", r, float64(R0+2500))
	}
}
