// Package geo provides geographic coordinate types and the range
// calculation that decides which 1°x1° elevation tiles are resident.
package geo

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/peakview/pkg/math"
)

// R0 is the mean Earth radius in meters.
const R0 float32 = 6_371_000.0

// Coord is a continuous latitude/longitude position in degrees.
type Coord struct {
	Latitude  float32
	Longitude float32
}

// LatDirection is the hemisphere of a latitude degree.
type LatDirection uint8

// LonDirection is the hemisphere of a longitude degree.
type LonDirection uint8

const (
	South LatDirection = iota
	North
)

const (
	West LonDirection = iota
	East
)

func (d LatDirection) String() string {
	if d == North {
		return "N"
	}
	return "S"
}

func (d LonDirection) String() string {
	if d == East {
		return "E"
	}
	return "W"
}

// Latitude is an integer tile latitude with hemisphere. Degree is never
// negative; the sign lives in Direction.
type Latitude struct {
	Degree    int
	Direction LatDirection
}

// Longitude is an integer tile longitude with hemisphere. Degree is never
// negative; the sign lives in Direction.
type Longitude struct {
	Degree    int
	Direction LonDirection
}

// Location is a 1°x1° tile key. A tile covers the cell
// [lat, lat+1) x [lon, lon+1) in signed degrees.
type Location struct {
	Latitude  Latitude
	Longitude Longitude
}

// LocationFromSigned builds a Location from signed integer degrees.
func LocationFromSigned(lat, lon int) Location {
	loc := Location{
		Latitude:  Latitude{Degree: lat, Direction: North},
		Longitude: Longitude{Degree: lon, Direction: East},
	}
	if lat < 0 {
		loc.Latitude = Latitude{Degree: -lat, Direction: South}
	}
	if lon < 0 {
		loc.Longitude = Longitude{Degree: -lon, Direction: West}
	}
	return loc
}

// LocationOf returns the tile containing a continuous coordinate,
// flooring toward the enclosing cell.
func LocationOf(c Coord) Location {
	lat := int(gomath.Floor(float64(c.Latitude)))
	lon := wrapLongitude(int(gomath.Floor(float64(c.Longitude))))
	return LocationFromSigned(lat, lon)
}

// Signed returns the tile's south-west corner in signed degrees.
func (l Location) Signed() (lat, lon int) {
	lat = l.Latitude.Degree
	if l.Latitude.Direction == South {
		lat = -lat
	}
	lon = l.Longitude.Degree
	if l.Longitude.Direction == West {
		lon = -lon
	}
	return lat, lon
}

// Compare orders locations by signed latitude, then signed longitude.
func (l Location) Compare(other Location) int {
	alat, alon := l.Signed()
	blat, blon := other.Signed()
	if alat != blat {
		if alat < blat {
			return -1
		}
		return 1
	}
	if alon != blon {
		if alon < blon {
			return -1
		}
		return 1
	}
	return 0
}

func (l Location) String() string {
	return fmt.Sprintf("%d%s %d%s",
		l.Latitude.Degree, l.Latitude.Direction,
		l.Longitude.Degree, l.Longitude.Direction)
}

// RequestParams formats the location as backend query parameters,
// e.g. "latitude=49N&longitude=20E".
func (l Location) RequestParams() string {
	return fmt.Sprintf("latitude=%d%s&longitude=%d%s",
		l.Latitude.Degree, l.Latitude.Direction,
		l.Longitude.Degree, l.Longitude.Direction)
}

// Transform converts a geographic position plus height above the sphere
// into an earth-centered cartesian point.
func Transform(height, latitudeDeg, longitudeDeg float32) math.Vec3 {
	r := float64(R0 + height)
	lat := float64(latitudeDeg) * gomath.Pi / 180.0
	lon := float64(longitudeDeg) * gomath.Pi / 180.0
	return math.Vec3{
		X: float32(r * gomath.Cos(lat) * gomath.Cos(lon)),
		Y: float32(r * gomath.Cos(lat) * gomath.Sin(lon)),
		Z: float32(r * gomath.Sin(lat)),
	}
}

// wrapLongitude maps a signed integer degree into [-180, 180).
func wrapLongitude(lon int) int {
	return (lon+540)%360 - 180
}
