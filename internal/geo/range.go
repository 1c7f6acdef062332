package geo

import (
	gomath "math"
	"sort"
)

// LocationsInRange enumerates every tile whose cell could lie within
// radiusMeters of center, ordered closest-first by cell distance from
// the center's own cell, latitude before longitude. The result is a bounding-box
// over-approximation: tiles outside the radius may be included, tiles
// inside it never miss.
func LocationsInRange(center Coord, radiusMeters float32) []Location {
	clat := clampInt(int(gomath.Floor(float64(center.Latitude))), -90, 89)
	clon := wrapLongitude(int(gomath.Floor(float64(center.Longitude))))

	// Small-angle form of the spherical law of cosines: a point offset
	// by more than dlat/dlon degrees is guaranteed outside the radius.
	latCos := gomath.Cos(float64(center.Latitude) * gomath.Pi / 180.0)
	arc := 0.5 * float64(radiusMeters) / float64(R0)
	afs := gomath.Sin(arc)
	afsSq := afs * afs

	dlat := gomath.Acos(1.0-afsSq) * 180.0 / gomath.Pi
	dlonArg := 1.0 - afsSq/(latCos*latCos)
	if dlonArg < -1.0 || latCos == 0 {
		dlonArg = -1.0
	}
	dlon := gomath.Acos(dlonArg) * 180.0 / gomath.Pi

	latStart := clampInt(int(gomath.Floor(float64(center.Latitude)-dlat)), -90, 89)
	latEnd := clampInt(int(gomath.Floor(float64(center.Latitude)+dlat)), -90, 89)
	lonStart := int(gomath.Floor(float64(center.Longitude) - dlon))
	lonEnd := int(gomath.Floor(float64(center.Longitude) + dlon))

	type cell struct{ lat, lon int }
	cells := make([]cell, 0, (latEnd-latStart+1)*(lonEnd-lonStart+1))
	for lat := latStart; lat <= latEnd; lat++ {
		for lon := lonStart; lon <= lonEnd; lon++ {
			cells = append(cells, cell{lat, lon})
		}
	}

	// Proximity sort; ties keep enumeration order.
	sort.SliceStable(cells, func(i, j int) bool {
		di := [2]int{absInt(cells[i].lat - clat), absInt(cells[i].lon - clon)}
		dj := [2]int{absInt(cells[j].lat - clat), absInt(cells[j].lon - clon)}
		if di[0] != dj[0] {
			return di[0] < dj[0]
		}
		return di[1] < dj[1]
	})

	// Near the poles dlon covers the whole circle, so distinct lon cells
	// can wrap onto the same tile.
	locations := make([]Location, 0, len(cells))
	seen := make(map[Location]struct{}, len(cells))
	for _, c := range cells {
		location := LocationFromSigned(c.lat, wrapLongitude(c.lon))
		if _, ok := seen[location]; ok {
			continue
		}
		seen[location] = struct{}{}
		locations = append(locations, location)
	}
	return locations
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
