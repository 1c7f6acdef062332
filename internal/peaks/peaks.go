// Package peaks parses named-peak data and holds per-tile peak instances.
package peaks

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"go.uber.org/multierr"

	"github.com/Faultbox/peakview/pkg/math"
)

// Peak is one row of the backend's peak CSV.
type Peak struct {
	Latitude  float32
	Longitude float32
	Name      string
	Elevation float32
}

// Instance is a peak placed in world space, owned by the tile that
// produced it. Visible is mutated only by the depth visibility resolver.
type Instance struct {
	Position  math.Vec3
	Name      string
	Elevation float32
	Visible   bool
}

// Read parses the peak CSV format: a "latitude,longitude,name,elevation"
// header followed by one row per peak. Malformed rows are collected into
// one aggregate error instead of failing on the first bad row.
func Read(r io.Reader) ([]Peak, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading peaks header: %w", err)
	}
	if len(header) != 4 || header[0] != "latitude" || header[1] != "longitude" ||
		header[2] != "name" || header[3] != "elevation" {
		return nil, fmt.Errorf("unexpected peaks header: %v", header)
	}

	var peaks []Peak
	var errs error
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		peak, err := parseRecord(record)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		peaks = append(peaks, peak)
	}
	if errs != nil {
		return nil, fmt.Errorf("reading peaks csv: %w", errs)
	}
	return peaks, nil
}

func parseRecord(record []string) (Peak, error) {
	lat, err := strconv.ParseFloat(record[0], 32)
	if err != nil {
		return Peak{}, fmt.Errorf("latitude %q: %w", record[0], err)
	}
	lon, err := strconv.ParseFloat(record[1], 32)
	if err != nil {
		return Peak{}, fmt.Errorf("longitude %q: %w", record[1], err)
	}
	elevation, err := strconv.ParseFloat(record[3], 32)
	if err != nil {
		return Peak{}, fmt.Errorf("elevation %q: %w", record[3], err)
	}
	return Peak{
		Latitude:  float32(lat),
		Longitude: float32(lon),
		Name:      record[2],
		Elevation: float32(elevation),
	}, nil
}

// SortByElevation orders peaks highest-first, so that more prominent
// peaks win label row placement downstream.
func SortByElevation(peaks []Peak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Elevation > peaks[j].Elevation
	})
}
