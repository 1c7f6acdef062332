// Package labels assigns screen rows to peak labels so that labels on
// nearby peaks do not overlap.
package labels

import (
	gomath "math"
	"sort"

	"github.com/Faultbox/peakview/internal/geo"
)

// Layout metrics in pixels.
const (
	LineHeight       float32 = 16.0
	LinePadding      float32 = 4.0
	LabelPaddingLeft float32 = 1.0
	MaxRows                  = 8
)

// LabelID identifies a label within its tile's peak list.
type LabelID uint32

// Anchor is a projected peak position a label should attach to.
type Anchor struct {
	ID   LabelID
	X, Y int
}

// Group holds the anchors of one tile.
type Group struct {
	Location geo.Location
	Anchors  []Anchor
}

// Placement is a laid-out label. Y is the vertical center of the
// assigned row, measured from the top of the label band.
type Placement struct {
	Location geo.Location
	ID       LabelID
	X, Y     float32
	Width    float32
	PeakX    float32
	PeakY    float32
}

type side uint8

const (
	sideLeft side = iota
	sideRight
)

// edge marks one horizontal end of a placed label. Edges sort by
// position, left before right at equal positions.
type edge struct {
	pos  int
	side side
}

func edgeBefore(a, b edge) bool {
	if a.pos != b.pos {
		return a.pos < b.pos
	}
	return a.side < b.side
}

type row []edge

// search returns the index of the first edge not before e.
func (r row) search(e edge) int {
	return sort.Search(len(r), func(i int) bool {
		return !edgeBefore(r[i], e)
	})
}

// usable reports whether a label spanning [left, right] fits into the
// row without touching an existing label.
func (r row) usable(left, right int) bool {
	i := r.search(edge{pos: left, side: sideLeft})
	if i < len(r) && r[i].pos <= right {
		return false
	}
	// If the first edge past the span is a right end, the span sits
	// inside a wider label that starts further left.
	if i < len(r) && r[i].side == sideRight {
		return false
	}
	return true
}

func (r row) insert(e edge) row {
	i := r.search(e)
	r = append(r, edge{})
	copy(r[i+1:], r[i:])
	r[i] = e
	return r
}

// Widths resolves the pixel width of a label, or reports false when the
// label has no measured text.
type Widths func(location geo.Location, id LabelID) (float32, bool)

// Layout places labels row by row. Groups are processed in order and
// anchors within a group keep their order, so callers control priority
// by sorting (tiles by location, peaks by elevation). Labels that do not
// fit within MaxRows rows are dropped.
func Layout(groups []Group, widths Widths, lineHeight float32) []Placement {
	var rows []row
	var placements []Placement

	for _, group := range groups {
		for _, anchor := range group.Anchors {
			width, ok := widths(group.Location, anchor.ID)
			if !ok {
				continue
			}

			rowIndex, ok := placeLabel(&rows, anchor.X, width)
			if !ok {
				continue
			}
			placements = append(placements, Placement{
				Location: group.Location,
				ID:       anchor.ID,
				X:        float32(anchor.X),
				Y:        lineHeight * (0.5 + float32(rowIndex)),
				Width:    width,
				PeakX:    float32(anchor.X),
				PeakY:    float32(anchor.Y),
			})
		}
	}
	return placements
}

// placeLabel finds the first row with a free span for the label, opening
// a new row when every existing one is blocked.
func placeLabel(rows *[]row, x int, width float32) (int, bool) {
	left := x
	right := int(gomath.Ceil(float64(float32(x) + width)))

	rowIndex := -1
	for i, r := range *rows {
		if r.usable(left, right) {
			rowIndex = i
			break
		}
	}
	if rowIndex == -1 {
		if len(*rows) >= MaxRows {
			return 0, false
		}
		*rows = append(*rows, nil)
		rowIndex = len(*rows) - 1
	}

	(*rows)[rowIndex] = (*rows)[rowIndex].insert(edge{pos: left, side: sideLeft})
	(*rows)[rowIndex] = (*rows)[rowIndex].insert(edge{pos: right, side: sideRight})
	return rowIndex, true
}
