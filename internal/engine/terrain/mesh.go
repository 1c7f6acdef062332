package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/peakview/internal/dem"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/pkg/math"
)

// ErrVertexCountMismatch reports a raster whose sample grid does not
// cover width*height cells.
var ErrVertexCountMismatch = errors.New("vertex count does not match raster dimensions")

// Build creates a terrain mesh from an elevation raster. One vertex is
// generated per raster cell, sampled at the cell center, and lifted onto
// the ellipsoid at its measured height.
func Build(raster *dem.Raster) (*Mesh, error) {
	width := raster.Width
	height := raster.Height
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty raster %dx%d", width, height)
	}

	vertices := make([]Vertex, 0, width*height)
	for xi := 0; xi < width; xi++ {
		for yi := 0; yi < height; yi++ {
			lon, lat := raster.Transform.ToModel(float32(xi)+0.5, float32(yi)+0.5)
			h, ok := raster.ValueAt(lon, lat)
			if !ok {
				return nil, fmt.Errorf("no sample at (%f, %f), cell (%d, %d)", lon, lat, xi, yi)
			}
			position := geo.Transform(h, lat, lon)
			vertices = append(vertices, Vertex{
				Position: [3]float32{position.X, position.Y, position.Z},
			})
		}
	}

	indices, err := generateIndices(vertices, width, height)
	if err != nil {
		return nil, err
	}
	accumulateNormals(vertices, indices)

	return &Mesh{Vertices: vertices, Indices: indices}, nil
}

// BuildEmpty creates a flat sea-level quad covering a tile the backend
// has no elevation data for. Normals point radially outward.
func BuildEmpty(location geo.Location) *Mesh {
	lat, lon := location.Signed()

	vertices := make([]Vertex, 0, 4)
	for xi := 0; xi < 2; xi++ {
		for yi := 0; yi < 2; yi++ {
			position := geo.Transform(0, float32(lat+yi), float32(lon+xi))
			normal := position.Normalize()
			vertices = append(vertices, Vertex{
				Position: [3]float32{position.X, position.Y, position.Z},
				Normal:   [3]float32{normal.X, normal.Y, normal.Z},
			})
		}
	}

	// 2x2 grid, cannot fail the dimension check.
	indices, _ := generateIndices(vertices, 2, 2)
	return &Mesh{Vertices: vertices, Indices: indices}
}

// generateIndices triangulates the vertex grid. Each quad is split along
// the diagonal whose endpoints are closest in space, which avoids the
// worst stretching artifacts on steep slopes.
func generateIndices(vertices []Vertex, width, height int) ([]uint32, error) {
	if len(vertices) != width*height {
		return nil, ErrVertexCountMismatch
	}

	indices := make([]uint32, 0, (width-1)*(height-1)*6)
	for i := range vertices {
		row := i / height
		col := i % height
		if col >= height-1 || row >= width-1 {
			continue
		}

		bl := i
		br := i + 1
		tl := i + height
		tr := i + height + 1

		blPos := vec3(vertices[bl].Position)
		brPos := vec3(vertices[br].Position)
		tlPos := vec3(vertices[tl].Position)
		trPos := vec3(vertices[tr].Position)

		bltr := blPos.Sub(trPos).LengthSquared()
		brtl := brPos.Sub(tlPos).LengthSquared()
		if bltr > brtl {
			indices = append(indices,
				uint32(br), uint32(bl), uint32(tl),
				uint32(tl), uint32(tr), uint32(br),
			)
		} else {
			indices = append(indices,
				uint32(tr), uint32(br), uint32(bl),
				uint32(bl), uint32(tl), uint32(tr),
			)
		}
	}
	return indices, nil
}

// accumulateNormals adds each face's normal into its three vertices,
// weighting the middle vertex double. The result is left unnormalized;
// the vertex shader normalizes after interpolation.
func accumulateNormals(vertices []Vertex, indices []uint32) {
	weights := [3]float32{0.5, 1.0, 0.5}
	for t := 0; t+2 < len(indices); t += 3 {
		v0 := vec3(vertices[indices[t]].Position)
		v1 := vec3(vertices[indices[t+1]].Position)
		v2 := vec3(vertices[indices[t+2]].Position)

		side1 := v1.Sub(v0)
		side2 := v2.Sub(v1)
		contribution := side1.Cross(side2)

		for k := 0; k < 3; k++ {
			v := &vertices[indices[t+k]]
			v.Normal[0] += weights[k] * contribution.X
			v.Normal[1] += weights[k] * contribution.Y
			v.Normal[2] += weights[k] * contribution.Z
		}
	}
}

func vec3(p [3]float32) math.Vec3 {
	return math.Vec3{X: p[0], Y: p[1], Z: p[2]}
}
