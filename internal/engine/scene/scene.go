// Package scene owns the GPU-resident terrain tiles and the peak state
// attached to them. All methods must run on the render thread.
package scene

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/peakview/internal/engine/labels"
	"github.com/Faultbox/peakview/internal/engine/shader"
	"github.com/Faultbox/peakview/internal/engine/terrain"
	"github.com/Faultbox/peakview/internal/geo"
	"github.com/Faultbox/peakview/internal/peaks"
	"github.com/Faultbox/peakview/internal/tiles"
	"github.com/Faultbox/peakview/pkg/math"
)

// residentTile is one committed tile: its GPU buffers plus the peak and
// label data the visibility resolver and label layout work from.
type residentTile struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32

	peaks       []*peaks.Instance
	labelWidths []float32
}

// Scene renders the resident tiles and hands peak state to the
// visibility pipeline.
type Scene struct {
	program     uint32
	locViewProj int32
	locLightDir int32
	locAmbient  int32
	locDiffuse  int32

	tiles map[geo.Location]*residentTile
}

// New compiles the terrain shader and returns an empty scene.
func New() (*Scene, error) {
	program, err := shader.CompileProgram(terrainVertexShader, terrainFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("terrain shader: %w", err)
	}

	return &Scene{
		program:     program,
		locViewProj: shader.MustGetUniform(program, "uViewProj"),
		locLightDir: shader.GetUniform(program, "uLightDir"),
		locAmbient:  shader.GetUniform(program, "uAmbient"),
		locDiffuse:  shader.GetUniform(program, "uDiffuse"),
		tiles:       make(map[geo.Location]*residentTile),
	}, nil
}

// Apply commits a processed tile: uploads its mesh and registers its
// peaks. A tile already resident at the same location is replaced.
func (s *Scene) Apply(result tiles.Result) {
	s.Unload(result.Location)

	t := &residentTile{
		peaks:       result.Peaks,
		labelWidths: result.LabelWidths,
	}
	uploadMesh(t, result.Mesh)
	s.tiles[result.Location] = t
}

func uploadMesh(t *residentTile, mesh *terrain.Mesh) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return
	}

	gl.GenVertexArrays(1, &t.vao)
	gl.BindVertexArray(t.vao)

	gl.GenBuffers(1, &t.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, t.vbo)
	vertexSize := int(unsafe.Sizeof(terrain.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*vertexSize, unsafe.Pointer(&mesh.Vertices[0]), gl.STATIC_DRAW)

	// Position (location 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(vertexSize), 0)
	gl.EnableVertexAttribArray(0)

	// Normal (location 1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, int32(vertexSize), 3*4)
	gl.EnableVertexAttribArray(1)

	gl.GenBuffers(1, &t.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, t.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	t.indexCount = int32(len(mesh.Indices))
}

// Unload releases a tile's GPU buffers and drops its peak state. Missing
// tiles are ignored.
func (s *Scene) Unload(location geo.Location) {
	t, ok := s.tiles[location]
	if !ok {
		return
	}
	releaseTile(t)
	delete(s.tiles, location)
}

func releaseTile(t *residentTile) {
	if t.vao != 0 {
		gl.DeleteVertexArrays(1, &t.vao)
	}
	if t.vbo != 0 {
		gl.DeleteBuffers(1, &t.vbo)
	}
	if t.ebo != 0 {
		gl.DeleteBuffers(1, &t.ebo)
	}
}

// Draw renders every resident tile.
func (s *Scene) Draw(viewProj math.Mat4, lightDir math.Vec3) {
	gl.UseProgram(s.program)
	gl.UniformMatrix4fv(s.locViewProj, 1, false, viewProj.Ptr())
	gl.Uniform3f(s.locLightDir, lightDir.X, lightDir.Y, lightDir.Z)
	gl.Uniform3f(s.locAmbient, 0.22, 0.24, 0.26)
	gl.Uniform3f(s.locDiffuse, 0.55, 0.52, 0.45)

	for _, t := range s.tiles {
		if t.vao == 0 {
			continue
		}
		gl.BindVertexArray(t.vao)
		gl.DrawElements(gl.TRIANGLES, t.indexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
}

// Peaks exposes the live peak instances per tile for the visibility
// resolver. Callers must not retain the map across Unload calls.
func (s *Scene) Peaks() map[geo.Location][]*peaks.Instance {
	out := make(map[geo.Location][]*peaks.Instance, len(s.tiles))
	for location, t := range s.tiles {
		if len(t.peaks) > 0 {
			out[location] = t.peaks
		}
	}
	return out
}

// LabelWidth resolves the pre-measured width of a tile's label.
func (s *Scene) LabelWidth(location geo.Location, id labels.LabelID) (float32, bool) {
	t, ok := s.tiles[location]
	if !ok || int(id) >= len(t.labelWidths) {
		return 0, false
	}
	return t.labelWidths[id], true
}

// PeakName resolves the name behind a laid-out label, for drawing.
func (s *Scene) PeakName(location geo.Location, id labels.LabelID) (string, bool) {
	t, ok := s.tiles[location]
	if !ok || int(id) >= len(t.peaks) {
		return "", false
	}
	return t.peaks[id].Name, true
}

// Destroy releases every tile and the shader program.
func (s *Scene) Destroy() {
	for location := range s.tiles {
		s.Unload(location)
	}
	if s.program != 0 {
		gl.DeleteProgram(s.program)
		s.program = 0
	}
}
