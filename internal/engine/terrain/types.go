package terrain

// Vertex is one terrain vertex as uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// Mesh holds the geometry for one terrain tile.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}
