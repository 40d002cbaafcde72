// Package terrain builds renderable meshes from decoded Ultima IX terrain.
package terrain

import "github.com/Faultbox/u9assets/pkg/formats"

// Default grid metrics.
const (
	DefaultSquareLength = 3.2
	DefaultHeightUnit   = 0.1
)

// Options controls mesh construction.
type Options struct {
	// SquareLength is the distance between neighbouring points.
	SquareLength float32
	// HeightUnit scales the 12-bit point height.
	HeightUnit float32
}

// DefaultOptions returns the grid metrics of the game's own editor.
func DefaultOptions() Options {
	return Options{SquareLength: DefaultSquareLength, HeightUnit: DefaultHeightUnit}
}

// Vertex is one quad corner with its texture coordinate. Z is up.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// TextureGroup is a contiguous index range drawn with one material slot.
type TextureGroup struct {
	Material   int
	Key        formats.TextureKey
	StartIndex int32
	IndexCount int32
}

// Quad records what was emitted for one grid square.
type Quad struct {
	X, Y     int
	Key      formats.TextureKey
	Material int
	Flip     bool
	Rotation int
	// UV holds the texture coordinates of corners v1..v4:
	// (x, y), (x+1, y), (x, y+1), (x+1, y+1).
	UV [4][2]float32
}

// Mesh holds the terrain surface ready for export.
type Mesh struct {
	Name string
	// Grid holds the (width+1)*(height+1) shared point positions, row-major.
	Grid     [][3]float32
	Vertices []Vertex
	Indices  []uint32
	Quads    []Quad
	// Materials lists texture keys in first-use order; a quad's Material indexes it.
	Materials []formats.TextureKey
	Groups    []TextureGroup
	Bounds    Bounds
	Stats     Stats
}

// Stats counts skipped squares.
type Stats struct {
	Quads            int
	Holes            int
	MissingTemplates int
}

// Bounds holds the axis-aligned bounding box of the terrain.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}
