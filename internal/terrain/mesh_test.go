package terrain

import (
	"testing"

	"github.com/Faultbox/u9assets/pkg/formats"
)

func packPoint(height uint16, hole, swap, mirror, flip bool, frame, texture int) formats.TerrainPoint {
	p := uint32(height & 0xFFF)
	if hole {
		p |= 0x1000
	}
	if swap {
		p |= 0x2000
	}
	if mirror {
		p |= 0x4000
	}
	if flip {
		p |= 0x8000
	}
	p |= uint32(frame&0x3F) << 16
	p |= uint32(texture&0x3FF) << 22
	return formats.TerrainPoint(p)
}

// createTestTerrain builds a terrain with one template per chunk, filled by point.
func createTestTerrain(width, height int, point func(x, y int) formats.TerrainPoint) *formats.Terrain {
	t := &formats.Terrain{
		Header:  formats.TerrainHeader{Width: uint32(width), Height: uint32(height), Name: "test"},
		ChunksX: width / formats.ChunkSize,
		ChunksY: height / formats.ChunkSize,
	}
	for cy := range t.ChunksY {
		for cx := range t.ChunksX {
			var tmpl formats.ChunkTemplate
			for y := range formats.ChunkSize {
				for x := range formats.ChunkSize {
					tmpl[x+y*formats.ChunkSize] = point(cx*formats.ChunkSize+x, cy*formats.ChunkSize+y)
				}
			}
			t.ChunkIndex = append(t.ChunkIndex, uint16(len(t.Templates)))
			t.Templates = append(t.Templates, tmpl)
		}
	}
	t.Header.ChunkCount = uint32(len(t.Templates))
	return t
}

func flat(x, y int) formats.TerrainPoint {
	return packPoint(100, false, false, false, false, 0, 1)
}

func TestBuildMeshGrid(t *testing.T) {
	terr := createTestTerrain(32, 32, func(x, y int) formats.TerrainPoint {
		return packPoint(uint16(x*7+y*3), false, false, false, false, 0, 1)
	})
	m := BuildMesh(terr, DefaultOptions())

	if len(m.Grid) != 33*33 {
		t.Fatalf("expected 33x33 grid, got %d points", len(m.Grid))
	}
	for y := range 33 {
		if m.Grid[32+y*33][2] != m.Grid[y*33][2] {
			t.Errorf("row %d: height at x=32 is %f, want %f", y, m.Grid[32+y*33][2], m.Grid[y*33][2])
		}
	}
	for x := range 33 {
		if m.Grid[x+32*33][2] != m.Grid[x][2] {
			t.Errorf("column %d: height at y=32 does not wrap", x)
		}
	}

	p := m.Grid[5+2*33]
	if p[0] != 5*DefaultSquareLength || p[1] != 2*DefaultSquareLength {
		t.Errorf("grid point (5, 2) at %v", p)
	}
	if want := float32(5*7+2*3) * DefaultHeightUnit; p[2] != want {
		t.Errorf("grid point (5, 2) height %f, want %f", p[2], want)
	}

	if m.Stats.Quads != 32*32 || len(m.Indices) != 32*32*6 || len(m.Vertices) != 32*32*4 {
		t.Errorf("got %d quads, %d indices, %d vertices", m.Stats.Quads, len(m.Indices), len(m.Vertices))
	}
	if m.Bounds.Max[0] != 32*DefaultSquareLength {
		t.Errorf("Bounds.Max = %v", m.Bounds.Max)
	}
}

func TestBuildMeshUVRotation(t *testing.T) {
	tests := []struct {
		name         string
		swap, mirror bool
		want         [4][2]float32
	}{
		{"none", false, false, [4][2]float32{{0, 1}, {1, 1}, {0, 0}, {1, 0}}},
		{"quarter turn", true, false, [4][2]float32{{1, 1}, {1, 0}, {0, 1}, {0, 0}}},
		{"half turn", false, true, [4][2]float32{{1, 0}, {0, 0}, {1, 1}, {0, 1}}},
		{"three quarter turn", true, true, [4][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terr := createTestTerrain(16, 16, func(x, y int) formats.TerrainPoint {
				return packPoint(0, false, tt.swap, tt.mirror, false, 0, 1)
			})
			m := BuildMesh(terr, DefaultOptions())
			q := m.Quads[0]
			if q.UV != tt.want {
				t.Errorf("UV = %v, want %v", q.UV, tt.want)
			}
			for i := range 4 {
				if m.Vertices[i].TexCoord != tt.want[i] {
					t.Errorf("vertex %d TexCoord = %v, want %v", i, m.Vertices[i].TexCoord, tt.want[i])
				}
			}
		})
	}
}

func TestBuildMeshDiagonal(t *testing.T) {
	terr := createTestTerrain(16, 16, func(x, y int) formats.TerrainPoint {
		return packPoint(0, false, false, false, x == 1 && y == 0, 0, 1)
	})
	m := BuildMesh(terr, DefaultOptions())

	want := []uint32{0, 1, 3, 0, 3, 2, 4, 5, 6, 5, 7, 6}
	for i, idx := range want {
		if m.Indices[i] != idx {
			t.Fatalf("Indices[:12] = %v, want %v", m.Indices[:12], want)
		}
	}
	if !m.Quads[1].Flip || m.Quads[0].Flip {
		t.Error("unexpected Flip flags")
	}
	if m.Vertices[4].Position != m.Grid[1] || m.Vertices[7].Position != m.Grid[2+17] {
		t.Error("quad (1, 0) corners do not match the grid")
	}
}

func TestBuildMeshMaterials(t *testing.T) {
	terr := createTestTerrain(16, 16, func(x, y int) formats.TerrainPoint {
		switch {
		case x == 0 && y == 0:
			return packPoint(0, true, false, false, false, 0, 9)
		case x < 8:
			return packPoint(0, false, false, false, false, 2, 40)
		default:
			return packPoint(0, false, false, false, false, 0, 7)
		}
	})
	m := BuildMesh(terr, DefaultOptions())

	if m.Stats.Holes != 1 || m.Stats.Quads != 255 {
		t.Errorf("Stats = %+v", m.Stats)
	}
	want := []formats.TextureKey{{Texture: 40, Frame: 2}, {Texture: 7, Frame: 0}}
	if len(m.Materials) != 2 || m.Materials[0] != want[0] || m.Materials[1] != want[1] {
		t.Fatalf("Materials = %v, want %v", m.Materials, want)
	}
	if len(m.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(m.Groups))
	}
	// Row 0 has 7 textured quads on the left, every other row has 8.
	if m.Groups[0].IndexCount != (7+15*8)*6 || m.Groups[1].StartIndex != m.Groups[0].IndexCount {
		t.Errorf("Groups = %+v", m.Groups)
	}
	if m.Groups[1].IndexCount != 16*8*6 {
		t.Errorf("group 1 has %d indices", m.Groups[1].IndexCount)
	}
	for _, q := range m.Quads {
		if q.Key == (formats.TextureKey{Texture: 9}) {
			t.Error("hole quad was emitted")
		}
	}
}

func TestBuildMeshMissingTemplate(t *testing.T) {
	terr := createTestTerrain(32, 16, flat)
	terr.ChunkIndex[1] = 42

	m := BuildMesh(terr, DefaultOptions())
	if m.Stats.MissingTemplates != 256 || m.Stats.Quads != 256 {
		t.Errorf("Stats = %+v", m.Stats)
	}
	if m.Grid[20][2] != 0 {
		t.Errorf("point without template has height %f", m.Grid[20][2])
	}
}

func TestBuildMeshNormals(t *testing.T) {
	m := BuildMesh(createTestTerrain(16, 16, flat), DefaultOptions())
	for i, v := range m.Vertices {
		if v.Normal != [3]float32{0, 0, 1} {
			t.Fatalf("vertex %d normal = %v, want up", i, v.Normal)
		}
	}
}

func TestHeightField(t *testing.T) {
	terr := createTestTerrain(16, 16, func(x, y int) formats.TerrainPoint {
		return packPoint(uint16(x*10), false, false, false, false, 0, 1)
	})
	hf := BuildHeightField(terr, 1)

	if hf.At(3, 0) != 30 || hf.At(-1, 5) != 150 || hf.At(16, 2) != 0 {
		t.Errorf("At: %f %f %f", hf.At(3, 0), hf.At(-1, 5), hf.At(16, 2))
	}

	tests := []struct {
		x, y float32
		want float32
	}{
		{0, 0, 0},
		{2, 0, 20},
		{2.5, 7.25, 25},
		{-0.5, 0, 75},
	}
	for _, tt := range tests {
		if got := hf.Sample(tt.x, tt.y, 1); got != tt.want {
			t.Errorf("Sample(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
