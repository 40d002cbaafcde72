package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/u9assets/pkg/formats"
)

// quadUVs maps a rotation selector (swapUV + 2*mirrorUV) to the texture
// coordinates of corners v1..v4. Each step is a quarter turn.
var quadUVs = [4][4][2]float32{
	{{0, 1}, {1, 1}, {0, 0}, {1, 0}},
	{{1, 1}, {1, 0}, {0, 1}, {0, 0}},
	{{1, 0}, {0, 0}, {1, 1}, {0, 1}},
	{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
}

// Corner order of the two triangles of a quad, as indexes into v1..v4.
var (
	flippedSplit = [6]uint32{0, 1, 2, 1, 3, 2}
	defaultSplit = [6]uint32{0, 1, 3, 0, 3, 2}
)

// QuadUVs returns the corner texture coordinates for a rotation selector.
func QuadUVs(rotation int) [4][2]float32 {
	return quadUVs[rotation&3]
}

// BuildMesh creates a terrain mesh. The point grid wraps, so the last row and
// column of vertices repeat the first.
func BuildMesh(t *formats.Terrain, opts Options) *Mesh {
	hf := BuildHeightField(t, opts.HeightUnit)
	w, h := t.Width(), t.Height()
	stride := w + 1

	m := &Mesh{
		Name: t.Header.Name,
		Grid: make([][3]float32, 0, stride*(h+1)),
		Bounds: Bounds{
			Min: [3]float32{1e10, 1e10, 1e10},
			Max: [3]float32{-1e10, -1e10, -1e10},
		},
	}

	for y := range h + 1 {
		for x := range w + 1 {
			p := [3]float32{opts.SquareLength * float32(x), opts.SquareLength * float32(y), hf.At(x, y)}
			m.Grid = append(m.Grid, p)
			updateBounds(&m.Bounds, p)
		}
	}

	slots := make(map[formats.TextureKey]int)
	groupIndices := make(map[int][]uint32)
	var corners [][4]uint32 // grid indexes of each emitted quad

	for y := range h {
		for x := range w {
			pt, ok := t.Point(x, y)
			if !ok {
				m.Stats.MissingTemplates++
				continue
			}
			if pt.IsHole() {
				m.Stats.Holes++
				continue
			}

			key := pt.Key()
			slot, seen := slots[key]
			if !seen {
				slot = len(m.Materials)
				slots[key] = slot
				m.Materials = append(m.Materials, key)
			}

			q := Quad{
				X:        x,
				Y:        y,
				Key:      key,
				Material: slot,
				Flip:     pt.FlipDiagonal(),
				Rotation: pt.Rotation(),
				UV:       QuadUVs(pt.Rotation()),
			}
			m.Quads = append(m.Quads, q)

			v1 := uint32(x + y*stride)
			grid := [4]uint32{v1, v1 + 1, v1 + uint32(stride), v1 + uint32(stride) + 1}
			corners = append(corners, grid)

			base := uint32(len(m.Vertices))
			for i, g := range grid {
				m.Vertices = append(m.Vertices, Vertex{Position: m.Grid[g], TexCoord: q.UV[i]})
			}
			split := defaultSplit
			if q.Flip {
				split = flippedSplit
			}
			for _, c := range split {
				groupIndices[slot] = append(groupIndices[slot], base+c)
			}
		}
	}
	m.Stats.Quads = len(m.Quads)

	// Groups follow material slot order so output is deterministic.
	for slot, key := range m.Materials {
		idx := groupIndices[slot]
		m.Groups = append(m.Groups, TextureGroup{
			Material:   slot,
			Key:        key,
			StartIndex: int32(len(m.Indices)),
			IndexCount: int32(len(idx)),
		})
		m.Indices = append(m.Indices, idx...)
	}

	smoothNormals(m, corners)
	return m
}

// smoothNormals accumulates face normals on the shared grid points and copies
// the averaged result to every corner vertex.
func smoothNormals(m *Mesh, corners [][4]uint32) {
	sums := make([]mgl32.Vec3, len(m.Grid))
	for i, grid := range corners {
		split := defaultSplit
		if m.Quads[i].Flip {
			split = flippedSplit
		}
		for tri := 0; tri < 6; tri += 3 {
			a := mgl32.Vec3(m.Grid[grid[split[tri]]])
			b := mgl32.Vec3(m.Grid[grid[split[tri+1]]])
			c := mgl32.Vec3(m.Grid[grid[split[tri+2]]])
			n := b.Sub(a).Cross(c.Sub(a))
			for _, k := range split[tri : tri+3] {
				sums[grid[k]] = sums[grid[k]].Add(n)
			}
		}
	}

	for i, grid := range corners {
		for j, g := range grid {
			m.Vertices[i*4+j].Normal = normalize(sums[g])
		}
	}
}

func normalize(v mgl32.Vec3) [3]float32 {
	if v.Len() < 0.0001 {
		return [3]float32{0, 0, 1}
	}
	return v.Normalize()
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := range 3 {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
