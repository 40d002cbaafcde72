package formats

import (
	"fmt"
	"os"

	"github.com/Faultbox/u9assets/pkg/binio"
	"github.com/Faultbox/u9assets/pkg/encoding"
)

// Terrain layout.
const (
	ChunkSize          = 16
	PointsPerChunk     = ChunkSize * ChunkSize
	TerrainNameSize    = 0x80
	TerrainHeaderSize  = 8 + TerrainNameSize + 16
	maxTerrainDim      = 1 << 14
	terrainPointSize   = 4
	chunkIndexItemSize = 2
)

// TerrainPoint is a packed 32-bit terrain point.
//
//	bits  0-11  height
//	bit     12  hole
//	bit     13  swap UV
//	bit     14  mirror UV
//	bit     15  flip diagonal
//	bits 16-21  texture frame
//	bits 22-31  texture index
type TerrainPoint uint32

func (p TerrainPoint) Height() uint16     { return uint16(p & 0xFFF) }
func (p TerrainPoint) IsHole() bool       { return p&0x1000 != 0 }
func (p TerrainPoint) SwapUV() bool       { return p&0x2000 != 0 }
func (p TerrainPoint) MirrorUV() bool     { return p&0x4000 != 0 }
func (p TerrainPoint) FlipDiagonal() bool { return p&0x8000 != 0 }
func (p TerrainPoint) Frame() int         { return int(p>>16) & 0x3F }
func (p TerrainPoint) Texture() int       { return int(p>>22) & 0x3FF }

// Rotation returns the UV rotation selector, swapUV + 2*mirrorUV.
func (p TerrainPoint) Rotation() int {
	r := 0
	if p.SwapUV() {
		r++
	}
	if p.MirrorUV() {
		r += 2
	}
	return r
}

// Key returns the texture frame the point's quad displays.
func (p TerrainPoint) Key() TextureKey {
	return TextureKey{Texture: p.Texture(), Frame: p.Frame()}
}

// ChunkTemplate is a reusable 16x16 block of points in row-major order.
type ChunkTemplate [PointsPerChunk]TerrainPoint

// TerrainHeader starts a terrain file.
type TerrainHeader struct {
	Width         uint32 // in points
	Height        uint32 // in points
	Name          string
	WaterLevel    uint32
	WaveAmplitude uint32
	Flags         uint32
	ChunkCount    uint32 // number of templates
}

// Terrain is a decoded terrain file.
type Terrain struct {
	Header     TerrainHeader
	ChunksX    int
	ChunksY    int
	ChunkIndex []uint16 // template per chunk, row-major
	Templates  []ChunkTemplate
}

// ParseTerrain decodes a terrain file from raw bytes.
func ParseTerrain(data []byte) (*Terrain, error) {
	r := binio.NewReader(data)

	var name [TerrainNameSize]byte
	h := TerrainHeader{Width: r.U32(), Height: r.U32()}
	r.ReadInto(name[:])
	h.WaterLevel = r.U32()
	h.WaveAmplitude = r.U32()
	h.Flags = r.U32()
	h.ChunkCount = r.U32()
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading terrain header")
	}
	h.Name = encoding.FixedStringToUTF8(name[:])

	if h.Width == 0 || h.Height == 0 || h.Width > maxTerrainDim || h.Height > maxTerrainDim {
		return nil, inconsistent("terrain dimensions %dx%d", h.Width, h.Height)
	}
	if h.Width%ChunkSize != 0 || h.Height%ChunkSize != 0 {
		return nil, inconsistent("terrain dimensions %dx%d not divisible by %d", h.Width, h.Height, ChunkSize)
	}

	t := &Terrain{
		Header:  h,
		ChunksX: int(h.Width / ChunkSize),
		ChunksY: int(h.Height / ChunkSize),
	}

	chunks := t.ChunksX * t.ChunksY
	if !fits(uint64(chunks), chunkIndexItemSize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "chunk index of %d entries", chunks)
	}
	t.ChunkIndex = make([]uint16, chunks)
	for i := range t.ChunkIndex {
		t.ChunkIndex[i] = r.U16()
	}

	if !fits(uint64(h.ChunkCount), PointsPerChunk*terrainPointSize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "%d chunk templates", h.ChunkCount)
	}
	t.Templates = make([]ChunkTemplate, h.ChunkCount)
	for i := range t.Templates {
		for j := range t.Templates[i] {
			t.Templates[i][j] = TerrainPoint(r.U32())
		}
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading chunk templates")
	}

	return t, nil
}

// ParseTerrainFile parses a terrain file from disk.
func ParseTerrainFile(path string) (*Terrain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading terrain: %w", err)
	}
	return ParseTerrain(data)
}

// Width returns the point grid width.
func (t *Terrain) Width() int { return int(t.Header.Width) }

// Height returns the point grid height.
func (t *Terrain) Height() int { return int(t.Header.Height) }

// Template returns the template used by chunk (cx, cy).
// ok is false when the chunk index names a template that does not exist.
func (t *Terrain) Template(cx, cy int) (*ChunkTemplate, bool) {
	idx := int(t.ChunkIndex[cx+cy*t.ChunksX])
	if idx >= len(t.Templates) {
		return nil, false
	}
	return &t.Templates[idx], true
}

// Point returns the point at grid position (x, y), wrapping at the edges.
// ok is false when the owning chunk has no template.
func (t *Terrain) Point(x, y int) (TerrainPoint, bool) {
	x = wrap(x, t.Width())
	y = wrap(y, t.Height())
	tmpl, ok := t.Template(x/ChunkSize, y/ChunkSize)
	if !ok {
		return 0, false
	}
	return tmpl[x%ChunkSize+(y%ChunkSize)*ChunkSize], true
}

// MissingTemplates returns the number of chunks whose template index is out of range.
func (t *Terrain) MissingTemplates() int {
	n := 0
	for _, idx := range t.ChunkIndex {
		if int(idx) >= len(t.Templates) {
			n++
		}
	}
	return n
}

// TextureKeys returns the distinct texture frames of non-hole points in first-use order.
func (t *Terrain) TextureKeys() []TextureKey {
	var keys []TextureKey
	seen := make(map[TextureKey]bool)
	for y := range t.Height() {
		for x := range t.Width() {
			p, ok := t.Point(x, y)
			if !ok || p.IsHole() || seen[p.Key()] {
				continue
			}
			seen[p.Key()] = true
			keys = append(keys, p.Key())
		}
	}
	return keys
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
