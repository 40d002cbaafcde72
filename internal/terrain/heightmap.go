package terrain

import (
	"github.com/Faultbox/u9assets/pkg/formats"
)

// HeightField is a dense grid of scaled point heights.
type HeightField struct {
	Width   int
	Height  int
	Heights []float32
	// Missing counts points whose chunk has no template; they read as 0.
	Missing int
}

// BuildHeightField resolves every point through its chunk template and scales
// the stored height by unit.
func BuildHeightField(t *formats.Terrain, unit float32) *HeightField {
	hf := &HeightField{
		Width:   t.Width(),
		Height:  t.Height(),
		Heights: make([]float32, t.Width()*t.Height()),
	}

	for cy := range t.ChunksY {
		for cx := range t.ChunksX {
			tmpl, ok := t.Template(cx, cy)
			if !ok {
				hf.Missing += formats.PointsPerChunk
				continue
			}
			for y := range formats.ChunkSize {
				for x := range formats.ChunkSize {
					px := cx*formats.ChunkSize + x
					py := cy*formats.ChunkSize + y
					hf.Heights[px+py*hf.Width] = float32(tmpl[x+y*formats.ChunkSize].Height()) * unit
				}
			}
		}
	}
	return hf
}

// At returns the height at point (x, y), wrapping at the edges.
func (h *HeightField) At(x, y int) float32 {
	return h.Heights[wrap(x, h.Width)+wrap(y, h.Height)*h.Width]
}

// Sample returns the bilinearly interpolated height at a world position.
func (h *HeightField) Sample(worldX, worldY, squareLength float32) float32 {
	fx := worldX / squareLength
	fy := worldY / squareLength
	x0 := floor(fx)
	y0 := floor(fy)
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	south := h.At(x0, y0)*(1-tx) + h.At(x0+1, y0)*tx
	north := h.At(x0, y0+1)*(1-tx) + h.At(x0+1, y0+1)*tx
	return south*(1-ty) + north*ty
}

func floor(v float32) int {
	i := int(v)
	if v < 0 && float32(i) != v {
		i--
	}
	return i
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
