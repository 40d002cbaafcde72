package formats

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/u9assets/pkg/binio"
)

// Texture decoding errors.
var (
	ErrInvalidTextureFrame = errors.New("texture frame index out of range")
)

// Texture layout sizes.
const (
	TextureSetHeaderSize = 16
	FrameRecordSize      = 8
	FrameHeaderSize      = 20
)

// transparentBit is bit 8 of the first reserved frame header field. It selects
// the 5551 pixel format. The bit was identified from observed data and may
// misclassify some frames.
const transparentBit = 8

// TextureKey identifies one decoded texture frame.
type TextureKey struct {
	Texture int
	Frame   int
}

// String returns the resource name used for the frame, e.g. "bitmap16_12_0".
func (k TextureKey) String() string {
	return fmt.Sprintf("bitmap16_%d_%d", k.Texture, k.Frame)
}

// TextureSetHeader starts every texture record.
type TextureSetHeader struct {
	FrameWidth  uint16 // maximum frame width
	Format      uint16
	FrameHeight uint16 // maximum frame height
	Compression uint16
	FrameCount  uint32
	Reserved    uint32
}

// FrameRecord locates a frame relative to the start of its texture set.
type FrameRecord struct {
	Offset uint32
	Length uint32
}

// TextureSet is a decoded texture set header with its frame table.
type TextureSet struct {
	Header TextureSetHeader
	Frames []FrameRecord
}

// FrameHeader precedes the pixel data of one frame.
type FrameHeader struct {
	Flags      uint16
	Reserved   uint16 // usually 0x6000
	Width      uint32
	Height     uint32
	Reserved2  uint32
	Reserved3  uint32
	RowOffsets []uint32
}

// Transparent reports whether the frame stores 5551 pixels.
func (h *FrameHeader) Transparent() bool {
	return (h.Flags>>transparentBit)&1 == 1
}

// PixelBuffer holds decoded RGBA pixels for one frame, row-major, four floats per pixel.
type PixelBuffer struct {
	Key         TextureKey
	Width       int
	Height      int
	Pix         []float32
	Transparent bool
}

// At returns the color of pixel (x, y).
func (p *PixelBuffer) At(x, y int) binio.Color {
	i := (y*p.Width + x) * 4
	return binio.Color{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: p.Pix[i+3]}
}

// NRGBA converts the buffer to an 8-bit image. Row 0 of the frame is the top row.
func (p *PixelBuffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := range p.Height {
		for x := range p.Width {
			c := p.At(x, y).RGBA8()
			img.SetNRGBA(x, y, color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	return img
}

// TextureOptions controls frame decoding.
type TextureOptions struct {
	// ForceOpaque decodes every frame as 565, the way terrain textures are read.
	ForceOpaque bool
}

// ParseTextureSet decodes the texture set header and frame table at the start of data.
func ParseTextureSet(data []byte) (*TextureSet, error) {
	r := binio.NewReader(data)

	h := TextureSetHeader{
		FrameWidth:  r.U16(),
		Format:      r.U16(),
		FrameHeight: r.U16(),
		Compression: r.U16(),
		FrameCount:  r.U32(),
		Reserved:    r.U32(),
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading texture set header")
	}

	if !fits(uint64(h.FrameCount), FrameRecordSize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "frame table of %d entries", h.FrameCount)
	}

	frames := make([]FrameRecord, h.FrameCount)
	for i := range frames {
		frames[i] = FrameRecord{Offset: r.U32(), Length: r.U32()}
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading frame table")
	}

	return &TextureSet{Header: h, Frames: frames}, nil
}

// ParseFrame decodes frame index of the texture set stored at the start of data.
func ParseFrame(data []byte, set *TextureSet, frame int, opts TextureOptions) (*PixelBuffer, error) {
	if frame < 0 || frame >= len(set.Frames) {
		return nil, fmt.Errorf("%w: %w: frame %d of %d",
			ErrStructuralInconsistency, ErrInvalidTextureFrame, frame, len(set.Frames))
	}

	r := binio.NewReader(data)
	if err := r.Seek(int(set.Frames[frame].Offset)); err != nil {
		return nil, truncated(err, "seeking to frame %d", frame)
	}

	h, err := readFrameHeader(r)
	if err != nil {
		return nil, err
	}

	pixels := uint64(h.Width) * uint64(h.Height)
	if !fits(pixels, 2, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "frame %d pixels %dx%d", frame, h.Width, h.Height)
	}

	buf := &PixelBuffer{
		Width:       int(h.Width),
		Height:      int(h.Height),
		Pix:         make([]float32, pixels*4),
		Transparent: h.Transparent() && !opts.ForceOpaque,
	}

	// Rows are stored contiguously; the row offset table is not needed.
	for i := range int(pixels) {
		var c binio.Color
		if buf.Transparent {
			c = r.Color5551()
		} else {
			c = r.Color565()
		}
		buf.Pix[i*4+0] = c.R
		buf.Pix[i*4+1] = c.G
		buf.Pix[i*4+2] = c.B
		buf.Pix[i*4+3] = c.A
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading frame %d pixels", frame)
	}

	return buf, nil
}

func readFrameHeader(r *binio.Reader) (*FrameHeader, error) {
	h := &FrameHeader{
		Flags:     r.U16(),
		Reserved:  r.U16(),
		Width:     r.U32(),
		Height:    r.U32(),
		Reserved2: r.U32(),
		Reserved3: r.U32(),
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading frame header")
	}

	if !fits(uint64(h.Height), 4, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "row offsets for %d rows", h.Height)
	}
	h.RowOffsets = make([]uint32, h.Height)
	for i := range h.RowOffsets {
		h.RowOffsets[i] = r.U32()
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading row offsets")
	}
	return h, nil
}

// DecodeTexture decodes one frame of the texture stored in archive record textureIndex.
func DecodeTexture(src RecordSource, textureIndex, frameIndex int, opts TextureOptions) (*PixelBuffer, error) {
	data, err := src.Section(textureIndex)
	if err != nil {
		return nil, unresolved(err, "texture %d", textureIndex)
	}

	set, err := ParseTextureSet(data)
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", textureIndex, err)
	}

	buf, err := ParseFrame(data, set, frameIndex, opts)
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", textureIndex, err)
	}
	buf.Key = TextureKey{Texture: textureIndex, Frame: frameIndex}
	return buf, nil
}
