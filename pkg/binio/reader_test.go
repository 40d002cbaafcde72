package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestReaderScalars(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint8(0xAB))
	binary.Write(buf, binary.LittleEndian, int8(-2))
	binary.Write(buf, binary.LittleEndian, uint16(0xBEEF))
	binary.Write(buf, binary.LittleEndian, int16(-300))
	binary.Write(buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(buf, binary.LittleEndian, int32(-70000))
	binary.Write(buf, binary.LittleEndian, uint64(0x0102030405060708))
	binary.Write(buf, binary.LittleEndian, int64(-1))
	binary.Write(buf, binary.LittleEndian, float32(1.5))
	binary.Write(buf, binary.LittleEndian, [2]float32{0.25, -0.5})
	binary.Write(buf, binary.LittleEndian, [3]float32{1, 2, 3})

	r := NewReader(buf.Bytes())

	if v := r.U8(); v != 0xAB {
		t.Errorf("U8: got %#x", v)
	}
	if v := r.I8(); v != -2 {
		t.Errorf("I8: got %d", v)
	}
	if v := r.U16(); v != 0xBEEF {
		t.Errorf("U16: got %#x", v)
	}
	if v := r.I16(); v != -300 {
		t.Errorf("I16: got %d", v)
	}
	if v := r.U32(); v != 0xDEADBEEF {
		t.Errorf("U32: got %#x", v)
	}
	if v := r.I32(); v != -70000 {
		t.Errorf("I32: got %d", v)
	}
	if v := r.U64(); v != 0x0102030405060708 {
		t.Errorf("U64: got %#x", v)
	}
	if v := r.I64(); v != -1 {
		t.Errorf("I64: got %d", v)
	}
	if v := r.F32(); v != 1.5 {
		t.Errorf("F32: got %f", v)
	}
	if v := r.Vec2(); v != [2]float32{0.25, -0.5} {
		t.Errorf("Vec2: got %v", v)
	}
	if v := r.Vec3(); v != [3]float32{1, 2, 3} {
		t.Errorf("Vec3: got %v", v)
	}

	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if r.Remaining() != 0 {
		t.Errorf("expected buffer fully consumed, %d bytes left", r.Remaining())
	}
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})

	if v := r.U16(); v != 0x0201 {
		t.Fatalf("U16: got %#x", v)
	}
	if v := r.U32(); v != 0 {
		t.Errorf("expected zero value on short read, got %d", v)
	}
	if !errors.Is(r.Err(), ErrUnexpectedEndOfData) {
		t.Fatalf("expected ErrUnexpectedEndOfData, got %v", r.Err())
	}
	if r.Pos() != 2 {
		t.Errorf("cursor moved on failed read: pos %d", r.Pos())
	}

	// Sticky: a read that would fit still fails.
	if v := r.U8(); v != 0 {
		t.Errorf("expected sticky failure, got %d", v)
	}
	if r.Pos() != 2 {
		t.Errorf("cursor moved after failure: pos %d", r.Pos())
	}
}

func TestReaderSeekSkip(t *testing.T) {
	r := NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7})

	r.Skip(3)
	if v := r.U8(); v != 3 {
		t.Errorf("after Skip(3): got %d", v)
	}
	if err := r.Seek(6); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if v := r.U16(); v != 0x0706 {
		t.Errorf("after Seek(6): got %#x", v)
	}
	if err := r.Seek(9); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("expected ErrSeekOutOfRange, got %v", err)
	}
}

func TestReaderBytesCopies(t *testing.T) {
	src := []byte{9, 8, 7}
	r := NewReader(src)
	b := r.Bytes(3)
	src[0] = 0
	if b[0] != 9 {
		t.Error("Bytes must not alias the source buffer")
	}
	if r.Bytes(1) != nil {
		t.Error("expected nil on short read")
	}
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestDecode565(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Color
	}{
		{"white", 0xFFFF, Color{1, 1, 1, 1}},
		{"black", 0x0000, Color{0, 0, 0, 1}},
		{"red", 0xF800, Color{1, 0, 0, 1}},
		{"green", 0x07E0, Color{0, 1, 0, 1}},
		{"blue", 0x001F, Color{0, 0, 1, 1}},
		{"half green", 0x0400, Color{0, 32.0 / 63, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode565(tt.raw)
			if !approx(got.R, tt.want.R) || !approx(got.G, tt.want.G) ||
				!approx(got.B, tt.want.B) || got.A != tt.want.A {
				t.Errorf("Decode565(%#04x) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecode5551(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Color
	}{
		{"alpha only", 0x8000, Color{0, 0, 0, 1}},
		{"white transparent", 0x7FFF, Color{1, 1, 1, 0}},
		{"red opaque", 0xFC00, Color{1, 0, 0, 1}},
		{"green", 0x03E0, Color{0, 1, 0, 0}},
		{"blue", 0x001F, Color{0, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode5551(tt.raw)
			if !approx(got.R, tt.want.R) || !approx(got.G, tt.want.G) ||
				!approx(got.B, tt.want.B) || got.A != tt.want.A {
				t.Errorf("Decode5551(%#04x) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestReaderColors(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0x00, 0x80, 0xFF, 0xFF}) // B, G, R, A
	binary.Write(buf, binary.LittleEndian, uint16(0xFFFF))
	binary.Write(buf, binary.LittleEndian, uint16(0x8000))

	r := NewReader(buf.Bytes())

	c := r.ColorBGRA8()
	if c.R != 1 || c.B != 0 || !approx(c.G, 128.0/255) || c.A != 1 {
		t.Errorf("ColorBGRA8: got %+v", c)
	}
	if c := r.Color565(); c != (Color{1, 1, 1, 1}) {
		t.Errorf("Color565: got %+v", c)
	}
	if c := r.Color5551(); c != (Color{0, 0, 0, 1}) {
		t.Errorf("Color5551: got %+v", c)
	}
}

func TestColorRGBA8(t *testing.T) {
	c := Color{R: 1, G: 0.5, B: 0, A: 2}
	if got := c.RGBA8(); got != [4]uint8{255, 128, 0, 255} {
		t.Errorf("RGBA8: got %v", got)
	}
}
