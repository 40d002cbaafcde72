// Package binio provides a little-endian cursor reader over an in-memory byte buffer.
//
// The reader is sticky: the first failed read records an error, leaves the cursor
// where it was, and turns every later read into a no-op returning the zero value.
// Decoders read a whole record and check Err once, the way a bufio.Scanner is used.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnexpectedEndOfData is reported when fewer bytes remain than a read requires.
var ErrUnexpectedEndOfData = errors.New("unexpected end of data")

// ErrSeekOutOfRange is reported when a seek targets a position outside the buffer.
var ErrSeekOutOfRange = errors.New("seek out of range")

// Reader decodes little-endian fields from a byte slice.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader returns a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of bytes between the cursor and the end of the buffer.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int) error {
	if r.err != nil {
		return r.err
	}
	if pos < 0 || pos > len(r.data) {
		r.err = fmt.Errorf("%w: position %d, length %d", ErrSeekOutOfRange, pos, len(r.data))
		return r.err
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrUnexpectedEndOfData, n, r.pos, r.Remaining())
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadInto fills dst with the next len(dst) bytes.
func (r *Reader) ReadInto(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) I8() int8 { return int8(r.U8()) }

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

// F32 reads an IEEE-754 single precision float.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Vec2 reads two consecutive floats.
func (r *Reader) Vec2() [2]float32 {
	b := r.take(8)
	if b == nil {
		return [2]float32{}
	}
	return [2]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
	}
}

// Vec3 reads three consecutive floats.
func (r *Reader) Vec3() [3]float32 {
	b := r.take(12)
	if b == nil {
		return [3]float32{}
	}
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// ColorBGRA8 reads a 4-byte color stored as B, G, R, A.
func (r *Reader) ColorBGRA8() Color {
	b := r.take(4)
	if b == nil {
		return Color{}
	}
	return Color{
		R: float32(b[2]) / 255,
		G: float32(b[1]) / 255,
		B: float32(b[0]) / 255,
		A: float32(b[3]) / 255,
	}
}

// Color565 reads a packed opaque 16-bit color.
func (r *Reader) Color565() Color {
	b := r.take(2)
	if b == nil {
		return Color{}
	}
	return Decode565(binary.LittleEndian.Uint16(b))
}

// Color5551 reads a packed 16-bit color with a one-bit alpha.
func (r *Reader) Color5551() Color {
	b := r.take(2)
	if b == nil {
		return Color{}
	}
	return Decode5551(binary.LittleEndian.Uint16(b))
}
