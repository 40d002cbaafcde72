package binio

// Color is an RGBA color with channels normalized to [0, 1].
type Color struct {
	R, G, B, A float32
}

// RGBA8 converts the color to 8-bit channels, rounding to nearest.
func (c Color) RGBA8() [4]uint8 {
	return [4]uint8{unit8(c.R), unit8(c.G), unit8(c.B), unit8(c.A)}
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Decode565 unpacks a 16-bit color laid out as B[0:5) G[5:11) R[11:16).
// Alpha is always 1.
func Decode565(raw uint16) Color {
	return Color{
		R: float32((raw>>11)&0x1F) / 31,
		G: float32((raw>>5)&0x3F) / 63,
		B: float32(raw&0x1F) / 31,
		A: 1,
	}
}

// Decode5551 unpacks a 16-bit color laid out as B[0:5) G[5:10) R[10:15) A[15].
func Decode5551(raw uint16) Color {
	return Color{
		R: float32((raw>>10)&0x1F) / 31,
		G: float32((raw>>5)&0x1F) / 31,
		B: float32(raw&0x1F) / 31,
		A: float32((raw >> 15) & 1),
	}
}
