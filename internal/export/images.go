package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/Faultbox/u9assets/pkg/formats"
)

// Image formats accepted by EncodeImage.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

// ErrUnknownImageFormat is returned for unsupported image formats.
var ErrUnknownImageFormat = errors.New("unknown image format")

// FormatFromPath picks the image format from a file extension.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case FormatPNG, FormatWebP, FormatTGA:
		return ext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImageFormat, filepath.Ext(path))
}

// EncodeImage writes img in the given format.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	case FormatTGA:
		return tga.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnknownImageFormat, format)
}

// Downscale shrinks img so neither side exceeds maxSize, keeping its aspect
// ratio. Images that already fit, and maxSize <= 0, are returned unchanged.
func Downscale(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	if w >= h {
		h = max(1, h*maxSize/w)
		w = maxSize
	} else {
		w = max(1, w*maxSize/h)
		h = maxSize
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteImage saves a decoded frame to path in the format named by its extension.
func WriteImage(path string, buf *formats.PixelBuffer, maxSize int) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if err := EncodeImage(f, Downscale(buf.NRGBA(), maxSize), format); err != nil {
		return errors.Wrapf(err, "encoding %s as %s", buf.Key, format)
	}
	return f.Close()
}
