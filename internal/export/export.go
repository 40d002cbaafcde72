// Package export writes imported scenes, models, terrain and textures to
// interchange formats: glTF 2.0 documents and PNG, WebP or TGA images.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// DefaultScaleFactor converts game units (inches) to metres.
const DefaultScaleFactor = 40

// Options controls document export.
type Options struct {
	// ScaleFactor divides model and placement positions. Terrain is built in
	// metres already and ignores it.
	ScaleFactor float32
	// LOD selects the level of detail exported for each bone. Bones without
	// geometry at that level get no mesh.
	LOD int
	// MaxTextureSize downscales embedded textures whose larger side exceeds it.
	// Zero keeps the original size.
	MaxTextureSize int
}

// DefaultOptions returns the export settings used by the CLI.
func DefaultOptions() Options {
	return Options{ScaleFactor: DefaultScaleFactor}
}

// Encode writes doc as binary glTF (.glb) or as JSON with embedded buffers.
func Encode(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	return errors.Wrap(enc.Encode(doc), "encoding glTF")
}

// WriteFile saves doc to path. A .glb extension selects the binary container.
func WriteFile(path string, doc *gltf.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	if err := Encode(f, doc, binary); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
