package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/u9assets/internal/logger"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// Alpha cutoffs of the two masked material kinds.
const (
	transparentCutoff = 0.999
	invisibleCutoff   = 0.5
)

// zUpToYUp rotates the game's Z-up frame into glTF's Y-up frame:
// (x, y, z) becomes (x, z, -y).
var zUpToYUp = mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0})

type materialKey struct {
	key       formats.TextureKey
	invisible bool
}

// builder accumulates one glTF document. Textures, materials and samplers are
// shared by every mesh that references them.
type builder struct {
	doc      *gltf.Document
	opts     Options
	log      *zap.Logger
	textures map[formats.TextureKey]*formats.PixelBuffer

	clamp       bool
	doubleSided bool

	sampler   *uint32
	texIndex  map[formats.TextureKey]uint32
	matIndex  map[materialKey]uint32
	meshIndex map[[2]int]*uint32
}

func newBuilder(opts Options, textures map[formats.TextureKey]*formats.PixelBuffer) *builder {
	return &builder{
		doc:       gltf.NewDocument(),
		opts:      opts,
		log:       logger.Named("export"),
		textures:  textures,
		texIndex:  make(map[formats.TextureKey]uint32),
		matIndex:  make(map[materialKey]uint32),
		meshIndex: make(map[[2]int]*uint32),
	}
}

func newNode(name string) *gltf.Node {
	return &gltf.Node{
		Name:     name,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// addRoot adds the scene root that converts to Y-up and applies scale.
func (b *builder) addRoot(name string, scale float32) uint32 {
	root := newNode(name)
	root.Rotation = gltfRotation(zUpToYUp)
	root.Scale = [3]float32{scale, scale, scale}

	idx := uint32(len(b.doc.Nodes))
	b.doc.Nodes = append(b.doc.Nodes, root)
	b.doc.Scenes[0].Name = name
	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, idx)
	return idx
}

func (b *builder) addNode(parent uint32, n *gltf.Node) uint32 {
	idx := uint32(len(b.doc.Nodes))
	b.doc.Nodes = append(b.doc.Nodes, n)
	b.doc.Nodes[parent].Children = append(b.doc.Nodes[parent].Children, idx)
	return idx
}

// gltfRotation returns q as a unit (x, y, z, w) rotation. A zero quaternion
// becomes the identity.
func gltfRotation(q mgl32.Quat) [4]float32 {
	if q.Len() == 0 {
		return [4]float32{0, 0, 0, 1}
	}
	q = q.Normalize()
	return [4]float32{q.X(), q.Y(), q.Z(), q.W}
}

func quat(q formats.Quat) mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func (b *builder) samplerIndex() uint32 {
	if b.sampler != nil {
		return *b.sampler
	}
	s := &gltf.Sampler{
		MagFilter: gltf.MagLinear,
		MinFilter: gltf.MinLinearMipMapLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	}
	if b.clamp {
		s.WrapS = gltf.WrapClampToEdge
		s.WrapT = gltf.WrapClampToEdge
	}
	b.sampler = gltf.Index(uint32(len(b.doc.Samplers)))
	b.doc.Samplers = append(b.doc.Samplers, s)
	return *b.sampler
}

// texture embeds the decoded frame for key as PNG. ok is false when the frame
// was not decoded.
func (b *builder) texture(key formats.TextureKey) (idx uint32, ok bool, err error) {
	if idx, ok := b.texIndex[key]; ok {
		return idx, true, nil
	}
	buf := b.textures[key]
	if buf == nil {
		return 0, false, nil
	}

	var out bytes.Buffer
	if err := EncodeImage(&out, Downscale(buf.NRGBA(), b.opts.MaxTextureSize), FormatPNG); err != nil {
		return 0, false, errors.Wrapf(err, "encoding %s", key)
	}
	img, err := modeler.WriteImage(b.doc, key.String(), "image/png", &out)
	if err != nil {
		return 0, false, errors.Wrapf(err, "embedding %s", key)
	}

	idx = uint32(len(b.doc.Textures))
	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Name:    key.String(),
		Sampler: gltf.Index(b.samplerIndex()),
		Source:  gltf.Index(img),
	})
	b.texIndex[key] = idx
	return idx, true, nil
}

// material returns the material for a texture frame. Invisible materials are
// fully transparent; frames decoded with alpha are alpha-masked.
func (b *builder) material(key formats.TextureKey, invisible bool) (uint32, error) {
	mk := materialKey{key: key, invisible: invisible}
	if idx, ok := b.matIndex[mk]; ok {
		return idx, nil
	}

	mat := &gltf.Material{
		Name:        key.String(),
		DoubleSided: b.doubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor: float(0),
		},
	}

	if invisible {
		mat.Name = "invisible"
		mat.AlphaMode = gltf.AlphaMask
		mat.AlphaCutoff = float(invisibleCutoff)
		mat.PBRMetallicRoughness.BaseColorFactor = &[4]float32{1, 1, 1, 0}
	} else {
		tex, ok, err := b.texture(key)
		if err != nil {
			return 0, err
		}
		if ok {
			mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
			if b.textures[key].Transparent {
				mat.AlphaMode = gltf.AlphaMask
				mat.AlphaCutoff = float(transparentCutoff)
			}
		} else {
			b.log.Debug("material left untextured", zap.Stringer("texture", key))
		}
	}

	idx := uint32(len(b.doc.Materials))
	b.doc.Materials = append(b.doc.Materials, mat)
	b.matIndex[mk] = idx
	return idx, nil
}

func float(v float32) *float32 {
	return &v
}

// attributes writes the vertex streams shared by one or more primitives.
func (b *builder) attributes(positions, normals [][3]float32, uvs [][2]float32, colors [][4]uint8) map[string]uint32 {
	attrs := map[string]uint32{
		"POSITION":   modeler.WritePosition(b.doc, positions),
		"NORMAL":     modeler.WriteNormal(b.doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(b.doc, uvs),
	}
	if colors != nil {
		attrs["COLOR_0"] = modeler.WriteColor(b.doc, colors)
	}
	return attrs
}

// primitive adds an indexed triangle list over attrs.
func (b *builder) primitive(attrs map[string]uint32, indices []uint32) *gltf.Primitive {
	return &gltf.Primitive{
		Attributes: attrs,
		Indices:    gltf.Index(modeler.WriteIndices(b.doc, indices)),
	}
}

func meshName(model int, limb uint32, lod int) string {
	return fmt.Sprintf("mesh_%d_%d_lod_%d", model, limb, lod)
}
