package export

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/u9assets/internal/importer"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// SceneDocument builds a glTF document with one node tree per instance.
// Meshes are shared between instances of the same model.
func SceneDocument(sc *importer.Scene, opts Options) (*gltf.Document, error) {
	if opts.ScaleFactor <= 0 {
		return nil, errors.Errorf("invalid scale factor %v", opts.ScaleFactor)
	}

	b := newBuilder(opts, sc.Textures)
	b.doubleSided = true
	root := b.addRoot(sc.Name, 1/opts.ScaleFactor)

	for i, inst := range sc.Instances {
		m := sc.Models[inst.ModelIndex]
		if m == nil {
			continue
		}
		node := newNode(fmt.Sprintf("instance_%d_model_%d", i, inst.ModelIndex))
		node.Translation = inst.World
		node.Rotation = gltfRotation(quat(inst.Orientation))
		parent := b.addNode(root, node)

		if err := b.addSkeleton(parent, m, i); err != nil {
			return nil, errors.Wrapf(err, "exporting instance %d", i)
		}
	}
	return b.doc, nil
}

// ModelDocument builds a glTF document holding a single model at the origin.
func ModelDocument(m *formats.Model, textures map[formats.TextureKey]*formats.PixelBuffer, opts Options) (*gltf.Document, error) {
	sc := &importer.Scene{
		Name:      fmt.Sprintf("model_%d", m.Index),
		Instances: []importer.Instance{{ModelIndex: m.Index, Orientation: formats.Quat{W: 1}}},
		Models:    map[int]*formats.Model{m.Index: m},
		Textures:  textures,
	}
	return SceneDocument(sc, opts)
}

// addSkeleton adds one node per bone under parent. Bones precede their
// children, so parents always have a node by the time a child is added.
func (b *builder) addSkeleton(parent uint32, m *formats.Model, instance int) error {
	nodes := make([]uint32, len(m.Bones))
	for i := range m.Bones {
		bone := &m.Bones[i]

		n := newNode(fmt.Sprintf("bone_%d_%d_%d", instance, m.Index, bone.LimbID))
		n.Translation = bone.Position
		n.Rotation = gltfRotation(quat(bone.Orientation))
		n.Scale = bone.Scale

		mesh, err := b.boneMesh(m, i)
		if err != nil {
			return errors.Wrapf(err, "bone %d", i)
		}
		n.Mesh = mesh

		p := parent
		if bone.Parent >= 0 {
			p = nodes[bone.Parent]
		}
		nodes[i] = b.addNode(p, n)
	}
	return nil
}

// boneMesh returns the shared mesh of bone i at the exported level of detail,
// or nil when the bone has no geometry there.
func (b *builder) boneMesh(m *formats.Model, i int) (*uint32, error) {
	key := [2]int{m.Index, i}
	if idx, ok := b.meshIndex[key]; ok {
		return idx, nil
	}

	var sm *formats.Submesh
	if lods := m.Bones[i].LODs; b.opts.LOD < len(lods) {
		sm = lods[b.opts.LOD]
	}
	if sm == nil || len(sm.Faces) == 0 {
		b.meshIndex[key] = nil
		return nil, nil
	}

	mesh := &gltf.Mesh{Name: meshName(m.Index, m.Bones[i].LimbID, b.opts.LOD)}
	corners := sm.Corners()
	for _, g := range faceGroups(sm) {
		var (
			positions = make([][3]float32, 0, len(g.faces)*3)
			normals   = make([][3]float32, 0, len(g.faces)*3)
			uvs       = make([][2]float32, 0, len(g.faces)*3)
			colors    = make([][4]uint8, 0, len(g.faces)*3)
			indices   = make([]uint32, 0, len(g.faces)*3)
		)
		for _, f := range g.faces {
			tri := corners[f*3 : f*3+3]
			var p [3][3]float32
			for j, c := range tri {
				p[j] = sm.Vertices[c.Vertex]
			}
			flat := faceNormal(p)
			for j, c := range tri {
				n := c.Normal
				if n == ([3]float32{}) {
					n = flat
				}
				indices = append(indices, uint32(len(positions)))
				positions = append(positions, p[j])
				normals = append(normals, n)
				uvs = append(uvs, c.UV)
				colors = append(colors, c.Color.RGBA8())
			}
		}

		prim := b.primitive(b.attributes(positions, normals, uvs, colors), indices)
		if g.material >= 0 {
			mat := &sm.Materials[g.material]
			idx, err := b.material(mat.Key(), mat.Invisible())
			if err != nil {
				return nil, err
			}
			prim.Material = gltf.Index(idx)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}

	idx := gltf.Index(uint32(len(b.doc.Meshes)))
	b.doc.Meshes = append(b.doc.Meshes, mesh)
	b.meshIndex[key] = idx
	return idx, nil
}

type faceGroup struct {
	material int // -1 when the submesh has no materials
	faces    []int
}

// faceGroups splits faces by material in material order. Empty groups are dropped.
func faceGroups(sm *formats.Submesh) []faceGroup {
	if len(sm.Materials) == 0 {
		g := faceGroup{material: -1, faces: make([]int, len(sm.Faces))}
		for i := range g.faces {
			g.faces[i] = i
		}
		return []faceGroup{g}
	}

	groups := make([]faceGroup, len(sm.Materials))
	for i := range groups {
		groups[i].material = i
	}
	for f, m := range sm.FaceMaterial {
		groups[m].faces = append(groups[m].faces, f)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.faces) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// faceNormal returns the unit normal of a triangle in emitted winding, or +Z
// for degenerate triangles.
func faceNormal(p [3][3]float32) [3]float32 {
	e1 := mgl32.Vec3(p[1]).Sub(mgl32.Vec3(p[0]))
	e2 := mgl32.Vec3(p[2]).Sub(mgl32.Vec3(p[0]))
	n := e1.Cross(e2)
	if n.Len() == 0 {
		return [3]float32{0, 0, 1}
	}
	return n.Normalize()
}
