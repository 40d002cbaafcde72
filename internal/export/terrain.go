package export

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/u9assets/internal/importer"
)

// TerrainDocument builds a glTF document with the terrain as one mesh, one
// primitive per texture group. Terrain textures are clamped at the edges.
func TerrainDocument(ts *importer.TerrainScene, opts Options) (*gltf.Document, error) {
	m := ts.Mesh
	b := newBuilder(opts, ts.Textures)
	b.clamp = true
	root := b.addRoot(m.Name, 1)

	if len(m.Indices) == 0 {
		return b.doc, nil
	}

	positions := make([][3]float32, len(m.Vertices))
	normals := make([][3]float32, len(m.Vertices))
	uvs := make([][2]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
		uvs[i] = v.TexCoord
	}

	attrs := b.attributes(positions, normals, uvs, nil)

	mesh := &gltf.Mesh{Name: m.Name}
	for _, g := range m.Groups {
		mat, err := b.material(g.Key, false)
		if err != nil {
			return nil, errors.Wrapf(err, "terrain material %s", g.Key)
		}
		indices := m.Indices[g.StartIndex : g.StartIndex+g.IndexCount]
		prim := b.primitive(attrs, indices)
		prim.Material = gltf.Index(mat)
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	b.doc.Meshes = append(b.doc.Meshes, mesh)

	node := newNode(m.Name)
	node.Mesh = gltf.Index(0)
	b.addNode(root, node)
	return b.doc, nil
}
