package formats

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/u9assets/pkg/binio"
)

// ErrModelImport wraps every failure that aborts a whole model.
var ErrModelImport = errors.New("model import failed")

// Model layout sizes.
const (
	ModelHeaderSize   = 144
	BoneSize          = 48
	SubmeshHeaderSize = 124
	FaceSize          = 124
	FacePointSize     = 28
	MaterialSize      = 24
)

// InvisibleTexture is the material texture ID of the invisible placeholder.
const InvisibleTexture = 65535

// MaxLODs is the number of level of detail thresholds in a model header.
const MaxLODs = 4

// Quat is a rotation quaternion.
type Quat struct {
	W, X, Y, Z float32
}

// ModelHeader starts every model record.
type ModelHeader struct {
	SubmeshCount   uint32
	LODCount       uint32
	CylinderBase   [3]float32
	CylinderHeight float32
	CylinderRadius float32
	SphereCenter   [3]float32
	SphereRadius   float32
	Reserved       float32
	BoundsMin      [3]float32
	BoundsMax      [3]float32
	LODThresholds  [MaxLODs]uint32
	CenterOfMass   [3]float32
	Mass           float32
	Inertia        [36]byte
	InertiaFactor  float32
}

// BoneOffsetEntry locates a bone and its per-LOD submeshes, relative to the model start.
type BoneOffsetEntry struct {
	BoneHeaderOffset uint32
	LODOffsets       []uint32
}

// Bone is one skeleton node. ParentID refers to another bone's LimbID.
type Bone struct {
	LimbID      uint32
	ParentID    uint32
	Scale       [3]float32
	Position    [3]float32
	Orientation Quat
}

// SubmeshHeader describes one submesh. Offsets are relative to the submesh start plus 4.
type SubmeshHeader struct {
	Size              uint32
	Flags             uint32
	Reserved1         uint32
	SphereCenter      [3]float32
	SphereRadius      float32
	BoundsMin         [3]float32
	BoundsMax         [3]float32
	Reserved2         uint32
	Reserved3         uint32
	FaceCount         uint32
	MountFaceCount    uint32
	VertexCount       uint32
	MountVertexCount  uint32
	MaxFaceCount      uint32
	MaterialCount     uint32
	FaceOffset        uint32
	MountFaceOffset   uint32
	VertexOffset      uint32
	MountVertexOffset uint32
	MaterialOffset    uint32
	SortedFaceOffsets [4]uint32
	Reserved4         uint32
}

// FacePoint is one corner of a face.
type FacePoint struct {
	VertexIndex uint32
	ByteOffset  uint32
	Normal      [3]float32 // not always unit length
	UV          [2]float32
}

// Face is a stored triangle.
type Face struct {
	Points       [3]FacePoint
	Flags        uint32
	Flags2       uint32
	Normal       [3]float32
	NormalW      float32
	MaterialHint uint32 // unreliable, use the material list
	Color        binio.Color
	Collision    [8]byte
}

// Material assigns a texture to a contiguous face range.
type Material struct {
	TextureID         uint16
	Flags             uint16
	SubtextureCount   uint16
	Flags2            uint16
	FirstFaceID       uint16
	FaceCount         uint16
	DefaultAlpha      uint8
	ModifiedAlpha     uint8
	AnimStart         uint8
	AnimEnd           uint8
	CurFrame          uint8
	AnimSpeed         uint8
	AnimType          uint8
	PlaybackDirection uint8 // 0 forward, 1 backward
	AnimTimer         uint32
}

// Invisible reports whether the material is the untextured placeholder.
func (m *Material) Invisible() bool {
	return m.TextureID == InvisibleTexture
}

// Key returns the texture frame the material displays.
func (m *Material) Key() TextureKey {
	return TextureKey{Texture: int(m.TextureID), Frame: int(m.CurFrame)}
}

// Submesh is the geometry of one bone at one level of detail.
type Submesh struct {
	Header    SubmeshHeader
	Vertices  [][3]float32
	Faces     []Face
	Materials []Material
	// FaceMaterial holds the material index of each face.
	FaceMaterial []int
}

// Triangles returns vertex indexes per face with the second and third points
// swapped, which gives the front-facing winding.
func (s *Submesh) Triangles() [][3]uint32 {
	tris := make([][3]uint32, len(s.Faces))
	for i := range s.Faces {
		p := &s.Faces[i].Points
		tris[i] = [3]uint32{p[0].VertexIndex, p[2].VertexIndex, p[1].VertexIndex}
	}
	return tris
}

// Corner carries the per-corner attributes of an emitted triangle.
type Corner struct {
	Vertex uint32
	UV     [2]float32
	Normal [3]float32
	Color  binio.Color
}

// cornerOrder maps emitted corner slots to stored face points.
var cornerOrder = [3]int{0, 2, 1}

// Corners returns three corners per face in emitted winding order.
// Normals are normalized unless zero.
func (s *Submesh) Corners() []Corner {
	corners := make([]Corner, 0, len(s.Faces)*3)
	for i := range s.Faces {
		f := &s.Faces[i]
		for _, p := range cornerOrder {
			pt := &f.Points[p]
			corners = append(corners, Corner{
				Vertex: pt.VertexIndex,
				UV:     pt.UV,
				Normal: normalize(pt.Normal),
				Color:  f.Color,
			})
		}
	}
	return corners
}

// Invisible reports whether no material of the submesh needs a texture.
func (s *Submesh) Invisible() bool {
	for i := range s.Materials {
		if !s.Materials[i].Invisible() {
			return false
		}
	}
	return true
}

// TextureKeys returns the distinct texture frames used by visible materials.
func (s *Submesh) TextureKeys() []TextureKey {
	var keys []TextureKey
	seen := make(map[TextureKey]bool)
	for i := range s.Materials {
		m := &s.Materials[i]
		if m.Invisible() || seen[m.Key()] {
			continue
		}
		seen[m.Key()] = true
		keys = append(keys, m.Key())
	}
	return keys
}

// assignMaterials partitions faces by material ranges in list order.
// Faces outside every range keep material 0.
func (s *Submesh) assignMaterials() []error {
	var warnings []error
	s.FaceMaterial = make([]int, len(s.Faces))
	for i := range s.Materials {
		m := &s.Materials[i]
		end := int(m.FirstFaceID) + int(m.FaceCount)
		if end > len(s.Faces) {
			warnings = append(warnings, inconsistent("material %d covers faces [%d, %d) of %d",
				i, m.FirstFaceID, end, len(s.Faces)))
			end = len(s.Faces)
		}
		for f := int(m.FirstFaceID); f < end; f++ {
			s.FaceMaterial[f] = i
		}
	}
	return warnings
}

func (s *Submesh) validate() error {
	for i := range s.Faces {
		for j, p := range s.Faces[i].Points {
			if p.VertexIndex >= uint32(len(s.Vertices)) {
				return inconsistent("face %d point %d references vertex %d of %d",
					i, j, p.VertexIndex, len(s.Vertices))
			}
		}
	}
	return nil
}

// ModelBone is a decoded bone with its resolved parent and per-LOD geometry.
type ModelBone struct {
	Bone
	// Parent is the index of the parent bone in Model.Bones, or -1 for a root.
	Parent int
	// LODs has one entry per level of detail; nil means no geometry at that level.
	LODs []*Submesh
}

// Model is a fully decoded model record.
type Model struct {
	Index   int
	Header  ModelHeader
	Offsets []BoneOffsetEntry
	Bones   []ModelBone
	// Warnings lists elements skipped because of structural problems.
	Warnings []error
}

// Roots returns the indexes of bones without a parent.
func (m *Model) Roots() []int {
	var roots []int
	for i := range m.Bones {
		if m.Bones[i].Parent < 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children returns the indexes of bones whose parent is bone i.
func (m *Model) Children(i int) []int {
	var children []int
	for j := range m.Bones {
		if m.Bones[j].Parent == i {
			children = append(children, j)
		}
	}
	return children
}

// TextureKeys returns the distinct texture frames used by every submesh.
func (m *Model) TextureKeys() []TextureKey {
	var keys []TextureKey
	seen := make(map[TextureKey]bool)
	for _, b := range m.Bones {
		for _, sm := range b.LODs {
			if sm == nil {
				continue
			}
			for _, k := range sm.TextureKeys() {
				if !seen[k] {
					seen[k] = true
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

// SubmeshCount returns the number of present submeshes across all bones and LODs.
func (m *Model) SubmeshCount() int {
	n := 0
	for _, b := range m.Bones {
		for _, sm := range b.LODs {
			if sm != nil {
				n++
			}
		}
	}
	return n
}

// ModelOptions controls model decoding.
type ModelOptions struct {
	// OnlyLOD0 skips every level of detail except the first.
	OnlyLOD0 bool
}

// DecodeModel decodes the model stored in archive record modelIndex.
// Any truncation aborts the whole model.
func DecodeModel(src RecordSource, modelIndex int, opts ModelOptions) (*Model, error) {
	data, err := src.Section(modelIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelImport, unresolved(err, "model %d", modelIndex))
	}

	m, err := ParseModel(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: model %d: %w", ErrModelImport, modelIndex, err)
	}
	m.Index = modelIndex
	return m, nil
}

// ParseModel decodes a model whose record starts at data[0].
func ParseModel(data []byte, opts ModelOptions) (*Model, error) {
	r := binio.NewReader(data)

	m := &Model{Header: readModelHeader(r)}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading model header")
	}

	h := &m.Header
	entrySize := 4 * (1 + uint64(h.LODCount))
	if !fits(uint64(h.SubmeshCount), entrySize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData,
			"offset table of %d bones x %d LODs", h.SubmeshCount, h.LODCount)
	}

	m.Offsets = make([]BoneOffsetEntry, h.SubmeshCount)
	for i := range m.Offsets {
		e := &m.Offsets[i]
		e.BoneHeaderOffset = r.U32()
		e.LODOffsets = make([]uint32, h.LODCount)
		for j := range e.LODOffsets {
			e.LODOffsets[j] = r.U32()
		}
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading offset table")
	}

	m.Bones = make([]ModelBone, len(m.Offsets))
	for i, e := range m.Offsets {
		r.Seek(int(e.BoneHeaderOffset))
		b := &m.Bones[i]
		b.Bone = readBone(r)
		if err := r.Err(); err != nil {
			return nil, truncated(err, "reading bone %d", i)
		}

		b.LODs = make([]*Submesh, len(e.LODOffsets))
		for j, off := range e.LODOffsets {
			if opts.OnlyLOD0 && j > 0 {
				break
			}
			sm, err := readSubmesh(r, int(off))
			if err != nil {
				return nil, fmt.Errorf("bone %d LOD %d: %w", i, j, err)
			}
			if sm == nil {
				continue
			}
			if err := sm.validate(); err != nil {
				m.Warnings = append(m.Warnings, fmt.Errorf("bone %d LOD %d dropped: %w", i, j, err))
				continue
			}
			for _, w := range sm.assignMaterials() {
				m.Warnings = append(m.Warnings, fmt.Errorf("bone %d LOD %d: %w", i, j, w))
			}
			b.LODs[j] = sm
		}
	}

	m.resolveParents()
	return m, nil
}

// resolveParents links each bone to the first earlier bone whose LimbID matches its
// ParentID. Parents can only precede children, so the result is acyclic; bones that
// name themselves or an unknown limb become roots.
func (m *Model) resolveParents() {
	seen := make(map[uint32]int, len(m.Bones))
	for i := range m.Bones {
		b := &m.Bones[i]
		b.Parent = -1
		if b.ParentID != b.LimbID {
			if p, ok := seen[b.ParentID]; ok {
				b.Parent = p
			}
		}
		if _, dup := seen[b.LimbID]; !dup {
			seen[b.LimbID] = i
		}
	}
}

func readModelHeader(r *binio.Reader) ModelHeader {
	var h ModelHeader
	h.SubmeshCount = r.U32()
	h.LODCount = r.U32()
	h.CylinderBase = r.Vec3()
	h.CylinderHeight = r.F32()
	h.CylinderRadius = r.F32()
	h.SphereCenter = r.Vec3()
	h.SphereRadius = r.F32()
	h.Reserved = r.F32()
	h.BoundsMin = r.Vec3()
	h.BoundsMax = r.Vec3()
	for i := range h.LODThresholds {
		h.LODThresholds[i] = r.U32()
	}
	h.CenterOfMass = r.Vec3()
	h.Mass = r.F32()
	r.ReadInto(h.Inertia[:])
	h.InertiaFactor = r.F32()
	return h
}

func readBone(r *binio.Reader) Bone {
	return Bone{
		LimbID:   r.U32(),
		ParentID: r.U32(),
		Scale:    r.Vec3(),
		Position: r.Vec3(),
		Orientation: Quat{
			W: r.F32(),
			X: r.F32(),
			Y: r.F32(),
			Z: r.F32(),
		},
	}
}

// readSubmesh decodes the submesh at start. It returns nil, nil when the size
// field is zero, meaning the bone has no geometry at this level of detail.
func readSubmesh(r *binio.Reader, start int) (*Submesh, error) {
	r.Seek(start)
	size := r.U32()
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading submesh size")
	}
	if size == 0 {
		return nil, nil
	}

	h := SubmeshHeader{Size: size}
	h.Flags = r.U32()
	h.Reserved1 = r.U32()
	h.SphereCenter = r.Vec3()
	h.SphereRadius = r.F32()
	h.BoundsMin = r.Vec3()
	h.BoundsMax = r.Vec3()
	h.Reserved2 = r.U32()
	h.Reserved3 = r.U32()
	h.FaceCount = r.U32()
	h.MountFaceCount = r.U32()
	h.VertexCount = r.U32()
	h.MountVertexCount = r.U32()
	h.MaxFaceCount = r.U32()
	h.MaterialCount = r.U32()
	h.FaceOffset = r.U32()
	h.MountFaceOffset = r.U32()
	h.VertexOffset = r.U32()
	h.MountVertexOffset = r.U32()
	h.MaterialOffset = r.U32()
	for i := range h.SortedFaceOffsets {
		h.SortedFaceOffsets[i] = r.U32()
	}
	h.Reserved4 = r.U32()
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading submesh header")
	}

	base := start + 4
	sm := &Submesh{Header: h}

	r.Seek(base + int(h.FaceOffset))
	if !fits(uint64(h.FaceCount), FaceSize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "%d faces", h.FaceCount)
	}
	sm.Faces = make([]Face, h.FaceCount)
	for i := range sm.Faces {
		sm.Faces[i] = readFace(r)
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading faces")
	}

	r.Seek(base + int(h.VertexOffset))
	if !fits(uint64(h.VertexCount), 12, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "%d vertices", h.VertexCount)
	}
	sm.Vertices = make([][3]float32, h.VertexCount)
	for i := range sm.Vertices {
		sm.Vertices[i] = r.Vec3()
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading vertices")
	}

	r.Seek(base + int(h.MaterialOffset))
	if !fits(uint64(h.MaterialCount), MaterialSize, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "%d materials", h.MaterialCount)
	}
	sm.Materials = make([]Material, h.MaterialCount)
	for i := range sm.Materials {
		sm.Materials[i] = readMaterial(r)
	}
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading materials")
	}

	return sm, nil
}

func readFacePoint(r *binio.Reader) FacePoint {
	return FacePoint{
		VertexIndex: r.U32(),
		ByteOffset:  r.U32(),
		Normal:      r.Vec3(),
		UV:          r.Vec2(),
	}
}

func readFace(r *binio.Reader) Face {
	var f Face
	for i := range f.Points {
		f.Points[i] = readFacePoint(r)
	}
	f.Flags = r.U32()
	f.Flags2 = r.U32()
	f.Normal = r.Vec3()
	f.NormalW = r.F32()
	f.MaterialHint = r.U32()
	f.Color = r.ColorBGRA8()
	r.ReadInto(f.Collision[:])
	return f
}

func readMaterial(r *binio.Reader) Material {
	return Material{
		TextureID:         r.U16(),
		Flags:             r.U16(),
		SubtextureCount:   r.U16(),
		Flags2:            r.U16(),
		FirstFaceID:       r.U16(),
		FaceCount:         r.U16(),
		DefaultAlpha:      r.U8(),
		ModifiedAlpha:     r.U8(),
		AnimStart:         r.U8(),
		AnimEnd:           r.U8(),
		CurFrame:          r.U8(),
		AnimSpeed:         r.U8(),
		AnimType:          r.U8(),
		PlaybackDirection: r.U8(),
		AnimTimer:         r.U32(),
	}
}

func normalize(v [3]float32) [3]float32 {
	l := math.Sqrt(float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1]) + float64(v[2])*float64(v[2]))
	if l == 0 {
		return v
	}
	return [3]float32{float32(float64(v[0]) / l), float32(float64(v[1]) / l), float32(float64(v[2]) / l)}
}
