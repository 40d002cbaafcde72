package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/u9assets/pkg/encoding"
)

// sliceSource serves each record from its own buffer.
type sliceSource [][]byte

func (s sliceSource) Section(i int) ([]byte, error) {
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("record %d of %d", i, len(s))
	}
	return s[i], nil
}

type testFrame struct {
	flags  uint16
	width  uint32
	height uint32
	pixels []uint16
}

// createTestTextureSet builds a texture set record with the given frames.
func createTestTextureSet(frames []testFrame) []byte {
	headerEnd := TextureSetHeaderSize + FrameRecordSize*len(frames)

	var blobs [][]byte
	for _, f := range frames {
		b := new(bytes.Buffer)
		binary.Write(b, binary.LittleEndian, f.flags)
		binary.Write(b, binary.LittleEndian, uint16(0x6000))
		binary.Write(b, binary.LittleEndian, f.width)
		binary.Write(b, binary.LittleEndian, f.height)
		binary.Write(b, binary.LittleEndian, uint32(0))
		binary.Write(b, binary.LittleEndian, uint32(0))
		for row := uint32(0); row < f.height; row++ {
			binary.Write(b, binary.LittleEndian, row*f.width*2)
		}
		binary.Write(b, binary.LittleEndian, f.pixels)
		blobs = append(blobs, b.Bytes())
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint16(64)) // frame width
	binary.Write(buf, binary.LittleEndian, uint16(0))  // format
	binary.Write(buf, binary.LittleEndian, uint16(64)) // frame height
	binary.Write(buf, binary.LittleEndian, uint16(0))  // compression
	binary.Write(buf, binary.LittleEndian, uint32(len(frames)))
	binary.Write(buf, binary.LittleEndian, uint32(0))

	offset := headerEnd
	for _, b := range blobs {
		binary.Write(buf, binary.LittleEndian, FrameRecord{Offset: uint32(offset), Length: uint32(len(b))})
		offset += len(b)
	}
	for _, b := range blobs {
		buf.Write(b)
	}
	return buf.Bytes()
}

// createTestTypeTable builds a types.dat with one entry per model ID.
func createTestTypeTable(models []uint16) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, TypeTableOffset))
	for i, m := range models {
		binary.Write(buf, binary.LittleEndian, TypeEntry{
			Reserved:       0xCDCDCDCD,
			UsecodeID:      uint16(100 + i),
			DefaultModelID: m,
			Flags:          TypeNeverHidden | TypeMeshCollision,
			Weight:         0xFF,
			Volume:         uint8(i),
			Hitpoints:      10,
		})
	}
	return buf.Bytes()
}

type testFace struct {
	points [3]uint32
	uvs    [3][2]float32
	normal [3][3]float32
	bgra   [4]byte
}

type testSubmesh struct {
	vertices  [][3]float32
	faces     []testFace
	materials []Material
}

type testBone struct {
	limb   uint32
	parent uint32
	lods   []*testSubmesh // nil entries are written with size 0
}

func encodeSubmesh(sm *testSubmesh) []byte {
	if sm == nil {
		return []byte{0, 0, 0, 0}
	}

	faceOffset := uint32(SubmeshHeaderSize - 4)
	vertexOffset := faceOffset + uint32(len(sm.faces))*FaceSize
	materialOffset := vertexOffset + uint32(len(sm.vertices))*12
	total := materialOffset + uint32(len(sm.materials))*MaterialSize

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, SubmeshHeader{
		Size:           total,
		Flags:          4,
		SphereRadius:   1,
		FaceCount:      uint32(len(sm.faces)),
		VertexCount:    uint32(len(sm.vertices)),
		MaxFaceCount:   uint32(len(sm.faces)),
		MaterialCount:  uint32(len(sm.materials)),
		FaceOffset:     faceOffset,
		VertexOffset:   vertexOffset,
		MaterialOffset: materialOffset,
	})
	for _, f := range sm.faces {
		for i := range 3 {
			binary.Write(buf, binary.LittleEndian, FacePoint{
				VertexIndex: f.points[i],
				ByteOffset:  f.points[i] * 12,
				Normal:      f.normal[i],
				UV:          f.uvs[i],
			})
		}
		binary.Write(buf, binary.LittleEndian, uint32(0))           // flags
		binary.Write(buf, binary.LittleEndian, uint32(0))           // flags2
		binary.Write(buf, binary.LittleEndian, [3]float32{0, 0, 1}) // normal
		binary.Write(buf, binary.LittleEndian, float32(0))          // w
		binary.Write(buf, binary.LittleEndian, uint32(0))           // material hint
		buf.Write(f.bgra[:])
		buf.Write(make([]byte, 8)) // collision
	}
	binary.Write(buf, binary.LittleEndian, sm.vertices)
	for _, m := range sm.materials {
		binary.Write(buf, binary.LittleEndian, m)
	}
	return buf.Bytes()
}

// createTestModel lays out header, offset table, then each bone followed by its LODs.
func createTestModel(bones []testBone, lodCount int) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, ModelHeader{
		SubmeshCount:  uint32(len(bones)),
		LODCount:      uint32(lodCount),
		SphereRadius:  2,
		BoundsMin:     [3]float32{-1, -1, -1},
		BoundsMax:     [3]float32{1, 1, 1},
		LODThresholds: [4]uint32{100, 200, 300, 400},
		Mass:          50,
		InertiaFactor: 1,
	})

	tableStart := buf.Len()
	buf.Write(make([]byte, len(bones)*4*(1+lodCount)))

	offsets := make([]uint32, 0, len(bones)*(1+lodCount))
	for _, b := range bones {
		offsets = append(offsets, uint32(buf.Len()))
		binary.Write(buf, binary.LittleEndian, Bone{
			LimbID:      b.limb,
			ParentID:    b.parent,
			Scale:       [3]float32{1, 1, 1},
			Position:    [3]float32{float32(b.limb), 0, 0},
			Orientation: Quat{W: 1},
		})
		for j := range lodCount {
			offsets = append(offsets, uint32(buf.Len()))
			var sm *testSubmesh
			if j < len(b.lods) {
				sm = b.lods[j]
			}
			buf.Write(encodeSubmesh(sm))
		}
	}

	data := buf.Bytes()
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(data[tableStart+i*4:], off)
	}
	return data
}

// quadSubmesh is a two-face square with one textured material per face.
func quadSubmesh() *testSubmesh {
	return &testSubmesh{
		vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		faces: []testFace{
			{
				points: [3]uint32{0, 1, 2},
				uvs:    [3][2]float32{{0, 0}, {1, 0}, {1, 1}},
				normal: [3][3]float32{{0, 0, 2}, {0, 0, 1}, {0, 0, 0}},
				bgra:   [4]byte{255, 0, 0, 255},
			},
			{
				points: [3]uint32{0, 2, 3},
				uvs:    [3][2]float32{{0, 0}, {1, 1}, {0, 1}},
				normal: [3][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
				bgra:   [4]byte{0, 0, 255, 128},
			},
		},
		materials: []Material{
			{TextureID: 12, FirstFaceID: 0, FaceCount: 1, CurFrame: 3},
			{TextureID: 40, FirstFaceID: 1, FaceCount: 1},
		},
	}
}

type testPlacement struct {
	local [3]uint16
	typ   uint16
	quat  [4]int16 // x, y, z, w
	flags uint16
}

type testPage struct {
	baseX, baseY uint32
	objects      []testPlacement
}

// createTestFixed builds a fixed placement table with one page per entry.
// Unused slots are written with type 0.
func createTestFixed(width, height uint32, pages []testPage) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, [8]uint32{0, 0, uint32(len(pages) * PlacementPageSize), 0, width, height, 0, 0})
	for i := range width * height {
		binary.Write(buf, binary.LittleEndian, i<<12|1)
	}
	for _, p := range pages {
		buf.Write(make([]byte, 12))
		binary.Write(buf, binary.LittleEndian, p.baseX)
		binary.Write(buf, binary.LittleEndian, p.baseY)
		buf.Write(make([]byte, 4*0x13))
		for slot := range FixedSlotsPerPage {
			var o testPlacement
			if slot < len(p.objects) {
				o = p.objects[slot]
			}
			binary.Write(buf, binary.LittleEndian, uint32(0)) // reference
			binary.Write(buf, binary.LittleEndian, o.local)
			binary.Write(buf, binary.LittleEndian, o.typ)
			binary.Write(buf, binary.LittleEndian, o.quat)
			binary.Write(buf, binary.LittleEndian, o.flags)
			binary.Write(buf, binary.LittleEndian, uint16(0))
		}
		buf.Write(make([]byte, FixedPagePadding))
	}
	return buf.Bytes()
}

// createTestNonFixed builds a non-fixed placement table with one 4096-byte page per entry.
func createTestNonFixed(width, height uint32, pages []testPage) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, [5]uint32{})
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, uint32(0))
	for i := range width * height {
		binary.Write(buf, binary.LittleEndian, i*PlacementPageSize)
	}
	binary.Write(buf, binary.LittleEndian, uint32(0))

	for _, p := range pages {
		page := new(bytes.Buffer)
		binary.Write(page, binary.LittleEndian, uint32(0)) // next page
		binary.Write(page, binary.LittleEndian, uint32(0))
		binary.Write(page, binary.LittleEndian, uint32(0))
		binary.Write(page, binary.LittleEndian, p.baseX)
		binary.Write(page, binary.LittleEndian, p.baseY)
		binary.Write(page, binary.LittleEndian, uint32(len(p.objects)))
		binary.Write(page, binary.LittleEndian, uint32(0)) // triggers
		page.Write(make([]byte, 17*4))
		for i, o := range p.objects {
			binary.Write(page, binary.LittleEndian, uint16((i+1)*NonFixedObjectSize))
			binary.Write(page, binary.LittleEndian, uint16(0))
			binary.Write(page, binary.LittleEndian, o.local)
			binary.Write(page, binary.LittleEndian, o.typ)
			binary.Write(page, binary.LittleEndian, o.quat)
			binary.Write(page, binary.LittleEndian, uint32(o.flags))
			binary.Write(page, binary.LittleEndian, uint16(7))  // mesh index
			binary.Write(page, binary.LittleEndian, uint16(9))  // trigger
			binary.Write(page, binary.LittleEndian, uint32(64)) // extra data
		}
		b := page.Bytes()
		if len(b) < PlacementPageSize {
			b = append(b, make([]byte, PlacementPageSize-len(b))...)
		}
		buf.Write(b)
	}
	return buf.Bytes()
}

// createTestTerrain builds a terrain file. index maps chunks to templates.
func createTestTerrain(width, height uint32, name string, index []uint16, templates []ChunkTemplate) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	buf.Write(encoding.UTF8ToFixedString(name, TerrainNameSize))
	binary.Write(buf, binary.LittleEndian, uint32(120)) // water level
	binary.Write(buf, binary.LittleEndian, uint32(3))   // wave amplitude
	binary.Write(buf, binary.LittleEndian, uint32(0))   // flags
	binary.Write(buf, binary.LittleEndian, uint32(len(templates)))
	binary.Write(buf, binary.LittleEndian, index)
	for _, t := range templates {
		binary.Write(buf, binary.LittleEndian, t)
	}
	return buf.Bytes()
}

// packPoint assembles a terrain point from its fields.
func packPoint(height uint16, hole, swap, mirror, flip bool, frame, texture int) TerrainPoint {
	p := uint32(height & 0xFFF)
	if hole {
		p |= 0x1000
	}
	if swap {
		p |= 0x2000
	}
	if mirror {
		p |= 0x4000
	}
	if flip {
		p |= 0x8000
	}
	p |= uint32(frame&0x3F) << 16
	p |= uint32(texture&0x3FF) << 22
	return TerrainPoint(p)
}
