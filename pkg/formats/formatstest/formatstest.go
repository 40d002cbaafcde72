// Package formatstest builds small Ultima IX records for tests of packages
// that consume the formats decoders.
package formatstest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/u9assets/pkg/formats"
)

// Source serves record i from element i.
type Source [][]byte

// Section implements formats.RecordSource.
func (s Source) Section(i int) ([]byte, error) {
	if i < 0 || i >= len(s) || s[i] == nil {
		return nil, fmt.Errorf("record %d of %d", i, len(s))
	}
	return s[i], nil
}

// Frame describes one texture frame. Pixels are raw 16-bit values.
type Frame struct {
	Flags  uint16
	Width  uint32
	Height uint32
	Pixels []uint16
}

// TransparentFlag marks a frame as 5551.
const TransparentFlag = 0x0100

// SolidFrame returns a width x height frame filled with one 565 pixel.
func SolidFrame(width, height uint32, pixel uint16) Frame {
	px := make([]uint16, width*height)
	for i := range px {
		px[i] = pixel
	}
	return Frame{Width: width, Height: height, Pixels: px}
}

// TextureSet encodes a texture record holding frames.
func TextureSet(frames ...Frame) []byte {
	var blobs [][]byte
	for _, f := range frames {
		b := new(bytes.Buffer)
		binary.Write(b, binary.LittleEndian, f.Flags)
		binary.Write(b, binary.LittleEndian, uint16(0x6000))
		binary.Write(b, binary.LittleEndian, f.Width)
		binary.Write(b, binary.LittleEndian, f.Height)
		binary.Write(b, binary.LittleEndian, [2]uint32{})
		for row := range f.Height {
			binary.Write(b, binary.LittleEndian, row*f.Width*2)
		}
		binary.Write(b, binary.LittleEndian, f.Pixels)
		blobs = append(blobs, b.Bytes())
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, formats.TextureSetHeader{
		FrameWidth:  64,
		FrameHeight: 64,
		FrameCount:  uint32(len(frames)),
	})
	offset := formats.TextureSetHeaderSize + formats.FrameRecordSize*len(frames)
	for _, b := range blobs {
		binary.Write(buf, binary.LittleEndian, formats.FrameRecord{Offset: uint32(offset), Length: uint32(len(b))})
		offset += len(b)
	}
	for _, b := range blobs {
		buf.Write(b)
	}
	return buf.Bytes()
}

// Face is one triangle of a Submesh.
type Face struct {
	Points  [3]uint32
	UVs     [3][2]float32
	Normals [3][3]float32
	BGRA    [4]byte
}

// Submesh is the geometry of one bone at one level of detail.
type Submesh struct {
	Vertices  [][3]float32
	Faces     []Face
	Materials []formats.Material
}

// Bone is one skeleton node. Nil LODs are written with size 0.
type Bone struct {
	Limb     uint32
	Parent   uint32
	Position [3]float32
	LODs     []*Submesh
}

// Quad returns a unit square of two faces covered by one material.
func Quad(texture uint16, frame uint8) *Submesh {
	up := [3][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	return &Submesh{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Faces: []Face{
			{Points: [3]uint32{0, 1, 2}, UVs: [3][2]float32{{0, 0}, {1, 0}, {1, 1}}, Normals: up, BGRA: [4]byte{255, 255, 255, 255}},
			{Points: [3]uint32{0, 2, 3}, UVs: [3][2]float32{{0, 0}, {1, 1}, {0, 1}}, Normals: up, BGRA: [4]byte{255, 255, 255, 255}},
		},
		Materials: []formats.Material{
			{TextureID: texture, FirstFaceID: 0, FaceCount: 2, CurFrame: frame, DefaultAlpha: 255},
		},
	}
}

// Model encodes a model record: header, offset table, then each bone followed
// by its LODs.
func Model(lodCount int, bones ...Bone) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, formats.ModelHeader{
		SubmeshCount:  uint32(len(bones)),
		LODCount:      uint32(lodCount),
		SphereRadius:  1,
		BoundsMin:     [3]float32{0, 0, 0},
		BoundsMax:     [3]float32{1, 1, 0},
		InertiaFactor: 1,
	})

	tableStart := buf.Len()
	buf.Write(make([]byte, len(bones)*4*(1+lodCount)))

	var offsets []uint32
	for _, b := range bones {
		offsets = append(offsets, uint32(buf.Len()))
		binary.Write(buf, binary.LittleEndian, formats.Bone{
			LimbID:      b.Limb,
			ParentID:    b.Parent,
			Scale:       [3]float32{1, 1, 1},
			Position:    b.Position,
			Orientation: formats.Quat{W: 1},
		})
		for j := range lodCount {
			offsets = append(offsets, uint32(buf.Len()))
			var sm *Submesh
			if j < len(b.LODs) {
				sm = b.LODs[j]
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

func encodeSubmesh(sm *Submesh) []byte {
	if sm == nil {
		return make([]byte, 4)
	}

	faceOffset := uint32(formats.SubmeshHeaderSize - 4)
	vertexOffset := faceOffset + uint32(len(sm.Faces))*formats.FaceSize
	materialOffset := vertexOffset + uint32(len(sm.Vertices))*12
	total := materialOffset + uint32(len(sm.Materials))*formats.MaterialSize

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, formats.SubmeshHeader{
		Size:           total,
		FaceCount:      uint32(len(sm.Faces)),
		VertexCount:    uint32(len(sm.Vertices)),
		MaxFaceCount:   uint32(len(sm.Faces)),
		MaterialCount:  uint32(len(sm.Materials)),
		FaceOffset:     faceOffset,
		VertexOffset:   vertexOffset,
		MaterialOffset: materialOffset,
	})
	for _, f := range sm.Faces {
		for i := range 3 {
			binary.Write(buf, binary.LittleEndian, formats.FacePoint{
				VertexIndex: f.Points[i],
				ByteOffset:  f.Points[i] * 12,
				Normal:      f.Normals[i],
				UV:          f.UVs[i],
			})
		}
		binary.Write(buf, binary.LittleEndian, [2]uint32{})            // flags
		binary.Write(buf, binary.LittleEndian, [4]float32{0, 0, 1, 0}) // plane
		binary.Write(buf, binary.LittleEndian, uint32(0))              // material hint
		buf.Write(f.BGRA[:])
		buf.Write(make([]byte, 8))
	}
	binary.Write(buf, binary.LittleEndian, sm.Vertices)
	for _, m := range sm.Materials {
		binary.Write(buf, binary.LittleEndian, m)
	}
	return buf.Bytes()
}

// Types builds a type table whose entry i uses models[i].
func Types(models ...uint16) *formats.TypeTable {
	t := &formats.TypeTable{}
	for i, m := range models {
		t.Entries = append(t.Entries, formats.TypeEntry{UsecodeID: uint16(i), DefaultModelID: m})
	}
	return t
}

// Point packs a terrain point.
func Point(height uint16, hole bool, frame, texture int) formats.TerrainPoint {
	p := uint32(height & 0xFFF)
	if hole {
		p |= 0x1000
	}
	p |= uint32(frame&0x3F) << 16
	p |= uint32(texture&0x3FF) << 22
	return formats.TerrainPoint(p)
}

// Terrain builds a terrain with one template per chunk, filled by point.
func Terrain(name string, width, height int, point func(x, y int) formats.TerrainPoint) *formats.Terrain {
	t := &formats.Terrain{
		Header:  formats.TerrainHeader{Width: uint32(width), Height: uint32(height), Name: name},
		ChunksX: width / formats.ChunkSize,
		ChunksY: height / formats.ChunkSize,
	}
	for cy := range t.ChunksY {
		for cx := range t.ChunksX {
			var tmpl formats.ChunkTemplate
			for y := range formats.ChunkSize {
				for x := range formats.ChunkSize {
					tmpl[x+y*formats.ChunkSize] = point(cx*formats.ChunkSize+x, cy*formats.ChunkSize+y)
				}
			}
			t.ChunkIndex = append(t.ChunkIndex, uint16(len(t.Templates)))
			t.Templates = append(t.Templates, tmpl)
		}
	}
	t.Header.ChunkCount = uint32(len(t.Templates))
	return t
}
