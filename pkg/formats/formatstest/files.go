package formatstest

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/u9assets/pkg/encoding"
	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// Archive encodes an FLX file holding payloads. A nil payload becomes an
// empty record.
func Archive(payloads ...[]byte) []byte {
	offset := flx.HeaderSize + flx.RecordSize*len(payloads)
	records := make([]flx.Record, len(payloads))
	var body bytes.Buffer
	for i, p := range payloads {
		if p == nil {
			continue
		}
		records[i] = flx.Record{Offset: uint32(offset + body.Len()), Size: uint32(len(p))}
		body.Write(p)
	}
	total := uint32(offset + body.Len())

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, flx.Header{
		Count:   uint32(len(payloads)),
		Version: 2,
		Size:    total,
		Size2:   total,
	})
	binary.Write(&buf, binary.LittleEndian, records)
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// TypeTableFile encodes a types.dat whose entry i uses models[i].
func TypeTableFile(models ...uint16) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, formats.TypeTableOffset))
	for i, m := range models {
		binary.Write(&buf, binary.LittleEndian, formats.TypeEntry{
			UsecodeID:      uint16(i),
			DefaultModelID: m,
		})
	}
	return buf.Bytes()
}

// FixedTable encodes a one-page fixed placement table based at (baseX, baseY).
// Object i has type types[i] and sits at local (10*i, 0, 0) with no rotation.
// A zero type leaves its slot empty.
func FixedTable(baseX, baseY uint32, types ...uint16) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [8]uint32{0, 0, formats.PlacementPageSize, 0, 1, 1, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(1))

	buf.Write(make([]byte, 12))
	binary.Write(&buf, binary.LittleEndian, baseX)
	binary.Write(&buf, binary.LittleEndian, baseY)
	buf.Write(make([]byte, 4*0x13))
	for slot := range formats.FixedSlotsPerPage {
		var typ uint16
		var local [3]uint16
		if slot < len(types) {
			typ = types[slot]
			local[0] = uint16(10 * slot)
		}
		binary.Write(&buf, binary.LittleEndian, uint32(0)) // reference
		binary.Write(&buf, binary.LittleEndian, local)
		binary.Write(&buf, binary.LittleEndian, typ)
		binary.Write(&buf, binary.LittleEndian, [4]int16{0, 0, 0, formats.OrientationScale})
		binary.Write(&buf, binary.LittleEndian, uint16(0)) // flags
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	buf.Write(make([]byte, formats.FixedPagePadding))
	return buf.Bytes()
}

// TerrainFile encodes t the way terrain files are stored on disk.
func TerrainFile(t *formats.Terrain) []byte {
	h := t.Header
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [2]uint32{h.Width, h.Height})
	buf.Write(encoding.UTF8ToFixedString(h.Name, formats.TerrainNameSize))
	binary.Write(&buf, binary.LittleEndian, [4]uint32{h.WaterLevel, h.WaveAmplitude, h.Flags, uint32(len(t.Templates))})
	binary.Write(&buf, binary.LittleEndian, t.ChunkIndex)
	for _, tmpl := range t.Templates {
		binary.Write(&buf, binary.LittleEndian, tmpl)
	}
	return buf.Bytes()
}
