package formats

import (
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/u9assets/pkg/binio"
)

// Type table layout.
const (
	TypeTableOffset = 8
	TypeEntrySize   = 16
)

// TypeFlags holds the per-type flag bits.
type TypeFlags uint16

// Type flag bits.
const (
	TypeNeverHidden      TypeFlags = 0x0001
	TypeNPCOnlyCollision TypeFlags = 0x0002
	TypePartialCollision TypeFlags = 0x0004
	TypeNonCameraBlock   TypeFlags = 0x0008
	TypePortalBlock      TypeFlags = 0x0010
	TypeUniqueModel      TypeFlags = 0x0020
	TypeVestigial        TypeFlags = 0x0080
	TypeMeshCollision    TypeFlags = 0x0100
)

var typeFlagNames = []struct {
	flag TypeFlags
	name string
}{
	{TypeNeverHidden, "NeverHidden"},
	{TypeNPCOnlyCollision, "NPCOnlyCollision"},
	{TypePartialCollision, "PartialCollision"},
	{TypeNonCameraBlock, "NonCameraBlock"},
	{TypePortalBlock, "PortalBlock"},
	{TypeUniqueModel, "UniqueModel"},
	{TypeVestigial, "Vestigial"},
	{TypeMeshCollision, "MeshCollision"},
}

// Has reports whether all bits of flag are set.
func (f TypeFlags) Has(flag TypeFlags) bool {
	return f&flag == flag
}

// String returns the set flag names joined with "|".
func (f TypeFlags) String() string {
	var names []string
	rest := f
	for _, n := range typeFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint16(rest)))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// TypeEntry is one record of types.dat.
type TypeEntry struct {
	Reserved       uint32 // 0 or 0xCDCDCDCD
	UsecodeID      uint16
	DefaultModelID uint16
	Flags          TypeFlags
	Weight         uint8 // 0xFF and 0xFE are not movable
	Volume         uint8
	BookNumber     uint8
	Hitpoints      uint8
	Reserved2      uint16
}

// TypeTable maps a type index (the position in Entries) to its entry.
type TypeTable struct {
	Entries []TypeEntry
	// TrailingBytes counts bytes after the last whole entry.
	TrailingBytes int
}

// ParseTypeTable decodes entries from offset 8 until a record cannot be read.
// The table has no stored length, so a short final record ends the table.
func ParseTypeTable(data []byte) *TypeTable {
	t := &TypeTable{}
	if len(data) < TypeTableOffset {
		t.TrailingBytes = len(data)
		return t
	}

	r := binio.NewReader(data)
	r.Skip(TypeTableOffset)

	t.Entries = make([]TypeEntry, 0, r.Remaining()/TypeEntrySize)
	for {
		start := r.Pos()
		e := TypeEntry{
			Reserved:       r.U32(),
			UsecodeID:      r.U16(),
			DefaultModelID: r.U16(),
			Flags:          TypeFlags(r.U16()),
			Weight:         r.U8(),
			Volume:         r.U8(),
			BookNumber:     r.U8(),
			Hitpoints:      r.U8(),
			Reserved2:      r.U16(),
		}
		if r.Err() != nil {
			t.TrailingBytes = len(data) - start
			return t
		}
		t.Entries = append(t.Entries, e)
	}
}

// ParseTypeTableFile parses a types.dat file from disk.
func ParseTypeTableFile(path string) (*TypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type table: %w", err)
	}
	return ParseTypeTable(data), nil
}

// Len returns the number of entries.
func (t *TypeTable) Len() int {
	return len(t.Entries)
}

// Entry returns the entry for a type index.
func (t *TypeTable) Entry(typeIndex int) (TypeEntry, bool) {
	if typeIndex < 0 || typeIndex >= len(t.Entries) {
		return TypeEntry{}, false
	}
	return t.Entries[typeIndex], true
}

// ModelFor returns the default model index for a type index.
func (t *TypeTable) ModelFor(typeIndex int) (int, bool) {
	e, ok := t.Entry(typeIndex)
	if !ok {
		return 0, false
	}
	return int(e.DefaultModelID), true
}

// CountByModel returns how many types use each default model.
func (t *TypeTable) CountByModel() map[int]int {
	counts := make(map[int]int)
	for _, e := range t.Entries {
		counts[int(e.DefaultModelID)]++
	}
	return counts
}
