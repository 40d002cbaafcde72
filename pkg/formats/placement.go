package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/u9assets/pkg/binio"
)

// ErrUnknownVariant is returned when the placement table layout cannot be determined.
var ErrUnknownVariant = errors.New("unknown placement table variant")

// Placement table layout.
const (
	PlacementPageSize       = 4096
	PlacementHeaderSize     = 32
	PlacementPageHeaderSize = 96
	FixedSlotsPerPage       = 166
	FixedObjectSize         = 24
	FixedPagePadding        = 16
	NonFixedObjectSize      = 32
	OrientationScale        = 32767

	maxPlacementPages    = 1 << 16
	maxNonFixedEntities  = 2000
	placementBaseQuantum = 4096
)

// PlacementVariant selects the on-disk encoding of a placement table.
type PlacementVariant int

const (
	// VariantAuto detects the encoding from the table structure.
	VariantAuto PlacementVariant = iota
	// VariantFixed is the dense page grid of fixed.* files.
	VariantFixed
	// VariantNonFixed is the per-chunk list of nonfixed.* (runtime) files.
	VariantNonFixed
)

// String returns the variant name.
func (v PlacementVariant) String() string {
	switch v {
	case VariantFixed:
		return "fixed"
	case VariantNonFixed:
		return "nonfixed"
	default:
		return "auto"
	}
}

// ParsePlacementVariant converts a name to a variant.
func ParsePlacementVariant(s string) (PlacementVariant, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return VariantAuto, nil
	case "fixed":
		return VariantFixed, nil
	case "nonfixed", "non-fixed", "runtime":
		return VariantNonFixed, nil
	}
	return VariantAuto, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// VariantHintFromName guesses the variant from a file name. Non-fixed tables are
// shipped in the runtime directory or carry "nonfixed" in their name.
func VariantHintFromName(path string) PlacementVariant {
	p := strings.ToLower(filepath.ToSlash(path))
	switch {
	case strings.Contains(p, "runtime"), strings.Contains(filepath.Base(p), "nonfixed"):
		return VariantNonFixed
	case strings.Contains(filepath.Base(p), "fixed"):
		return VariantFixed
	}
	return VariantAuto
}

// Placement is one object instance of a placement table.
type Placement struct {
	Page      int
	Slot      int
	TypeIndex int
	// Local is the position inside the page, 0 to 4095 per axis.
	Local    [3]uint16
	PageBase [2]uint32
	// World is PageBase + Local, unscaled.
	World [3]float32
	// Orientation is the stored quaternion divided by 32767.
	Orientation Quat
	Flags       uint32

	// Fixed tables only. Reference is a file offset to another object; it can be
	// invalid or circular and is not followed.
	Reference uint32
	// Non-fixed tables only.
	NextEntity      uint16
	MeshIndex       uint16
	TriggerID       uint16
	ExtraDataOffset uint32
}

// PlacementPage is the decoded header of one page.
type PlacementPage struct {
	Index        int
	Offset       int
	BaseX        uint32
	BaseY        uint32
	EntityCount  uint32
	TriggerCount uint32
	NextPage     uint32
}

// PlacementTable is a decoded placement table.
type PlacementTable struct {
	Variant PlacementVariant
	Width   uint32
	Height  uint32
	// PageIndex holds the fixed page index table or the non-fixed page offsets.
	PageIndex []uint32
	Pages     []PlacementPage
	Entries   []Placement
	// Empty counts slots skipped because their type is 0.
	Empty int
	// Truncated is set when decoding stopped before the last page.
	Truncated bool
	// StopErr is the read error that ended decoding early.
	StopErr error
}

// PageCount returns the number of pages declared by the header.
func (t *PlacementTable) PageCount() int {
	return int(t.Width) * int(t.Height)
}

// CountByType returns the number of placements per type index.
func (t *PlacementTable) CountByType() map[int]int {
	counts := make(map[int]int)
	for i := range t.Entries {
		counts[t.Entries[i].TypeIndex]++
	}
	return counts
}

// ParsePlacements decodes a placement table. VariantAuto detects the variant.
func ParsePlacements(data []byte, variant PlacementVariant) (*PlacementTable, error) {
	if variant == VariantAuto {
		v, err := DetectVariant(data, VariantAuto)
		if err != nil {
			return nil, err
		}
		variant = v
	}

	switch variant {
	case VariantFixed:
		return parseFixed(data)
	case VariantNonFixed:
		return parseNonFixed(data)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, variant)
}

// ParsePlacementsFile decodes a placement table from disk. With VariantAuto the
// file name breaks ties the structure cannot.
func ParsePlacementsFile(path string, variant PlacementVariant) (*PlacementTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading placement table: %w", err)
	}
	if variant == VariantAuto {
		variant, err = DetectVariant(data, VariantHintFromName(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return ParsePlacements(data, variant)
}

// DetectVariant range-checks each variant's header. When exactly
// one validates it wins; otherwise hint decides, and with no hint the table is
// rejected.
func DetectVariant(data []byte, hint PlacementVariant) (PlacementVariant, error) {
	fixed := validFixed(data)
	nonFixed := validNonFixed(data)

	switch {
	case fixed && !nonFixed:
		return VariantFixed, nil
	case nonFixed && !fixed:
		return VariantNonFixed, nil
	case hint != VariantAuto:
		return hint, nil
	case fixed:
		return VariantAuto, fmt.Errorf("%w: both layouts validate", ErrUnknownVariant)
	}
	return VariantAuto, fmt.Errorf("%w: no layout validates", ErrUnknownVariant)
}

func validPageGrid(w, h uint32) bool {
	n := uint64(w) * uint64(h)
	return n > 0 && n <= maxPlacementPages
}

func onQuantum(v uint32) bool {
	return v%placementBaseQuantum == 0
}

func validFixed(data []byte) bool {
	r := binio.NewReader(data)
	h := readFixedHeader(r)
	if r.Err() != nil || !validPageGrid(h.width, h.height) {
		return false
	}
	pages := uint64(h.width) * uint64(h.height)
	if !fits(pages, 4, r.Remaining()) {
		return false
	}
	r.Skip(int(pages) * 4)
	if r.Remaining() < PlacementPageHeaderSize {
		return false
	}
	page := readFixedPageHeader(r)
	return r.Err() == nil && onQuantum(page.BaseX) && onQuantum(page.BaseY)
}

func validNonFixed(data []byte) bool {
	r := binio.NewReader(data)
	h := readNonFixedHeader(r)
	if r.Err() != nil || !validPageGrid(h.width, h.height) {
		return false
	}
	pages := uint64(h.width) * uint64(h.height)
	if !fits(pages+1, 4, r.Remaining()) {
		return false
	}
	r.Skip(int(pages+1) * 4)
	page := readNonFixedPageHeader(r)
	if r.Err() != nil {
		return false
	}
	return onQuantum(page.BaseX) && onQuantum(page.BaseY) &&
		page.EntityCount < maxNonFixedEntities && page.TriggerCount < maxNonFixedEntities
}

type fixedHeader struct {
	reserved1 uint32
	reserved2 uint32
	pagesSize uint32
	reserved3 uint32
	width     uint32
	height    uint32
	reserved4 uint32
	reserved5 uint32
}

func readFixedHeader(r *binio.Reader) fixedHeader {
	return fixedHeader{
		reserved1: r.U32(),
		reserved2: r.U32(),
		pagesSize: r.U32(),
		reserved3: r.U32(),
		width:     r.U32(),
		height:    r.U32(),
		reserved4: r.U32(),
		reserved5: r.U32(),
	}
}

// readFixedPageHeader reads three reserved words, the page base, and 0x13 reserved words.
func readFixedPageHeader(r *binio.Reader) PlacementPage {
	p := PlacementPage{Offset: r.Pos()}
	r.Skip(12)
	p.BaseX = r.U32()
	p.BaseY = r.U32()
	r.Skip(4 * 0x13)
	return p
}

func parseFixed(data []byte) (*PlacementTable, error) {
	r := binio.NewReader(data)

	h := readFixedHeader(r)
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading fixed placement header")
	}
	if !validPageGrid(h.width, h.height) {
		return nil, inconsistent("fixed placement grid %dx%d", h.width, h.height)
	}

	t := &PlacementTable{Variant: VariantFixed, Width: h.width, Height: h.height}
	pages := t.PageCount()
	if !fits(uint64(pages), 4, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "page index table of %d entries", pages)
	}
	t.PageIndex = make([]uint32, pages)
	for i := range t.PageIndex {
		t.PageIndex[i] = r.U32()
	}

	for i := range pages {
		page := readFixedPageHeader(r)
		page.Index = i
		if err := r.Err(); err != nil {
			t.stop(err, "page %d header", i)
			break
		}
		page.EntityCount = FixedSlotsPerPage
		t.Pages = append(t.Pages, page)

		for slot := range FixedSlotsPerPage {
			p := Placement{Page: i, Slot: slot, PageBase: [2]uint32{page.BaseX, page.BaseY}}
			p.Reference = r.U32()
			p.Local = [3]uint16{r.U16(), r.U16(), r.U16()}
			p.TypeIndex = int(r.U16())
			p.Orientation = readPackedQuat(r)
			p.Flags = uint32(r.U16())
			r.Skip(2)
			if r.Err() != nil {
				break
			}
			t.add(p)
		}
		r.Skip(FixedPagePadding)
		if err := r.Err(); err != nil {
			t.stop(err, "page %d", i)
			break
		}
	}

	return t, nil
}

type nonFixedHeader struct {
	reserved  [5]uint32
	width     uint32
	height    uint32
	reserved2 uint32
}

func readNonFixedHeader(r *binio.Reader) nonFixedHeader {
	var h nonFixedHeader
	for i := range h.reserved {
		h.reserved[i] = r.U32()
	}
	h.width = r.U32()
	h.height = r.U32()
	h.reserved2 = r.U32()
	return h
}

func readNonFixedPageHeader(r *binio.Reader) PlacementPage {
	p := PlacementPage{Offset: r.Pos()}
	p.NextPage = r.U32()
	r.Skip(8) // end of entities, end of triggers
	p.BaseX = r.U32()
	p.BaseY = r.U32()
	p.EntityCount = r.U32()
	p.TriggerCount = r.U32()
	r.Skip(17 * 4)
	return p
}

func parseNonFixed(data []byte) (*PlacementTable, error) {
	r := binio.NewReader(data)

	h := readNonFixedHeader(r)
	if err := r.Err(); err != nil {
		return nil, truncated(err, "reading non-fixed placement header")
	}
	if !validPageGrid(h.width, h.height) {
		return nil, inconsistent("non-fixed placement grid %dx%d", h.width, h.height)
	}

	t := &PlacementTable{Variant: VariantNonFixed, Width: h.width, Height: h.height}
	pages := t.PageCount()
	if !fits(uint64(pages)+1, 4, r.Remaining()) {
		return nil, truncated(binio.ErrUnexpectedEndOfData, "page offset table of %d entries", pages)
	}
	t.PageIndex = make([]uint32, pages)
	for i := range t.PageIndex {
		t.PageIndex[i] = r.U32()
	}
	r.Skip(4)
	headerEnd := r.Pos()

	for i := range pages {
		r.Seek(headerEnd + PlacementPageSize*i)
		page := readNonFixedPageHeader(r)
		page.Index = i
		if err := r.Err(); err != nil {
			t.stop(err, "page %d header", i)
			break
		}
		t.Pages = append(t.Pages, page)

		for slot := range int(page.EntityCount) {
			p := Placement{Page: i, Slot: slot, PageBase: [2]uint32{page.BaseX, page.BaseY}}
			p.NextEntity = r.U16()
			r.Skip(2)
			p.Local = [3]uint16{r.U16(), r.U16(), r.U16()}
			p.TypeIndex = int(r.U16())
			p.Orientation = readPackedQuat(r)
			p.Flags = r.U32()
			p.MeshIndex = r.U16()
			p.TriggerID = r.U16()
			p.ExtraDataOffset = r.U32()
			if r.Err() != nil {
				break
			}
			t.add(p)
		}
		if err := r.Err(); err != nil {
			t.stop(err, "page %d", i)
			break
		}
	}

	return t, nil
}

// readPackedQuat reads four signed 16-bit components in X, Y, Z, W order.
func readPackedQuat(r *binio.Reader) Quat {
	x, y, z, w := r.I16(), r.I16(), r.I16(), r.I16()
	return Quat{
		W: float32(w) / OrientationScale,
		X: float32(x) / OrientationScale,
		Y: float32(y) / OrientationScale,
		Z: float32(z) / OrientationScale,
	}
}

func (t *PlacementTable) add(p Placement) {
	if p.TypeIndex == 0 {
		t.Empty++
		return
	}
	p.World = [3]float32{
		float32(p.PageBase[0]) + float32(p.Local[0]),
		float32(p.PageBase[1]) + float32(p.Local[1]),
		float32(p.Local[2]),
	}
	t.Entries = append(t.Entries, p)
}

func (t *PlacementTable) stop(err error, what string, args ...any) {
	t.Truncated = true
	t.StopErr = truncated(err, what, args...)
}
