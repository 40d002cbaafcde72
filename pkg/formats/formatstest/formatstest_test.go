package formatstest

import (
	"testing"

	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

func TestBuildersDecode(t *testing.T) {
	src := Source{
		Model(2, Bone{Limb: 1, Parent: 1, LODs: []*Submesh{Quad(7, 1)}}),
		TextureSet(SolidFrame(2, 3, 0xFFFF)),
	}

	m, err := formats.DecodeModel(src, 0, formats.ModelOptions{})
	if err != nil {
		t.Fatalf("DecodeModel() error = %v", err)
	}
	if len(m.Bones) != 1 || m.SubmeshCount() != 1 {
		t.Fatalf("bones = %d, submeshes = %d, want 1, 1", len(m.Bones), m.SubmeshCount())
	}
	if m.Bones[0].LODs[1] != nil {
		t.Error("second LOD should be empty")
	}
	if keys := m.TextureKeys(); len(keys) != 1 || keys[0] != (formats.TextureKey{Texture: 7, Frame: 1}) {
		t.Errorf("TextureKeys() = %v", keys)
	}

	buf, err := formats.DecodeTexture(src, 1, 0, formats.TextureOptions{})
	if err != nil {
		t.Fatalf("DecodeTexture() error = %v", err)
	}
	if buf.Width != 2 || buf.Height != 3 || buf.Transparent {
		t.Errorf("frame = %dx%d transparent=%v", buf.Width, buf.Height, buf.Transparent)
	}

	if _, err := src.Section(2); err == nil {
		t.Error("Section(2) should fail")
	}
}

func TestTerrainBuilder(t *testing.T) {
	terr := Terrain("flat", 32, 16, func(x, y int) formats.TerrainPoint {
		return Point(uint16(x), x == 3, 1, 9)
	})
	if terr.ChunksX != 2 || terr.ChunksY != 1 || len(terr.Templates) != 2 {
		t.Fatalf("chunks = %dx%d templates = %d", terr.ChunksX, terr.ChunksY, len(terr.Templates))
	}
	p, ok := terr.Point(20, 5)
	if !ok || p.Height() != 20 || p.Texture() != 9 || p.Frame() != 1 || p.IsHole() {
		t.Errorf("Point(20, 5) = %v", p)
	}
	if p, _ := terr.Point(3, 0); !p.IsHole() {
		t.Error("Point(3, 0) should be a hole")
	}
}

func TestFileBuilders(t *testing.T) {
	a, err := flx.Parse(Archive([]byte("first"), nil, []byte("third")))
	if err != nil {
		t.Fatalf("flx.Parse() error = %v", err)
	}
	if got := a.List(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("List() = %v, want [0 2]", got)
	}
	if data, err := a.Read(2); err != nil || string(data) != "third" {
		t.Errorf("Read(2) = %q, %v", data, err)
	}

	types := formats.ParseTypeTable(TypeTableFile(0, 5, 9))
	if model, ok := types.ModelFor(2); types.Len() != 3 || !ok || model != 9 {
		t.Errorf("types = %d, ModelFor(2) = %d, %v", types.Len(), model, ok)
	}

	table, err := formats.ParsePlacements(FixedTable(4096, 8192, 3, 0, 4), formats.VariantAuto)
	if err != nil {
		t.Fatalf("ParsePlacements() error = %v", err)
	}
	if table.Variant != formats.VariantFixed || len(table.Entries) != 2 {
		t.Fatalf("variant = %s, entries = %d", table.Variant, len(table.Entries))
	}
	if e := table.Entries[1]; e.TypeIndex != 4 || e.World != [3]float32{4096 + 20, 8192, 0} {
		t.Errorf("entry = %+v", e)
	}

	terr := Terrain("Britannia Café", 16, 16, func(x, y int) formats.TerrainPoint {
		return Point(uint16(y), false, 0, 3)
	})
	decoded, err := formats.ParseTerrain(TerrainFile(terr))
	if err != nil {
		t.Fatalf("ParseTerrain() error = %v", err)
	}
	if decoded.Header.Name != "Britannia Café" || len(decoded.Templates) != 1 {
		t.Errorf("terrain %q with %d templates", decoded.Header.Name, len(decoded.Templates))
	}
	if p, ok := decoded.Point(2, 7); !ok || p.Height() != 7 || p.Texture() != 3 {
		t.Errorf("Point(2, 7) = %v", p)
	}
}
