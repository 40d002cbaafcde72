package importer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/u9assets/internal/terrain"
	"github.com/Faultbox/u9assets/pkg/formats"
	"github.com/Faultbox/u9assets/pkg/formats/formatstest"
)

// Model 0 is the placeholder cube, model 1 a house with an invisible collision
// bone, model 2 is corrupt.
func testSources() Sources {
	invisible := formatstest.Quad(formats.InvisibleTexture, 0)
	return Sources{
		Models: formatstest.Source{
			formatstest.Model(1, formatstest.Bone{Limb: 1, Parent: 1, LODs: []*formatstest.Submesh{formatstest.Quad(1, 0)}}),
			formatstest.Model(1,
				formatstest.Bone{Limb: 1, Parent: 1, LODs: []*formatstest.Submesh{formatstest.Quad(2, 0)}},
				formatstest.Bone{Limb: 2, Parent: 1, LODs: []*formatstest.Submesh{invisible}},
			),
			{1, 2, 3},
		},
		Textures: formatstest.Source{
			nil,
			formatstest.TextureSet(formatstest.SolidFrame(2, 2, 0xFFFF)),
			formatstest.TextureSet(
				formatstest.SolidFrame(1, 1, 0xF800),
				formatstest.Frame{Flags: formatstest.TransparentFlag, Width: 1, Height: 1, Pixels: []uint16{0x8000}},
			),
		},
		Types: formatstest.Types(0, 1, 2),
	}
}

func newTestSession(opts Options) (*Session, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts.Logger = zap.New(core)
	return NewSession(testSources(), opts), logs
}

func placements(types ...int) *formats.PlacementTable {
	t := &formats.PlacementTable{Variant: formats.VariantFixed}
	for i, typ := range types {
		t.Entries = append(t.Entries, formats.Placement{
			Slot:        i,
			TypeIndex:   typ,
			World:       [3]float32{float32(10 * i), 20, 5},
			Orientation: formats.Quat{W: 1},
		})
	}
	return t
}

func TestResolveType(t *testing.T) {
	s, _ := newTestSession(Options{})

	tests := []struct {
		typ   int
		model int
		ok    bool
	}{
		{0, 0, true},
		{1, 1, true},
		{2, 2, true},
		{3, PlaceholderModel, false},
		{-1, PlaceholderModel, false},
	}
	for _, tt := range tests {
		model, ok := s.ResolveType(tt.typ)
		if model != tt.model || ok != tt.ok {
			t.Errorf("ResolveType(%d) = %d, %v, want %d, %v", tt.typ, model, ok, tt.model, tt.ok)
		}
	}

	empty := NewSession(Sources{}, Options{Logger: zap.NewNop()})
	if model, ok := empty.ResolveType(1); model != PlaceholderModel || ok {
		t.Errorf("ResolveType without types = %d, %v", model, ok)
	}
}

func TestImportPlacements(t *testing.T) {
	s, logs := newTestSession(Options{})
	defer s.Close()

	sc, err := s.ImportPlacements(context.Background(), "fixed.9", placements(1, 1, 9, 2, 0))
	if err != nil {
		t.Fatalf("ImportPlacements() error = %v", err)
	}

	if len(sc.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(sc.Instances))
	}
	for i, inst := range sc.Instances {
		if inst.ModelIndex != 1 || inst.TypeIndex != 1 {
			t.Errorf("instance %d = model %d type %d", i, inst.ModelIndex, inst.TypeIndex)
		}
	}
	if got := sc.Instances[1].World; got != [3]float32{10, 20, 5} {
		t.Errorf("instance 1 world = %v", got)
	}
	if idx := sc.ModelIndexes(); len(idx) != 1 || idx[0] != 1 {
		t.Errorf("ModelIndexes() = %v", idx)
	}
	if len(sc.Textures) != 1 || sc.Textures[formats.TextureKey{Texture: 2}] == nil {
		t.Errorf("textures = %v", sc.Textures)
	}

	st := sc.Stats
	want := Stats{
		Placements:         5,
		Instances:          2,
		UnresolvedTypes:    1,
		PlaceholderSkipped: 2,
		FailedInstances:    1,
		ModelsDecoded:      1,
		ModelsFailed:       1,
		TexturesDecoded:    1,
		ModelCacheHits:     1,
		ModelCacheMisses:   2,
		TextureCacheMisses: 1,
	}
	if st != want {
		t.Errorf("stats = %+v\nwant %+v", st, want)
	}

	failed := logs.FilterMessage("model import failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["model"] != int64(2) {
		t.Errorf("model failure logs = %v", failed)
	}
	if logs.FilterMessage("placement import finished").Len() != 1 {
		t.Error("missing summary log")
	}
}

func TestImportPlacementsPlaceholder(t *testing.T) {
	s, _ := newTestSession(Options{ImportPlaceholder: true})

	sc, err := s.ImportPlacements(context.Background(), "fixed.0", placements(0, 9))
	if err != nil {
		t.Fatalf("ImportPlacements() error = %v", err)
	}
	if len(sc.Instances) != 2 || sc.Instances[1].ModelIndex != PlaceholderModel {
		t.Fatalf("instances = %+v", sc.Instances)
	}
	if sc.Textures[formats.TextureKey{Texture: 1}] == nil {
		t.Error("placeholder texture not loaded")
	}
}

func TestImportPlacementsTruncated(t *testing.T) {
	s, logs := newTestSession(Options{})

	table := placements(1)
	table.Truncated = true
	table.Empty = 3
	table.StopErr = formats.ErrTruncatedInput
	sc, err := s.ImportPlacements(context.Background(), "nonfixed.9", table)
	if err != nil {
		t.Fatalf("ImportPlacements() error = %v", err)
	}
	if !sc.Stats.TableTruncated || sc.Stats.EmptySlots != 3 || sc.Stats.Instances != 1 {
		t.Errorf("stats = %+v", sc.Stats)
	}
	if logs.FilterMessage("placement table truncated").Len() != 1 {
		t.Error("truncation not logged")
	}
}

func TestImportPlacementsCanceled(t *testing.T) {
	s, _ := newTestSession(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ImportPlacements(ctx, "fixed.9", placements(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestImportModel(t *testing.T) {
	s, _ := newTestSession(Options{Model: formats.ModelOptions{OnlyLOD0: true}})

	sc, err := s.ImportModel(context.Background(), 1)
	if err != nil {
		t.Fatalf("ImportModel() error = %v", err)
	}
	if sc.Name != "model_1" || len(sc.Instances) != 1 || sc.Instances[0].Orientation.W != 1 {
		t.Errorf("scene = %+v", sc)
	}
	if len(sc.Models[1].Bones) != 2 {
		t.Errorf("bones = %d, want 2", len(sc.Models[1].Bones))
	}
	if len(sc.Textures) != 1 {
		t.Errorf("textures = %d, want 1", len(sc.Textures))
	}

	if _, err := s.ImportModel(context.Background(), 2); !errors.Is(err, formats.ErrModelImport) {
		t.Errorf("ImportModel(2) error = %v, want ErrModelImport", err)
	}
	if _, err := s.ImportModel(context.Background(), 7); !errors.Is(err, formats.ErrResourceResolution) {
		t.Errorf("ImportModel(7) error = %v, want ErrResourceResolution", err)
	}
}

func TestModelMemoized(t *testing.T) {
	s, logs := newTestSession(Options{})

	for range 3 {
		if _, err := s.Model(2); err == nil {
			t.Fatal("Model(2) should fail")
		}
	}
	if n := logs.FilterMessage("model import failed").Len(); n != 1 {
		t.Errorf("failure logged %d times, want 1", n)
	}
	st := s.Stats()
	if st.ModelsFailed != 1 || st.ModelCacheHits != 2 {
		t.Errorf("stats = %+v", st)
	}

	s.Close()
	if st := s.Stats(); st.ModelCacheHits != 0 || st.ModelCacheMisses != 0 {
		t.Errorf("stats after Close = %+v", st)
	}
}

func TestTextureOpacityCachedSeparately(t *testing.T) {
	s, _ := newTestSession(Options{})
	key := formats.TextureKey{Texture: 2, Frame: 1}

	plain, err := s.Texture(key, formats.TextureOptions{})
	if err != nil {
		t.Fatalf("Texture() error = %v", err)
	}
	opaque, err := s.Texture(key, formats.TextureOptions{ForceOpaque: true})
	if err != nil {
		t.Fatalf("Texture(opaque) error = %v", err)
	}
	if !plain.Transparent || opaque.Transparent {
		t.Errorf("transparent = %v, %v, want true, false", plain.Transparent, opaque.Transparent)
	}
}

func TestImportTerrain(t *testing.T) {
	s, logs := newTestSession(Options{})

	terr := formatstest.Terrain("Britannia", 16, 16, func(x, y int) formats.TerrainPoint {
		switch {
		case x == 0 && y == 0:
			return formatstest.Point(0, true, 0, 0)
		case x < 8:
			return formatstest.Point(10, false, 0, 1)
		case x < 12:
			return formatstest.Point(10, false, 1, 2)
		default:
			return formatstest.Point(10, false, 0, 5)
		}
	})

	ts, err := s.ImportTerrain(context.Background(), terr, terrain.DefaultOptions())
	if err != nil {
		t.Fatalf("ImportTerrain() error = %v", err)
	}
	if ts.Mesh.Name != "Britannia" || ts.Mesh.Stats.Holes != 1 {
		t.Errorf("mesh %q holes = %d", ts.Mesh.Name, ts.Mesh.Stats.Holes)
	}
	if len(ts.Mesh.Materials) != 3 {
		t.Errorf("materials = %v", ts.Mesh.Materials)
	}
	if len(ts.Textures) != 2 {
		t.Fatalf("textures = %v", ts.Textures)
	}
	if buf := ts.Textures[formats.TextureKey{Texture: 2, Frame: 1}]; buf == nil || buf.Transparent {
		t.Error("terrain textures must be opaque")
	}
	if ts.Stats.TexturesFailed != 1 {
		t.Errorf("texture failures = %d, want 1", ts.Stats.TexturesFailed)
	}
	if logs.FilterMessage("texture skipped").Len() != 1 {
		t.Error("missing texture not logged")
	}
}

func TestImportModelGrid(t *testing.T) {
	s, _ := newTestSession(Options{})

	sc, err := s.ImportModelGrid(context.Background(), 0, 3, DefaultGridSpacing)
	if err != nil {
		t.Fatalf("ImportModelGrid() error = %v", err)
	}
	if sc.Name != "models_0_2" {
		t.Errorf("name = %q", sc.Name)
	}
	if len(sc.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(sc.Instances))
	}
	if got := sc.Instances[1].World; got != [3]float32{120, 0, 0} {
		t.Errorf("model 1 at %v, want (120, 0, 0)", got)
	}
	if sc.Stats.FailedInstances != 1 || len(sc.Textures) != 2 {
		t.Errorf("failed = %d textures = %d", sc.Stats.FailedInstances, len(sc.Textures))
	}
}
