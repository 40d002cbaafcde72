package importer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/u9assets/pkg/formats"
)

// Instance is one placed model.
type Instance struct {
	ModelIndex int
	TypeIndex  int
	// World is the unscaled world position.
	World       [3]float32
	Orientation formats.Quat
	Placement   formats.Placement
}

// Scene is the output of a model or placement import.
type Scene struct {
	Name      string
	Instances []Instance
	Models    map[int]*formats.Model
	Textures  map[formats.TextureKey]*formats.PixelBuffer
	Stats     Stats
}

// ModelIndexes returns the decoded model indexes in ascending order.
func (sc *Scene) ModelIndexes() []int {
	idx := make([]int, 0, len(sc.Models))
	for i := range sc.Models {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Stats counts what an import produced and skipped.
type Stats struct {
	Placements         int
	Instances          int
	EmptySlots         int
	UnresolvedTypes    int
	PlaceholderSkipped int
	FailedInstances    int
	TableTruncated     bool

	ModelsDecoded   int
	ModelsFailed    int
	Warnings        int
	TexturesDecoded int
	TexturesFailed  int

	ModelCacheHits     int
	ModelCacheMisses   int
	TextureCacheHits   int
	TextureCacheMisses int
}

func newScene(name string) *Scene {
	return &Scene{
		Name:     name,
		Models:   make(map[int]*formats.Model),
		Textures: make(map[formats.TextureKey]*formats.PixelBuffer),
	}
}

// ImportModel decodes a single model and its textures as a one-instance scene.
func (s *Session) ImportModel(ctx context.Context, index int) (*Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := s.Model(index)
	if err != nil {
		return nil, err
	}

	sc := newScene(fmt.Sprintf("model_%d", index))
	sc.Models[index] = m
	sc.Instances = append(sc.Instances, Instance{ModelIndex: index, Orientation: formats.Quat{W: 1}})
	if err := s.loadTextures(ctx, m.TextureKeys(), formats.TextureOptions{}, sc.Textures); err != nil {
		return nil, err
	}
	sc.Stats = s.Stats()
	return sc, nil
}

// DefaultGridSpacing separates models laid out by ImportModelGrid, in world units.
const DefaultGridSpacing = 120

// ImportModelGrid decodes count consecutive models starting at first and lays
// them out on a square grid spacing world units apart. Models that fail to
// decode leave their cell empty.
func (s *Session) ImportModelGrid(ctx context.Context, first, count int, spacing float32) (*Scene, error) {
	sc := newScene(fmt.Sprintf("models_%d_%d", first, first+count-1))
	row := int(math.Ceil(math.Sqrt(float64(count))))

	for i := range count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := first + i
		m, err := s.Model(index)
		if err != nil {
			s.stats.FailedInstances++
			continue
		}
		sc.Models[index] = m
		if err := s.loadTextures(ctx, m.TextureKeys(), formats.TextureOptions{}, sc.Textures); err != nil {
			return nil, err
		}
		sc.Instances = append(sc.Instances, Instance{
			ModelIndex:  index,
			World:       [3]float32{float32(i%row) * spacing, float32(i/row) * spacing, 0},
			Orientation: formats.Quat{W: 1},
		})
		s.stats.Instances++
	}

	sc.Stats = s.Stats()
	return sc, nil
}

// ImportPlacements resolves every placement to a model instance. Unknown types
// become the placeholder model, models that fail to decode drop their
// instances, and the context is checked between placements.
func (s *Session) ImportPlacements(ctx context.Context, name string, table *formats.PlacementTable) (*Scene, error) {
	sc := newScene(name)

	s.stats.EmptySlots += table.Empty
	if table.Truncated {
		s.stats.TableTruncated = true
		s.log.Warn("placement table truncated", zap.String("table", name), zap.Error(table.StopErr))
	}

	for _, p := range table.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.stats.Placements++

		model, ok := s.ResolveType(p.TypeIndex)
		if !ok {
			s.stats.UnresolvedTypes++
			s.log.Debug("unknown type, using placeholder",
				zap.Int("type", p.TypeIndex), zap.Int("page", p.Page), zap.Int("slot", p.Slot))
		}
		if model == PlaceholderModel && !s.opts.ImportPlaceholder {
			s.stats.PlaceholderSkipped++
			continue
		}

		m, err := s.Model(model)
		if err != nil {
			s.stats.FailedInstances++
			continue
		}
		if _, seen := sc.Models[model]; !seen {
			sc.Models[model] = m
			if err := s.loadTextures(ctx, m.TextureKeys(), formats.TextureOptions{}, sc.Textures); err != nil {
				return nil, err
			}
		}

		sc.Instances = append(sc.Instances, Instance{
			ModelIndex:  model,
			TypeIndex:   p.TypeIndex,
			World:       p.World,
			Orientation: p.Orientation,
			Placement:   p,
		})
		s.stats.Instances++
	}

	st := s.Stats()
	sc.Stats = st
	s.log.Info("placement import finished",
		zap.String("table", name),
		zap.Int("instances", st.Instances),
		zap.Int("models", len(sc.Models)),
		zap.Int("textures", len(sc.Textures)),
		zap.Int("unresolved", st.UnresolvedTypes),
		zap.Int("failed", st.FailedInstances))
	return sc, nil
}
