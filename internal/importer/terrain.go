package importer

import (
	"context"

	"go.uber.org/zap"

	"github.com/Faultbox/u9assets/internal/terrain"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// TerrainScene is a terrain mesh with the textures its quads reference.
type TerrainScene struct {
	Mesh     *terrain.Mesh
	Textures map[formats.TextureKey]*formats.PixelBuffer
	Stats    Stats
}

// ImportTerrain builds the terrain mesh and decodes its textures. Terrain
// textures are always read as opaque.
func (s *Session) ImportTerrain(ctx context.Context, t *formats.Terrain, opts terrain.Options) (*TerrainScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mesh := terrain.BuildMesh(t, opts)
	if mesh.Stats.MissingTemplates > 0 {
		s.log.Warn("terrain chunks reference missing templates",
			zap.String("terrain", mesh.Name), zap.Int("quads", mesh.Stats.MissingTemplates))
	}

	ts := &TerrainScene{Mesh: mesh, Textures: make(map[formats.TextureKey]*formats.PixelBuffer)}
	if err := s.loadTextures(ctx, mesh.Materials, formats.TextureOptions{ForceOpaque: true}, ts.Textures); err != nil {
		return nil, err
	}
	ts.Stats = s.Stats()

	s.log.Info("terrain import finished",
		zap.String("terrain", mesh.Name),
		zap.Int("quads", mesh.Stats.Quads),
		zap.Int("holes", mesh.Stats.Holes),
		zap.Int("materials", len(mesh.Materials)),
		zap.Int("textures", len(ts.Textures)))
	return ts, nil
}
