// Package importer assembles decoded assets into scenes: placement tables
// resolved through the type table into model instances, and terrain meshes
// with their textures.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/u9assets/internal/assets"
	"github.com/Faultbox/u9assets/internal/logger"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// PlaceholderModel is substituted for types that cannot be resolved. It is the
// debug cube and is not imported unless Options.ImportPlaceholder is set.
const PlaceholderModel = 0

// Sources are the decoded inputs of a session. Any of them may be nil when the
// session never needs it.
type Sources struct {
	Models   formats.RecordSource
	Textures formats.RecordSource
	Types    *formats.TypeTable
}

// Options controls an import session.
type Options struct {
	Model formats.ModelOptions
	// ImportPlaceholder keeps instances that resolve to the placeholder model.
	ImportPlaceholder bool
	// Logger receives per-unit failures. Defaults to the global logger.
	Logger *zap.Logger
}

type textureRequest struct {
	key    formats.TextureKey
	opaque bool
}

// Session decodes and memoizes resources for one import run.
type Session struct {
	src  Sources
	opts Options
	log  *zap.Logger

	models   *assets.Cache[int, *formats.Model]
	textures *assets.Cache[textureRequest, *formats.PixelBuffer]

	stats Stats
}

// NewSession creates a session over the given sources.
func NewSession(src Sources, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logger.Named("importer")
	}
	return &Session{
		src:      src,
		opts:     opts,
		log:      log,
		models:   assets.NewCache[int, *formats.Model](),
		textures: assets.NewCache[textureRequest, *formats.PixelBuffer](),
	}
}

// NewSessionFromManager creates a session over the resources a manager has loaded.
func NewSessionFromManager(m *assets.Manager, opts Options) *Session {
	var src Sources
	if a, err := m.Models(); err == nil {
		src.Models = a
	}
	if a, err := m.Textures(); err == nil {
		src.Textures = a
	}
	if t, err := m.Types(); err == nil {
		src.Types = t
	}
	return NewSession(src, opts)
}

// Stats returns the counters accumulated so far.
func (s *Session) Stats() Stats {
	st := s.stats
	st.ModelCacheHits, st.ModelCacheMisses = s.models.Stats()
	st.TextureCacheHits, st.TextureCacheMisses = s.textures.Stats()
	return st
}

// Close drops every memoized resource.
func (s *Session) Close() {
	s.log.Debug("session closed",
		zap.Int("models", s.models.Len()),
		zap.Int("textures", s.textures.Len()))
	s.models.Clear()
	s.textures.Clear()
}

// ResolveType maps a type index to its default model. Unknown types resolve to
// PlaceholderModel and ok is false.
func (s *Session) ResolveType(typeIndex int) (model int, ok bool) {
	if s.src.Types == nil {
		return PlaceholderModel, false
	}
	model, ok = s.src.Types.ModelFor(typeIndex)
	if !ok {
		return PlaceholderModel, false
	}
	return model, true
}

// Model decodes a model once per session. Failures are remembered.
func (s *Session) Model(index int) (*formats.Model, error) {
	return s.models.GetOrLoad(index, func() (*formats.Model, error) {
		if s.src.Models == nil {
			return nil, fmt.Errorf("%w: model %d: %w", formats.ErrModelImport, index, assets.ErrNotLoaded)
		}

		m, err := formats.DecodeModel(s.src.Models, index, s.opts.Model)
		if err != nil {
			s.stats.ModelsFailed++
			s.log.Warn("model import failed", zap.Int("model", index), zap.Error(err))
			return nil, err
		}

		s.stats.ModelsDecoded++
		s.stats.Warnings += len(m.Warnings)
		for _, w := range m.Warnings {
			s.log.Debug("model element skipped", zap.Int("model", index), zap.Error(w))
		}
		return m, nil
	})
}

// Texture decodes one texture frame once per session. Failures are remembered.
func (s *Session) Texture(key formats.TextureKey, opts formats.TextureOptions) (*formats.PixelBuffer, error) {
	req := textureRequest{key: key, opaque: opts.ForceOpaque}
	return s.textures.GetOrLoad(req, func() (*formats.PixelBuffer, error) {
		if s.src.Textures == nil {
			return nil, fmt.Errorf("texture %s: %w", key, assets.ErrNotLoaded)
		}

		buf, err := formats.DecodeTexture(s.src.Textures, key.Texture, key.Frame, opts)
		if err != nil {
			s.stats.TexturesFailed++
			s.log.Warn("texture skipped", zap.Stringer("texture", key), zap.Error(err))
			return nil, err
		}
		s.stats.TexturesDecoded++
		return buf, nil
	})
}

// loadTextures decodes every key into dst, skipping failures.
func (s *Session) loadTextures(ctx context.Context, keys []formats.TextureKey, opts formats.TextureOptions,
	dst map[formats.TextureKey]*formats.PixelBuffer) error {
	for _, key := range keys {
		if _, done := dst[key]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if buf, err := s.Texture(key, opts); err == nil {
			dst[key] = buf
		}
	}
	return nil
}
