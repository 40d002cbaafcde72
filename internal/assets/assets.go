// Package assets opens the game archives and caches decoded resources.
package assets

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/u9assets/internal/config"
	"github.com/Faultbox/u9assets/internal/logger"
	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

// ErrNotLoaded is returned when a resource kind was never opened.
var ErrNotLoaded = errors.New("resource not loaded")

// Manager holds the archives and type table of one data directory.
type Manager struct {
	models   *flx.Archive
	textures *flx.Archive
	types    *formats.TypeTable
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates an empty asset manager.
func NewManager() *Manager {
	return &Manager{log: logger.Named("assets")}
}

// Open opens the model archive, texture archive and type table named by d.
// A missing or unreadable file aborts with an error.
func Open(d config.DataConfig) (*Manager, error) {
	m := NewManager()
	if err := m.AddModels(d.ModelsPath()); err != nil {
		return nil, err
	}
	if err := m.AddTextures(d.TexturesPath()); err != nil {
		return nil, err
	}
	if err := m.LoadTypes(d.TypesPath()); err != nil {
		return nil, err
	}
	return m, nil
}

// AddModels opens the model archive.
func (m *Manager) AddModels(path string) error {
	a, err := m.openArchive(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.models = a
	m.mu.Unlock()
	return nil
}

// AddTextures opens the texture archive.
func (m *Manager) AddTextures(path string) error {
	a, err := m.openArchive(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.textures = a
	m.mu.Unlock()
	return nil
}

// LoadTypes reads the type table.
func (m *Manager) LoadTypes(path string) error {
	t, err := formats.ParseTypeTableFile(path)
	if err != nil {
		return fmt.Errorf("loading types %s: %w", path, err)
	}
	if t.TrailingBytes > 0 {
		m.log.Debug("type table has trailing bytes",
			zap.String("path", path), zap.Int("bytes", t.TrailingBytes))
	}
	m.log.Info("loaded type table", zap.String("path", path), zap.Int("types", t.Len()))

	m.mu.Lock()
	m.types = t
	m.mu.Unlock()
	return nil
}

func (m *Manager) openArchive(path string) (*flx.Archive, error) {
	a, err := flx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	s := a.Stats()
	m.log.Info("opened archive",
		zap.String("path", path),
		zap.Int("records", s.Records),
		zap.Int("used", s.Used))
	if !s.SizeConsistent {
		m.log.Warn("archive header size does not match file length",
			zap.String("path", path), zap.Int("length", a.Len()))
	}
	if s.OutOfBounds > 0 {
		m.log.Warn("archive records extend past end of file",
			zap.String("path", path), zap.Int("records", s.OutOfBounds))
	}
	return a, nil
}

// Models returns the model archive.
func (m *Manager) Models() (*flx.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.models == nil {
		return nil, fmt.Errorf("%w: model archive", ErrNotLoaded)
	}
	return m.models, nil
}

// Textures returns the texture archive.
func (m *Manager) Textures() (*flx.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.textures == nil {
		return nil, fmt.Errorf("%w: texture archive", ErrNotLoaded)
	}
	return m.textures, nil
}

// Types returns the type table.
func (m *Manager) Types() (*formats.TypeTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.types == nil {
		return nil, fmt.Errorf("%w: type table", ErrNotLoaded)
	}
	return m.types, nil
}

// Close releases all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range []*flx.Archive{m.models, m.textures} {
		if a != nil {
			a.Close()
		}
	}
	m.models = nil
	m.textures = nil
	m.types = nil
}
