package config

import "path/filepath"

// StaticPath resolves name against the static data directory.
func (d DataConfig) StaticPath(name string) string {
	if filepath.IsAbs(name) || d.StaticDir == "" {
		return name
	}
	return filepath.Join(d.StaticDir, name)
}

// ModelsPath returns the model archive location.
func (d DataConfig) ModelsPath() string { return d.StaticPath(d.ModelsArchive) }

// TexturesPath returns the texture archive location.
func (d DataConfig) TexturesPath() string { return d.StaticPath(d.TexturesArchive) }

// TypesPath returns the type table location.
func (d DataConfig) TypesPath() string { return d.StaticPath(d.TypesFile) }
