package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/u9assets/pkg/formats"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the importer cannot work with.
func (c *Config) Validate() error {
	if c.Import.ScaleFactor <= 0 {
		return fmt.Errorf("import.scale_factor must be positive, got %g", c.Import.ScaleFactor)
	}
	if c.Import.SquareLength <= 0 {
		return fmt.Errorf("import.square_length must be positive, got %g", c.Import.SquareLength)
	}
	if c.Export.LOD < 0 || c.Export.LOD >= formats.MaxLODs {
		return fmt.Errorf("export.lod must be in [0, %d), got %d", formats.MaxLODs, c.Export.LOD)
	}
	if c.Import.OnlyLOD0 && c.Export.LOD > 0 {
		return fmt.Errorf("export.lod %d is never decoded with import.only_lod0", c.Export.LOD)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be at least 1, got %d", c.Export.Workers)
	}
	switch c.Export.ImageFormat {
	case "png", "webp", "tga":
	default:
		return fmt.Errorf("export.image_format %q is not one of png, webp, tga", c.Export.ImageFormat)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./u9tool.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "u9assets")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "u9assets")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "u9assets")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "u9assets")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
