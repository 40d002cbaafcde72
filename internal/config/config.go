// Package config handles u9tool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds game data file locations. File names are resolved
// against StaticDir unless absolute.
type DataConfig struct {
	StaticDir       string `yaml:"static_dir"`
	RuntimeDir      string `yaml:"runtime_dir"`
	ModelsArchive   string `yaml:"models_archive"`
	TexturesArchive string `yaml:"textures_archive"`
	TypesFile       string `yaml:"types_file"`
}

// ImportConfig controls decoding and scene assembly.
type ImportConfig struct {
	// ScaleFactor divides game units on export; 40 turns inches into metres.
	ScaleFactor float32 `yaml:"scale_factor"`
	OnlyLOD0    bool    `yaml:"only_lod0"`
	// ImportPlaceholder keeps instances whose type resolves to model 0.
	ImportPlaceholder bool    `yaml:"import_placeholder"`
	Variant           string  `yaml:"variant"` // auto, fixed or nonfixed
	SquareLength      float32 `yaml:"square_length"`
	HeightUnit        float32 `yaml:"height_unit"`
}

// ExportConfig controls output files.
type ExportConfig struct {
	OutputDir      string `yaml:"output_dir"`
	Binary         bool   `yaml:"binary"` // .glb instead of .gltf
	ImageFormat    string `yaml:"image_format"`
	MaxTextureSize int    `yaml:"max_texture_size"` // 0 keeps the original size
	Workers        int    `yaml:"workers"`
	// LOD selects the level of detail written to glTF.
	LOD int `yaml:"lod"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			StaticDir:       "static",
			RuntimeDir:      "runtime",
			ModelsArchive:   "sappear.flx",
			TexturesArchive: "bitmap16.flx",
			TypesFile:       "types.dat",
		},
		Import: ImportConfig{
			ScaleFactor:  40,
			Variant:      "auto",
			SquareLength: 3.2,
			HeightUnit:   0.1,
		},
		Export: ExportConfig{
			OutputDir:   ".",
			Binary:      true,
			ImageFormat: "png",
			Workers:     4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
