package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagData     = flag.String("data", "", "Static data directory")
	flagOut      = flag.String("out", "", "Output directory")
	flagScale    = flag.Float64("scale", 0, "Divide game units by this factor on export")
	flagLOD0     = flag.Bool("lod0", false, "Import only the first level of detail")
	flagWorkers  = flag.Int("workers", 0, "Parallel texture exports")
	flagMaxTex   = flag.Int("max-texture", 0, "Downscale exported textures to this size")
	flagImageFmt = flag.String("image-format", "", "Texture export format (png, webp, tga)")
	flagLOD      = flag.Int("lod", -1, "Level of detail to export")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Data.StaticDir = *flagData
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagScale > 0 {
		cfg.Import.ScaleFactor = float32(*flagScale)
	}
	if *flagLOD0 {
		cfg.Import.OnlyLOD0 = true
	}
	if *flagWorkers > 0 {
		cfg.Export.Workers = *flagWorkers
	}
	if *flagMaxTex > 0 {
		cfg.Export.MaxTextureSize = *flagMaxTex
	}
	if *flagImageFmt != "" {
		cfg.Export.ImageFormat = *flagImageFmt
	}
	if *flagLOD >= 0 {
		cfg.Export.LOD = *flagLOD
	}
}
