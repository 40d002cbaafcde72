// u9tool is a CLI utility for Ultima IX asset files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Faultbox/u9assets/internal/config"
	"github.com/Faultbox/u9assets/internal/export"
	"github.com/Faultbox/u9assets/internal/importer"
	"github.com/Faultbox/u9assets/internal/logger"
	"github.com/Faultbox/u9assets/internal/terrain"
	"github.com/Faultbox/u9assets/pkg/formats"
)

var cfg *config.Config

// usageError carries the usage line of a malformed command.
type usageError string

func (e usageError) Error() string {
	return "usage: u9tool " + string(e)
}

func usage(line string) error {
	return usageError(line)
}

var errUnknownCommand = errors.New("unknown command")

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		fail(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(err)
	}

	if err := run(args[0], args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, "Usage: u9tool "+string(ue))
			logger.Sync()
			os.Exit(1)
		}
		if errors.Is(err, errUnknownCommand) {
			printUsage()
		}
		fail(err)
	}
	logger.Sync()
}

// run dispatches one subcommand.
func run(command string, args []string) error {
	switch command {
	case "info":
		return cmdInfo(args)
	case "list", "ls":
		return cmdList(args)
	case "extract", "x":
		return cmdExtract(args)
	case "types":
		return cmdTypes(args)
	case "model":
		return cmdModel(args)
	case "texture":
		return cmdTexture(args)
	case "textures":
		return cmdTextures(args)
	case "place":
		return cmdPlace(args)
	case "terrain":
		return cmdTerrain(args)
	case "import":
		return cmdImport(args)
	case "grid":
		return cmdGrid(args)
	case "inspect":
		return cmdInspect(args)
	case "config":
		return cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, command)
}

func printUsage() {
	fmt.Println(`u9tool - Ultima IX asset utility

Usage:
  u9tool [global options] <command> [options]

Global options:
  -config <file>        Config file (default ./u9tool.yaml, then user config dir)
  -data <dir>           Static data directory
  -out <dir>            Output directory
  -scale <n>            Game units per exported unit (default 40)
  -lod0                 Import only the first level of detail
  -workers <n>          Parallel texture exports
  -max-texture <px>     Downscale exported textures
  -image-format <fmt>   png, webp or tga
  -lod <n>              Level of detail to export (default 0)
  -debug                Debug logging

Commands:
  info <file.flx>                       Show archive information
  list [-n N] <file.flx>                List non-empty records
  extract <file.flx> <index|all> [dir]  Extract raw records
  types [types.dat]                     Show the type table
  model <index>                         Decode a model, -o exports glTF
  texture <index> [frame]               Export one texture frame
  textures                              Export every texture frame
  place <table>                         Decode a placement table
  terrain <file>                        Decode a terrain file, -o exports glTF
  import <table>                        Import placed models to glTF
  grid <first> [count]                  Import consecutive models on a grid
  inspect <kind> <file> [index]         Dump decoded structures
  config                                Print the effective configuration

Examples:
  u9tool info static/sappear.flx
  u9tool -data static model -o house.glb 1204
  u9tool -image-format webp textures
  u9tool import static/fixed.9
  u9tool terrain -at 1024,2048 static/terrain.9`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.Sync()
	os.Exit(1)
}

func outputPath(name string) string {
	return filepath.Join(cfg.Export.OutputDir, name)
}

func sceneExt() string {
	if cfg.Export.Binary {
		return ".glb"
	}
	return ".gltf"
}

// interruptContext returns the context long-running commands run under.
var interruptContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func importOptions() importer.Options {
	return importer.Options{
		Model:             formats.ModelOptions{OnlyLOD0: cfg.Import.OnlyLOD0},
		ImportPlaceholder: cfg.Import.ImportPlaceholder,
	}
}

func exportOptions() export.Options {
	return export.Options{
		ScaleFactor:    cfg.Import.ScaleFactor,
		LOD:            cfg.Export.LOD,
		MaxTextureSize: cfg.Export.MaxTextureSize,
	}
}

func terrainOptions() terrain.Options {
	return terrain.Options{
		SquareLength: cfg.Import.SquareLength,
		HeightUnit:   cfg.Import.HeightUnit,
	}
}

func printStats(st importer.Stats) {
	fmt.Printf("Placements:   %d (%d empty slots)\n", st.Placements, st.EmptySlots)
	fmt.Printf("Instances:    %d\n", st.Instances)
	fmt.Printf("Unresolved:   %d types\n", st.UnresolvedTypes)
	fmt.Printf("Placeholders: %d skipped\n", st.PlaceholderSkipped)
	fmt.Printf("Models:       %d decoded, %d failed (%d warnings)\n", st.ModelsDecoded, st.ModelsFailed, st.Warnings)
	fmt.Printf("Textures:     %d decoded, %d failed\n", st.TexturesDecoded, st.TexturesFailed)
	fmt.Printf("Cache:        models %d/%d, textures %d/%d (hits/misses)\n",
		st.ModelCacheHits, st.ModelCacheMisses, st.TextureCacheHits, st.TextureCacheMisses)
	if st.TableTruncated {
		fmt.Println("Table:        truncated")
	}
}
