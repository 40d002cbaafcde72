package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Faultbox/u9assets/internal/assets"
	"github.com/Faultbox/u9assets/internal/export"
	"github.com/Faultbox/u9assets/internal/importer"
	"github.com/Faultbox/u9assets/internal/terrain"
	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

func parseTable(path, variant string) (*formats.PlacementTable, error) {
	v, err := formats.ParsePlacementVariant(variant)
	if err != nil {
		return nil, err
	}
	return formats.ParsePlacementsFile(path, v)
}

func cmdPlace(args []string) error {
	fs := flag.NewFlagSet("place", flag.ContinueOnError)
	variant := fs.String("variant", cfg.Import.Variant, "Table layout: auto, fixed or nonfixed")
	top := fs.Int("n", 20, "Show the N most placed types (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("place [-variant auto|fixed|nonfixed] [-n N] <table>")
	}

	table, err := parseTable(fs.Arg(0), *variant)
	if err != nil {
		return err
	}

	fmt.Printf("Table:    %s\n", fs.Arg(0))
	fmt.Printf("Variant:  %s\n", table.Variant)
	fmt.Printf("Pages:    %d (%dx%d), %d decoded\n", table.PageCount(), table.Width, table.Height, len(table.Pages))
	fmt.Printf("Objects:  %d (%d empty slots)\n", len(table.Entries), table.Empty)
	if table.Truncated {
		fmt.Printf("Warning:  truncated: %v\n", table.StopErr)
	}

	counts := table.CountByType()
	types := make([]int, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})

	fmt.Println()
	fmt.Println("Objects by type:")
	for i, t := range types {
		if *top > 0 && i >= *top {
			break
		}
		fmt.Printf("  %-6d %d\n", t, counts[t])
	}
	return nil
}

func cmdTerrain(args []string) error {
	fs := flag.NewFlagSet("terrain", flag.ContinueOnError)
	out := fs.String("o", "", "Export the terrain to a glTF file")
	at := fs.String("at", "", "Print the height at world position x,y")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("terrain [-o out.glb] [-at x,y] <terrain file>")
	}

	t, err := formats.ParseTerrainFile(fs.Arg(0))
	if err != nil {
		return err
	}

	h := t.Header
	fmt.Printf("Terrain:   %s\n", h.Name)
	fmt.Printf("Size:      %dx%d points (%dx%d chunks)\n", h.Width, h.Height, t.ChunksX, t.ChunksY)
	fmt.Printf("Templates: %d (%d chunks missing)\n", len(t.Templates), t.MissingTemplates())
	fmt.Printf("Water:     level %d, amplitude %d\n", h.WaterLevel, h.WaveAmplitude)
	fmt.Printf("Textures:  %d frames\n", len(t.TextureKeys()))

	opts := terrainOptions()
	if *at != "" {
		x, y, err := parsePoint(*at)
		if err != nil {
			return err
		}
		hf := terrain.BuildHeightField(t, opts.HeightUnit)
		fmt.Printf("Height:    %.3f at (%g, %g)\n", hf.Sample(x, y, opts.SquareLength), x, y)
	}

	if *out == "" {
		return nil
	}

	archive, err := flx.Open(cfg.Data.TexturesPath())
	if err != nil {
		return err
	}
	defer archive.Close()

	s := importer.NewSession(importer.Sources{Textures: archive}, importOptions())
	defer s.Close()

	ctx, stop := interruptContext()
	defer stop()

	ts, err := s.ImportTerrain(ctx, t, opts)
	if err != nil {
		return err
	}
	doc, err := export.TerrainDocument(ts, exportOptions())
	if err != nil {
		return err
	}
	if err := export.WriteFile(*out, doc); err != nil {
		return err
	}
	fmt.Printf("Exported:  %s (%d quads, %d holes)\n", *out, ts.Mesh.Stats.Quads, ts.Mesh.Stats.Holes)
	return nil
}

func parsePoint(s string) (x, y float32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid position %q, want x,y", s)
	}
	fx, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	fy, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return float32(fx), float32(fy), nil
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	variant := fs.String("variant", cfg.Import.Variant, "Table layout: auto, fixed or nonfixed")
	out := fs.String("o", "", "Output file (default <table>"+sceneExt()+" in the output directory)")
	placeholder := fs.Bool("placeholder", cfg.Import.ImportPlaceholder, "Keep instances of the placeholder model")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("import [-variant auto|fixed|nonfixed] [-o out.glb] [-placeholder] <table>")
	}

	path := fs.Arg(0)
	table, err := parseTable(path, *variant)
	if err != nil {
		return err
	}

	m, err := assets.Open(cfg.Data)
	if err != nil {
		return err
	}
	defer m.Close()

	opts := importOptions()
	opts.ImportPlaceholder = *placeholder
	s := importer.NewSessionFromManager(m, opts)
	defer s.Close()

	ctx, stop := interruptContext()
	defer stop()

	name := filepath.Base(path)
	sc, err := s.ImportPlacements(ctx, name, table)
	if err != nil {
		return err
	}
	printStats(sc.Stats)

	target := *out
	if target == "" {
		target = outputPath(name + sceneExt())
	}
	return writeScene(sc, target)
}

func cmdGrid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	out := fs.String("o", "", "Output file (default models_<first>_<last>"+sceneExt()+")")
	spacing := fs.Float64("spacing", importer.DefaultGridSpacing, "Distance between models in game units")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("grid [-o out.glb] [-spacing n] <first> [count]")
	}
	first, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid model index %q", fs.Arg(0))
	}
	count := 1
	if fs.NArg() > 1 {
		if count, err = strconv.Atoi(fs.Arg(1)); err != nil || count < 1 {
			return fmt.Errorf("invalid model count %q", fs.Arg(1))
		}
	}

	m, err := assets.Open(cfg.Data)
	if err != nil {
		return err
	}
	defer m.Close()

	s := importer.NewSessionFromManager(m, importOptions())
	defer s.Close()

	ctx, stop := interruptContext()
	defer stop()

	sc, err := s.ImportModelGrid(ctx, first, count, float32(*spacing))
	if err != nil {
		return err
	}
	printStats(sc.Stats)

	target := *out
	if target == "" {
		target = outputPath(sc.Name + sceneExt())
	}
	return writeScene(sc, target)
}

func writeScene(sc *importer.Scene, path string) error {
	doc, err := export.SceneDocument(sc, exportOptions())
	if err != nil {
		return err
	}
	if err := export.WriteFile(path, doc); err != nil {
		return err
	}
	fmt.Printf("Exported:     %s (%d models, %d textures)\n", path, len(sc.Models), len(sc.Textures))
	return nil
}
