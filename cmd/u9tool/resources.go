package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/u9assets/internal/assets"
	"github.com/Faultbox/u9assets/internal/export"
	"github.com/Faultbox/u9assets/internal/importer"
	"github.com/Faultbox/u9assets/internal/logger"
	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

func cmdTypes(args []string) error {
	fs := flag.NewFlagSet("types", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "List every type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := cfg.Data.TypesPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	table, err := formats.ParseTypeTableFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("Types:    %d\n", table.Len())
	if table.TrailingBytes > 0 {
		fmt.Printf("Trailing: %d bytes\n", table.TrailingBytes)
	}

	counts := table.CountByModel()
	fmt.Printf("Models:   %d distinct\n", len(counts))

	if !*verbose {
		return nil
	}
	fmt.Println()
	for i, e := range table.Entries {
		fmt.Printf("%5d  model %5d  usecode %5d  weight %3d  volume %3d  hp %3d  %s\n",
			i, e.DefaultModelID, e.UsecodeID, e.Weight, e.Volume, e.Hitpoints, e.Flags)
	}
	return nil
}

func cmdModel(args []string) error {
	fs := flag.NewFlagSet("model", flag.ContinueOnError)
	out := fs.String("o", "", "Export the model to a glTF file")
	archivePath := fs.String("archive", "", "Model archive (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("model [-o out.glb] [-archive sappear.flx] <index>")
	}
	index, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid model index %q", fs.Arg(0))
	}

	data := cfg.Data
	if *archivePath != "" {
		data.ModelsArchive = *archivePath
	}
	m, err := assets.Open(data)
	if err != nil {
		return err
	}
	defer m.Close()

	s := importer.NewSessionFromManager(m, importOptions())
	defer s.Close()

	ctx, stop := interruptContext()
	defer stop()

	sc, err := s.ImportModel(ctx, index)
	if err != nil {
		return err
	}
	model := sc.Models[index]

	h := model.Header
	fmt.Printf("Model:     %d\n", index)
	fmt.Printf("Bones:     %d (%d roots)\n", len(model.Bones), len(model.Roots()))
	fmt.Printf("LODs:      %d, thresholds %v\n", h.LODCount, h.LODThresholds)
	fmt.Printf("Submeshes: %d\n", model.SubmeshCount())
	fmt.Printf("Bounds:    %v - %v\n", h.BoundsMin, h.BoundsMax)
	fmt.Printf("Textures:  %d (%d decoded)\n", len(model.TextureKeys()), len(sc.Textures))
	for _, w := range model.Warnings {
		fmt.Printf("Warning:   %v\n", w)
	}

	if *out == "" {
		return nil
	}
	return writeScene(sc, *out)
}

func cmdTexture(args []string) error {
	fs := flag.NewFlagSet("texture", flag.ContinueOnError)
	out := fs.String("o", "", "Output file (default bitmap16_<index>_<frame>.<format>)")
	opaque := fs.Bool("opaque", false, "Decode as 565 the way terrain does")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("texture [-o out.png] [-opaque] <index> [frame]")
	}
	index, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid texture index %q", fs.Arg(0))
	}
	frame := 0
	if fs.NArg() > 1 {
		if frame, err = strconv.Atoi(fs.Arg(1)); err != nil {
			return fmt.Errorf("invalid frame %q", fs.Arg(1))
		}
	}

	archive, err := flx.Open(cfg.Data.TexturesPath())
	if err != nil {
		return err
	}
	defer archive.Close()

	buf, err := formats.DecodeTexture(archive, index, frame, formats.TextureOptions{ForceOpaque: *opaque})
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = outputPath(buf.Key.String() + "." + cfg.Export.ImageFormat)
	}
	if err := export.WriteImage(path, buf, cfg.Export.MaxTextureSize); err != nil {
		return err
	}
	fmt.Printf("Exported: %s (%dx%d, transparent %v)\n", path, buf.Width, buf.Height, buf.Transparent)
	return nil
}

// cmdTextures exports every frame of every texture in parallel. Frames that
// fail to decode are logged and skipped; a failed write stops the export.
func cmdTextures(args []string) error {
	fs := flag.NewFlagSet("textures", flag.ContinueOnError)
	opaque := fs.Bool("opaque", false, "Decode as 565 the way terrain does")
	if err := fs.Parse(args); err != nil {
		return err
	}

	archive, err := flx.Open(cfg.Data.TexturesPath())
	if err != nil {
		return err
	}
	defer archive.Close()

	log := logger.Named("textures")
	opts := formats.TextureOptions{ForceOpaque: *opaque}
	var written, failed atomic.Int64

	parent, stop := interruptContext()
	defer stop()
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(cfg.Export.Workers)

	indexes := archive.List()
	sort.Ints(indexes)
	for _, index := range indexes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := archive.Section(index)
			if err != nil {
				failed.Add(1)
				log.Warn("texture skipped", zap.Int("texture", index), zap.Error(err))
				return nil
			}
			set, err := formats.ParseTextureSet(data)
			if err != nil {
				failed.Add(1)
				log.Warn("texture skipped", zap.Int("texture", index), zap.Error(err))
				return nil
			}

			for frame := range set.Frames {
				buf, err := formats.ParseFrame(data, set, frame, opts)
				if err != nil {
					failed.Add(1)
					log.Warn("frame skipped", zap.Int("texture", index), zap.Int("frame", frame), zap.Error(err))
					continue
				}
				buf.Key = formats.TextureKey{Texture: index, Frame: frame}
				path := outputPath(buf.Key.String() + "." + cfg.Export.ImageFormat)
				if err := export.WriteImage(path, buf, cfg.Export.MaxTextureSize); err != nil {
					return err
				}
				written.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	fmt.Fprintf(os.Stderr, "Exported %d frames (%d failed) to %s\n", written.Load(), failed.Load(), cfg.Export.OutputDir)
	return err
}
