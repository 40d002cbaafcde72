package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/u9assets/pkg/flx"
	"github.com/Faultbox/u9assets/pkg/formats"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// cmdInspect dumps decoded structures for debugging format details.
func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	depth := fs.Int("depth", 4, "Maximum nesting depth (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		return usage(`inspect [-depth N] <kind> <file> [index]

Kinds:
  flx        archive header and record table
  types      type table
  placement  placement table pages and entries
  terrain    terrain header and chunk index
  texture    texture set header and frame table (needs index)
  model      model header, bones and submeshes (needs index)`)
	}
	d := dumper
	d.MaxDepth = *depth

	kind, path := fs.Arg(0), fs.Arg(1)
	index := func() (int, error) {
		if fs.NArg() < 3 {
			return 0, fmt.Errorf("inspect %s needs a record index", kind)
		}
		i, err := strconv.Atoi(fs.Arg(2))
		if err != nil {
			return 0, fmt.Errorf("invalid record index %q", fs.Arg(2))
		}
		return i, nil
	}

	switch kind {
	case "flx":
		a, err := flx.Open(path)
		if err != nil {
			return err
		}
		defer a.Close()
		d.Fdump(os.Stdout, a.Header(), a.Stats(), a.Records())

	case "types":
		t, err := formats.ParseTypeTableFile(path)
		if err != nil {
			return err
		}
		d.Fdump(os.Stdout, t)

	case "placement":
		t, err := parseTable(path, cfg.Import.Variant)
		if err != nil {
			return err
		}
		d.Fdump(os.Stdout, t)

	case "terrain":
		t, err := formats.ParseTerrainFile(path)
		if err != nil {
			return err
		}
		d.Fdump(os.Stdout, t.Header, t.ChunkIndex)

	case "texture":
		i, err := index()
		if err != nil {
			return err
		}
		a, err := flx.Open(path)
		if err != nil {
			return err
		}
		defer a.Close()
		data, err := a.Section(i)
		if err != nil {
			return err
		}
		set, err := formats.ParseTextureSet(data)
		if err != nil {
			return err
		}
		d.Fdump(os.Stdout, set)

	case "model":
		i, err := index()
		if err != nil {
			return err
		}
		a, err := flx.Open(path)
		if err != nil {
			return err
		}
		defer a.Close()
		m, err := formats.DecodeModel(a, i, formats.ModelOptions{OnlyLOD0: cfg.Import.OnlyLOD0})
		if err != nil {
			return err
		}
		d.Fdump(os.Stdout, m)

	default:
		return fmt.Errorf("unknown inspect kind %q", kind)
	}
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	save := fs.String("save", "", "Write the effective configuration to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *save != "" {
		if err := cfg.SaveTo(*save); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved: %s\n", *save)
		return nil
	}
	return cfg.WriteYAML(os.Stdout)
}
