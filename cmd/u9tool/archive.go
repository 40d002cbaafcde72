package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Faultbox/u9assets/pkg/flx"
)

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usage("info <file.flx>")
	}

	archive, err := flx.Open(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	h := archive.Header()
	st := archive.Stats()

	fmt.Printf("Archive:  %s\n", args[0])
	fmt.Printf("Version:  %d\n", h.Version)
	fmt.Printf("Records:  %d (%d used)\n", st.Records, st.Used)
	fmt.Printf("Payload:  %.2f MB\n", float64(st.PayloadBytes)/(1024*1024))
	fmt.Printf("Size:     %d bytes (header %d / %d)\n", archive.Len(), h.Size, h.Size2)
	if !st.SizeConsistent {
		fmt.Println("Warning:  declared size does not match file size")
	}
	if st.OutOfBounds > 0 {
		fmt.Printf("Warning:  %d records point outside the file\n", st.OutOfBounds)
	}
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("n", 0, "Limit output to N records (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usage("list [-n N] <file.flx>")
	}

	archive, err := flx.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	count := 0
	for _, i := range archive.List() {
		rec, _ := archive.Record(i)
		fmt.Printf("%5d  offset 0x%08X  size %8d\n", i, rec.Offset, rec.Size)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%d records)\n", count)
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		return usage("extract <file.flx> <index|all> [output_dir]")
	}

	outputDir := cfg.Export.OutputDir
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := flx.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	var indexes []int
	if fs.Arg(1) == "all" {
		indexes = archive.List()
	} else {
		i, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid record index %q", fs.Arg(1))
		}
		indexes = []int{i}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	base := filepath.Base(fs.Arg(0))
	base = base[:len(base)-len(filepath.Ext(base))]
	extracted := 0
	for _, i := range indexes {
		data, err := archive.Read(i)
		if err != nil {
			if len(indexes) == 1 {
				return err
			}
			fmt.Fprintf(os.Stderr, "Error reading record %d: %v\n", i, err)
			continue
		}

		outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%04d.bin", base, i))
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	if len(indexes) > 1 {
		fmt.Fprintf(os.Stderr, "\nExtracted %d records\n", extracted)
	}
	return nil
}
