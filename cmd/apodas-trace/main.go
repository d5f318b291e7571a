// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// apodas-trace bins extracted photon arrival timestamps into a
// fluorescence trace and renders it as an image.
//
// Usage: apodas-trace [OPTIONS] -archive DIR
//
// DIR is a run directory produced by apodas-decode. The timestamps of
// the selected detection stream are concatenated across all capture
// files, sorted and histogrammed into fixed-width time bins; the trace
// shows counts per bin, or a photon rate in Hz with -rate.
//
// Example:
//
//	$> apodas-trace -archive ./archives/2026-08-31_10-42-00 -bin-width 0.001 -rate
//	apodas-trace: found 3 timings files for channel "apd-a"
//	apodas-trace: loaded 182345 timestamps from "..." (max time: 12.503 s)
//	apodas-trace: saved plot: "./archives/2026-08-31_10-42-00/trace_apd-a.png"
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-apd/apodas/internal/archive"
	"github.com/go-apd/apodas/trace"
)

func main() {
	log.SetPrefix("apodas-trace: ")
	log.SetFlags(0)

	var (
		dir     = flag.String("archive", "", "path to a run directory produced by apodas-decode")
		width   = flag.Float64("bin-width", 0.001, "time bin width in seconds")
		rate    = flag.Bool("rate", false, "plot photon rate (Hz) instead of raw counts")
		channel = flag.String("channel", "a", "detection stream to aggregate (a, b or coincidence)")
		perFile = flag.Bool("per-file", false, "also generate one trace per capture file")
		series  = flag.String("series", "", "optional path for the bin-center/value series (TSV)")
	)

	flag.Usage = func() {
		fmt.Printf(`apodas-trace bins extracted photon arrival timestamps into a fluorescence trace.

Usage: apodas-trace [OPTIONS] -archive DIR

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *dir == "" {
		flag.Usage()
		log.Fatalf("missing path to run archive")
	}

	err := run(*dir, *channel, *width, *rate, *perFile, *series)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(dir, channel string, width float64, rate, perFile bool, series string) error {
	var prefix string
	switch strings.ToLower(channel) {
	case "a":
		prefix = archive.PrefixA
	case "b":
		prefix = archive.PrefixB
	case "coincidence":
		prefix = archive.PrefixCoincidence
	default:
		return fmt.Errorf("invalid channel %q (want a, b or coincidence)", channel)
	}

	arch, err := archive.Open(dir)
	if err != nil {
		return fmt.Errorf("could not open archive: %w", err)
	}

	files, err := arch.Glob(prefix)
	if err != nil {
		return fmt.Errorf("could not list detection files: %w", err)
	}
	log.Printf("found %d timings files for channel %q", len(files), prefix)

	ts, err := trace.Load(files, log.Default())
	if err != nil {
		return fmt.Errorf("could not load timestamps: %w", err)
	}

	fname := filepath.Join(arch.Dir, "trace_"+prefix+".png")
	err = plot(ts, prefix, width, rate, fname)
	if err != nil {
		return err
	}

	if series != "" {
		err = writeSeries(ts, width, rate, series)
		if err != nil {
			return err
		}
		log.Printf("saved series: %q", series)
	}

	if !perFile {
		return nil
	}
	for _, f := range files {
		vs, err := trace.LoadFile(f)
		if err != nil || len(vs) == 0 {
			log.Printf("skipping per-file trace for %q", f)
			continue
		}
		base := strings.TrimSuffix(filepath.Base(f), ".dat")
		err = plot(vs, base, width, rate, filepath.Join(arch.Dir, "trace_"+base+".png"))
		if err != nil {
			return err
		}
	}
	return nil
}

func plot(ts []float64, name string, width float64, rate bool, fname string) error {
	h, err := trace.Bin(ts, width)
	if err != nil {
		return fmt.Errorf("could not bin %q timestamps: %w", name, err)
	}
	if rate {
		h.Scale(1 / width)
	}

	var (
		min = ts[0]
		max = ts[len(ts)-1] // Bin sorted ts in place
		cfg = trace.PlotConfig{
			Title: fmt.Sprintf("Fluorescence trace - %s | total time: %.2f s | %d photons",
				name, max-min, len(ts)),
			Rate: rate,
		}
	)
	if err := cfg.Plot(h, fname); err != nil {
		return err
	}
	log.Printf("saved plot: %q", fname)
	return nil
}

func writeSeries(ts []float64, width float64, rate bool, fname string) error {
	h, err := trace.Bin(ts, width)
	if err != nil {
		return fmt.Errorf("could not bin timestamps: %w", err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create series file: %w", err)
	}
	defer f.Close()

	for _, pt := range trace.Points(h, width, rate) {
		_, err = fmt.Fprintf(f, "%v\t%v\n", pt.X, pt.Y)
		if err != nil {
			return fmt.Errorf("could not write series file: %w", err)
		}
	}
	return f.Close()
}
