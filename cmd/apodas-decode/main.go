// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// apodas-decode extracts photon arrival timestamps from raw APODAS
// capture files.
//
// Usage: apodas-decode [OPTIONS] -data DIR
//
// The capture files of DIR are decoded in chronological order by a
// single decoder, so packet-loss accounting and clock-wraparound state
// stay continuous across file boundaries. Each run writes its output
// streams to a fresh timestamped directory under the archive root:
// per capture file, one tab-separated .dat stream for channel-A
// detections, coincidence detections, packet accounting, and,
// optionally, channel-B detections.
//
// Example:
//
//	$> apodas-decode -data ./2026-08-30_run42
//	apodas-decode: analyzing APODAS data from dir="./2026-08-30_run42" with archive path="archives/2026-08-31_10-42-00"
//	apodas-decode: found 3 raw data files
//	apodas-decode: retrieving photon arrival timings from file "./2026-08-30_run42/Apodas_0001.log"
//	[...]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-apd/apodas/internal/archive"
	"github.com/go-apd/apodas/stream"
)

func main() {
	log.SetPrefix("apodas-decode: ")
	log.SetFlags(0)

	var (
		data   = flag.String("data", "", "path to the directory holding Apodas*.log capture files")
		root   = flag.String("o", "./archives", "path to the archive root directory")
		trackB = flag.Bool("track-b", false, "also emit channel-B detection records")
	)

	flag.Usage = func() {
		fmt.Printf(`apodas-decode extracts photon arrival timestamps from raw APODAS capture files.

Usage: apodas-decode [OPTIONS] -data DIR

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *data == "" {
		flag.Usage()
		log.Fatalf("missing path to capture data directory")
	}

	err := run(*data, *root, *trackB)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(data, root string, trackB bool) error {
	files, err := filepath.Glob(filepath.Join(data, "Apodas*.log"))
	if err != nil {
		return fmt.Errorf("could not find capture files in %q: %w", data, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no capture files in %q", data)
	}
	sort.Strings(files)

	arch, err := archive.New(root, time.Now())
	if err != nil {
		return fmt.Errorf("could not create archive: %w", err)
	}

	log.Printf("analyzing APODAS data from dir=%q with archive path=%q", data, arch.Dir)
	log.Printf("found %d raw data files", len(files))

	dec := stream.NewDecoder(stream.Config{TrackB: trackB}, log.Default())
	for _, fname := range files {
		err := process(dec, arch, fname, trackB)
		if err != nil {
			return fmt.Errorf("could not decode %q: %w", fname, err)
		}
	}
	return nil
}

func process(dec *stream.Decoder, arch *archive.Run, fname string, trackB bool) error {
	log.Printf("retrieving photon arrival timings from file %q", fname)

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open capture file: %w", err)
	}
	defer f.Close()

	fs, err := arch.Create(fname, trackB)
	if err != nil {
		return fmt.Errorf("could not create output files: %w", err)
	}
	defer fs.Close()

	var b io.Writer
	if fs.B != nil {
		b = fs.B
	}
	out := stream.NewTSV(fs.A, b, fs.Coinc, fs.Packets)
	if err := dec.Decode(f, out); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("could not flush output files: %w", err)
	}
	return fs.Close()
}
