// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"bufio"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Load reads the timestamp column from the given detection files and
// returns all values, converted from nanoseconds to seconds. A file
// that cannot be read or parsed is skipped with a warning; Load fails
// with ErrEmptyInput only when no timestamp survives at all.
func Load(files []string, msg *log.Logger) ([]float64, error) {
	if msg == nil {
		msg = log.New(io.Discard, "", 0)
	}
	var ts []float64
	for _, fname := range files {
		vs, err := LoadFile(fname)
		if err != nil {
			msg.Printf("skipping %s: %+v", fname, err)
			continue
		}
		if len(vs) == 0 {
			msg.Printf("no data in %s", fname)
			continue
		}
		max := vs[0]
		for _, v := range vs[1:] {
			if v > max {
				max = v
			}
		}
		msg.Printf("loaded %d timestamps from %s (max time: %.3f s)", len(vs), fname, max)
		ts = append(ts, vs...)
	}
	if len(ts) == 0 {
		return nil, ErrEmptyInput
	}
	return ts, nil
}

// LoadFile reads the timestamp column of one detection file, in
// seconds.
func LoadFile(fname string) ([]float64, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, xerrors.Errorf("trace: could not open %q: %w", fname, err)
	}
	defer f.Close()

	var (
		vs  []float64
		sc  = bufio.NewScanner(f)
		nln = 0
	)
	for sc.Scan() {
		nln++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			return nil, xerrors.Errorf("trace: %s:%d: invalid detection record %q", fname, nln, line)
		}
		ns, err := strconv.ParseInt(cols[2], 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("trace: %s:%d: invalid timestamp: %w", fname, nln, err)
		}
		vs = append(vs, float64(ns)*1e-9)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("trace: could not read %q: %w", fname, err)
	}
	return vs, nil
}
