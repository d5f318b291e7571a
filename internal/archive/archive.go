// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive manages the timestamped output directories of
// analysis runs and the per-capture-file output streams inside them.
package archive // import "github.com/go-apd/apodas/internal/archive"

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Output stream name prefixes, one per record category.
const (
	PrefixA           = "apd-a"
	PrefixB           = "apd-b"
	PrefixCoincidence = "coincidence"
	PrefixPackets     = "packets"
)

// Run is one analysis run's output directory.
type Run struct {
	Dir string
}

// New creates a fresh timestamped run directory under root.
func New(root string, now time.Time) (*Run, error) {
	dir := filepath.Join(root, now.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, xerrors.Errorf("archive: could not create run directory: %w", err)
	}
	return &Run{Dir: dir}, nil
}

// Open wraps an existing run directory.
func Open(dir string) (*Run, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Errorf("archive: could not open run directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, xerrors.Errorf("archive: %q is not a directory", dir)
	}
	return &Run{Dir: dir}, nil
}

// Glob returns the run's output files with the given prefix, sorted by
// name, which matches the chronological order of the capture files they
// were decoded from.
func (run *Run) Glob(prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(run.Dir, prefix+"_*.dat"))
	if err != nil {
		return nil, xerrors.Errorf("archive: could not glob %q files: %w", prefix, err)
	}
	sort.Strings(files)
	return files, nil
}

// FileSet holds the output streams for one capture file's decode. The
// set must be closed before the next capture file's decode begins.
type FileSet struct {
	A, B, Coinc, Packets *os.File
}

// Create opens the output files for the given capture file. The
// channel-B stream is only created when trackB is set.
func (run *Run) Create(capture string, trackB bool) (*FileSet, error) {
	base := filepath.Base(capture)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	open := func(prefix string) (*os.File, error) {
		name := filepath.Join(run.Dir, prefix+"_"+base+".dat")
		f, err := os.Create(name)
		if err != nil {
			return nil, xerrors.Errorf("archive: could not create %q: %w", name, err)
		}
		return f, nil
	}

	var (
		fs  = new(FileSet)
		err error
	)
	if fs.A, err = open(PrefixA); err != nil {
		return nil, err
	}
	if trackB {
		if fs.B, err = open(PrefixB); err != nil {
			fs.Close()
			return nil, err
		}
	}
	if fs.Coinc, err = open(PrefixCoincidence); err != nil {
		fs.Close()
		return nil, err
	}
	if fs.Packets, err = open(PrefixPackets); err != nil {
		fs.Close()
		return nil, err
	}
	return fs, nil
}

// Close closes every stream of the set. Close is idempotent and safe
// on partially created sets.
func (fs *FileSet) Close() error {
	var err error
	for _, f := range []**os.File{&fs.A, &fs.B, &fs.Coinc, &fs.Packets} {
		if *f == nil {
			continue
		}
		if e := (*f).Close(); e != nil && err == nil {
			err = e
		}
		*f = nil
	}
	if err != nil {
		return xerrors.Errorf("archive: could not close output files: %w", err)
	}
	return nil
}
