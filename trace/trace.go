// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace aggregates decoded photon arrival times into
// fixed-width count or rate traces.
package trace // import "github.com/go-apd/apodas/trace"

import (
	"sort"

	"go-hep.org/x/hep/hbook"
	"golang.org/x/xerrors"
)

// ErrEmptyInput reports that no timestamps were found across all
// inputs: there is nothing meaningful to aggregate.
var ErrEmptyInput = xerrors.New("trace: no timestamps found")

// Point is one bin of an aggregated trace: the bin center in seconds
// and the bin value, either a raw count or a rate in Hz.
type Point struct {
	X, Y float64
}

// Bin sorts the given timestamps (in seconds) and histograms them into
// fixed-width bins. Bin edges run from the smallest timestamp to past
// the largest in steps of width; bin i covers [edge_i, edge_{i+1}).
func Bin(ts []float64, width float64) (*hbook.H1D, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyInput
	}
	if width <= 0 {
		return nil, xerrors.Errorf("trace: invalid bin width %v", width)
	}

	sort.Float64s(ts)
	var (
		min = ts[0]
		max = ts[len(ts)-1]
		n   = int((max-min)/width) + 1
	)
	h := hbook.NewH1D(n, min, min+float64(n)*width)
	for _, t := range ts {
		h.Fill(t, 1)
	}
	return h, nil
}

// Points flattens a histogram into an ordered bin-center/value series.
// With rate enabled, counts are divided by the bin width to yield Hz.
func Points(h *hbook.H1D, width float64, rate bool) []Point {
	bins := h.Binning.Bins
	pts := make([]Point, len(bins))
	for i, bin := range bins {
		y := bin.SumW()
		if rate {
			y /= width
		}
		pts[i] = Point{X: bin.XMid(), Y: y}
	}
	return pts
}
