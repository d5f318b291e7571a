// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"image/color"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"golang.org/x/xerrors"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotConfig describes how to render an aggregated trace.
type PlotConfig struct {
	Title string
	Rate  bool // y axis is a rate in Hz instead of counts per bin
}

// Plot renders the aggregated trace histogram as a wide stepped-line
// figure and saves it to fname. The image format follows the file
// extension (png, pdf, svg, ...).
func (cfg PlotConfig) Plot(h *hbook.H1D, fname string) error {
	p := hplot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Photon counts per bin"
	if cfg.Rate {
		p.Y.Label.Text = "Photon rate (Hz)"
	}
	p.Add(plotter.NewGrid())

	hh := hplot.NewH1D(h)
	hh.LineStyle.Width = vg.Points(0.8)
	hh.LineStyle.Color = color.RGBA{B: 255, A: 255}
	if cfg.Rate {
		hh.LineStyle.Color = color.RGBA{R: 255, A: 255}
	}
	p.Add(hh)

	// Long figure: fluorescence traces are browsed by scrolling along
	// the time axis.
	if err := p.Save(125*vg.Centimeter, 15*vg.Centimeter, fname); err != nil {
		return xerrors.Errorf("trace: could not save plot %q: %w", fname, err)
	}
	return nil
}
