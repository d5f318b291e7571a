// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"bufio"
	"fmt"
	"io"
)

// TSV writes decoded records as tab-separated text, one stream per
// writer, in the historical APODAS .dat layout: detection streams carry
// "packet count timestamp" lines, the packet stream carries
// "packet sequence delta" lines closed by three summary lines.
//
// TSV keeps the first write error and drops everything after it; the
// error surfaces through Err and Close.
type TSV struct {
	a, b, c, p *bufio.Writer
	err        error
}

// NewTSV wraps the four record sinks. b may be nil when channel B is
// not tracked.
func NewTSV(a, b, coinc, packets io.Writer) *TSV {
	t := &TSV{
		a: bufio.NewWriter(a),
		c: bufio.NewWriter(coinc),
		p: bufio.NewWriter(packets),
	}
	if b != nil {
		t.b = bufio.NewWriter(b)
	}
	return t
}

// Detection implements Output.
func (t *TSV) Detection(ch Channel, rec Record) {
	var w *bufio.Writer
	switch ch {
	case ChannelA:
		w = t.a
	case ChannelB:
		w = t.b
	case Coincidence:
		w = t.c
	}
	if t.err != nil || w == nil {
		return
	}
	_, err := fmt.Fprintf(w, "%d\t%d\t%d\n", rec.Packet, rec.Count, rec.Time)
	if err != nil {
		t.err = err
	}
}

// Packet implements Output.
func (t *TSV) Packet(rec PacketRecord) {
	if t.err != nil {
		return
	}
	_, err := fmt.Fprintf(t.p, "%d\t%d\t%d\n", rec.Packet, rec.Seq, rec.Delta)
	if err != nil {
		t.err = err
	}
}

// Summary implements Output.
func (t *TSV) Summary(sum Summary) {
	if t.err != nil {
		return
	}
	_, err := fmt.Fprintf(t.p,
		"Total missed packets: %d\nTotal time of observation: %d\nTotal time of observation - missed packets time: %d\n",
		sum.Missed, sum.Total, sum.Adjusted,
	)
	if err != nil {
		t.err = err
	}
}

// Err implements Output.
func (t *TSV) Err() error { return t.err }

// Close flushes all streams. The underlying writers stay open; the
// caller owns them.
func (t *TSV) Close() error {
	for _, w := range []*bufio.Writer{t.a, t.b, t.c, t.p} {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil && t.err == nil {
			t.err = err
		}
	}
	return t.err
}
