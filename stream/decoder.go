// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/binary"
	"io"
	"log"

	"golang.org/x/xerrors"
)

// step is the outcome of one read from the capture stream.
type step int

const (
	// stepOK means the read completed and decoding continues.
	stepOK step = iota
	// stepEOF is a clean or truncated end of data.
	stepEOF
	// stepLost means alignment was lost for good: no resynchronization
	// marker before the end of the file.
	stepLost
)

// Decoder extracts detection records from APODAS capture files.
//
// One Decoder models one continuous acquisition: the wraparound count,
// the last-seen sequence counter and the running detection counts all
// carry over from one capture file to the next. Files must therefore be
// decoded in chronological order by the same Decoder instance.
type Decoder struct {
	cfg Config
	msg *log.Logger

	wraps     int64  // wraparound cycles since the epoch
	epochSeen bool   // first wraparound marker of the run observed
	lastSeq   uint32 // sequence counter of the last valid packet
	seqValid  bool

	nA, nB, nCoinc int64 // running detection counts

	r   io.ReadSeeker // current capture file
	err error
}

// NewDecoder creates a decoder for one acquisition run. Progress and
// data-quality messages go to msg; a nil msg silences them.
func NewDecoder(cfg Config, msg *log.Logger) *Decoder {
	if msg == nil {
		msg = log.New(io.Discard, "", 0)
	}
	return &Decoder{
		cfg: cfg,
		msg: msg,
	}
}

// Decode consumes one capture file and appends the decoded records to
// out. Corrupt packets trigger a resynchronization scan for the "EXP."
// marker; truncated trailing data ends the decode cleanly. Records
// already handed to out stay valid in either case.
func (dec *Decoder) Decode(r io.ReadSeeker, out Output) error {
	dec.r = r
	dec.err = nil
	defer func() { dec.r = nil }()

	if _, err := r.Seek(fileHeaderSize, io.SeekStart); err != nil {
		return xerrors.Errorf("stream: could not skip capture preamble: %w", err)
	}

	var (
		hdr    = make([]byte, headerSize)
		data   = make([]byte, payloadSize)
		pkt    = 1
		missed int64
	)

loop:
	for {
		if dec.read(hdr) != stepOK {
			break loop
		}

		length := binary.BigEndian.Uint16(hdr[lenOffset : lenOffset+2])
		if int(length) != packetLength {
			dec.msg.Printf("invalid packet of length %d at packet counter %d", length, pkt-1)
			switch dec.resync() {
			case stepOK:
				continue
			default:
				dec.msg.Printf("end of file reached before finding the next packet")
				break loop
			}
		}

		seq := binary.BigEndian.Uint32(hdr[seqOffset : seqOffset+4])
		rec := PacketRecord{Packet: pkt, Seq: seq, Delta: 1, First: !dec.seqValid}
		if dec.seqValid {
			rec.Delta = int64(seq) - int64(dec.lastSeq)
			if rec.Delta != 1 {
				lost := rec.Delta - 1
				dec.msg.Printf("packets missed: %d at packet counter %d", lost, pkt)
				// Each lost packet is 1024 unobserved ticks.
				dec.wraps += lost * payloadSize
				missed += lost
			}
		}
		out.Packet(rec)
		dec.lastSeq = seq
		dec.seqValid = true

		n, st := dec.readAtMost(data)
		dec.classify(data[:n], pkt, out)
		pkt++
		if st != stepOK {
			break loop
		}
	}

	if dec.err != nil {
		return xerrors.Errorf("stream: could not decode capture file: %w", dec.err)
	}

	out.Summary(Summary{
		Missed:   missed,
		Total:    dec.wraps * WraparoundPeriod,
		Adjusted: (dec.wraps - missed*payloadSize) * WraparoundPeriod,
	})
	if err := out.Err(); err != nil {
		return xerrors.Errorf("stream: could not write records: %w", err)
	}
	return nil
}

// resync scans forward, four bytes at a time, for the "EXP." marker and
// rewinds to the recovered packet boundary.
func (dec *Decoder) resync() step {
	var chunk [4]byte
	for {
		if dec.read(chunk[:]) != stepOK {
			return stepLost
		}
		if chunk != resyncMarker {
			continue
		}
		pos, err := dec.r.Seek(-resyncRewind, io.SeekCurrent)
		if err != nil {
			dec.err = err
			return stepLost
		}
		dec.msg.Printf("found the start of the next packet at offset %d", pos)
		return stepOK
	}
}

// read fills p from the capture file. A short read counts as end of
// data, not as an error.
func (dec *Decoder) read(p []byte) step {
	_, st := dec.readAtMost(p)
	return st
}

// readAtMost fills as much of p as the capture file still holds and
// reports how many bytes were read.
func (dec *Decoder) readAtMost(p []byte) (int, step) {
	if dec.err != nil {
		return 0, stepEOF
	}
	n, err := io.ReadFull(dec.r, p)
	switch {
	case err == nil:
		return n, stepOK
	case xerrors.Is(err, io.EOF), xerrors.Is(err, io.ErrUnexpectedEOF):
		return n, stepEOF
	default:
		dec.err = err
		return n, stepEOF
	}
}
