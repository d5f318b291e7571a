// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Encoder writes a synthetic APODAS capture stream: the 24-byte
// preamble followed by well-formed 1052-byte packets. It serves tests
// and tooling that need capture files with known content.
type Encoder struct {
	w       io.Writer
	seq     uint32
	started bool
	err     error
}

// NewEncoder returns an encoder that writes to w, starting at the given
// sequence counter.
func NewEncoder(w io.Writer, seq uint32) *Encoder {
	return &Encoder{w: w, seq: seq}
}

// Encode writes one packet carrying the given payload samples, padded
// with zero samples to the full payload size, and advances the sequence
// counter.
func (enc *Encoder) Encode(samples []byte) error {
	if len(samples) > payloadSize {
		return xerrors.Errorf("stream: payload too large (got=%d, max=%d)", len(samples), payloadSize)
	}
	if !enc.started {
		enc.write(make([]byte, fileHeaderSize))
		enc.started = true
	}

	hdr := make([]byte, headerSize)
	binary.BigEndian.PutUint16(hdr[lenOffset:], packetLength)
	copy(hdr[resyncOffset:], resyncMarker[:])
	binary.BigEndian.PutUint32(hdr[seqOffset:], enc.seq)
	enc.write(hdr)
	enc.write(samples)
	enc.write(make([]byte, payloadSize-len(samples)))
	enc.seq++

	if enc.err != nil {
		return xerrors.Errorf("stream: could not encode packet: %w", enc.err)
	}
	return nil
}

// Skip advances the sequence counter by n, simulating n lost packets.
func (enc *Encoder) Skip(n uint32) {
	enc.seq += n
}

// Seq returns the sequence counter the next packet will carry.
func (enc *Encoder) Seq() uint32 { return enc.seq }

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}
