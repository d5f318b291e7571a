// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

const (
	fileHeaderSize = 24   // unused capture-file preamble
	headerSize     = 90   // packet header size
	payloadSize    = 1024 // samples per packet payload
	packetLength   = headerSize + payloadSize

	lenOffset    = 32 // declared packet length (big-endian u16)
	resyncOffset = 72 // "EXP." marker within the packet header
	seqOffset    = 86 // sequence counter (big-endian u32)

	resyncRewind = 76 // rewind from past-the-marker to the packet start
)

const (
	// ClockPeriod is the duration of one hardware clock tick, in
	// nanoseconds.
	ClockPeriod = 5

	// WraparoundPeriod is the duration of one full clock cycle
	// (32 ticks), in nanoseconds.
	WraparoundPeriod = 160
)

// Sample classification. Values below 128 are non-overflow samples;
// values at or above 128 both encode an event and advance the
// wraparound counter.
const (
	wrapMarker = 159 // clock wraparound marker

	chanAMin = 32 // channel-A detection
	chanAMax = 63
	chanBMin = 64 // channel-B detection
	chanBMax = 95
	coincMin = 96 // coincidence detection (A and B in the same tick)
	coincMax = 127

	chanAOvfMin = 160 // channel-A detection, overflow form
	chanAOvfMax = 191
	chanBOvfMin = 192 // channel-B detection, overflow form
	chanBOvfMax = 223
	coincOvfMin = 224 // coincidence detection, overflow form
)

// resyncMarker is the "EXP." byte sequence used to recover packet
// alignment after a corrupt packet.
var resyncMarker = [4]byte{0x45, 0x58, 0x50, 0x2e}
