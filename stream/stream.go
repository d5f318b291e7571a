// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stream decodes APODAS capture files into per-channel photon
// arrival timestamps.
//
// A capture file starts with a 24-byte preamble, followed by 1052-byte
// packets: a 90-byte header and a 1024-byte payload of one-byte samples.
// Each sample encodes one clock tick's worth of event information; the
// decoder reconstructs absolute timestamps from the per-cycle sample
// offsets and an externally tracked wraparound count that persists
// across packets and files.
package stream // import "github.com/go-apd/apodas/stream"

// Channel identifies one detection record stream.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
	Coincidence
)

func (ch Channel) String() string {
	switch ch {
	case ChannelA:
		return "apd-a"
	case ChannelB:
		return "apd-b"
	case Coincidence:
		return "coincidence"
	}
	return "invalid"
}

// Record is one timestamped detection.
type Record struct {
	Packet int   // packet ordinal within the capture file
	Count  int64 // running detection count for the channel
	Time   int64 // absolute timestamp in nanoseconds
}

// PacketRecord accounts for one valid packet of the capture stream.
type PacketRecord struct {
	Packet int    // packet ordinal within the capture file
	Seq    uint32 // hardware sequence counter
	Delta  int64  // Seq minus the previous packet's Seq; 1 when First
	First  bool   // no previous packet exists in this run
}

// Summary closes the packet accounting of one capture file.
type Summary struct {
	Missed   int64 // packets lost within this file
	Total    int64 // observation time, in nanoseconds
	Adjusted int64 // observation time minus lost-packet time, in nanoseconds
}

// Config selects the decoder variant.
type Config struct {
	// TrackB enables the independent channel-B bookkeeping and record
	// stream. Classification arithmetic is identical either way.
	TrackB bool
}

// Output receives the records emitted while decoding capture files.
type Output interface {
	Detection(ch Channel, rec Record)
	Packet(rec PacketRecord)
	Summary(sum Summary)

	// Err returns the first error encountered while writing records.
	Err() error
}
