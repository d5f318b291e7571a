// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

// classify walks one packet payload, sample by sample, and emits the
// detection records it encodes. Absolute timestamps follow
//
//	t = (sample - base) * ClockPeriod + wraps * WraparoundPeriod
//
// where base is the low edge of the sample's classification range.
// Overflow-form samples advance the wraparound counter after the event
// they carry has been stamped.
func (dec *Decoder) classify(data []byte, pkt int, out Output) {
	for _, v := range data {
		if v == wrapMarker && !dec.epochSeen {
			// The first wraparound marker of a run opens the epoch:
			// the increment below brings the cycle count to zero.
			dec.epochSeen = true
			dec.wraps = -1
		}
		if !dec.epochSeen {
			continue
		}
		switch {
		case v < 128:
			switch {
			case v >= chanAMin && v <= chanAMax:
				dec.nA++
				out.Detection(ChannelA, Record{Packet: pkt, Count: dec.nA, Time: dec.time(v, chanAMin)})
			case dec.cfg.TrackB && v >= chanBMin && v <= chanBMax:
				dec.nB++
				out.Detection(ChannelB, Record{Packet: pkt, Count: dec.nB, Time: dec.time(v, chanBMin)})
			case v >= coincMin && v <= coincMax:
				dec.coincide(pkt, dec.time(v, coincMin), out)
			}
		case v == wrapMarker:
			dec.wraps++
		case v >= chanAOvfMin && v <= chanAOvfMax:
			dec.nA++
			t := dec.time(v, chanAOvfMin)
			dec.wraps++
			out.Detection(ChannelA, Record{Packet: pkt, Count: dec.nA, Time: t})
		case dec.cfg.TrackB && v >= chanBOvfMin && v <= chanBOvfMax:
			dec.nB++
			t := dec.time(v, chanBOvfMin)
			dec.wraps++
			out.Detection(ChannelB, Record{Packet: pkt, Count: dec.nB, Time: t})
		case v >= coincOvfMin:
			t := dec.time(v, coincOvfMin)
			dec.wraps++
			dec.coincide(pkt, t, out)
		}
	}
}

// coincide records one coincidence detection and mirrors it on the
// individual channel streams at the same timestamp.
func (dec *Decoder) coincide(pkt int, t int64, out Output) {
	dec.nCoinc++
	dec.nA++
	out.Detection(Coincidence, Record{Packet: pkt, Count: dec.nCoinc, Time: t})
	out.Detection(ChannelA, Record{Packet: pkt, Count: dec.nA, Time: t})
	if dec.cfg.TrackB {
		dec.nB++
		out.Detection(ChannelB, Record{Packet: pkt, Count: dec.nB, Time: t})
	}
}

func (dec *Decoder) time(v, base byte) int64 {
	return int64(v-base)*ClockPeriod + dec.wraps*WraparoundPeriod
}
