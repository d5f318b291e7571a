// Copyright 2026 The go-apd Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

// collect gathers decoded records in memory.
type collect struct {
	det     map[Channel][]Record
	packets []PacketRecord
	sums    []Summary
}

func newCollect() *collect {
	return &collect{det: make(map[Channel][]Record)}
}

func (o *collect) Detection(ch Channel, rec Record) { o.det[ch] = append(o.det[ch], rec) }

func (o *collect) Packet(rec PacketRecord) { o.packets = append(o.packets, rec) }

func (o *collect) Summary(sum Summary) { o.sums = append(o.sums, sum) }

func (o *collect) Err() error { return nil }

// corrupt returns a 90-byte packet header declaring a bogus length,
// followed by pad zero bytes.
func corrupt(length uint16, pad int) []byte {
	raw := make([]byte, headerSize+pad)
	binary.BigEndian.PutUint16(raw[lenOffset:], length)
	return raw
}

func TestDecoder(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cfg     Config
		raw     func(t *testing.T) []byte
		trunc   int // bytes to drop from the end of the stream
		det     map[Channel][]Record
		packets []PacketRecord
		sums    []Summary
	}{
		{
			name: "single-packet",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 100)
				if err := enc.Encode([]byte{159, 159, 40, 100, 159, 165, 230}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {
					{Packet: 1, Count: 1, Time: 200},
					{Packet: 1, Count: 2, Time: 180},
					{Packet: 1, Count: 3, Time: 345},
					{Packet: 1, Count: 4, Time: 510},
				},
				Coincidence: {
					{Packet: 1, Count: 1, Time: 180},
					{Packet: 1, Count: 2, Time: 510},
				},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 100, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 640, Adjusted: 640}},
		},
		{
			name: "two-channel",
			cfg:  Config{TrackB: true},
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 7)
				if err := enc.Encode([]byte{159, 159, 70, 100, 200, 230}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {
					{Packet: 1, Count: 1, Time: 180},
					{Packet: 1, Count: 2, Time: 350},
				},
				ChannelB: {
					{Packet: 1, Count: 1, Time: 190},
					{Packet: 1, Count: 2, Time: 180},
					{Packet: 1, Count: 3, Time: 200},
					{Packet: 1, Count: 4, Time: 350},
				},
				Coincidence: {
					{Packet: 1, Count: 1, Time: 180},
					{Packet: 1, Count: 2, Time: 350},
				},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 7, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 480, Adjusted: 480}},
		},
		{
			// the single-channel variant ignores channel-B samples,
			// overflow forms included.
			name: "channel-b-untracked",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 7)
				if err := enc.Encode([]byte{159, 159, 70, 100, 200, 230}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {
					{Packet: 1, Count: 1, Time: 180},
					{Packet: 1, Count: 2, Time: 190},
				},
				Coincidence: {
					{Packet: 1, Count: 1, Time: 180},
					{Packet: 1, Count: 2, Time: 190},
				},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 7, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 320, Adjusted: 320}},
		},
		{
			// samples before the first wraparound marker carry no
			// usable time reference and are dropped.
			name: "pre-epoch-samples-ignored",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 1)
				if err := enc.Encode([]byte{40, 100, 159, 40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {{Packet: 1, Count: 1, Time: 40}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 1, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 0, Adjusted: 0}},
		},
		{
			// sequence gap of 2: delta 3, two packets missed, the
			// wraparound count jumps by 2*1024 unobserved cycles.
			name: "sequence-gap",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 10)
				if err := enc.Encode([]byte{159, 159}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				enc.Skip(2)
				if err := enc.Encode([]byte{40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {{Packet: 2, Count: 1, Time: 40 + 2049*160}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 10, Delta: 1, First: true},
				{Packet: 2, Seq: 13, Delta: 3},
			},
			sums: []Summary{{Missed: 2, Total: 2049 * 160, Adjusted: 160}},
		},
		{
			// a short final payload is decoded as far as it goes.
			name: "truncated-payload",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 3)
				if err := enc.Encode([]byte{159, 159, 40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			trunc: 1000,
			det: map[Channel][]Record{
				ChannelA: {{Packet: 1, Count: 1, Time: 200}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 3, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 160, Adjusted: 160}},
		},
		{
			// a short trailing header is a normal end of file.
			name: "truncated-header",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 3)
				if err := enc.Encode([]byte{159, 159, 40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				buf.Write(make([]byte, 50))
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {{Packet: 1, Count: 1, Time: 200}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 3, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 160, Adjusted: 160}},
		},
		{
			// one corrupt packet, then recovery on the "EXP." marker:
			// only the corrupt packet is lost.
			name: "resync",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 5)
				if err := enc.Encode([]byte{159, 159}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				buf.Write(corrupt(7, 4))
				if err := enc.Encode([]byte{40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {{Packet: 2, Count: 1, Time: 200}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 5, Delta: 1, First: true},
				{Packet: 2, Seq: 6, Delta: 1},
			},
			sums: []Summary{{Missed: 0, Total: 160, Adjusted: 160}},
		},
		{
			// no marker before EOF: the file's decode ends early, the
			// records seen so far are kept and the summary is written.
			name: "resync-exhausted",
			raw: func(t *testing.T) []byte {
				buf := new(bytes.Buffer)
				enc := NewEncoder(buf, 5)
				if err := enc.Encode([]byte{159, 159, 40}); err != nil {
					t.Fatalf("could not encode packet: %+v", err)
				}
				buf.Write(corrupt(2000, 7))
				return buf.Bytes()
			},
			det: map[Channel][]Record{
				ChannelA: {{Packet: 1, Count: 1, Time: 200}},
			},
			packets: []PacketRecord{
				{Packet: 1, Seq: 5, Delta: 1, First: true},
			},
			sums: []Summary{{Missed: 0, Total: 160, Adjusted: 160}},
		},
		{
			name: "preamble-only",
			raw: func(t *testing.T) []byte {
				return make([]byte, 24)
			},
			det:  map[Channel][]Record{},
			sums: []Summary{{}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			raw := tc.raw(t)
			raw = raw[:len(raw)-tc.trunc]

			var (
				dec = NewDecoder(tc.cfg, nil)
				out = newCollect()
			)
			err := dec.Decode(bytes.NewReader(raw), out)
			if err != nil {
				t.Fatalf("could not decode: %+v", err)
			}

			if diff := cmp.Diff(tc.det, out.det); diff != "" {
				t.Errorf("invalid detection records (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.packets, out.packets); diff != "" {
				t.Errorf("invalid packet records (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.sums, out.sums); diff != "" {
				t.Errorf("invalid summary (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoderAcrossFiles(t *testing.T) {
	// one acquisition split over two capture files: the epoch, the
	// sequence counter and the detection counts carry over.
	var (
		buf1 = new(bytes.Buffer)
		buf2 = new(bytes.Buffer)
	)
	enc := NewEncoder(buf1, 10)
	if err := enc.Encode([]byte{159, 159, 40}); err != nil {
		t.Fatalf("could not encode packet: %+v", err)
	}
	enc = NewEncoder(buf2, enc.Seq()+2) // two packets lost between files
	if err := enc.Encode([]byte{40}); err != nil {
		t.Fatalf("could not encode packet: %+v", err)
	}

	dec := NewDecoder(Config{}, nil)

	out1 := newCollect()
	if err := dec.Decode(bytes.NewReader(buf1.Bytes()), out1); err != nil {
		t.Fatalf("could not decode first file: %+v", err)
	}
	out2 := newCollect()
	if err := dec.Decode(bytes.NewReader(buf2.Bytes()), out2); err != nil {
		t.Fatalf("could not decode second file: %+v", err)
	}

	want1 := []PacketRecord{{Packet: 1, Seq: 10, Delta: 1, First: true}}
	if diff := cmp.Diff(want1, out1.packets); diff != "" {
		t.Errorf("invalid first-file packet records (-want +got):\n%s", diff)
	}

	// the second file's first packet is not a run start: its delta is
	// computed against the previous file.
	want2 := []PacketRecord{{Packet: 1, Seq: 13, Delta: 3}}
	if diff := cmp.Diff(want2, out2.packets); diff != "" {
		t.Errorf("invalid second-file packet records (-want +got):\n%s", diff)
	}

	// wraparound count carries: 1 cycle from file one, plus 2*1024
	// unobserved cycles for the lost packets.
	wantA := []Record{{Packet: 1, Count: 2, Time: 40 + 2049*160}}
	if diff := cmp.Diff(wantA, out2.det[ChannelA]); diff != "" {
		t.Errorf("invalid second-file channel-A records (-want +got):\n%s", diff)
	}

	wantSum := []Summary{{Missed: 2, Total: 2049 * 160, Adjusted: 160}}
	if diff := cmp.Diff(wantSum, out2.sums); diff != "" {
		t.Errorf("invalid second-file summary (-want +got):\n%s", diff)
	}
}

func TestDecoderMonotonicTimestamps(t *testing.T) {
	// within one payload, channel-A timestamps never decrease once
	// wraparounds are accounted for.
	payload := []byte{159, 33, 100, 147, 55, 159, 165, 159, 230}
	buf := new(bytes.Buffer)
	enc := NewEncoder(buf, 1)
	if err := enc.Encode(payload); err != nil {
		t.Fatalf("could not encode packet: %+v", err)
	}

	var (
		dec = NewDecoder(Config{}, nil)
		out = newCollect()
	)
	if err := dec.Decode(bytes.NewReader(buf.Bytes()), out); err != nil {
		t.Fatalf("could not decode: %+v", err)
	}

	recs := out.det[ChannelA]
	var na, nc int
	for _, v := range payload {
		switch {
		case v >= chanAMin && v <= chanAMax,
			v >= chanAOvfMin && v <= chanAOvfMax:
			na++
		case v >= coincMin && v <= coincMax, v >= coincOvfMin:
			nc++
		}
	}
	if got, want := len(recs), na+nc; got != want {
		t.Fatalf("invalid number of channel-A records: got=%d, want=%d", got, want)
	}

	times := make([]int64, len(recs))
	for i, rec := range recs {
		times[i] = rec.Time
	}
	sorted := sort.SliceIsSorted(times, func(i, j int) bool { return times[i] < times[j] })
	if !sorted {
		t.Fatalf("channel-A timestamps not sorted: %v", times)
	}
}

type badReader struct{ err error }

func (r *badReader) Read(p []byte) (int, error) { return 0, r.err }

func (r *badReader) Seek(offset int64, whence int) (int64, error) { return 0, nil }

func TestDecoderReadError(t *testing.T) {
	errBoom := xerrors.New("boom")

	var (
		dec = NewDecoder(Config{}, nil)
		out = newCollect()
	)
	err := dec.Decode(&badReader{err: errBoom}, out)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !xerrors.Is(err, errBoom) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, errBoom)
	}
	if len(out.sums) != 0 {
		t.Fatalf("summary written after a read error")
	}
}
