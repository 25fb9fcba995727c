package pns

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestTranscriptRoundTrip(t *testing.T) {
	s := newTestSession(t, true)
	if err := s.TransmitRandom(2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Resolve()
	// Sprinkle in a few rounds which are still pending.
	h, err := NewHistory(append(s.History().Rounds(), mixedHistoryRounds(2000)...))
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTranscript(&buf, h); err != nil {
		t.Fatalf("error writing transcript: %v", err)
	}
	h2, err := ReadTranscript(&buf)
	if err != nil {
		t.Fatalf("error reading transcript: %v", err)
	}
	if h2.Len() != h.Len() {
		t.Fatalf("read %d rounds, wrote %d", h2.Len(), h.Len())
	}
	for i := 0; i < h.Len(); i++ {
		if h.At(i) != h2.At(i) {
			t.Errorf("round %d mangled in transit: got %+v, want %+v", i, h2.At(i), h.At(i))
		}
	}
}

func TestReadTranscriptEmpty(t *testing.T) {
	h, err := ReadTranscript(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("read %d rounds from an empty transcript", h.Len())
	}
}

func TestReadTranscriptSkipsUnknownFields(t *testing.T) {
	r := Round{Index: 0, PhotonCount: 2, AliceBit: 1, AliceBasis: X, BobBasis: X, Detected: true, BobBit: 1, EveState: EveDeferred}
	rec := appendRound(nil, r)
	rec = protowire.AppendTag(rec, 99, protowire.BytesType)
	rec = protowire.AppendBytes(rec, []byte("future"))
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(len(rec)))
	buf.Write(rec)

	h, err := ReadTranscript(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 1 || h.At(0) != r {
		t.Errorf("got %+v, want [%+v]", h.Rounds(), r)
	}
}

func TestReadTranscriptCorrupt(t *testing.T) {
	good := appendRound(nil, Round{Index: 0, PhotonCount: 1, AliceBit: 1, AliceBasis: Z, BobBasis: Z, Detected: true, BobBit: 1})
	vacuum := appendRound(nil, Round{Index: 1, PhotonCount: 0, AliceBit: 0, AliceBasis: X, BobBasis: Z, EveState: EveVacuum})
	frame := func(rec []byte) []byte {
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, int32(len(rec)))
		buf.Write(rec)
		return buf.Bytes()
	}
	tcs := []struct {
		name string
		data []byte
	}{
		{"truncated length", []byte{1, 0}},
		{"truncated record", frame(good)[:len(good)]},
		{"negative length", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"bad tag", frame([]byte{0x80})},
		{"oversized bit", frame(appendVarint(append([]byte(nil), good...), fieldAliceBit, 300))},
		{"inconsistent round", frame(appendVarint(append([]byte(nil), good...), fieldEveBit, 1))},
		{"deferred single photon", frame(appendVarint(append([]byte(nil), good...), fieldEveState, uint64(EveDeferred)))},
		{"vacuum with photons", frame(appendVarint(append([]byte(nil), good...), fieldEveState, uint64(EveVacuum)))},
		{"mixed attack modes", append(frame(good), frame(vacuum)...)},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadTranscript(bytes.NewReader(tc.data)); err == nil {
				t.Errorf("expected error: got nil")
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteTranscriptError(t *testing.T) {
	err := WriteTranscript(failingWriter{}, mixedHistory(t))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("WriteTranscript error == %v, want %v", err, io.ErrClosedPipe)
	}
}

// mixedHistoryRounds returns mixedRounds, re-indexed to start at off.
func mixedHistoryRounds(off int) []Round {
	rs := mixedRounds()
	for i := range rs {
		rs[i].Index += off
	}
	return rs
}
