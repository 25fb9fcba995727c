package pns

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of a round record on the wire. Every record is a protobuf
// message with the following (varint) fields.
const (
	fieldIndex       protowire.Number = 1
	fieldPhotonCount protowire.Number = 2
	fieldAliceBit    protowire.Number = 3
	fieldAliceBasis  protowire.Number = 4
	fieldBobBasis    protowire.Number = 5
	fieldDetected    protowire.Number = 6
	fieldBobBit      protowire.Number = 7
	fieldEveState    protowire.Number = 8
	fieldEveBit      protowire.Number = 9
	fieldEveBasis    protowire.Number = 10
)

// maxRecordLen bounds the length prefix accepted by ReadTranscript. A round
// record never comes close.
const maxRecordLen = 1 << 10

// WriteTranscript writes every round of h to w. The structure of the
// transcript is trivial: a sequence of frames, each of which is
// record-length | record, with the length a little-endian int32.
func WriteTranscript(w io.Writer, h *History) error {
	for _, r := range h.rounds {
		rec := appendRound(nil, r)
		if err := binary.Write(w, binary.LittleEndian, int32(len(rec))); err != nil {
			return fmt.Errorf("writing round %d: %w", r.Index, err)
		}
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("writing round %d: %w", r.Index, err)
		}
	}
	return nil
}

// ReadTranscript reads a transcript written by WriteTranscript, until r is
// exhausted.
func ReadTranscript(r io.Reader) (*History, error) {
	var rounds []Round
	for {
		var recLen int32
		if err := binary.Read(r, binary.LittleEndian, &recLen); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading record %d length: %w", len(rounds), err)
		}
		if recLen < 0 || recLen > maxRecordLen {
			return nil, fmt.Errorf("record %d has implausible length %d", len(rounds), recLen)
		}
		rec := make([]byte, recLen)
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, fmt.Errorf("reading record %d: %w", len(rounds), err)
		}
		round, err := consumeRound(rec)
		if err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", len(rounds), err)
		}
		rounds = append(rounds, round)
	}
	return NewHistory(rounds)
}

func appendRound(b []byte, r Round) []byte {
	b = appendVarint(b, fieldIndex, uint64(r.Index))
	b = appendVarint(b, fieldPhotonCount, uint64(r.PhotonCount))
	b = appendVarint(b, fieldAliceBit, uint64(r.AliceBit))
	b = appendVarint(b, fieldAliceBasis, uint64(r.AliceBasis))
	b = appendVarint(b, fieldBobBasis, uint64(r.BobBasis))
	b = appendVarint(b, fieldDetected, protowire.EncodeBool(r.Detected))
	b = appendVarint(b, fieldBobBit, uint64(r.BobBit))
	b = appendVarint(b, fieldEveState, uint64(r.EveState))
	b = appendVarint(b, fieldEveBit, uint64(r.EveBit))
	b = appendVarint(b, fieldEveBasis, uint64(r.EveBasis))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func consumeRound(b []byte) (Round, error) {
	var r Round
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Round{}, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			// Unknown or future fields are skipped.
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Round{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Round{}, protowire.ParseError(n)
		}
		b = b[n:]
		if num != fieldIndex && num != fieldPhotonCount && v > math.MaxUint8 {
			return Round{}, fmt.Errorf("field %d out of range: %d", num, v)
		}
		switch num {
		case fieldIndex:
			r.Index = int(v)
		case fieldPhotonCount:
			r.PhotonCount = int(v)
		case fieldAliceBit:
			r.AliceBit = Bit(v)
		case fieldAliceBasis:
			r.AliceBasis = Basis(v)
		case fieldBobBasis:
			r.BobBasis = Basis(v)
		case fieldDetected:
			r.Detected = protowire.DecodeBool(v)
		case fieldBobBit:
			r.BobBit = Bit(v)
		case fieldEveState:
			r.EveState = EveState(v)
		case fieldEveBit:
			r.EveBit = Bit(v)
		case fieldEveBasis:
			r.EveBasis = Basis(v)
		}
	}
	return r, nil
}
