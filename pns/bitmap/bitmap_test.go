package bitmap

import (
	"bytes"
	"testing"
)

func mustDense(t *testing.T, s string) Dense {
	d, err := FromString(s)
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}
	return d
}

func TestSelect(t *testing.T) {
	tcs := []struct {
		name string
		data Dense
		mask Dense
		eout Dense
	}{
		{
			name: "all",
			data: mustDense(t, "101"),
			mask: mustDense(t, "111"),
			eout: mustDense(t, "101"),
		}, {
			name: "some",
			data: mustDense(t, "10100011"),
			mask: mustDense(t, "11111100"),
			eout: mustDense(t, "101000"),
		}, {
			name: "none",
			data: mustDense(t, "10100011 111"),
			mask: mustDense(t, "00000000 000"),
			eout: mustDense(t, ""),
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := Select(tc.data, tc.mask)
			if out.len != tc.eout.len {
				t.Errorf("got bitmap of len %d, want %d", out.len, tc.eout.len)
			}
			if !bytes.Equal(out.bits, tc.eout.bits) {
				t.Errorf("Select(%v, %v) == %v, want %v", tc.data, tc.mask, out, tc.eout)
			}
		})
	}
}

func TestCountOnes(t *testing.T) {
	tcs := []struct {
		name string
		data Dense
		eout int
	}{
		{"empty", mustDense(t, ""), 0},
		{"short", mustDense(t, "101"), 2},
		{"long", mustDense(t, "11111111 0110"), 10},
		{"tail ignored", NewDense([]byte{0xFF}, 3), 3},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if out := CountOnes(tc.data); out != tc.eout {
				t.Errorf("CountOnes(%v) == %d, want %d", tc.data, out, tc.eout)
			}
		})
	}
}

func TestFromStringInvalid(t *testing.T) {
	if _, err := FromString("10x1"); err == nil {
		t.Errorf("expected error: got nil")
	}
}

func TestString(t *testing.T) {
	d := mustDense(t, "1011 0000 1")
	if got, want := d.String(), "101100001"; got != want {
		t.Errorf("String() == %q, want %q", got, want)
	}
}

func TestAppendBit(t *testing.T) {
	var d Dense
	for _, b := range []bool{true, false, true, true, false, false, false, false, true} {
		d.AppendBit(b)
	}
	if d.Size() != 9 {
		t.Errorf("Size() == %d, want 9", d.Size())
	}
	if d.SizeBytes() != 2 {
		t.Errorf("SizeBytes() == %d, want 2", d.SizeBytes())
	}
	if !bytes.Equal(d.Data(), []byte{0b00001101, 0b1}) {
		t.Errorf("Data() == %08b, want [00001101 00000001]", d.Data())
	}
	if d.Get(9) || d.Get(-1) {
		t.Errorf("out of range bits should read as zero")
	}
}
