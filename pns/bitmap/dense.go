package bitmap

import "strings"

// A Dense is a bitmap where every bit is explicitly represented. Bits past the
// end of a Dense read as zero.
type Dense struct {
	bits []byte
	len  int
}

// NewDense returns a new dense bitmap whose contents are a copy of data, and
// whose length is bitLen. If bitLen is longer than data, then trailing zeros
// are added. If bitLen is negative, then it is inferred from data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * byteSize
	}
	r := Dense{
		bits: make([]byte, BytesFor(bitLen)),
		len:  bitLen,
	}
	copy(r.bits, data)
	r.clearTail()
	return r
}

// Get returns the i-th bit in this bitmap.
func (d Dense) Get(i int) bool {
	if i < 0 || i >= d.len {
		return false
	}
	j, pos := i/byteSize, i%byteSize
	return 0 < d.bits[j]&(1<<pos)
}

// Size returns the number of bits in this bitmap.
func (d Dense) Size() int {
	return d.len
}

// SizeBytes returns the number of bytes in this bitmap.
func (d Dense) SizeBytes() int {
	return BytesFor(d.len)
}

// Data returns a view of the bytes underlying this bitmap. Modifying the
// returned slice modifies this bitmap.
func (d Dense) Data() []byte {
	return d.bits
}

// String renders d as a string of '0's and '1's, in index order.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len += 1
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	} else {
		d.bits[i] &= ^(1 << pos)
	}
}

func (d Dense) byteAt(j int) byte {
	if j >= len(d.bits) {
		return 0
	}
	return d.bits[j]
}

// clearTail zeroes any bits in the final byte which lie past the end of d, so
// that whole-byte operations never observe them.
func (d *Dense) clearTail() {
	off := d.len % byteSize
	if off == 0 || len(d.bits) == 0 {
		return
	}
	d.bits[len(d.bits)-1] &= 0xFF >> (byteSize - off)
}
