package bitmap

// binary applies f bytewise to a and b. The result is as long as the longer
// operand, with the shorter one padded by zeros.
func binary(a, b Dense, f func(x, y byte) byte) Dense {
	n := a.len
	if b.len > n {
		n = b.len
	}
	r := Dense{
		bits: make([]byte, BytesFor(n)),
		len:  n,
	}
	for i := range r.bits {
		r.bits[i] = f(a.byteAt(i), b.byteAt(i))
	}
	r.clearTail()
	return r
}

// And returns the bitwise AND of two bitmaps.
func And(a, b Dense) Dense {
	return binary(a, b, func(x, y byte) byte { return x & y })
}

// Or returns the bitwise OR of two bitmaps.
func Or(a, b Dense) Dense {
	return binary(a, b, func(x, y byte) byte { return x | y })
}

// XOr returns the bitwise XOR of two bitmaps.
func XOr(a, b Dense) Dense {
	return binary(a, b, func(x, y byte) byte { return x ^ y })
}

// XNor returns the bitwise XNOR of two bitmaps.
func XNor(a, b Dense) Dense {
	return binary(a, b, func(x, y byte) byte { return ^(x ^ y) })
}

// Not returns the bitwise negation of a bitmap.
func Not(d Dense) Dense {
	r := Dense{
		bits: make([]byte, 0, BytesFor(d.len)),
		len:  d.len,
	}
	for i := range d.bits {
		r.bits = append(r.bits, ^d.bits[i])
	}
	r.clearTail()
	return r
}
