// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// ForwardByteParser is a non-owning, forward-advancing view over a byte
// slice. Every operation either succeeds and advances the view, or fails
// and leaves the view untouched.
type ForwardByteParser struct {
	data []byte
}

// NewForwardByteParser returns a parser over data. data is not copied;
// the parser must not outlive it.
func NewForwardByteParser(data []byte) *ForwardByteParser {
	return &ForwardByteParser{data: data}
}

// Len returns the number of unconsumed bytes.
func (p *ForwardByteParser) Len() int { return len(p.data) }

// IsEmpty reports whether the view is exhausted.
func (p *ForwardByteParser) IsEmpty() bool { return len(p.data) == 0 }

// U8 consumes and returns a single byte.
func (p *ForwardByteParser) U8() (byte, error) {
	if len(p.data) < 1 {
		return 0, errNotEnoughBytes("u8", 1, len(p.data))
	}
	b := p.data[0]
	p.data = p.data[1:]
	return b, nil
}

// Slice consumes and returns the next n bytes as a sub-slice of the
// underlying view (not a copy).
func (p *ForwardByteParser) Slice(n int) ([]byte, error) {
	if len(p.data) < n {
		return nil, errNotEnoughBytes("slice", n, len(p.data))
	}
	s := p.data[:n]
	p.data = p.data[n:]
	return s, nil
}

// LE consumes n (<= 8) bytes and returns them interpreted as a
// little-endian unsigned integer.
func (p *ForwardByteParser) LE(n int) (uint64, error) {
	if n > 8 {
		return 0, errMalformedBitstream("le")
	}
	s, err := p.Slice(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(s[i])
	}
	return v, nil
}

// LEUint32 consumes 4 bytes and returns them as a little-endian uint32.
func (p *ForwardByteParser) LEUint32() (uint32, error) {
	v, err := p.LE(4)
	return uint32(v), err
}

// ToForwardBitParser drops no bytes (the forward bit parser starts at
// the current, byte-aligned, position) and returns a bit-granular view
// over the remaining bytes.
func (p *ForwardByteParser) ToForwardBitParser() *ForwardBitParser {
	rest := p.data
	p.data = nil
	return newForwardBitParser(rest)
}
