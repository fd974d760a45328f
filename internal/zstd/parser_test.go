// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "testing"

func TestForwardByteParser(t *testing.T) {
	p := NewForwardByteParser([]byte{0x01, 0x02, 0x03, 0x04})
	b, err := p.U8()
	if err != nil || b != 0x01 {
		t.Fatalf("U8: got (%v, %v)", b, err)
	}
	v, err := p.LE(2)
	if err != nil || v != 0x0302 {
		t.Fatalf("LE(2): got (%v, %v)", v, err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", p.Len())
	}
	if _, err := p.Slice(2); err == nil {
		t.Fatal("Slice: expected error for over-read")
	}
}

func TestForwardBitParser(t *testing.T) {
	p := NewForwardBitParser([]byte{0b1010_0110})
	v, err := p.Take(3)
	if err != nil || v != 0b110 {
		t.Fatalf("Take(3): got (%v, %v)", v, err)
	}
	v, err = p.Take(5)
	if err != nil || v != 0b10100 {
		t.Fatalf("Take(5): got (%v, %v)", v, err)
	}
	if p.AvailableBits() != 0 {
		t.Fatalf("AvailableBits: got %d, want 0", p.AvailableBits())
	}
}

func TestBackwardBitParser(t *testing.T) {
	// sentinel bit is the highest set bit of the last byte.
	p, err := NewBackwardBitParser([]byte{0b0011_1100, 0b0001_0111})
	if err != nil {
		t.Fatalf("NewBackwardBitParser: %v", err)
	}
	if got := p.AvailableBits(); got != 8+4 {
		t.Fatalf("AvailableBits: got %d, want 12", got)
	}
}

func TestBackwardBitParserRejectsZeroFinalByte(t *testing.T) {
	if _, err := NewBackwardBitParser([]byte{0x01, 0x00}); err == nil {
		t.Fatal("expected error for missing sentinel bit")
	}
}
