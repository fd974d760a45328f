// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "testing"

func TestHuffmanFromWeightsBuildsTree(t *testing.T) {
	// Symbols 'A'=0x41, 'B'=0x42, 'C'=0x43. Weights chosen so that 'B'
	// (most frequent, 3 of 6) gets the shortest code.
	weights := make([]uint8, 0x43+1)
	weights[0x41] = 1 // A: width = maxWidth
	weights[0x42] = 2 // B: width = maxWidth-1 (shortest)
	// 'C's weight is the omitted (implied) one.
	h, err := huffmanFromWeights(weights[:0x43])
	if err != nil {
		t.Fatalf("huffmanFromWeights: %v", err)
	}
	if h.root.kind != nodeBranch {
		t.Fatalf("root kind: got %v, want branch", h.root.kind)
	}
}

func TestComputeMissingWeightRejectsOverflow(t *testing.T) {
	explicit := []uint8{12}
	if _, _, err := computeMissingWeight(explicit); err == nil {
		t.Fatal("expected error for weight exceeding maxHuffmanWeight")
	}
}

func TestParseHuffmanTableDirect(t *testing.T) {
	// header = 127 + 2 => 2 explicit weights, packed as one byte of
	// nibbles (high nibble first): weight(sym0)=2, weight(sym1)=1, and
	// weight(sym2)=1 is implied. sym0 gets the 1-bit code "1".
	p := NewForwardByteParser([]byte{127 + 2, 0x21})
	h, err := ParseHuffmanTable(p)
	if err != nil {
		t.Fatalf("ParseHuffmanTable: %v", err)
	}
	if _, err := h.Decode(mustBackwardBitParser(t, []byte{0b0000_0011})); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func mustBackwardBitParser(t *testing.T, data []byte) *BackwardBitParser {
	t.Helper()
	p, err := NewBackwardBitParser(data)
	if err != nil {
		t.Fatalf("NewBackwardBitParser: %v", err)
	}
	return p
}
