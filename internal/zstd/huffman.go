// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "sort"

// nodeKind distinguishes the three shapes a HuffmanDecoder node can take.
type nodeKind int

const (
	nodeAbsent nodeKind = iota
	nodeSymbol
	nodeBranch
)

// HuffmanDecoder is a canonical-Huffman prefix tree: Absent | Symbol |
// Branch(left, right). Decoding reads one bit per branch from a backward
// bit stream, 0 selecting left and 1 selecting right.
type HuffmanDecoder struct {
	root *huffmanNode
}

type huffmanNode struct {
	kind        nodeKind
	symbol      byte
	left, right *huffmanNode
}

func newAbsentNode() *huffmanNode { return &huffmanNode{kind: nodeAbsent} }

// insert places symbol at the first Absent slot reached by descending
// left-then-right exactly width levels.
func (n *huffmanNode) insert(symbol byte, width int) bool {
	if width == 0 {
		if n.kind == nodeAbsent {
			n.kind = nodeSymbol
			n.symbol = symbol
			return true
		}
		return false
	}
	if n.kind == nodeSymbol {
		panic("zstd: invalid huffman tree")
	}
	if n.kind == nodeAbsent {
		n.kind = nodeBranch
		n.left = newAbsentNode()
		n.right = newAbsentNode()
	}
	if n.left.insert(symbol, width-1) {
		return true
	}
	return n.right.insert(symbol, width-1)
}

// Decode reads bits from p until it reaches a Symbol leaf.
func (h *HuffmanDecoder) Decode(p *BackwardBitParser) (byte, error) {
	n := h.root
	for {
		switch n.kind {
		case nodeSymbol:
			return n.symbol, nil
		case nodeAbsent:
			return 0, &HuffmanError{Reason: "missing symbol"}
		default:
			bit, err := p.Take(1)
			if err != nil {
				return 0, err
			}
			if bit == 0 {
				n = n.left
			} else {
				n = n.right
			}
		}
	}
}

const maxHuffmanWeights = 255
const maxHuffmanWeight = 11

// computeMissingWeight computes the implied weight of the one symbol
// whose weight is never transmitted, per spec 4.2: S = sum of 2^(w-1)
// over explicit weights w>0; the ceiling power of two 2^maxWidth >= S
// must exceed S by exactly a power of two, and the missing weight is
// log2(2^maxWidth - S) + 1.
func computeMissingWeight(explicit []uint8) (maxWidth int, missing uint8, err error) {
	s := 0
	for _, w := range explicit {
		if w == 0 {
			continue
		}
		if w > maxHuffmanWeight {
			return 0, 0, &HuffmanError{Reason: "weight too big"}
		}
		s += 1 << (w - 1)
	}
	for (1 << maxWidth) < s {
		maxWidth++
	}
	diff := (1 << maxWidth) - s
	if diff <= 0 || diff&(diff-1) != 0 {
		return 0, 0, &HuffmanError{Reason: "cannot compute missing weight"}
	}
	m := 0
	for (1 << m) < diff {
		m++
	}
	missing = uint8(m + 1)
	if missing > maxHuffmanWeight {
		return 0, 0, &HuffmanError{Reason: "weight too big"}
	}
	return maxWidth, missing, nil
}

// huffmanFromWeights builds a HuffmanDecoder from the explicit weights
// (the last symbol's weight is implied and computed here, never
// transmitted).
func huffmanFromWeights(explicit []uint8) (*HuffmanDecoder, error) {
	if len(explicit) > maxHuffmanWeights {
		return nil, &HuffmanError{Reason: "too many weights"}
	}
	maxWidth, missing, err := computeMissingWeight(explicit)
	if err != nil {
		return nil, err
	}
	weights := make([]uint8, len(explicit)+1)
	copy(weights, explicit)
	weights[len(explicit)] = missing
	if len(weights) > maxHuffmanWeights+1 {
		return nil, &HuffmanError{Reason: "too many weights"}
	}

	type symbolWidth struct {
		symbol int
		width  int
	}
	var list []symbolWidth
	for symbol, w := range weights {
		if w > 0 {
			list = append(list, symbolWidth{symbol, maxWidth + 1 - int(w)})
		}
	}
	if len(list) == 0 {
		return nil, &HuffmanError{Reason: "missing symbol"}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].width != list[j].width {
			return list[i].width > list[j].width
		}
		return list[i].symbol < list[j].symbol
	})

	root := newAbsentNode()
	for _, e := range list {
		if !root.insert(byte(e.symbol), e.width) {
			return nil, &HuffmanError{Reason: "unreachable tree path"}
		}
	}
	return &HuffmanDecoder{root: root}, nil
}

// ParseHuffmanTable parses a Huffman table description: header byte h —
// h < 128 is the byte size of an FSE-compressed weights bitstream, else
// h-127 is a count of directly-coded 4-bit weights.
func ParseHuffmanTable(p *ForwardByteParser) (*HuffmanDecoder, error) {
	h, err := p.U8()
	if err != nil {
		return nil, err
	}
	if h < 128 {
		data, err := p.Slice(int(h))
		if err != nil {
			return nil, err
		}
		fp := NewForwardBitParser(data)
		table, err := ParseFseTable(fp, 6)
		if err != nil {
			return nil, err
		}
		bp, err := fp.ToBackwardBitParser()
		if err != nil {
			return nil, err
		}
		weights, err := decodeWeightsFSE(table, bp)
		if err != nil {
			return nil, err
		}
		return huffmanFromWeights(weights)
	}

	count := int(h) - 127
	nbytes := (count + 1) / 2
	data, err := p.Slice(nbytes)
	if err != nil {
		return nil, err
	}
	weights := make([]uint8, count)
	for i := 0; i < count; i++ {
		b := data[i/2]
		if i%2 == 0 {
			weights[i] = b >> 4
		} else {
			weights[i] = b & 0x0F
		}
	}
	return huffmanFromWeights(weights)
}

// decodeWeightsFSE drives an alternating FSE decoder over a backward bit
// stream until it is exhausted, collecting one weight per symbol draw. The loop
// terminates when an update silently completes with zeros (the stream is
// exhausted); that termination emits one final weight from the decoder
// that was not just updated.
func decodeWeightsFSE(table *FseTable, bp *BackwardBitParser) ([]uint8, error) {
	alt := NewAlternatingDecoder(table)
	if err := alt.Initialize(bp); err != nil {
		return nil, err
	}
	var weights []uint8
	for {
		weights = append(weights, uint8(alt.Symbol()))
		if len(weights) > maxHuffmanWeights {
			return nil, &HuffmanError{Reason: "too many weights"}
		}
		zeros, err := alt.UpdateBits(bp)
		if err != nil {
			return nil, err
		}
		if zeros {
			weights = append(weights, uint8(alt.Symbol()))
			return weights, nil
		}
	}
}
