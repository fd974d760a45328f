// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

type blockType int

const (
	blockRaw blockType = iota
	blockRLE
	blockCompressed
	blockReserved
)

// maxBlockSize bounds a compressed block's content size (128 KiB),
// independent of any window-size cap.
const maxBlockSize = 128 * 1024

// Block is a parsed (but, for Compressed blocks, not yet entropy
// decoded) block from a frame's data.
type Block struct {
	kind blockType

	raw []byte

	rleByte   byte
	rleRepeat int

	literals  *LiteralsSection
	sequences *Sequences
}

// ParseBlock parses one block's 3-byte header and payload from p.
// windowSize bounds a Compressed block's content size alongside the
// fixed 128 KiB cap (whichever is smaller); a larger size is rejected
// with a BlockError. It returns the block and whether
// it is the frame's last block.
func ParseBlock(p *ForwardByteParser, windowSize int) (*Block, bool, error) {
	header, err := p.Slice(3)
	if err != nil {
		return nil, false, err
	}
	last := header[0]&0b0000_0001 != 0
	kind := blockType((header[0] & 0b0000_0110) >> 1)
	size := (int(header[2])<<16 | int(header[1])<<8 | int(header[0])) >> 3

	switch kind {
	case blockRaw:
		data, err := p.Slice(size)
		if err != nil {
			return nil, false, err
		}
		return &Block{kind: blockRaw, raw: data}, last, nil

	case blockRLE:
		b, err := p.U8()
		if err != nil {
			return nil, false, err
		}
		return &Block{kind: blockRLE, rleByte: b, rleRepeat: size}, last, nil

	case blockCompressed:
		maxSize := maxBlockSize
		if windowSize < maxSize {
			maxSize = windowSize
		}
		if size > maxSize {
			return nil, false, &BlockError{Reason: "compressed block too large"}
		}
		data, err := p.Slice(size)
		if err != nil {
			return nil, false, err
		}
		inner := NewForwardByteParser(data)
		literals, err := ParseLiteralsSection(inner)
		if err != nil {
			return nil, false, err
		}
		sequences, err := ParseSequences(inner)
		if err != nil {
			return nil, false, err
		}
		return &Block{kind: blockCompressed, literals: literals, sequences: sequences}, last, nil

	default:
		return nil, false, &BlockError{Reason: "reserved block type"}
	}
}
