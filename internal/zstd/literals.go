// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "golang.org/x/sync/errgroup"

// literalsBlockType is the 2-bit block_type field of a literals section
// header.
type literalsBlockType int

const (
	literalsRaw literalsBlockType = iota
	literalsRLE
	literalsCompressed
	literalsTreeless
)

// maxLiteralsSize bounds a single literals section's regenerated size
// (128 KiB), matching the window-size cap applied to blocks.
const maxLiteralsSize = 128 * 1024

// LiteralsSection is a parsed (but not yet entropy-decoded) literals
// section. Compressed and Treeless sections carry a byte stream that
// must be driven through a Huffman decoder; Treeless sections reuse the
// decoder retained from an earlier block instead of carrying their own.
type LiteralsSection struct {
	kind literalsBlockType

	raw []byte

	rleByte   byte
	rleRepeat int

	huffman         *HuffmanDecoder // non-nil only for a Compressed block
	regeneratedSize int
	jumpTable       *[3]int
	data            []byte
}

// ParseLiteralsSection parses a literals section header and its
// trailing payload from p, without performing any entropy decoding.
func ParseLiteralsSection(p *ForwardByteParser) (*LiteralsSection, error) {
	header, err := p.U8()
	if err != nil {
		return nil, err
	}
	blockType := literalsBlockType(header & 0b0000_0011)
	sizeFormat := (header & 0b0000_1100) >> 2

	switch blockType {
	case literalsRaw, literalsRLE:
		regeneratedSize, err := parseRawOrRLESize(p, header, sizeFormat)
		if err != nil {
			return nil, err
		}
		if regeneratedSize > maxLiteralsSize {
			return nil, &LiteralsError{Reason: "regenerated size too large"}
		}
		if blockType == literalsRaw {
			data, err := p.Slice(regeneratedSize)
			if err != nil {
				return nil, err
			}
			return &LiteralsSection{kind: literalsRaw, raw: data}, nil
		}
		b, err := p.U8()
		if err != nil {
			return nil, err
		}
		return &LiteralsSection{kind: literalsRLE, rleByte: b, rleRepeat: regeneratedSize}, nil

	case literalsCompressed, literalsTreeless:
		return parseCompressedOrTreeless(p, header, sizeFormat, blockType)
	}
	return nil, &LiteralsError{Reason: "invalid block type"}
}

func parseRawOrRLESize(p *ForwardByteParser, header byte, sizeFormat byte) (int, error) {
	switch sizeFormat {
	case 0b00, 0b10:
		return int(header >> 3), nil
	case 0b01:
		b, err := p.U8()
		if err != nil {
			return 0, err
		}
		return int(header)>>4 | int(b)<<4, nil
	case 0b11:
		b1, err := p.U8()
		if err != nil {
			return 0, err
		}
		b2, err := p.U8()
		if err != nil {
			return 0, err
		}
		return int(header)>>4 | int(b1)<<4 | int(b2)<<12, nil
	}
	return 0, &LiteralsError{Reason: "invalid size format"}
}

func parseCompressedOrTreeless(p *ForwardByteParser, header byte, sizeFormat byte, blockType literalsBlockType) (*LiteralsSection, error) {
	h := int(header)
	var streams int
	switch sizeFormat {
	case 0b00:
		streams = 1
	case 0b01, 0b10, 0b11:
		streams = 4
	default:
		return nil, &LiteralsError{Reason: "invalid size format"}
	}

	var regeneratedSize, compressedSize int
	switch sizeFormat {
	case 0b00, 0b01:
		h1, err := p.U8()
		if err != nil {
			return nil, err
		}
		h2, err := p.U8()
		if err != nil {
			return nil, err
		}
		regeneratedSize = h>>4 | (int(h1)&0b0011_1111)<<4
		compressedSize = int(h1)>>6 | int(h2)<<2
	case 0b10:
		h1, err := p.U8()
		if err != nil {
			return nil, err
		}
		h2, err := p.U8()
		if err != nil {
			return nil, err
		}
		h3, err := p.U8()
		if err != nil {
			return nil, err
		}
		regeneratedSize = h>>4 | int(h1)<<4 | (int(h2)&0b0000_0011)<<12
		compressedSize = int(h2)>>2 | int(h3)<<6
	case 0b11:
		h1, err := p.U8()
		if err != nil {
			return nil, err
		}
		h2, err := p.U8()
		if err != nil {
			return nil, err
		}
		h3, err := p.U8()
		if err != nil {
			return nil, err
		}
		h4, err := p.U8()
		if err != nil {
			return nil, err
		}
		regeneratedSize = h>>4 | int(h1)<<4 | (int(h2)&0b0011_1111)<<12
		compressedSize = int(h2)>>6 | int(h3)<<2 | int(h4)<<10
	}

	if regeneratedSize > maxLiteralsSize {
		return nil, &LiteralsError{Reason: "regenerated size too large"}
	}

	var huffman *HuffmanDecoder
	huffmanDescriptionSize := 0
	if blockType == literalsCompressed {
		before := p.Len()
		var err error
		huffman, err = ParseHuffmanTable(p)
		if err != nil {
			return nil, err
		}
		huffmanDescriptionSize = before - p.Len()
	}

	if compressedSize < huffmanDescriptionSize {
		return nil, &LiteralsError{Reason: "compressed size smaller than huffman description"}
	}
	totalStreamsSize := compressedSize - huffmanDescriptionSize

	var jumpTable *[3]int
	switch streams {
	case 1:
	case 4:
		s1, err := p.LE(2)
		if err != nil {
			return nil, err
		}
		s2, err := p.LE(2)
		if err != nil {
			return nil, err
		}
		s3, err := p.LE(2)
		if err != nil {
			return nil, err
		}
		if totalStreamsSize < int(s1)+int(s2)+int(s3)+6+1 {
			return nil, &LiteralsError{Reason: "jump table exceeds stream size"}
		}
		totalStreamsSize -= 6
		jumpTable = &[3]int{int(s1), int(s2), int(s3)}
	default:
		return nil, &LiteralsError{Reason: "invalid stream count"}
	}

	data, err := p.Slice(totalStreamsSize)
	if err != nil {
		return nil, err
	}

	return &LiteralsSection{
		kind:            blockType,
		huffman:         huffman,
		regeneratedSize: regeneratedSize,
		jumpTable:       jumpTable,
		data:            data,
	}, nil
}

// Decode entropy-decodes the literals section. retained is the Huffman
// decoder carried over from a previous block, used as-is for a Treeless
// block and updated (returned) for a Compressed block. It returns the
// decoded bytes and the decoder that should be retained for the next
// block in the frame.
func (l *LiteralsSection) Decode(retained *HuffmanDecoder) ([]byte, *HuffmanDecoder, error) {
	switch l.kind {
	case literalsRaw:
		return l.raw, retained, nil
	case literalsRLE:
		out := make([]byte, l.rleRepeat)
		for i := range out {
			out[i] = l.rleByte
		}
		return out, retained, nil
	}

	huffman := retained
	if l.huffman != nil {
		huffman = l.huffman
	}
	if huffman == nil {
		return nil, nil, &LiteralsError{Reason: "missing huffman decoder"}
	}

	if l.jumpTable == nil {
		out, err := decodeOneStream(huffman, l.data)
		if err != nil {
			return nil, nil, err
		}
		return out, huffman, nil
	}
	out, err := decodeFourStreams(huffman, *l.jumpTable, l.regeneratedSize, l.data)
	if err != nil {
		return nil, nil, err
	}
	return out, huffman, nil
}

func decodeOneStream(huffman *HuffmanDecoder, data []byte) ([]byte, error) {
	bp, err := NewBackwardBitParser(data)
	if err != nil {
		return nil, err
	}
	var out []byte
	for bp.AvailableBits() > 0 {
		b, err := huffman.Decode(bp)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// decodeFourStreams decodes the four independent Huffman sub-streams
// named by jumpTable concurrently and concatenates them in order.
func decodeFourStreams(huffman *HuffmanDecoder, jumpTable [3]int, regeneratedSize int, data []byte) ([]byte, error) {
	idx2 := jumpTable[0]
	idx3 := idx2 + jumpTable[1]
	idx4 := idx3 + jumpTable[2]
	if !(idx4 > idx3 && idx3 > idx2) {
		return nil, &LiteralsError{Reason: "invalid jump table"}
	}
	if idx4 > len(data) {
		return nil, &LiteralsError{Reason: "jump table exceeds stream data"}
	}
	ranges := [4][2]int{
		{0, idx2},
		{idx2, idx3},
		{idx3, idx4},
		{idx4, len(data)},
	}

	regeneratedStreamSize := (regeneratedSize + 3) / 4
	results := make([][]byte, 4)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			out, err := decodeOneStream(huffman, data[ranges[i][0]:ranges[i][1]])
			if err != nil {
				return err
			}
			if i < 3 && len(out) != regeneratedStreamSize {
				return &LiteralsError{Reason: "regenerated stream size mismatch"}
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []byte
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
