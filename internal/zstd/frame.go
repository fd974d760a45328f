// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cespare/xxhash/v2"

const (
	standardMagicNumber  uint32 = 0xFD2FB528
	skippableMagicPrefix uint32 = 0x184D2A5 // low 4 bits vary, 0x0 through 0xF
)

// FrameHeader is a parsed Frame_Header_Descriptor plus its optional
// window descriptor and frame content size, and the window size derived
// from them. The dictionary ID is validated but not kept.
type FrameHeader struct {
	WindowSize          int
	WindowDescriptor    byte
	FrameContentSize    int
	ContentChecksumFlag bool
}

// ParseFrameHeader parses a frame header, consuming and validating (but
// discarding) any dictionary ID — dictionaries are not supported, and a
// non-zero ID is rejected.
func ParseFrameHeader(p *ForwardByteParser) (*FrameHeader, error) {
	descriptor, err := p.U8()
	if err != nil {
		return nil, err
	}
	frameContentSizeFlag := (descriptor & 0b1100_0000) >> 6
	singleSegmentFlag := (descriptor&0b0010_0000)>>5 == 1
	reservedBit := (descriptor & 0b0000_1000) >> 3
	contentChecksumFlag := (descriptor&0b0000_0100)>>2 == 1
	dictionaryIDFlag := descriptor & 0b0000_0011

	var windowDescriptor byte
	if !singleSegmentFlag {
		windowDescriptor, err = p.U8()
		if err != nil {
			return nil, err
		}
	}

	if reservedBit != 0 {
		return nil, &FrameError{Reason: "reserved bit must be 0"}
	}

	var dictionaryIDSize int
	switch dictionaryIDFlag {
	case 0:
		dictionaryIDSize = 0
	case 1:
		dictionaryIDSize = 1
	case 2:
		dictionaryIDSize = 2
	case 3:
		dictionaryIDSize = 4
	}
	dictionaryID, err := p.LE(dictionaryIDSize)
	if err != nil {
		return nil, err
	}
	if dictionaryID != 0 {
		return nil, &FrameError{Reason: "dictionaries are not supported"}
	}

	var frameContentSize uint64
	switch frameContentSizeFlag {
	case 0:
		n := 0
		if singleSegmentFlag {
			n = 1
		}
		frameContentSize, err = p.LE(n)
	case 1:
		frameContentSize, err = p.LE(2)
		frameContentSize += 256
	case 2:
		frameContentSize, err = p.LE(4)
	case 3:
		frameContentSize, err = p.LE(8)
	}
	if err != nil {
		return nil, err
	}

	windowSize := int(frameContentSize)
	if !singleSegmentFlag {
		exponent := int((windowDescriptor & 0b1111_1000) >> 3)
		mantissa := int(windowDescriptor & 0b0000_0111)
		base := 1 << (10 + exponent)
		windowSize = base + (base/8)*mantissa
	}

	return &FrameHeader{
		WindowSize:          windowSize,
		WindowDescriptor:    windowDescriptor,
		FrameContentSize:    int(frameContentSize),
		ContentChecksumFlag: contentChecksumFlag,
	}, nil
}

// Frame is either a standard Zstandard frame, whose blocks this package
// can decode, or a skippable frame, whose content is opaque and passed
// through as zero decoded bytes.
type Frame struct {
	header   *FrameHeader // nil for a skippable frame
	blocks   []*Block
	checksum *uint32

	skippableMagic uint32
	skippableData  []byte
}

// ParseFrame parses one frame (standard or skippable) from p.
func ParseFrame(p *ForwardByteParser) (*Frame, error) {
	magic, err := p.LEUint32()
	if err != nil {
		return nil, err
	}
	if magic == standardMagicNumber {
		return parseStandardFrame(p)
	}
	if magic>>4 == skippableMagicPrefix {
		length, err := p.LEUint32()
		if err != nil {
			return nil, err
		}
		data, err := p.Slice(int(length))
		if err != nil {
			return nil, err
		}
		return &Frame{skippableMagic: magic, skippableData: data}, nil
	}
	return nil, &FrameError{Reason: "unrecognized magic number"}
}

func parseStandardFrame(p *ForwardByteParser) (*Frame, error) {
	header, err := ParseFrameHeader(p)
	if err != nil {
		return nil, err
	}
	var blocks []*Block
	for {
		block, last, err := ParseBlock(p, header.WindowSize)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
		if last {
			break
		}
	}
	var checksum *uint32
	if header.ContentChecksumFlag {
		c, err := p.LEUint32()
		if err != nil {
			return nil, err
		}
		checksum = &c
	}
	return &Frame{header: header, blocks: blocks, checksum: checksum}, nil
}

// IsSkippable reports whether this frame is a skippable frame.
func (f *Frame) IsSkippable() bool { return f.header == nil }

// Decode decodes a standard frame's blocks into the returned byte
// slice, verifying the content checksum if present. A skippable frame
// decodes to an empty slice.
func (f *Frame) Decode() ([]byte, error) {
	if f.IsSkippable() {
		return nil, nil
	}
	ctx, err := NewDecodingContext(f.header.WindowSize)
	if err != nil {
		return nil, err
	}
	for _, b := range f.blocks {
		if err := ctx.DecodeBlock(b); err != nil {
			return nil, err
		}
	}
	if f.header.ContentChecksumFlag {
		if f.checksum == nil {
			return nil, &FrameError{Reason: "checksum mismatch"}
		}
		computed := uint32(xxhash.Sum64(ctx.Output))
		if computed != *f.checksum {
			return nil, &FrameError{Reason: "checksum mismatch"}
		}
	}
	return ctx.Output, nil
}

// FrameIterator walks consecutive frames in a byte slice.
type FrameIterator struct {
	parser *ForwardByteParser
	err    error
}

// NewFrameIterator returns an iterator over the frames in data.
func NewFrameIterator(data []byte) *FrameIterator {
	return &FrameIterator{parser: NewForwardByteParser(data)}
}

// Next parses and returns the next frame, or (nil, nil) once the input
// is exhausted. Once it returns an error, it returns that same error on
// every subsequent call.
func (it *FrameIterator) Next() (*Frame, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.parser.IsEmpty() {
		return nil, nil
	}
	f, err := ParseFrame(it.parser)
	if err != nil {
		it.err = err
		return nil, err
	}
	return f, nil
}
