// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstd implements the core of a Zstandard (RFC 8878) frame
// decompressor: bit/byte parsing, Huffman and FSE entropy decoding, and
// sequence execution against a sliding window. It has no knowledge of
// file I/O or of frame-level concurrency; callers own those concerns. Its
// only concurrency is the parallel decoding of a literals section's four
// Huffman streams.
package zstd

import "fmt"

// ParsingError reports a problem reading bytes or bits from an input view:
// running off either end of the view, or a malformed bit-stream header.
type ParsingError struct {
	Op        string
	Requested int
	Available int
	Reason    string
}

func (e *ParsingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("zstd: parsing: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("zstd: parsing: %s: requested %d, available %d", e.Op, e.Requested, e.Available)
}

func errNotEnoughBytes(op string, requested, available int) error {
	return &ParsingError{Op: op, Requested: requested, Available: available}
}

func errNotEnoughBits(op string, requested, available int) error {
	return &ParsingError{Op: op, Requested: requested, Available: available}
}

func errMalformedBitstream(op string) error {
	return &ParsingError{Op: op, Reason: "malformed bit-stream header"}
}

// FrameError reports a problem with frame-level structure: an
// unrecognized magic number, an invalid reserved bit, an unsupported
// dictionary, or a checksum mismatch.
type FrameError struct {
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zstd: frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("zstd: frame: %s", e.Reason)
}

func (e *FrameError) Unwrap() error { return e.Err }

// BlockError reports a problem with a block header, such as a reserved
// block type or an over-long compressed block.
type BlockError struct {
	Reason string
}

func (e *BlockError) Error() string { return fmt.Sprintf("zstd: block: %s", e.Reason) }

// HuffmanError reports a problem reconstructing or driving a Huffman
// decoding tree.
type HuffmanError struct {
	Reason string
}

func (e *HuffmanError) Error() string { return fmt.Sprintf("zstd: huffman: %s", e.Reason) }

// FSEError reports a problem parsing or driving an FSE table.
type FSEError struct {
	Reason string
}

func (e *FSEError) Error() string { return fmt.Sprintf("zstd: fse: %s", e.Reason) }

// LiteralsError reports a problem decoding a literals section.
type LiteralsError struct {
	Reason string
}

func (e *LiteralsError) Error() string { return fmt.Sprintf("zstd: literals: %s", e.Reason) }

// SequencesError reports a problem decoding a sequences section.
type SequencesError struct {
	Reason string
}

func (e *SequencesError) Error() string { return fmt.Sprintf("zstd: sequences: %s", e.Reason) }

// ContextError reports a problem applying a decoded sequence against the
// decoding context: an over-large window, an out-of-range offset, or an
// out-of-range copy index.
type ContextError struct {
	Reason string
}

func (e *ContextError) Error() string { return fmt.Sprintf("zstd: context: %s", e.Reason) }
