// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// maxWindowSize bounds the window size a single frame may declare (64 MiB).
const maxWindowSize = 64 * 1024 * 1024

// RepeatOffsets is the three-entry repeat-offset cache a frame's
// sequence execution reads and updates as it runs.
type RepeatOffsets struct {
	O1, O2, O3 int
}

// newRepeatOffsets returns the initial (1, 4, 8) triplet every frame
// starts with.
func newRepeatOffsets() RepeatOffsets {
	return RepeatOffsets{O1: 1, O2: 4, O3: 8}
}

// decode resolves a raw sequence offset value V against the current
// literal length, returning the effective offset and advancing the
// repeat-offset state in place.
func (r *RepeatOffsets) decode(v, literalLength int) int {
	switch {
	case v >= 4:
		e := v - 3
		r.O3, r.O2, r.O1 = r.O2, r.O1, e
		return e
	case v == 3 && literalLength > 0:
		e := r.O3
		r.O1, r.O2, r.O3 = e, r.O1, r.O2
		return e
	case v == 3 && literalLength == 0:
		e := r.O1 - 1
		r.O2, r.O3 = r.O1, r.O2
		r.O1 = e
		return e
	case v == 2 && literalLength > 0:
		e := r.O2
		r.O1, r.O2 = e, r.O1
		return e
	case v == 2 && literalLength == 0:
		e := r.O3
		r.O1, r.O2, r.O3 = e, r.O1, r.O2
		return e
	case v == 1 && literalLength > 0:
		return r.O1
	default: // v == 1, literalLength == 0
		e := r.O2
		r.O1, r.O2 = e, r.O1
		return e
	}
}

// DecodingContext carries the state a frame's blocks share: the
// retained Huffman and sequence decoders (for Treeless literals and
// RepeatMode sequences), the repeat-offset cache, and the output
// accumulated so far.
type DecodingContext struct {
	WindowSize       int
	Huffman          *HuffmanDecoder
	SequenceDecoders SequenceDecoders
	RepeatOffsets    RepeatOffsets
	Output           []byte
}

// NewDecodingContext returns a context for a frame declaring windowSize.
func NewDecodingContext(windowSize int) (*DecodingContext, error) {
	if windowSize > maxWindowSize {
		return nil, &ContextError{Reason: "window size too large"}
	}
	return &DecodingContext{
		WindowSize:    windowSize,
		RepeatOffsets: newRepeatOffsets(),
	}, nil
}

// decodeOffset resolves a raw offset value against literalLength and
// validates it against both the window size and how much output exists
// to copy from.
func (c *DecodingContext) decodeOffset(v, literalLength int) (int, error) {
	e := c.RepeatOffsets.decode(v, literalLength)
	if e <= 0 || e > c.WindowSize || e > len(c.Output) {
		return 0, &ContextError{Reason: "offset out of range"}
	}
	return e, nil
}

// ExecuteSequences appends literal and match bytes to the context's
// output for each decoded sequence, in order, then appends whatever
// literals remain after the last sequence.
func (c *DecodingContext) ExecuteSequences(sequences []Sequence, literals []byte) error {
	rest := literals
	for _, s := range sequences {
		if s.LiteralLength > len(rest) {
			return &ContextError{Reason: "literal length exceeds literals buffer"}
		}
		c.Output = append(c.Output, rest[:s.LiteralLength]...)
		rest = rest[s.LiteralLength:]

		e, err := c.decodeOffset(s.OffsetValue, s.LiteralLength)
		if err != nil {
			return err
		}
		start := len(c.Output) - e
		for k := 0; k < s.MatchLength; k++ {
			c.Output = append(c.Output, c.Output[start+k])
		}
	}
	c.Output = append(c.Output, rest...)
	return nil
}

// DecodeBlock decodes a single parsed block against the context,
// appending its output to c.Output.
func (c *DecodingContext) DecodeBlock(b *Block) error {
	switch b.kind {
	case blockRaw:
		c.Output = append(c.Output, b.raw...)
		return nil
	case blockRLE:
		for i := 0; i < b.rleRepeat; i++ {
			c.Output = append(c.Output, b.rleByte)
		}
		return nil
	case blockCompressed:
		literals, huffman, err := b.literals.Decode(c.Huffman)
		if err != nil {
			return err
		}
		c.Huffman = huffman
		sequences, decoders, err := b.sequences.Decode(c.SequenceDecoders)
		if err != nil {
			return err
		}
		c.SequenceDecoders = decoders
		return c.ExecuteSequences(sequences, literals)
	}
	return &BlockError{Reason: "invalid block type"}
}
