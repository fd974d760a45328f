// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// Sequence is one decoded (literal_length, offset_value, match_length)
// triple ready for execution against a decoding context's window.
type Sequence struct {
	LiteralLength int
	OffsetValue   int
	MatchLength   int
}

// SequenceDecoders holds the three symbol decoders a sequences section
// drives, carried across blocks so that RepeatMode can reuse whichever
// decoder a previous block built.
type SequenceDecoders struct {
	LiteralLengths BitDecoder[uint16]
	Offsets        BitDecoder[uint16]
	MatchLengths   BitDecoder[uint16]
}

type symbolCompressionMode int

const (
	modePredefined symbolCompressionMode = iota
	modeRLE
	modeFSECompressed
	modeRepeat
)

// parsedMode is an intermediate result of parsing a 2-bit compression
// mode field: either a fixed RLE byte or a freshly-parsed FSE table, or
// neither for Predefined/Repeat.
type parsedMode struct {
	mode    symbolCompressionMode
	rleByte byte
	table   *FseTable
}

func parseSymbolCompressionMode(mode byte, maxAccuracyLog uint8, p *ForwardByteParser) (parsedMode, error) {
	switch mode {
	case 0:
		return parsedMode{mode: modePredefined}, nil
	case 1:
		b, err := p.U8()
		if err != nil {
			return parsedMode{}, err
		}
		return parsedMode{mode: modeRLE, rleByte: b}, nil
	case 2:
		bp := p.ToForwardBitParser()
		table, err := ParseFseTable(bp, maxAccuracyLog)
		if err != nil {
			return parsedMode{}, err
		}
		*p = *bp.ToForwardByteParser()
		if len(table.States) == 1 {
			// A single-state table carries no information; the reference
			// implementation falls back to Predefined mode in this case
			// (RFC 8878 is silent on the exact rule for this edge case).
			return parsedMode{mode: modePredefined}, nil
		}
		return parsedMode{mode: modeFSECompressed, table: table}, nil
	case 3:
		return parsedMode{mode: modeRepeat}, nil
	}
	return parsedMode{}, &SequencesError{Reason: "invalid compression mode"}
}

type symbolType int

const (
	symbolLiteralLengths symbolType = iota
	symbolMatchLength
	symbolOffset
)

type defaultDistribution struct {
	accuracyLog uint8
	distribution []int16
}

var literalLengthDefaultDistribution = defaultDistribution{
	accuracyLog: 6,
	distribution: []int16{
		4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1,
		1, 1, -1, -1, -1, -1,
	},
}

var matchLengthDefaultDistribution = defaultDistribution{
	accuracyLog: 6,
	distribution: []int16{
		1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1, -1, -1,
	},
}

var offsetCodeDefaultDistribution = defaultDistribution{
	accuracyLog: 5,
	distribution: []int16{
		1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
	},
}

// buildSymbolDecoder realizes a parsed mode into a driven BitDecoder, or
// nil for RepeatMode (the caller keeps whatever decoder it already has).
func buildSymbolDecoder(pm parsedMode, st symbolType, p *BackwardBitParser) (BitDecoder[uint16], error) {
	switch pm.mode {
	case modePredefined:
		def := defaultDistributionFor(st)
		table := FseTableFromDistribution(def.accuracyLog, def.distribution)
		d := NewFseDecoder(table)
		if err := d.Initialize(p); err != nil {
			return nil, err
		}
		return d, nil
	case modeRLE:
		return NewRLEDecoder(uint16(pm.rleByte)), nil
	case modeFSECompressed:
		d := NewFseDecoder(pm.table)
		if err := d.Initialize(p); err != nil {
			return nil, err
		}
		return d, nil
	case modeRepeat:
		return nil, nil
	}
	return nil, &SequencesError{Reason: "invalid compression mode"}
}

func defaultDistributionFor(st symbolType) defaultDistribution {
	switch st {
	case symbolLiteralLengths:
		return literalLengthDefaultDistribution
	case symbolMatchLength:
		return matchLengthDefaultDistribution
	case symbolOffset:
		return offsetCodeDefaultDistribution
	}
	panic("zstd: invalid symbol type")
}

// Sequences is a parsed (but not yet entropy-decoded) sequences section.
type Sequences struct {
	count              int
	literalLengthsMode parsedMode
	offsetsMode        parsedMode
	matchLengthsMode   parsedMode
	bitstream          []byte
}

// ParseSequences parses a sequences section header and the mode byte
// that selects, for each of the three symbol types, how its decoder is
// constructed; the trailing bitstream is captured but not yet decoded.
func ParseSequences(p *ForwardByteParser) (*Sequences, error) {
	b0, err := p.U8()
	if err != nil {
		return nil, err
	}
	var count int
	switch {
	case b0 < 128:
		count = int(b0)
	case b0 < 255:
		b1, err := p.U8()
		if err != nil {
			return nil, err
		}
		count = (int(b0)-0x80)<<8 + int(b1)
	default:
		b1, err := p.U8()
		if err != nil {
			return nil, err
		}
		b2, err := p.U8()
		if err != nil {
			return nil, err
		}
		count = int(b1) + int(b2)<<8 + 0x7F00
	}

	modes, err := p.U8()
	if err != nil {
		return nil, err
	}
	llMode, err := parseSymbolCompressionMode((modes&0b1100_0000)>>6, 9, p)
	if err != nil {
		return nil, err
	}
	ofMode, err := parseSymbolCompressionMode((modes&0b0011_0000)>>4, 8, p)
	if err != nil {
		return nil, err
	}
	mlMode, err := parseSymbolCompressionMode((modes&0b0000_1100)>>2, 9, p)
	if err != nil {
		return nil, err
	}
	if modes&0b11 != 0 {
		return nil, &SequencesError{Reason: "reserved bits set"}
	}

	rest := make([]byte, p.Len())
	data, err := p.Slice(p.Len())
	if err != nil {
		return nil, err
	}
	copy(rest, data)

	return &Sequences{
		count:              count,
		literalLengthsMode: llMode,
		offsetsMode:        ofMode,
		matchLengthsMode:   mlMode,
		bitstream:          rest,
	}, nil
}

// literalLengthCodeLookup maps a literal-length symbol code to its
// (baseline, extra_bits) pair, per RFC 8878's Literals_Length_Code table.
func literalLengthCodeLookup(symbol uint16) (int, int, error) {
	switch {
	case symbol <= 15:
		return int(symbol), 0, nil
	}
	table := [...]struct{ base, bits int }{
		16: {16, 1}, 17: {18, 1}, 18: {20, 1}, 19: {22, 1},
		20: {24, 2}, 21: {28, 2}, 22: {32, 3}, 23: {40, 3},
		24: {48, 4}, 25: {64, 6}, 26: {128, 7}, 27: {256, 8},
		28: {512, 9}, 29: {1024, 10}, 30: {2048, 11}, 31: {4096, 12},
		32: {8192, 13}, 33: {16384, 14}, 34: {32768, 15}, 35: {65536, 16},
	}
	if int(symbol) >= len(table) || (table[symbol] == struct{ base, bits int }{}) {
		return 0, 0, &SequencesError{Reason: "unknown literal length code"}
	}
	e := table[symbol]
	return e.base, e.bits, nil
}

// matchLengthCodeLookup maps a match-length symbol code to its
// (baseline, extra_bits) pair, per RFC 8878's Match_Length_Code table.
func matchLengthCodeLookup(symbol uint16) (int, int, error) {
	if symbol <= 31 {
		return int(symbol) + 3, 0, nil
	}
	table := [...]struct{ base, bits int }{
		32: {35, 1}, 33: {37, 1}, 34: {39, 1}, 35: {41, 1},
		36: {43, 2}, 37: {47, 2}, 38: {51, 3}, 39: {59, 3},
		40: {67, 4}, 41: {83, 4}, 42: {99, 5}, 43: {131, 7},
		44: {259, 8}, 45: {515, 9}, 46: {1027, 10}, 47: {2051, 11},
		48: {4099, 12}, 49: {8195, 13}, 50: {16387, 14}, 51: {32771, 15},
		52: {65539, 16},
	}
	if int(symbol) >= len(table) || (table[symbol] == struct{ base, bits int }{}) {
		return 0, 0, &SequencesError{Reason: "unknown match length code"}
	}
	e := table[symbol]
	return e.base, e.bits, nil
}

// Decode entropy-decodes the sequences section's bitstream into count
// (literal_length, offset_value, match_length) triples, updating
// retained with whichever decoders this section rebuilt (RepeatMode
// entries are left untouched).
func (s *Sequences) Decode(retained SequenceDecoders) ([]Sequence, SequenceDecoders, error) {
	bp, err := NewBackwardBitParser(s.bitstream)
	if err != nil {
		if s.count == 0 {
			return nil, retained, nil
		}
		return nil, retained, err
	}

	// build order: literals, offsets, match
	ll, err := buildSymbolDecoder(s.literalLengthsMode, symbolLiteralLengths, bp)
	if err != nil {
		return nil, retained, err
	}
	of, err := buildSymbolDecoder(s.offsetsMode, symbolOffset, bp)
	if err != nil {
		return nil, retained, err
	}
	ml, err := buildSymbolDecoder(s.matchLengthsMode, symbolMatchLength, bp)
	if err != nil {
		return nil, retained, err
	}
	if ll != nil {
		retained.LiteralLengths = ll
	}
	if of != nil {
		retained.Offsets = of
	}
	if ml != nil {
		retained.MatchLengths = ml
	}
	if retained.LiteralLengths == nil || retained.Offsets == nil || retained.MatchLengths == nil {
		return nil, retained, &SequencesError{Reason: "missing sequence decoder"}
	}

	sequences := make([]Sequence, 0, s.count)
	for i := 0; i < s.count; i++ {
		// symbol order: literals, offset, match
		llSymbol := retained.LiteralLengths.Symbol()
		ofSymbol := retained.Offsets.Symbol()
		mlSymbol := retained.MatchLengths.Symbol()

		if ofSymbol > 31 {
			return nil, retained, &SequencesError{Reason: "offset symbol code unknown"}
		}
		offsetValue, err := bp.Take(int(ofSymbol))
		if err != nil {
			return nil, retained, err
		}
		offsetCode := (uint64(1) << ofSymbol) + offsetValue

		mlBase, mlBits, err := matchLengthCodeLookup(mlSymbol)
		if err != nil {
			return nil, retained, err
		}
		mlExtra, err := bp.Take(mlBits)
		if err != nil {
			return nil, retained, err
		}

		llBase, llBits, err := literalLengthCodeLookup(llSymbol)
		if err != nil {
			return nil, retained, err
		}
		llExtra, err := bp.Take(llBits)
		if err != nil {
			return nil, retained, err
		}

		sequences = append(sequences, Sequence{
			LiteralLength: llBase + int(llExtra),
			OffsetValue:   int(offsetCode),
			MatchLength:   mlBase + int(mlExtra),
		})

		if i != s.count-1 {
			// update order: literals, match, offsets
			if _, err := retained.LiteralLengths.UpdateBits(bp); err != nil {
				return nil, retained, err
			}
			if _, err := retained.MatchLengths.UpdateBits(bp); err != nil {
				return nil, retained, err
			}
			if _, err := retained.Offsets.UpdateBits(bp); err != nil {
				return nil, retained, err
			}
		}
	}

	return sequences, retained, nil
}
