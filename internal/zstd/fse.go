// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "math/bits"

// BitDecoder is driven by a backward bit stream to emit a sequence of
// symbols of type T: FseDecoder, AlternatingDecoder, and RLEDecoder all
// implement it.
type BitDecoder[T any] interface {
	Initialize(*BackwardBitParser) error
	ExpectedBits() int
	Symbol() T
	UpdateBits(*BackwardBitParser) (bool, error)
	Reset()
}

// FseState is one row of an FseTable.
type FseState struct {
	Symbol   uint16
	BaseLine uint16
	NumBits  uint16
}

// FseTable is a finite-state-entropy decoding table: 2^AccuracyLog rows,
// each assigning a symbol, a base line, and a number of extra bits to
// read to reach the next state.
type FseTable struct {
	States      []FseState
	AccuracyLog uint8
}

func (t *FseTable) get(index uint64) (FseState, error) {
	if index >= uint64(len(t.States)) {
		return FseState{}, &FSEError{Reason: "missing state"}
	}
	return t.States[index], nil
}

const fseAccLogOffset = 5

// ParseFseTable parses an FSE distribution from a forward bit stream and
// builds the corresponding table. maxAccuracyLog bounds the accuracy log
// (9 for literal-length/match-length, 8 for offset, 6 for Huffman
// weights).
func ParseFseTable(p *ForwardBitParser, maxAccuracyLog uint8) (*FseTable, error) {
	accuracyLog, distribution, err := parseFseDistribution(p, maxAccuracyLog)
	if err != nil {
		return nil, err
	}
	return FseTableFromDistribution(accuracyLog, distribution), nil
}

func parseFseDistribution(p *ForwardBitParser, maxAccuracyLog uint8) (uint8, []int16, error) {
	al, err := p.Take(4)
	if err != nil {
		return 0, nil, err
	}
	accuracyLog := uint8(al) + fseAccLogOffset
	if accuracyLog > maxAccuracyLog {
		return 0, nil, &FSEError{Reason: "accuracy log too large"}
	}
	probabilitySum := uint32(1) << accuracyLog
	var probabilityCounter uint32
	var probabilities []int16

	for probabilityCounter < probabilitySum {
		maxRemainingValue := probabilitySum - probabilityCounter + 1
		bitsToRead := uint(bits.Len32(maxRemainingValue))

		smallValue, err := p.Take(int(bitsToRead - 1))
		if err != nil {
			return 0, nil, err
		}
		peeked, err := p.Peek()
		if err != nil {
			return 0, nil, err
		}
		uncheckedValue := uint64(peeked)<<(bitsToRead-1) | smallValue
		lowThreshold := (uint64(1)<<bitsToRead - 1) - uint64(maxRemainingValue)
		mask := uint64(1)<<(bitsToRead-1) - 1

		var decodedValue uint64
		if smallValue < lowThreshold {
			decodedValue = smallValue
		} else {
			if _, err := p.Take(1); err != nil {
				return 0, nil, err
			}
			if uncheckedValue > mask {
				decodedValue = uncheckedValue - lowThreshold
			} else {
				decodedValue = uncheckedValue
			}
		}

		probability := int16(decodedValue) - 1
		if probability < 0 {
			probabilityCounter += uint32(-probability)
		} else {
			probabilityCounter += uint32(probability)
		}
		probabilities = append(probabilities, probability)

		if probability == 0 {
			for {
				numZeroes, err := p.Take(2)
				if err != nil {
					return 0, nil, err
				}
				for i := uint64(0); i < numZeroes; i++ {
					probabilities = append(probabilities, 0)
				}
				if numZeroes != 0b11 {
					break
				}
			}
		}
	}

	if probabilityCounter != probabilitySum {
		return 0, nil, &FSEError{Reason: "distribution corrupted"}
	}
	return accuracyLog, probabilities, nil
}

// FseTableFromDistribution builds an FseTable from a signed-probability
// distribution (probability -1 means "less than one") following zstd's
// state-spreading algorithm.
func FseTableFromDistribution(accuracyLog uint8, distribution []int16) *FseTable {
	tableLength := 1 << accuracyLog
	states := make([]FseState, tableLength)
	claimed := make([]bool, tableLength)

	type entry struct {
		symbol      uint16
		probability int16
	}
	var nonZero []entry
	for symbol, probability := range distribution {
		if probability != 0 {
			nonZero = append(nonZero, entry{uint16(symbol), probability})
		}
	}

	var lessThanOne []uint16
	for _, e := range nonZero {
		if e.probability == -1 {
			lessThanOne = append(lessThanOne, e.symbol)
		}
	}
	sortUint16(lessThanOne)
	for i, symbol := range lessThanOne {
		idx := tableLength - 1 - i
		states[idx] = FseState{Symbol: symbol, BaseLine: 0, NumBits: uint16(accuracyLog)}
		claimed[idx] = true
	}

	order := make([]int, 0, tableLength)
	s := 0
	for {
		order = append(order, s)
		next := (s + tableLength/2 + tableLength/8 + 3) % tableLength
		if next == 0 {
			break
		}
		s = next
	}
	var unclaimed []int
	for _, idx := range order {
		if !claimed[idx] {
			unclaimed = append(unclaimed, idx)
		}
	}

	cursor := 0
	for _, e := range nonZero {
		if e.probability <= 0 {
			continue
		}
		probability := int(e.probability)
		symbolStates := append([]int(nil), unclaimed[cursor:cursor+probability]...)
		cursor += probability
		sortInt(symbolStates)

		p := nextPow2(probability)
		b := uint16(bits.TrailingZeros(uint(tableLength / p)))
		ee := p - probability

		var baseLine uint16
		n := len(symbolStates)
		for i := 0; i < n; i++ {
			j := (i + ee) % n
			idx := symbolStates[j]
			numBits := b
			if j < ee {
				numBits = b + 1
			}
			states[idx] = FseState{Symbol: e.symbol, BaseLine: baseLine, NumBits: numBits}
			baseLine += 1 << numBits
		}
	}

	return &FseTable{States: states, AccuracyLog: accuracyLog}
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func sortUint16(s []uint16) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func sortInt(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// FseDecoder is a single FSE bit-state machine over a shared table.
type FseDecoder struct {
	table *FseTable
	state *FseState
}

// NewFseDecoder returns a decoder over table, uninitialized.
func NewFseDecoder(table *FseTable) *FseDecoder {
	return &FseDecoder{table: table}
}

// Initialize implements BitDecoder. It is the only legal call on an
// uninitialized decoder.
func (d *FseDecoder) Initialize(p *BackwardBitParser) error {
	if d.state != nil {
		panic("zstd: FseDecoder already initialized")
	}
	idx, err := p.Take(int(d.table.AccuracyLog))
	if err != nil {
		return err
	}
	state, err := d.table.get(idx)
	if err != nil {
		return err
	}
	d.state = &state
	return nil
}

// ExpectedBits implements BitDecoder.
func (d *FseDecoder) ExpectedBits() int {
	if d.state == nil {
		panic("zstd: FseDecoder not initialized")
	}
	return int(d.state.NumBits)
}

// Symbol implements BitDecoder: it returns the current state's symbol.
// The state is left in place — UpdateBits, not Symbol, advances it — so
// Symbol may be called any number of times before the next UpdateBits
// (the sequences decoder reads all three symbols before updating any of
// them).
func (d *FseDecoder) Symbol() uint16 {
	if d.state == nil {
		panic("zstd: FseDecoder not initialized")
	}
	return d.state.Symbol
}

// UpdateBits implements BitDecoder. The returned bool reports whether
// the bitstream ran out of bits and the missing ones were silently
// filled with zero — the normal termination signal for a weights
// alternating decoder, not an error.
func (d *FseDecoder) UpdateBits(p *BackwardBitParser) (bool, error) {
	if d.state == nil {
		panic("zstd: FseDecoder not initialized")
	}
	state := *d.state
	available := p.AvailableBits()
	expected := int(state.NumBits)

	var idx uint64
	var completingWithZeros bool
	if expected <= available {
		v, err := p.Take(expected)
		if err != nil {
			return false, err
		}
		idx = v + uint64(state.BaseLine)
	} else {
		diff := expected - available
		v, err := p.Take(available)
		if err != nil {
			return false, err
		}
		idx = v<<uint(diff) + uint64(state.BaseLine)
		completingWithZeros = true
	}
	next, err := d.table.get(idx)
	if err != nil {
		return false, err
	}
	d.state = &next
	return completingWithZeros, nil
}

// Reset implements BitDecoder.
func (d *FseDecoder) Reset() { d.state = nil }

// AlternatingDecoder drives two FseDecoders over the same table in
// strict alternation, used to decode FSE-compressed Huffman weights.
type AlternatingDecoder struct {
	decoder1, decoder2 *FseDecoder
	lastUsed           bool
}

// NewAlternatingDecoder returns an alternating decoder over table.
func NewAlternatingDecoder(table *FseTable) *AlternatingDecoder {
	return &AlternatingDecoder{
		decoder1: NewFseDecoder(table),
		decoder2: NewFseDecoder(table),
	}
}

func (a *AlternatingDecoder) current() *FseDecoder {
	if a.lastUsed {
		return a.decoder2
	}
	return a.decoder1
}

// Initialize implements BitDecoder: both underlying decoders are
// initialized from the same stream, decoder1 first.
func (a *AlternatingDecoder) Initialize(p *BackwardBitParser) error {
	if err := a.decoder1.Initialize(p); err != nil {
		return err
	}
	return a.decoder2.Initialize(p)
}

// ExpectedBits implements BitDecoder.
func (a *AlternatingDecoder) ExpectedBits() int { return a.current().ExpectedBits() }

// Symbol implements BitDecoder: it does not alternate by itself.
func (a *AlternatingDecoder) Symbol() uint16 { return a.current().Symbol() }

// UpdateBits implements BitDecoder: it alternates after updating the
// currently-selected decoder.
func (a *AlternatingDecoder) UpdateBits(p *BackwardBitParser) (bool, error) {
	zeros, err := a.current().UpdateBits(p)
	if err != nil {
		return false, err
	}
	a.lastUsed = !a.lastUsed
	return zeros, nil
}

// Reset implements BitDecoder.
func (a *AlternatingDecoder) Reset() { a.current().Reset() }

// RLEDecoder always yields the same fixed symbol. Initialize, Reset and
// ExpectedBits are unreachable for an RLE-mode sequence symbol decoder:
// the sequences mode matrix never drives one through the FSE protocol.
type RLEDecoder struct {
	symbol uint16
}

// NewRLEDecoder returns a decoder that always yields symbol.
func NewRLEDecoder(symbol uint16) *RLEDecoder { return &RLEDecoder{symbol: symbol} }

// Initialize implements BitDecoder; unreachable for RLEDecoder.
func (d *RLEDecoder) Initialize(*BackwardBitParser) error {
	panic("zstd: initialize not supported for RLEDecoder")
}

// ExpectedBits implements BitDecoder; unreachable for RLEDecoder.
func (d *RLEDecoder) ExpectedBits() int {
	panic("zstd: expected_bits not supported for RLEDecoder")
}

// Symbol implements BitDecoder.
func (d *RLEDecoder) Symbol() uint16 { return d.symbol }

// UpdateBits implements BitDecoder: an RLE decoder never consumes bits
// or signals zero-extension.
func (d *RLEDecoder) UpdateBits(*BackwardBitParser) (bool, error) { return false, nil }

// Reset implements BitDecoder; unreachable for RLEDecoder.
func (d *RLEDecoder) Reset() {
	panic("zstd: reset not supported for RLEDecoder")
}
