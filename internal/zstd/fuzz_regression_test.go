// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"fmt"
	"testing"
)

// These inputs once drove the original decoder into a panic or an
// endless loop. Decode must return an error (or, occasionally, a
// successful decode) for every one of them — it must never panic or
// hang.
func TestDecodeRegressionInputsDoNotPanicOrHang(t *testing.T) {
	inputs := [][]byte{
		{ // subtract-with-overflow in literals regenerated-size handling
			40, 181, 47, 253, 32, 4, 36, 76, 3, 39, 17, 1, 26, 0, 0, 0, 0, 0, 0, 0, 255, 1, 39, 234,
			13, 65, 173, 17, 74,
		},
		{ // subtract-with-overflow in forward bit parser availability check
			40, 181, 47, 253, 32, 12, 36, 39, 20, 0, 36, 24, 0, 0, 0, 0, 0, 0, 0, 233, 233,
		},
		{ // FseDecoder used before Initialize
			40, 181, 47, 253, 32, 12, 36, 1, 0, 0, 0, 0, 32, 40, 181, 47, 253, 32, 1, 36, 4, 253, 47,
			181, 40, 181, 47, 12, 12, 12, 12, 12, 24, 40, 130, 1,
		},
		{ // int conversion overflow building a huffman weight table
			40, 181, 47, 253, 32, 59, 253, 4, 173, 74, 36, 0, 75, 40, 162, 162, 162, 162, 162, 162,
			202, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
			255, 255, 255, 255, 255, 255, 255, 255, 255, 0, 0, 0, 175, 255, 255, 255, 255, 255, 255,
			255, 255, 0, 0, 0, 0, 0, 51, 51, 191, 176, 0,
		},
		{ // subtract-with-overflow decoding a literals jump table
			40, 181, 47, 253, 32, 41, 181, 0, 162, 162, 162, 0, 162, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0,
			0, 0, 0, 0, 0, 0, 0, 0, 0, 162, 162, 1, 0, 0, 0, 0, 0, 2, 162, 162, 162, 162, 162, 162,
			162, 162,
		},
		{ // RLE-mode sequence decoder driven through Initialize
			40, 181, 47, 253, 32, 12, 36, 39, 46, 181, 0, 0, 0, 64, 32, 40, 0, 0, 0, 0, 27, 237, 115,
			115, 0, 196, 196, 196, 40, 181, 47, 253, 32, 196, 0, 196, 196,
		},
		{ // unexpected huffman symbol count
			40, 181, 47, 253, 32, 59, 253, 4, 173, 74, 36, 0, 75, 40, 0, 235, 235, 235, 235, 24, 20,
			20, 20, 235, 64, 203, 235, 119, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0,
			0, 0, 235, 235, 235, 235, 235, 235, 235, 235, 235, 255, 255, 255, 255, 255, 255, 255, 255,
			255, 0,
		},
		{ // another huffman weight-table edge case
			40, 181, 47, 253, 32, 59, 253, 4, 173, 74, 36, 0, 75, 40, 96, 100, 162, 45, 162, 162, 255,
			255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
			255, 255, 255, 255, 255, 255, 6, 255, 173, 74, 255, 255, 255, 255, 255, 255, 32, 12, 36,
			39, 12, 36, 20, 32, 176, 39, 20, 16, 36,
		},
		{ // endless loop: missing compressed-block-size cap (block.go's maxBlockSize/windowSize min)
			40, 181, 47, 253, 32, 59, 253, 4, 173, 74, 36, 0, 75, 40, 241, 255, 231, 235, 20, 20, 20,
			70, 20, 235, 0, 255, 255, 255, 26, 0, 0, 0, 16, 0, 0, 235, 235, 235, 235, 171, 235, 235,
			235, 235, 235, 235, 235, 235, 235, 235, 235, 235, 235, 71, 0, 255, 255, 1, 4, 255, 255, 8,
			255, 255, 255, 251, 40, 181, 47, 255,
		},
		{ // endless loop: missing >255-weights check
			40, 181, 47, 253, 48, 40, 181, 0, 0, 42, 0, 165, 47, 16, 16, 246, 23, 64, 0, 2, 0, 0, 0, 0,
			90, 28, 0, 255, 247, 255, 255,
		},
		{ // assertion failure: weights count exceeds the 255-symbol ceiling
			40, 181, 47, 253, 48, 40, 181, 0, 0, 42, 0, 165, 45, 16, 0, 254, 0, 23, 255, 255, 255, 255,
			255, 255, 0, 0, 255, 255, 255, 255, 0, 0, 0, 255, 255, 247, 0, 0, 28, 12, 90, 255, 239,
			185, 0, 45,
		},
	}

	for i, input := range inputs {
		input := input
		t.Run(fmt.Sprintf("case_%d", i+1), func(t *testing.T) {
			_, _ = Decode(input) // must not panic or hang; error is an acceptable outcome
		})
	}
}
