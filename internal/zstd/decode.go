// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"fmt"
	"io"
)

// Decode decompresses every frame in data and returns the concatenated
// output, in source order.
func Decode(data []byte) ([]byte, error) {
	var out []byte
	it := NewFrameIterator(data)
	for {
		f, err := it.Next()
		if err != nil {
			return nil, err
		}
		if f == nil {
			break
		}
		decoded, err := f.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// DecodeInfo parses every frame in data and writes a one-line summary
// of each to w, without entropy-decoding any block; it never returns
// decoded output, matching the diagnostic (parse-only) mode of the
// decode entry point.
func DecodeInfo(data []byte, w io.Writer) error {
	it := NewFrameIterator(data)
	for {
		f, err := it.Next()
		if err != nil {
			return err
		}
		if f == nil {
			return nil
		}
		if _, err := io.WriteString(w, f.describe()+"\n"); err != nil {
			return err
		}
	}
}

// describe formats a one-line diagnostic summary of a frame, used by
// DecodeInfo.
func (f *Frame) describe() string {
	if f.IsSkippable() {
		return fmt.Sprintf("skippable frame: magic=%#x size=%d", f.skippableMagic, len(f.skippableData))
	}
	return fmt.Sprintf(
		"frame: window_size=%d content_size=%d checksum=%v blocks=%d",
		f.header.WindowSize, f.header.FrameContentSize, f.header.ContentChecksumFlag, len(f.blocks),
	)
}
