// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "testing"

func TestParseFrameHeaderNullHeader(t *testing.T) {
	p := NewForwardByteParser([]byte{0x0, 0xFF})
	h, err := ParseFrameHeader(p)
	if err != nil {
		t.Fatalf("ParseFrameHeader: %v", err)
	}
	if h.ContentChecksumFlag {
		t.Fatal("ContentChecksumFlag: got true, want false")
	}
	if h.WindowDescriptor != 0xFF {
		t.Fatalf("WindowDescriptor: got %#x, want 0xff", h.WindowDescriptor)
	}
}

func TestParseFrameHeaderSingleSegment(t *testing.T) {
	p := NewForwardByteParser([]byte{0b0010_0000, 0xAD, 0x01})
	h, err := ParseFrameHeader(p)
	if err != nil {
		t.Fatalf("ParseFrameHeader: %v", err)
	}
	if h.FrameContentSize != 0xAD {
		t.Fatalf("FrameContentSize: got %d, want 0xad", h.FrameContentSize)
	}
	if p.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", p.Len())
	}
}

func TestParseFrameSkippable(t *testing.T) {
	p := NewForwardByteParser([]byte{
		0x53, 0x2a, 0x4d, 0x18,
		0x03, 0x00, 0x00, 0x00,
		0x10, 0x20, 0x30,
		0x40,
	})
	f, err := ParseFrame(p)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if !f.IsSkippable() {
		t.Fatal("IsSkippable: got false, want true")
	}
	if p.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", p.Len())
	}
}

func TestParseFrameUnknownMagic(t *testing.T) {
	p := NewForwardByteParser([]byte{0x20, 0xB5, 0x2F, 0xFD})
	if _, err := ParseFrame(p); err == nil {
		t.Fatal("expected error for unrecognized magic")
	}
}

func TestDecodeCompressedBlockTelecomParisBanner(t *testing.T) {
	data := []byte{
		189, 1, 0, 228, 2, 35, 35, 10, 35, 32, 87, 101, 108, 99, 111, 109, 101, 32, 116, 111, 32,
		84, 101, 108, 101, 99, 111, 109, 32, 80, 97, 114, 105, 115, 32, 122, 115, 116, 100, 32,
		101, 120, 97, 109, 112, 108, 101, 32, 35, 10, 35, 2, 0, 12, 202, 162, 4, 109, 63, 5, 217,
		139,
	}
	ctx, err := NewDecodingContext(1000)
	if err != nil {
		t.Fatalf("NewDecodingContext: %v", err)
	}
	p := NewForwardByteParser(data)
	block, _, err := ParseBlock(p, 1024)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if err := ctx.DecodeBlock(block); err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	expected := "\n#########################################\n# Welcome to Telecom Paris zstd example #\n#########################################\n            "
	if string(ctx.Output) != expected {
		t.Fatalf("Output:\n got  %q\n want %q", ctx.Output, expected)
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	if _, err := Decode([]byte{0x28, 0xB5, 0x2F}); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}
