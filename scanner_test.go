// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package pzstd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cosnicolaou/pzstd/internal"
	"github.com/cosnicolaou/pzstd/internal/zstd"
)

func requireZstdCLI(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("zstd"); err != nil {
		t.Skip("zstd CLI not available")
	}
}

func createFrame(t *testing.T, dir, name string, data []byte) []byte {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := internal.CreateZstdFile(filename, "-3", data); err != nil {
		t.Fatalf("CreateZstdFile: %v", err)
	}
	zst, err := os.ReadFile(filename + ".zst")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return zst
}

func TestScan(t *testing.T) {
	requireZstdCLI(t)
	ctx := context.Background()
	tmpdir := t.TempDir()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"hello", []byte("hello world\n")},
		{"100KB", internal.GenPredictableRandomData(100 * 1024)},
	} {
		frame := createFrame(t, tmpdir, tc.name, tc.data)

		sc := NewScanner(bytes.NewReader(frame))
		var frames [][]byte
		for sc.Scan(ctx) {
			buf := make([]byte, len(sc.Frame()))
			copy(buf, sc.Frame())
			frames = append(frames, buf)
		}
		if err := sc.Err(); err != nil {
			t.Fatalf("%v: scan failed: %v", tc.name, err)
		}
		if len(frames) != 1 {
			t.Fatalf("%v: got %d frames, want 1", tc.name, len(frames))
		}
		if !bytes.Equal(frames[0], frame) {
			t.Fatalf("%v: scanned frame did not match source bytes", tc.name)
		}

		decoded, err := zstd.Decode(frames[0])
		if err != nil {
			t.Fatalf("%v: Decode: %v", tc.name, err)
		}
		if !bytes.Equal(decoded, tc.data) {
			t.Errorf("%v: got %v..., want %v...",
				tc.name, internal.FirstN(10, decoded), internal.FirstN(10, tc.data))
		}
	}
}

func TestScanMultipleFrames(t *testing.T) {
	requireZstdCLI(t)
	ctx := context.Background()
	tmpdir := t.TempDir()

	parts := [][]byte{
		[]byte("hello "),
		[]byte("world\n"),
		internal.GenPredictableRandomData(4096),
	}
	var concatenated []byte
	var want []byte
	for i, p := range parts {
		frame := createFrame(t, tmpdir, "part", append([]byte{}, p...))
		concatenated = append(concatenated, frame...)
		want = append(want, p...)
		_ = i
	}

	sc := NewScanner(bytes.NewReader(concatenated))
	n := 0
	var got []byte
	for sc.Scan(ctx) {
		decoded, err := zstd.Decode(sc.Frame())
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		got = append(got, decoded...)
		n++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if n != len(parts) {
		t.Fatalf("got %d frames, want %d", n, len(parts))
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v..., want %v...", internal.FirstN(10, got), internal.FirstN(10, want))
	}
}

func TestScanErrors(t *testing.T) {
	ctx := context.Background()
	sc := NewScanner(bytes.NewReader([]byte{0x1, 0x2, 0x3, 0x4}))
	if sc.Scan(ctx) {
		t.Fatal("expected no frame to be returned")
	}
	if sc.Err() == nil {
		t.Fatal("expected an error for an unrecognized magic number")
	}
}
