// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cosnicolaou/pzstd"
	"github.com/cosnicolaou/pzstd/internal"
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
		t.Fatalf("read: %v", err)
	}
	return zst
}

func TestIOReader(t *testing.T) {
	requireZstdCLI(t)
	ctx := context.Background()
	tmpdir := t.TempDir()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"hello", []byte("hello world\n")},
		{"300KB", internal.GenPredictableRandomData(300 * 1024)},
	} {
		frame := createFrame(t, tmpdir, tc.name, tc.data)

		for _, concurrency := range []int{1, 2, runtime.GOMAXPROCS(-1)} {
			rd := pzstd.NewReader(ctx, bytes.NewReader(frame),
				pzstd.DecompressionOptions(pzstd.Concurrency(concurrency)))
			data, err := io.ReadAll(rd)
			if err != nil {
				t.Errorf("%v: concurrency %d: ReadAll failed: %v", tc.name, concurrency, err)
				continue
			}
			if !bytes.Equal(data, tc.data) {
				t.Errorf("%v: concurrency %d: got %v..., want %v...",
					tc.name, concurrency, internal.FirstN(10, data), internal.FirstN(10, tc.data))
			}
		}
	}
}

func TestCancelation(t *testing.T) {
	requireZstdCLI(t)
	tmpdir := t.TempDir()
	data := internal.GenPredictableRandomData(1024 * 1024)
	frame := createFrame(t, tmpdir, "large", data)

	ctx, cancel := context.WithCancel(context.Background())
	rd := pzstd.NewReader(ctx, bytes.NewReader(frame))
	cancel()
	if _, err := io.ReadAll(rd); err == nil {
		t.Fatal("expected an error after canceling the context")
	}
}

func TestReaderErrors(t *testing.T) {
	ctx := context.Background()

	drd := pzstd.NewReader(ctx, bytes.NewReader(nil))
	if _, err := io.ReadAll(drd); err != nil {
		t.Errorf("expected no error for an empty stream, got: %v", err)
	}

	drd = pzstd.NewReader(ctx, &errorReader{})
	if _, err := io.ReadAll(drd); err == nil {
		t.Error("expected an error from a reader that always fails")
	}

	drd = pzstd.NewReader(ctx, bytes.NewReader([]byte{0x1, 0x2, 0x3, 0x4}))
	if _, err := io.ReadAll(drd); err == nil {
		t.Error("expected an error for an unrecognized magic number")
	}
}

type errorReader struct{}

func (er *errorReader) Read(buf []byte) (int, error) {
	return 0, errOops
}

var errOops = errReader("oops")

type errReader string

func (e errReader) Error() string { return string(e) }
