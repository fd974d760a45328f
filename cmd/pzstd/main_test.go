// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package main_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cosnicolaou/pzstd/internal"
)

func requireZstdCLI(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("zstd"); err != nil {
		t.Skip("zstd CLI not available")
	}
}

func pzstdCmd(filename string) ([]byte, string, error) {
	ifile := filename + ".zst"
	ofile := filename + ".test"
	cmd := exec.Command("go", "run", ".", "unzip",
		"--output="+ofile, ifile,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, string(output), err
	}
	data, err := os.ReadFile(ofile)
	return data, string(output), err
}

func TestCmd(t *testing.T) {
	requireZstdCLI(t)
	tmpdir := t.TempDir()
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"800KB1", internal.GenReproducibleRandomData(800 * 1024)},
	} {
		filename := filepath.Join(tmpdir, tc.name)
		if err := internal.CreateZstdFile(filename, "-3", tc.data); err != nil {
			t.Fatalf("%v: %v", tc.name, err)
		}
		data, out, err := pzstdCmd(filename)
		if err != nil {
			t.Fatalf("%v: %v: %v", tc.name, out, err)
		}
		if got, want := data, tc.data; !bytes.Equal(got, want) {
			t.Errorf("%v: got %v, want %v", tc.name, internal.FirstN(20, got), internal.FirstN(20, want))
		}
	}
}

func TestErrors(t *testing.T) {
	tmpdir := t.TempDir()

	invalid := filepath.Join(tmpdir, "invalid")
	if err := os.WriteFile(invalid+".zst", []byte{0x1, 0x2, 0x3, 0x4}, 0600); err != nil {
		t.Fatal(err)
	}
	_, _, err := pzstdCmd(invalid)
	if err == nil {
		t.Fatal("expected an error decompressing a file with an unrecognized magic number")
	}
}
