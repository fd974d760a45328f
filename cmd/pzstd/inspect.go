// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cosnicolaou/pzstd/internal/zstd"
)

// infoReader implements cat's --info mode: it parses every frame in rd
// and prints a one-line summary of each to stdout, without decoding any
// of them.
func infoReader(_ context.Context, name string, rd io.Reader) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("failed to read: %v: %v", name, err)
	}
	fmt.Printf("=== %v ===\n", name)
	return zstd.DecodeInfo(data, os.Stdout)
}
