// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package pzstd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cosnicolaou/pzstd/internal/zstd"
)

type scannerOpts struct {
	initialPeek int
}

// ScannerOption represents an option to NewScanner.
type ScannerOption func(*scannerOpts)

// ScanInitialPeek sets the size, in bytes, of the scanner's initial
// read-ahead buffer. It is grown automatically (doubling) whenever a
// frame's structural header turns out to span further than the current
// buffer; this option only avoids the first few growth rounds for
// streams known to contain large frames.
func ScanInitialPeek(b int) ScannerOption {
	return func(o *scannerOpts) {
		o.initialPeek = b
	}
}

// Scanner splits a stream of concatenated Zstandard frames into the raw
// bytes of each frame in turn. It works by structurally parsing each
// frame (magic number, frame header, block headers and, for compressed
// blocks, their literals/sequences section headers) without decoding any
// literals or sequences (only a Huffman table description met in a
// literals header is decoded) — the cheapest pass that still yields exact frame
// boundaries. Skippable frames are returned like any other frame; it is
// up to the caller (or the Decompressor) to treat their decoded output
// as empty.
type Scanner struct {
	rd  io.Reader
	brd *bufio.Reader

	peekSize int
	done     bool
	err      error

	frame []byte
}

// NewScanner returns a new Scanner reading from rd.
func NewScanner(rd io.Reader, opts ...ScannerOption) *Scanner {
	o := scannerOpts{
		initialPeek: 64 * 1024,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Scanner{
		rd:       rd,
		brd:      bufio.NewReaderSize(rd, o.initialPeek),
		peekSize: o.initialPeek,
	}
}

// Scan returns true if a frame was found and is available via Frame.
func (sc *Scanner) Scan(ctx context.Context) bool {
	if sc.err != nil || sc.done {
		return false
	}
	select {
	case <-ctx.Done():
		sc.err = ctx.Err()
		return false
	default:
	}

	for {
		buf, peekErr := sc.brd.Peek(sc.peekSize)
		atEOF := errors.Is(peekErr, io.EOF) || errors.Is(peekErr, io.ErrUnexpectedEOF)
		if peekErr != nil && !atEOF && !errors.Is(peekErr, bufio.ErrBufferFull) {
			sc.err = fmt.Errorf("pzstd: reading stream: %w", peekErr)
			return false
		}
		if len(buf) == 0 {
			sc.done = true
			return false
		}

		p := zstd.NewForwardByteParser(buf)
		before := p.Len()
		_, err := zstd.ParseFrame(p)
		if err != nil {
			var parsingErr *zstd.ParsingError
			if errors.As(err, &parsingErr) && !atEOF {
				// The frame's structural header runs off the end of the
				// peeked window; grow the window and retry.
				sc.peekSize *= 2
				replay := make([]byte, len(buf))
				copy(replay, buf)
				sc.brd = bufio.NewReaderSize(io.MultiReader(bytes.NewReader(replay), sc.rd), sc.peekSize)
				continue
			}
			sc.err = fmt.Errorf("pzstd: parsing frame: %w", err)
			return false
		}
		consumed := before - p.Len()
		sc.frame = make([]byte, consumed)
		copy(sc.frame, buf[:consumed])
		if _, err := sc.brd.Discard(consumed); err != nil {
			sc.err = fmt.Errorf("pzstd: discarding frame: %w", err)
			return false
		}
		return true
	}
}

// Frame returns the raw bytes of the most recently scanned frame.
func (sc *Scanner) Frame() []byte {
	return sc.frame
}

// Err returns any error encountered by the scanner.
func (sc *Scanner) Err() error {
	return sc.err
}
