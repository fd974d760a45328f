// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cosnicolaou/pzstd/internal/zstd"
	"golang.org/x/sync/errgroup"
)

type decompressorOpts struct {
	verbose     bool
	concurrency int
	progressCh  chan<- Progress
}

// DecompressorOption configures a Decompressor.
type DecompressorOption func(*decompressorOpts)

// Verbose controls verbose logging for decompression.
func Verbose(v bool) DecompressorOption {
	return func(o *decompressorOpts) {
		o.verbose = v
	}
}

// Concurrency sets the degree of concurrency to use, that is, the
// number of frames decompressed in parallel.
func Concurrency(n int) DecompressorOption {
	return func(o *decompressorOpts) {
		o.concurrency = n
	}
}

// SendUpdates sets the channel for sending progress updates over.
func SendUpdates(ch chan<- Progress) DecompressorOption {
	return func(o *decompressorOpts) {
		o.progressCh = ch
	}
}

// Decompressor is a concurrent decompressor for zstd streams. It works
// in conjunction with Scanner: Submit must be called with each frame's
// raw bytes as returned by the scanner, in source order. Frames are
// decoded concurrently and their output is reassembled in the order
// they were submitted.
type Decompressor struct {
	order uint64 // must be at start of struct to be aligned.

	ctx    context.Context
	cancel context.CancelCauseFunc
	group  *errgroup.Group
	sem    chan struct{}
	doneCh chan *frameDesc

	progressCh chan<- Progress
	prd        *io.PipeReader
	pwr        *io.PipeWriter

	heap    *frameHeap
	verbose bool
}

// Progress reports on the progress of decompression. Each report
// pertains to a correctly ordered decompression event.
type Progress struct {
	Duration          time.Duration
	Frame             uint64
	Compressed, Size int
}

// NewDecompressor creates a new parallel decompressor.
func NewDecompressor(ctx context.Context, opts ...DecompressorOption) *Decompressor {
	o := decompressorOpts{
		concurrency: runtime.GOMAXPROCS(-1),
	}
	for _, fn := range opts {
		fn(&o)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	group, gctx := errgroup.WithContext(ctx)
	dc := &Decompressor{
		ctx:        gctx,
		cancel:     cancel,
		group:      group,
		sem:        make(chan struct{}, o.concurrency),
		doneCh:     make(chan *frameDesc, o.concurrency),
		progressCh: o.progressCh,
		heap:       &frameHeap{},
		verbose:    o.verbose,
	}
	dc.prd, dc.pwr = io.Pipe()
	heap.Init(dc.heap)
	dc.group.Go(func() error {
		dc.assemble(dc.ctx, dc.doneCh)
		return nil
	})
	return dc
}

type frameDesc struct {
	order int

	data []byte

	err      error
	decoded  []byte
	duration time.Duration
}

func (f *frameDesc) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: size %v", f.order, len(f.data))
}

func (dc *Decompressor) trace(format string, args ...interface{}) {
	if dc.verbose {
		log.Printf(format, args...)
	}
}

func (f *frameDesc) decode() {
	start := time.Now()
	p := zstd.NewForwardByteParser(f.data)
	frame, err := zstd.ParseFrame(p)
	if err != nil {
		f.err = err
		return
	}
	f.decoded, f.err = frame.Decode()
	f.duration = time.Since(start)
}

// Submit is called for each frame to be decompressed, in source order.
func (dc *Decompressor) Submit(data []byte) error {
	order := int(atomic.AddUint64(&dc.order, 1))
	select {
	case dc.sem <- struct{}{}:
	case <-dc.ctx.Done():
		return context.Cause(dc.ctx)
	}
	f := &frameDesc{order: order, data: data}
	dc.group.Go(func() error {
		defer func() { <-dc.sem }()
		dc.trace("decompressing: %s", f)
		f.decode()
		dc.trace("decompressed: %s", f)
		select {
		case dc.doneCh <- f:
		case <-dc.ctx.Done():
			return context.Cause(dc.ctx)
		}
		return nil
	})
	return nil
}

// Cancel unblocks any readers currently reading from this decompressor
// and/or the Finish method.
func (dc *Decompressor) Cancel(err error) {
	dc.cancel(err)
	dc.pwr.CloseWithError(err)
}

// Finish must be called exactly once, after the last call to Submit, to
// wait for all outstanding decompression work to complete and its
// output to be reassembled.
func (dc *Decompressor) Finish() error {
	// Take every concurrency slot so that no Submit worker is still
	// sending on doneCh when it is closed.
	for i := 0; i < cap(dc.sem); i++ {
		dc.sem <- struct{}{}
	}
	close(dc.doneCh)
	return dc.group.Wait()
}

type frameHeap []*frameDesc

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].order < h[j].order }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x interface{}) {
	*h = append(*h, x.(*frameDesc))
}

func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (dc *Decompressor) assemble(ctx context.Context, ch <-chan *frameDesc) {
	defer dc.pwr.Close()
	expected := 1
	for {
		dc.trace("assemble select")
		select {
		case frame, ok := <-ch:
			if frame != nil {
				heap.Push(dc.heap, frame)
			}
			for len(*dc.heap) > 0 {
				min := (*dc.heap)[0]
				if min.order != expected {
					break
				}
				heap.Remove(dc.heap, 0)
				expected++
				if min.err != nil {
					dc.cancel(min.err)
					dc.pwr.CloseWithError(min.err)
					return
				}
				if _, err := dc.pwr.Write(min.decoded); err != nil {
					dc.pwr.CloseWithError(err)
					return
				}
				if dc.progressCh != nil {
					dc.progressCh <- Progress{
						Duration:   min.duration,
						Frame:      uint64(min.order),
						Compressed: len(min.data),
						Size:       len(min.decoded),
					}
				}
			}
			if !ok && len(*dc.heap) == 0 {
				return
			}
		case <-ctx.Done():
			err := context.Cause(ctx)
			dc.trace("assemble: %v", err)
			dc.pwr.CloseWithError(err)
			return
		}
	}
}

// Read implements io.Reader on the decompressed stream.
func (dc *Decompressor) Read(buf []byte) (int, error) {
	return dc.prd.Read(buf)
}
