// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"errors"
	"fmt"
	"sync"
)

// floatsPerLine is the number of float64 values in one cache line.
const floatsPerLine = CacheLineSize / 8

// BufferPool manages float64 operand buffers with reuse.
// It maintains a free list of previously allocated buffers so repeated
// runs in one process do not churn the allocator, and it tracks how many
// bytes are handed out.
type BufferPool struct {
	mu        sync.Mutex
	owned     map[*float64]*allocation
	freeList  []*allocation
	bytesUsed int64
	peakBytes int64
}

type allocation struct {
	data []float64
	used bool
}

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		owned: make(map[*float64]*allocation),
	}
}

// Get returns a buffer of n float64 values. Reused buffers keep their old
// contents; callers overwrite them.
func (p *BufferPool) Get(n int) ([]float64, error) {
	if n <= 0 {
		return nil, NewInvalidArgError("Get", fmt.Sprintf("buffer length must be positive, got %d", n))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Round capacity up to whole cache lines
	capacity := (n + floatsPerLine - 1) / floatsPerLine * floatsPerLine

	for i, alloc := range p.freeList {
		if cap(alloc.data) >= capacity {
			p.freeList = append(p.freeList[:i], p.freeList[i+1:]...)
			alloc.used = true
			p.track(int64(cap(alloc.data)) * 8)
			return alloc.data[:n], nil
		}
	}

	data := make([]float64, capacity)
	alloc := &allocation{data: data, used: true}
	p.owned[&data[0]] = alloc
	p.track(int64(capacity) * 8)
	return data[:n], nil
}

// Put returns buf to the pool.
func (p *BufferPool) Put(buf []float64) error {
	if cap(buf) == 0 {
		return ErrForeignBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	alloc, ok := p.owned[&buf[:1][0]]
	if !ok {
		return ErrForeignBuffer
	}
	if !alloc.used {
		return ErrDoubleRelease
	}

	alloc.used = false
	p.freeList = append(p.freeList, alloc)
	p.bytesUsed -= int64(cap(alloc.data)) * 8
	return nil
}

func (p *BufferPool) track(bytes int64) {
	p.bytesUsed += bytes
	if p.bytesUsed > p.peakBytes {
		p.peakBytes = p.bytesUsed
	}
}

// Stats returns the bytes currently handed out and the peak.
func (p *BufferPool) Stats() (inUse, peak int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytesUsed, p.peakBytes
}

// Workspace owns the three operands of one run: A (M x K), B (K x N) and
// C (M x N), all column-major. Release must be called exactly once, usually
// with defer right after NewWorkspace.
type Workspace struct {
	A, B, C []float64

	pool     *BufferPool
	released bool
}

// NewWorkspace takes the operands for dims from pool.
func NewWorkspace(pool *BufferPool, dims Dims) (*Workspace, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	ws := &Workspace{pool: pool}
	sizes := []int{dims.M * dims.K, dims.K * dims.N, dims.M * dims.N}
	bufs := []*[]float64{&ws.A, &ws.B, &ws.C}
	for i, size := range sizes {
		buf, err := pool.Get(size)
		if err != nil {
			ws.Release()
			return nil, err
		}
		*bufs[i] = buf
	}
	return ws, nil
}

// Release returns every operand to the pool.
func (ws *Workspace) Release() error {
	if ws.released {
		return ErrDoubleRelease
	}
	ws.released = true

	var errs []error
	for _, buf := range [][]float64{ws.A, ws.B, ws.C} {
		if buf == nil {
			continue
		}
		if err := ws.pool.Put(buf); err != nil {
			errs = append(errs, err)
		}
	}
	ws.A, ws.B, ws.C = nil, nil, nil
	return errors.Join(errs...)
}
