// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
)

// NativeName is the registry name of the cache-oblivious backend.
const NativeName = "native"

// DefaultBaseSize is the block edge below which the recursion stops and
// the column kernel runs. 64 float64 columns of 64 rows fit in L1 twice.
const DefaultBaseSize = 64

func init() {
	Register(NativeName, func() Backend { return NewNative() })
}

// Native is a cache-oblivious GEMM on column-major data. The columns of C
// are split into contiguous ranges, one per worker, and each range is
// multiplied by recursively halving the largest dimension until the block
// fits the base case. This adapts to any cache hierarchy without knowing
// its sizes.
type Native struct {
	threads  int
	baseSize int
}

// NewNative returns a Native backend with one worker per CPU.
func NewNative() *Native {
	return &Native{
		threads:  runtime.NumCPU(),
		baseSize: DefaultBaseSize,
	}
}

func (nb *Native) Name() string { return NativeName }

func (nb *Native) SetNumThreads(n int) {
	if n < 1 {
		return
	}
	nb.threads = n
}

func (nb *Native) NumThreads() int { return nb.threads }

// nativeOp carries the operands of one Dgemm through the recursion.
// All buffers are column-major.
type nativeOp struct {
	tA, tB bool
	alpha  float64
	a      []float64
	lda    int
	b      []float64
	ldb    int
	c      []float64
	ldc    int
	base   int
}

func (nb *Native) Dgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
	alpha float64, a []float64, lda int,
	b []float64, ldb int,
	beta float64, c []float64, ldc int) error {

	if err := CheckDgemm(layout, tA, tB, m, n, k, a, lda, b, ldb, c, ldc); err != nil {
		return err
	}
	if layout == RowMajor {
		tA, tB, m, n, a, lda, b, ldb = swapLayout(tA, tB, m, n, a, lda, b, ldb)
	}
	if m == 0 || n == 0 {
		return nil
	}

	scaleColumns(beta, m, n, c, ldc)
	if alpha == 0 || k == 0 {
		return nil
	}

	op := &nativeOp{
		tA:    tA != blas.NoTrans,
		tB:    tB != blas.NoTrans,
		alpha: alpha,
		a:     a,
		lda:   lda,
		b:     b,
		ldb:   ldb,
		c:     c,
		ldc:   ldc,
		base:  nb.baseSize,
	}

	workers := min(nb.threads, n)
	if workers <= 1 {
		op.recurse(0, m, 0, n, 0, k)
		return nil
	}

	// Each worker owns a disjoint column range of C, so no locking is needed.
	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for j0 := 0; j0 < n; j0 += chunk {
		j1 := min(j0+chunk, n)
		g.Go(func() error {
			op.recurse(0, m, j0, j1, 0, k)
			return nil
		})
	}
	return g.Wait()
}

// scaleColumns computes C = beta*C on the m x n column-major block.
func scaleColumns(beta float64, m, n int, c []float64, ldc int) {
	if beta == 1 {
		return
	}
	for j := 0; j < n; j++ {
		col := c[j*ldc : j*ldc+m]
		if beta == 0 {
			clear(col)
			continue
		}
		for i := range col {
			col[i] *= beta
		}
	}
}

// recurse accumulates alpha*op(A)[i0:i1, l0:l1]*op(B)[l0:l1, j0:j1] into
// C[i0:i1, j0:j1].
func (op *nativeOp) recurse(i0, i1, j0, j1, l0, l1 int) {
	rows, cols, inner := i1-i0, j1-j0, l1-l0
	if rows <= op.base && cols <= op.base && inner <= op.base {
		op.kernel(i0, i1, j0, j1, l0, l1)
		return
	}

	// Split the largest dimension to keep the blocks square.
	switch {
	case rows >= cols && rows >= inner:
		mid := i0 + rows/2
		op.recurse(i0, mid, j0, j1, l0, l1)
		op.recurse(mid, i1, j0, j1, l0, l1)
	case cols >= inner:
		mid := j0 + cols/2
		op.recurse(i0, i1, j0, mid, l0, l1)
		op.recurse(i0, i1, mid, j1, l0, l1)
	default:
		mid := l0 + inner/2
		op.recurse(i0, i1, j0, j1, l0, mid)
		op.recurse(i0, i1, j0, j1, mid, l1)
	}
}

func (op *nativeOp) kernel(i0, i1, j0, j1, l0, l1 int) {
	if !op.tA && !op.tB {
		// Column axpy form: C[:,j] += alpha*B[l,j] * A[:,l].
		for j := j0; j < j1; j++ {
			ccol := op.c[j*op.ldc+i0 : j*op.ldc+i1]
			for l := l0; l < l1; l++ {
				t := op.alpha * op.b[l+j*op.ldb]
				if t == 0 {
					continue
				}
				acol := op.a[l*op.lda+i0 : l*op.lda+i1]
				for i, v := range acol {
					ccol[i] += t * v
				}
			}
		}
		return
	}

	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			var sum float64
			for l := l0; l < l1; l++ {
				sum += op.atA(i, l) * op.atB(l, j)
			}
			op.c[i+j*op.ldc] += op.alpha * sum
		}
	}
}

func (op *nativeOp) atA(i, l int) float64 {
	if op.tA {
		return op.a[l+i*op.lda]
	}
	return op.a[i+l*op.lda]
}

func (op *nativeOp) atB(l, j int) float64 {
	if op.tB {
		return op.b[j+l*op.ldb]
	}
	return op.b[l+j*op.ldb]
}
