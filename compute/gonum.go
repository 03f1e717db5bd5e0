// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"runtime"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/gonum"
)

// GonumName is the registry name of the pure Go backend.
const GonumName = "gonum"

func init() {
	Register(GonumName, func() Backend { return NewGonum() })
}

// Gonum runs Dgemm through gonum's pure Go BLAS. Gonum sizes its worker
// pool from GOMAXPROCS, so the thread count is applied there. GOMAXPROCS is
// process-wide, so it is read live rather than cached.
type Gonum struct {
	impl gonum.Implementation
}

// NewGonum returns a Gonum backend.
func NewGonum() *Gonum {
	return &Gonum{}
}

func (g *Gonum) Name() string { return GonumName }

// SetNumThreads sets GOMAXPROCS to n. Values below 1 are ignored.
func (g *Gonum) SetNumThreads(n int) {
	if n < 1 || runtime.GOMAXPROCS(0) == n {
		return
	}
	runtime.GOMAXPROCS(n)
}

func (g *Gonum) NumThreads() int { return runtime.GOMAXPROCS(0) }

func (g *Gonum) Dgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
	alpha float64, a []float64, lda int,
	b []float64, ldb int,
	beta float64, c []float64, ldc int) error {

	if err := CheckDgemm(layout, tA, tB, m, n, k, a, lda, b, ldb, c, ldc); err != nil {
		return err
	}
	if layout == ColMajor {
		tA, tB, m, n, a, lda, b, ldb = swapLayout(tA, tB, m, n, a, lda, b, ldb)
	}
	g.impl.Dgemm(tA, tB, m, n, k, alpha, a, lda, b, ldb, beta, c, ldc)
	return nil
}
