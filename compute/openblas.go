// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build openblas && cgo

// This file links the OpenBLAS backend. Build with -tags openblas; the
// OpenBLAS shared library must be installed.

package compute

/*
#cgo LDFLAGS: -lopenblas
void openblas_set_num_threads(int num_threads);
int openblas_get_num_threads(void);
*/
import "C"

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/netlib/blas/netlib"
)

// OpenBLASName is the registry name of the OpenBLAS backend.
const OpenBLASName = "openblas"

func init() {
	Register(OpenBLASName, func() Backend { return NewOpenBLAS() })
}

// OpenBLAS calls cblas_dgemm through gonum's netlib bindings.
type OpenBLAS struct {
	impl netlib.Implementation
}

func NewOpenBLAS() *OpenBLAS { return &OpenBLAS{} }

func (o *OpenBLAS) Name() string { return OpenBLASName }

func (o *OpenBLAS) SetNumThreads(n int) {
	if n < 1 {
		return
	}
	C.openblas_set_num_threads(C.int(n))
}

func (o *OpenBLAS) NumThreads() int { return int(C.openblas_get_num_threads()) }

func (o *OpenBLAS) Dgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
	alpha float64, a []float64, lda int,
	b []float64, ldb int,
	beta float64, c []float64, ldc int) error {

	if err := CheckDgemm(layout, tA, tB, m, n, k, a, lda, b, ldb, c, ldc); err != nil {
		return err
	}
	// The netlib bindings are row-major only.
	if layout == ColMajor {
		tA, tB, m, n, a, lda, b, ldb = swapLayout(tA, tB, m, n, a, lda, b, ldb)
	}
	o.impl.Dgemm(tA, tB, m, n, k, alpha, a, lda, b, ldb, beta, c, ldc)
	return nil
}
