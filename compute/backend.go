// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compute provides the GEMM backends benchmarked by gemmbench.
//
// A Backend is treated as an opaque capability: it multiplies two dense
// float64 matrices, accumulating into a third, using a configurable number
// of threads. The harness never looks inside.
package compute

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/blas"
)

// Layout is the storage order of a matrix buffer.
type Layout int

const (
	// RowMajor stores consecutive elements of a row contiguously.
	RowMajor Layout = iota
	// ColMajor stores consecutive elements of a column contiguously.
	ColMajor
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "RowMajor"
	case ColMajor:
		return "ColMajor"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Backend is a GEMM implementation.
//
// Dgemm computes C = alpha*op(A)*op(B) + beta*C where op(A) is m x k,
// op(B) is k x n and C is m x n, all stored in the given layout.
// SetNumThreads fixes the parallelism of subsequent Dgemm calls; calling it
// again with the same value has no further effect.
type Backend interface {
	Name() string
	SetNumThreads(n int)
	NumThreads() int
	Dgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
		alpha float64, a []float64, lda int,
		b []float64, ldb int,
		beta float64, c []float64, ldc int) error
}

// ErrUnknownBackend is returned by Lookup for unregistered names.
var ErrUnknownBackend = errors.New("compute: unknown backend")

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Backend{}
)

// Register makes a backend constructor available under name.
// It panics if name is already taken.
func Register(name string, fn func() Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("compute: backend registered twice: " + name)
	}
	registry[name] = fn
}

// Lookup returns a fresh instance of the named backend.
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Names())
	}
	return fn(), nil
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArgError describes a Dgemm argument rejected by CheckDgemm.
type ArgError struct {
	Arg    string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("compute: bad %s: %s", e.Arg, e.Reason)
}

// CheckDgemm validates Dgemm arguments. The minimum leading dimension of
// each operand follows from its transpose flag and the layout, so A stored
// k x m for tA == Trans needs lda >= k in column-major order.
func CheckDgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
	a []float64, lda int, b []float64, ldb int, c []float64, ldc int) error {

	if layout != RowMajor && layout != ColMajor {
		return &ArgError{"layout", layout.String()}
	}
	if !validTranspose(tA) {
		return &ArgError{"tA", fmt.Sprintf("illegal transpose %c", tA)}
	}
	if !validTranspose(tB) {
		return &ArgError{"tB", fmt.Sprintf("illegal transpose %c", tB)}
	}
	switch {
	case m < 0:
		return &ArgError{"m", "m < 0"}
	case n < 0:
		return &ArgError{"n", "n < 0"}
	case k < 0:
		return &ArgError{"k", "k < 0"}
	}

	// Stored shapes, before op() is applied.
	aRows, aCols := m, k
	if tA != blas.NoTrans {
		aRows, aCols = k, m
	}
	bRows, bCols := k, n
	if tB != blas.NoTrans {
		bRows, bCols = n, k
	}

	if err := checkOperand("A", layout, aRows, aCols, a, lda); err != nil {
		return err
	}
	if err := checkOperand("B", layout, bRows, bCols, b, ldb); err != nil {
		return err
	}
	return checkOperand("C", layout, m, n, c, ldc)
}

func checkOperand(name string, layout Layout, rows, cols int, buf []float64, ld int) error {
	// Extent of the contiguous dimension and the count of strided lines.
	inner, lines := cols, rows
	if layout == ColMajor {
		inner, lines = rows, cols
	}
	if ld < max(1, inner) {
		return &ArgError{"ld" + name, fmt.Sprintf("%d < %d", ld, max(1, inner))}
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	if need := ld*(lines-1) + inner; len(buf) < need {
		return &ArgError{name, fmt.Sprintf("len %d < %d", len(buf), need)}
	}
	return nil
}

func validTranspose(t blas.Transpose) bool {
	return t == blas.NoTrans || t == blas.Trans || t == blas.ConjTrans
}

// swapLayout rewrites a GEMM in one layout as the equivalent GEMM in the other.
// A buffer read in the other layout is the transpose of the matrix, so
// C^T = op(B)^T * op(A)^T swaps the operands and m with n while keeping
// both transpose flags.
func swapLayout(tA, tB blas.Transpose, m, n int, a []float64, lda int, b []float64, ldb int) (
	blas.Transpose, blas.Transpose, int, int, []float64, int, []float64, int) {
	return tB, tA, n, m, b, ldb, a, lda
}
