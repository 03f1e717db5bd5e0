// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/LynnColeArt/gemmbench/compute"
)

// ToleranceConfig defines tolerance parameters for floating-point comparison
type ToleranceConfig struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float64

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float64
}

// DefaultTolerance accepts the rounding differences of reordered
// accumulation over long inner dimensions.
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol: 1e-9,
		RelTol: 1e-3,
	}
}

// VerificationResult summarizes an element-wise comparison.
type VerificationResult struct {
	MaxAbsError float64
	MaxRelError float64
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none

	Checksum          float64
	ReferenceChecksum float64
}

// VerifyArray compares actual against expected element by element.
func VerifyArray(expected, actual []float64, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
	}

	if len(expected) != len(actual) {
		result.NumErrors = len(expected)
		return result
	}

	result.Checksum = floats.Sum(actual)
	result.ReferenceChecksum = floats.Sum(expected)

	for i := range expected {
		if scalar.EqualWithinAbsOrRel(expected[i], actual[i], tol.AbsTol, tol.RelTol) {
			continue
		}
		result.NumErrors++
		if result.FirstError == -1 {
			result.FirstError = i
		}

		absDiff := math.Abs(expected[i] - actual[i])
		result.MaxAbsError = math.Max(result.MaxAbsError, absDiff)
		if expected[i] != 0 {
			result.MaxRelError = math.Max(result.MaxRelError, absDiff/math.Abs(expected[i]))
		}
	}

	return result
}

// OK reports whether every element matched.
func (r VerificationResult) OK() bool {
	return r.NumErrors == 0
}

// String formats the verification result for display
func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return fmt.Sprintf("PASS: all %d values match within tolerance (checksum %.6e)", r.TotalItems, r.Checksum)
	}

	errorRate := float64(r.NumErrors) / float64(r.TotalItems) * 100
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%)\n"+
		"  Max absolute error: %e\n"+
		"  Max relative error: %e\n"+
		"  First error at index: %d",
		r.NumErrors, r.TotalItems, errorRate,
		r.MaxAbsError, r.MaxRelError,
		r.FirstError)
}

// VerifyBackend runs one multiply of the workspace operands through
// backend and through the reference GEMM, each on its own copy of C, and
// compares the two. The workspace is left untouched.
func VerifyBackend(backend compute.Backend, ws *Workspace, dims Dims, alpha, beta float64, tol ToleranceConfig) (VerificationResult, error) {
	got := append([]float64(nil), ws.C...)
	want := append([]float64(nil), ws.C...)

	m, n, k := dims.M, dims.N, dims.K
	if err := backend.Dgemm(compute.ColMajor, blas.NoTrans, blas.NoTrans, m, n, k,
		alpha, ws.A, m, ws.B, k, beta, got, m); err != nil {
		return VerificationResult{}, NewExecutionError("Verify", backend.Name()+" rejected arguments", err)
	}
	if err := compute.ReferenceDgemm(compute.ColMajor, blas.NoTrans, blas.NoTrans, m, n, k,
		alpha, ws.A, m, ws.B, k, beta, want, m); err != nil {
		return VerificationResult{}, NewExecutionError("Verify", "reference rejected arguments", err)
	}

	return VerifyArray(want, got, tol), nil
}
