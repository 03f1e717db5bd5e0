// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import "gonum.org/v1/gonum/blas"

// ReferenceDgemm is a simple, correct Dgemm used to verify the backends.
// It is deliberately unoptimized.
func ReferenceDgemm(layout Layout, tA, tB blas.Transpose, m, n, k int,
	alpha float64, a []float64, lda int,
	b []float64, ldb int,
	beta float64, c []float64, ldc int) error {

	if err := CheckDgemm(layout, tA, tB, m, n, k, a, lda, b, ldb, c, ldc); err != nil {
		return err
	}

	at := accessor(layout, lda)
	bt := accessor(layout, ldb)
	ct := accessor(layout, ldc)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for l := 0; l < k; l++ {
				var av, bv float64
				if tA == blas.NoTrans {
					av = a[at(i, l)]
				} else {
					av = a[at(l, i)]
				}
				if tB == blas.NoTrans {
					bv = b[bt(l, j)]
				} else {
					bv = b[bt(j, l)]
				}
				sum += av * bv
			}
			idx := ct(i, j)
			if beta == 0 {
				c[idx] = alpha * sum
			} else {
				c[idx] = alpha*sum + beta*c[idx]
			}
		}
	}
	return nil
}

// accessor returns the flat index of element (i, j) for a buffer with
// leading dimension ld.
func accessor(layout Layout, ld int) func(i, j int) int {
	if layout == ColMajor {
		return func(i, j int) int { return i + j*ld }
	}
	return func(i, j int) int { return i*ld + j }
}
