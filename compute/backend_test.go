// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas"
)

func randSlice(rnd *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = rnd.Float64()
	}
	return s
}

// storedShape returns rows, cols and the minimal leading dimension of an
// operand stored before op() is applied.
func storedShape(layout Layout, t blas.Transpose, r, c int) (int, int, int) {
	if t != blas.NoTrans {
		r, c = c, r
	}
	if layout == ColMajor {
		return r, c, max(1, r)
	}
	return r, c, max(1, c)
}

func requireClose(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		diff := math.Abs(want[i] - got[i])
		scale := math.Max(1, math.Abs(want[i]))
		if diff > tol*scale {
			t.Fatalf("element %d: want %v, got %v (diff %e)", i, want[i], got[i], diff)
		}
	}
}

func TestRegistry(t *testing.T) {
	names := Names()
	require.Contains(t, names, GonumName)
	require.Contains(t, names, NativeName)

	for _, name := range names {
		b, err := Lookup(name)
		require.NoError(t, err)
		require.Equal(t, name, b.Name())
	}

	_, err := Lookup("cublas")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		Register(GonumName, func() Backend { return NewGonum() })
	})
}

func TestBackendsMatchReference(t *testing.T) {
	prev := runtime.GOMAXPROCS(0)
	defer runtime.GOMAXPROCS(prev)

	rnd := rand.New(rand.NewPCG(7, 7))
	transposes := []blas.Transpose{blas.NoTrans, blas.Trans}
	shapes := []struct{ m, n, k int }{
		{1, 1, 1},
		{3, 5, 7},
		{17, 9, 33},
		{70, 65, 130}, // crosses the native base size
	}

	for _, name := range Names() {
		for _, layout := range []Layout{ColMajor, RowMajor} {
			for _, tA := range transposes {
				for _, tB := range transposes {
					for _, s := range shapes {
						label := fmt.Sprintf("%s/%v/%c%c/%dx%dx%d", name, layout, tA, tB, s.m, s.n, s.k)
						t.Run(label, func(t *testing.T) {
							backend, err := Lookup(name)
							require.NoError(t, err)
							backend.SetNumThreads(3)

							ar, ac, lda := storedShape(layout, tA, s.m, s.k)
							br, bc, ldb := storedShape(layout, tB, s.k, s.n)
							_, _, ldc := storedShape(layout, blas.NoTrans, s.m, s.n)

							a := randSlice(rnd, ar*ac)
							b := randSlice(rnd, br*bc)
							c := randSlice(rnd, s.m*s.n)
							want := append([]float64(nil), c...)

							const alpha, beta = 0.75, 0.5
							require.NoError(t, ReferenceDgemm(layout, tA, tB, s.m, s.n, s.k,
								alpha, a, lda, b, ldb, beta, want, ldc))
							require.NoError(t, backend.Dgemm(layout, tA, tB, s.m, s.n, s.k,
								alpha, a, lda, b, ldb, beta, c, ldc))

							requireClose(t, want, c, 1e-12)
						})
					}
				}
			}
		}
	}
}

func TestReferenceDgemmColMajor(t *testing.T) {
	// A is 2x3, B is 3x2, both column-major.
	a := []float64{1, 4, 2, 5, 3, 6}
	b := []float64{7, 9, 11, 8, 10, 12}
	c := make([]float64, 4)

	require.NoError(t, ReferenceDgemm(ColMajor, blas.NoTrans, blas.NoTrans, 2, 2, 3,
		1, a, 2, b, 3, 0, c, 2))

	// [[58, 64], [139, 154]] stored by column.
	require.Equal(t, []float64{58, 139, 64, 154}, c)
}

func TestBetaZeroOverwrites(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			backend, err := Lookup(name)
			require.NoError(t, err)

			a := []float64{2}
			b := []float64{3}
			c := []float64{math.NaN()}
			require.NoError(t, backend.Dgemm(ColMajor, blas.NoTrans, blas.NoTrans, 1, 1, 1,
				1, a, 1, b, 1, 0, c, 1))
			require.Equal(t, 6.0, c[0])
		})
	}
}

func TestCheckDgemm(t *testing.T) {
	buf := make([]float64, 64)
	tests := []struct {
		name    string
		layout  Layout
		tA, tB  blas.Transpose
		m, n, k int
		lda     int
		ldb     int
		ldc     int
		wantArg string
	}{
		{"valid col-major", ColMajor, blas.NoTrans, blas.NoTrans, 4, 3, 2, 4, 2, 4, ""},
		{"valid row-major", RowMajor, blas.NoTrans, blas.NoTrans, 4, 3, 2, 2, 3, 3, ""},
		{"lda too small", ColMajor, blas.NoTrans, blas.NoTrans, 4, 3, 2, 3, 2, 4, "ldA"},
		// With A transposed it is stored k x m, so lda must cover k, not m.
		{"transposed A uses k", ColMajor, blas.Trans, blas.NoTrans, 4, 3, 2, 2, 2, 4, ""},
		{"transposed A too small", ColMajor, blas.Trans, blas.NoTrans, 4, 3, 5, 4, 5, 4, "ldA"},
		{"transposed B uses n", ColMajor, blas.NoTrans, blas.Trans, 4, 3, 2, 4, 3, 4, ""},
		{"ldc too small", ColMajor, blas.NoTrans, blas.NoTrans, 4, 3, 2, 4, 2, 3, "ldC"},
		{"negative m", ColMajor, blas.NoTrans, blas.NoTrans, -1, 3, 2, 4, 2, 4, "m"},
		{"bad transpose", ColMajor, 'x', blas.NoTrans, 4, 3, 2, 4, 2, 4, "tA"},
		{"bad layout", Layout(9), blas.NoTrans, blas.NoTrans, 4, 3, 2, 4, 2, 4, "layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDgemm(tt.layout, tt.tA, tt.tB, tt.m, tt.n, tt.k,
				buf, tt.lda, buf, tt.ldb, buf, tt.ldc)
			if tt.wantArg == "" {
				require.NoError(t, err)
				return
			}
			var argErr *ArgError
			require.ErrorAs(t, err, &argErr)
			require.Equal(t, tt.wantArg, argErr.Arg)
		})
	}
}

func TestCheckDgemmShortBuffer(t *testing.T) {
	short := make([]float64, 5)
	ok := make([]float64, 6)
	err := CheckDgemm(ColMajor, blas.NoTrans, blas.NoTrans, 2, 3, 3, short, 2, ok, 3, ok, 2)
	var argErr *ArgError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, "A", argErr.Arg)
}

func TestSetNumThreadsIdempotent(t *testing.T) {
	prev := runtime.GOMAXPROCS(0)
	defer runtime.GOMAXPROCS(prev)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			backend, err := Lookup(name)
			require.NoError(t, err)

			backend.SetNumThreads(2)
			first := backend.NumThreads()
			procs := runtime.GOMAXPROCS(0)

			backend.SetNumThreads(2)
			require.Equal(t, first, backend.NumThreads())
			require.Equal(t, procs, runtime.GOMAXPROCS(0))
		})
	}
}

func TestGonumThreadsFollowProcess(t *testing.T) {
	prev := runtime.GOMAXPROCS(0)
	defer runtime.GOMAXPROCS(prev)

	runtime.GOMAXPROCS(4)
	first := NewGonum()
	second := NewGonum()

	second.SetNumThreads(1)
	require.Equal(t, 1, runtime.GOMAXPROCS(0))
	require.Equal(t, 1, first.NumThreads())

	first.SetNumThreads(4)
	require.Equal(t, 4, runtime.GOMAXPROCS(0))
	require.Equal(t, 4, first.NumThreads())
	require.Equal(t, 4, second.NumThreads())
}

func TestSetNumThreadsIgnoresNonPositive(t *testing.T) {
	nb := NewNative()
	nb.SetNumThreads(4)
	nb.SetNumThreads(0)
	nb.SetNumThreads(-3)
	require.Equal(t, 4, nb.NumThreads())
}

func BenchmarkDgemm(b *testing.B) {
	rnd := rand.New(rand.NewPCG(113, 113))
	for _, name := range Names() {
		for _, size := range []int{64, 256, 512} {
			b.Run(fmt.Sprintf("%s/N_%d", name, size), func(b *testing.B) {
				backend, err := Lookup(name)
				if err != nil {
					b.Fatal(err)
				}
				a := randSlice(rnd, size*size)
				bb := randSlice(rnd, size*size)
				c := randSlice(rnd, size*size)

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := backend.Dgemm(ColMajor, blas.NoTrans, blas.NoTrans, size, size, size,
						1, a, size, bb, size, 0, c, size); err != nil {
						b.Fatal(err)
					}
				}

				flops := 2 * float64(size) * float64(size) * float64(size)
				timePerOp := b.Elapsed().Seconds() / float64(b.N)
				b.ReportMetric(flops/timePerOp/1e9, "GFLOPS")
			})
		}
	}
}
