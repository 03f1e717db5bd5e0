// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import "math/rand/v2"

// NewGenerator returns the operand generator. Every call returns a fresh
// generator in the same state, so two runs draw identical values.
func NewGenerator() *rand.Rand {
	return rand.New(rand.NewPCG(Seed, Seed))
}

// Scales returns alpha and beta. Random scales are drawn from rnd in that
// order; otherwise the plain product C = A*B is used.
func Scales(rnd *rand.Rand, random bool) (alpha, beta float64) {
	if !random {
		return 1, 0
	}
	alpha = rnd.Float64()
	beta = rnd.Float64()
	return alpha, beta
}

// Fill overwrites every element of the buffers, in order, with values in
// [0, 1) drawn from rnd.
func Fill(rnd *rand.Rand, bufs ...[]float64) {
	for _, buf := range bufs {
		for i := range buf {
			buf[i] = rnd.Float64()
		}
	}
}
