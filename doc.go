// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gemmbench measures the throughput of dense float64 matrix-matrix
// multiplication (GEMM).
//
// A Driver allocates three column-major operands, fills them from a PCG
// generator seeded with Seed, and times Rounds calls to a compute.Backend.
// The averaged time is turned into GFLOPs/s:
//
//	backend, _ := compute.Lookup("gonum")
//	cfg := gemmbench.PresetThreads.Config(8, gemmbench.Dims{M: 1024, N: 1024, K: 1024})
//	d, err := gemmbench.NewDriver(cfg, backend, gemmbench.WithOutput(os.Stdout))
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := d.Run(ctx)
//
// The three presets reproduce the classic driver variants: thread count
// from the command line with random scale factors, a single-threaded plain
// product, and an eight-thread accumulating product.
package gemmbench
