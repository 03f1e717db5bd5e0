// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks instruction set extensions that matter to float64
// GEMM kernels.
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX     bool
	HasAVX2    bool
	HasFMA     bool
	HasAVX512F bool // Foundation
	HasASIMD   bool // arm64 Advanced SIMD
	HasSVE     bool
}

// DetectCPUFeatures reads the feature flags of the running CPU.
func DetectCPUFeatures() CPUFeatures {
	return CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasFMA:     cpu.X86.HasFMA,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasASIMD:   cpu.ARM64.HasASIMD,
		HasSVE:     cpu.ARM64.HasSVE,
	}
}

// Names lists the detected features.
func (f CPUFeatures) Names() []string {
	var names []string
	for _, feat := range []struct {
		name string
		ok   bool
	}{
		{"SSE4", f.HasSSE4},
		{"AVX", f.HasAVX},
		{"AVX2", f.HasAVX2},
		{"FMA", f.HasFMA},
		{"AVX512F", f.HasAVX512F},
		{"ASIMD", f.HasASIMD},
		{"SVE", f.HasSVE},
	} {
		if feat.ok {
			names = append(names, feat.name)
		}
	}
	return names
}

// CPUInfo returns a one-line description of the host for reports.
func CPUInfo() string {
	names := DetectCPUFeatures().Names()
	if len(names) == 0 {
		return runtime.GOARCH + " (no SIMD extensions detected)"
	}
	return runtime.GOARCH + " " + strings.Join(names, ",")
}
