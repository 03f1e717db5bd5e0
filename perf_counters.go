// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"fmt"
	"strings"
)

// PerfCounters holds hardware counter totals over the timed multiplies.
type PerfCounters struct {
	Cycles       uint64 `json:"cycles,omitempty"`
	Instructions uint64 `json:"instructions,omitempty"`
	BranchMisses uint64 `json:"branch_misses,omitempty"`
	CacheMisses  uint64 `json:"cache_misses,omitempty"`
	LLCMisses    uint64 `json:"llc_misses,omitempty"`

	// Derived metrics
	IPC float64 `json:"ipc,omitempty"` // Instructions per cycle
}

// Add accumulates o into pc and refreshes the derived metrics.
func (pc *PerfCounters) Add(o PerfCounters) {
	pc.Cycles += o.Cycles
	pc.Instructions += o.Instructions
	pc.BranchMisses += o.BranchMisses
	pc.CacheMisses += o.CacheMisses
	pc.LLCMisses += o.LLCMisses
	pc.derive()
}

func (pc *PerfCounters) derive() {
	if pc.Cycles > 0 {
		pc.IPC = float64(pc.Instructions) / float64(pc.Cycles)
	}
}

// Empty reports whether nothing was counted.
func (pc *PerfCounters) Empty() bool {
	return pc.Cycles == 0 && pc.Instructions == 0 && pc.CacheMisses == 0
}

// String formats performance counters for display
func (pc *PerfCounters) String() string {
	var sb strings.Builder

	sb.WriteString("Performance Counters:\n")
	if pc.Cycles > 0 {
		fmt.Fprintf(&sb, "  CPU Cycles:        %d\n", pc.Cycles)
		fmt.Fprintf(&sb, "  Instructions:      %d\n", pc.Instructions)
		fmt.Fprintf(&sb, "  IPC:               %.2f\n", pc.IPC)
	}
	if pc.BranchMisses > 0 {
		fmt.Fprintf(&sb, "  Branch Misses:     %d\n", pc.BranchMisses)
	}
	if pc.CacheMisses > 0 {
		fmt.Fprintf(&sb, "  Cache Misses:      %d\n", pc.CacheMisses)
	}
	if pc.LLCMisses > 0 {
		fmt.Fprintf(&sb, "  LLC Read Misses:   %d\n", pc.LLCMisses)
	}

	return sb.String()
}

// CounterMonitor counts hardware events between Start and Stop.
type CounterMonitor interface {
	Start() error
	Stop() PerfCounters
}
