// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package gemmbench

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

type perfEventConfig struct {
	name   string
	typ    uint32
	config uint64
}

// Syscall entry points, swapped in tests.
var (
	perfEventOpen = unix.PerfEventOpen
	ioctlSetInt   = unix.IoctlSetInt
)

// LinuxPerfMonitor reads hardware counters through perf_event_open.
// Counters are opened for the calling thread (pid 0) with inherit set, so
// they cover that thread and threads it creates after Start. Worker threads
// the runtime or a BLAS library already started are not counted, and totals
// for multithreaded backends are a lower bound. The OS thread is locked
// between Start and Stop.
type LinuxPerfMonitor struct {
	fds      []int
	counters []perfEventConfig
}

// NewCounterMonitor returns the platform counter monitor.
func NewCounterMonitor() CounterMonitor {
	return &LinuxPerfMonitor{
		counters: []perfEventConfig{
			{"cycles", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
			{"instructions", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
			{"branch-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
			{"cache-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
			{"LLC-misses", unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_LL,
				unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS)},
		},
	}
}

// cacheConfig creates a cache event configuration
func cacheConfig(cache, op, result int) uint64 {
	return uint64(cache) | (uint64(op) << 8) | (uint64(result) << 16)
}

// Start opens, resets and enables every counter.
func (pm *LinuxPerfMonitor) Start() error {
	pm.closeAll()
	runtime.LockOSThread()

	pm.fds = make([]int, 0, len(pm.counters))
	for _, counter := range pm.counters {
		attr := &unix.PerfEventAttr{
			Type:   counter.typ,
			Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
			Config: counter.config,
			Bits:   unix.PerfBitDisabled | unix.PerfBitInherit | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		}

		fd, err := perfEventOpen(attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			pm.closeAll()
			runtime.UnlockOSThread()
			return fmt.Errorf("failed to open perf event %s: %w", counter.name, err)
		}
		pm.fds = append(pm.fds, fd)
	}

	for i, fd := range pm.fds {
		if err := ioctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
			pm.closeAll()
			runtime.UnlockOSThread()
			return fmt.Errorf("failed to reset perf event %s: %w", pm.counters[i].name, err)
		}
		if err := ioctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			pm.closeAll()
			runtime.UnlockOSThread()
			return fmt.Errorf("failed to enable perf event %s: %w", pm.counters[i].name, err)
		}
	}
	return nil
}

// Stop disables the counters and returns their values.
func (pm *LinuxPerfMonitor) Stop() PerfCounters {
	var counters PerfCounters
	if len(pm.fds) == 0 {
		return counters
	}
	defer runtime.UnlockOSThread()

	for _, fd := range pm.fds {
		ioctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
	}

	var buf [8]byte
	for i, fd := range pm.fds {
		n, err := unix.Read(fd, buf[:])
		if err != nil || n != len(buf) {
			continue
		}
		value := binary.NativeEndian.Uint64(buf[:])
		switch pm.counters[i].name {
		case "cycles":
			counters.Cycles = value
		case "instructions":
			counters.Instructions = value
		case "branch-misses":
			counters.BranchMisses = value
		case "cache-misses":
			counters.CacheMisses = value
		case "LLC-misses":
			counters.LLCMisses = value
		}
	}
	pm.closeAll()

	counters.derive()
	return counters
}

func (pm *LinuxPerfMonitor) closeAll() {
	for _, fd := range pm.fds {
		unix.Close(fd)
	}
	pm.fds = nil
}
