// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package gemmbench

import "errors"

// errNoCounters is returned where perf_event_open does not exist.
var errNoCounters = errors.New("hardware counters are only supported on linux")

type stubMonitor struct{}

// NewCounterMonitor returns a monitor that never starts on this platform.
func NewCounterMonitor() CounterMonitor { return stubMonitor{} }

func (stubMonitor) Start() error { return errNoCounters }

func (stubMonitor) Stop() PerfCounters { return PerfCounters{} }
