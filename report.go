// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"fmt"
	"io"
	"time"
)

// Report is the outcome of one run.
type Report struct {
	Backend       string        `json:"backend"`
	Threads       int           `json:"threads"`
	Dims          Dims          `json:"dims"`
	Alpha         float64       `json:"alpha"`
	Beta          float64       `json:"beta"`
	Rounds        int           `json:"rounds"`
	TotalMicros   int64         `json:"total_us"`
	AverageMicros int64         `json:"average_us"`
	FlopModel     FlopModel     `json:"flop_model"`
	FLOPs         float64       `json:"flops"`
	GFLOPS        float64       `json:"gflops"`
	Verified      bool          `json:"verified,omitempty"`
	Counters      *PerfCounters `json:"counters,omitempty"`
	CPU           string        `json:"cpu,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// GFLOPS converts an average multiply time in microseconds into billions
// of operations per second. Averages below the 1us timer resolution are
// treated as 1us so the result stays finite.
func GFLOPS(model FlopModel, dims Dims, averageMicros int64) float64 {
	if averageMicros < 1 {
		averageMicros = 1
	}
	// flops / (us * 1e-6) / 1e9 == flops * 1e-3 / us
	return model.Count(dims) * 1e-3 / float64(averageMicros)
}

// Key identifies comparable reports across sessions.
func (r Report) Key() string {
	return fmt.Sprintf("%s/t%d/%dx%dx%d/%s", r.Backend, r.Threads, r.Dims.M, r.Dims.N, r.Dims.K, r.FlopModel)
}

// WriteSummary prints the one-line result followed by a blank line.
func WriteSummary(w io.Writer, r *Report) error {
	_, err := fmt.Fprintf(w, "ThreadNum=%d M=%d N=%d K=%d, Performance: %.3f GFLOPs/s\n\n",
		r.Threads, r.Dims.M, r.Dims.N, r.Dims.K, r.GFLOPS)
	return err
}

func writeHeader(w io.Writer, threads int, dims Dims) {
	fmt.Fprintf(w, "ThreadNum=%d M=%d N=%d K=%d\n", threads, dims.M, dims.N, dims.K)
}

func writeRound(w io.Writer, round int, micros int64) {
	fmt.Fprintf(w, "Round %d: %d ms\n", round, micros/1000)
}

// writeDetail prints the averaged time and operation count of a verbose run.
func writeDetail(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Average: %d ms\n", r.AverageMicros/1000)
	fmt.Fprintf(w, "FLOPs: %.0f (%s), time = %d us\n", r.FLOPs, r.FlopModel.Formula(), r.AverageMicros)
	if r.Counters != nil && !r.Counters.Empty() {
		fmt.Fprint(w, r.Counters.String())
	}
}
