// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"fmt"
	"math"
)

// Benchmark constants
const (
	// Rounds is the number of timed multiplies averaged per run.
	Rounds = 5

	// Seed seeds the operand generator so workloads repeat across runs.
	Seed = 113
)

// Cache sizes used by the cold-cache flush (in bytes)
const (
	// L3CacheSize is a typical shared last-level cache.
	L3CacheSize = 8 * 1024 * 1024 // 8MB

	// FlushSize is large enough to evict most L3 caches.
	FlushSize = 64 * 1024 * 1024 // 64MB

	// CacheLineSize is the stride used to touch memory.
	CacheLineSize = 64
)

// Dims are the GEMM dimensions: A is M x K, B is K x N and C is M x N.
type Dims struct {
	M int `json:"m"`
	N int `json:"n"`
	K int `json:"k"`
}

// Validate reports non-positive dimensions and buffer sizes that would
// overflow int.
func (d Dims) Validate() error {
	if d.M <= 0 || d.N <= 0 || d.K <= 0 {
		return NewInvalidArgError("Dims", fmt.Sprintf("dimensions must be positive, got M=%d N=%d K=%d", d.M, d.N, d.K))
	}
	for _, p := range [][2]int{{d.M, d.K}, {d.K, d.N}, {d.M, d.N}} {
		if p[0] > math.MaxInt/p[1] {
			return NewInvalidArgError("Dims", fmt.Sprintf("buffer size %d x %d overflows int", p[0], p[1]))
		}
	}
	return nil
}

func (d Dims) String() string {
	return fmt.Sprintf("M=%d N=%d K=%d", d.M, d.N, d.K)
}

// FlopModel selects how many floating-point operations a multiply counts.
type FlopModel int

const (
	// FlopStandard counts one multiply and one add per output element per
	// inner step: 2*M*N*K.
	FlopStandard FlopModel = iota
	// FlopAccumulate also counts the alpha and beta scaling of the
	// accumulate form: M*N*(1+3*K).
	FlopAccumulate
)

// ParseFlopModel maps "standard" and "accumulate" to a FlopModel.
func ParseFlopModel(s string) (FlopModel, error) {
	switch s {
	case "standard", "":
		return FlopStandard, nil
	case "accumulate":
		return FlopAccumulate, nil
	default:
		return 0, NewInvalidArgError("ParseFlopModel", fmt.Sprintf("unknown flop model %q", s))
	}
}

func (f FlopModel) String() string {
	switch f {
	case FlopStandard:
		return "standard"
	case FlopAccumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("FlopModel(%d)", int(f))
	}
}

// Formula is the human-readable operation count expression.
func (f FlopModel) Formula() string {
	if f == FlopAccumulate {
		return "M * N * (1+3*K)"
	}
	return "2 * M * N * K"
}

// Count returns the operation count of one multiply with dimensions d.
// It is computed in float64 so large shapes cannot overflow.
func (f FlopModel) Count(d Dims) float64 {
	m, n, k := float64(d.M), float64(d.N), float64(d.K)
	if f == FlopAccumulate {
		return m * n * (1 + 3*k)
	}
	return 2 * m * n * k
}

// MarshalText makes FlopModel readable in the results log.
func (f FlopModel) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a FlopModel written by MarshalText.
func (f *FlopModel) UnmarshalText(b []byte) error {
	v, err := ParseFlopModel(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Config is the immutable description of one benchmark run.
type Config struct {
	Threads      int
	Dims         Dims
	RandomScales bool
	Verbose      bool
	FlopModel    FlopModel

	// Verify checks one untimed multiply against the reference GEMM.
	Verify bool
	// ColdCache evicts the caches before every timed round.
	ColdCache bool
	// Counters collects hardware performance counters around each round.
	Counters bool
}

// Validate checks the thread count and dimensions.
func (c Config) Validate() error {
	if c.Threads <= 0 {
		return NewInvalidArgError("Config", fmt.Sprintf("thread count must be positive, got %d", c.Threads))
	}
	return c.Dims.Validate()
}

// Preset is a named configuration equivalent to one of the classic
// benchmark drivers. A zero Threads means the thread count comes from the
// command line.
type Preset struct {
	Name         string
	Threads      int
	RandomScales bool
	Verbose      bool
	FlopModel    FlopModel
}

var (
	// PresetThreads takes the thread count as an argument and uses random
	// scale factors. It prints a single summary line.
	PresetThreads = Preset{Name: "threads", RandomScales: true}

	// PresetSerial runs one thread on the plain product C = A*B and prints
	// every round.
	PresetSerial = Preset{Name: "serial", Threads: 1, Verbose: true}

	// PresetParallel8 runs eight threads on the scaled accumulate form and
	// counts the scaling in its operation count.
	PresetParallel8 = Preset{Name: "parallel8", Threads: 8, RandomScales: true, Verbose: true, FlopModel: FlopAccumulate}
)

// Presets lists the presets by name.
var Presets = map[string]Preset{
	PresetThreads.Name:   PresetThreads,
	PresetSerial.Name:    PresetSerial,
	PresetParallel8.Name: PresetParallel8,
}

// ThreadsFromArgs reports whether the thread count is a positional
// argument.
func (p Preset) ThreadsFromArgs() bool { return p.Threads == 0 }

// Config builds a Config from the preset. threads is used only when the
// preset does not fix the thread count.
func (p Preset) Config(threads int, dims Dims) Config {
	if !p.ThreadsFromArgs() {
		threads = p.Threads
	}
	return Config{
		Threads:      threads,
		Dims:         dims,
		RandomScales: p.RandomScales,
		Verbose:      p.Verbose,
		FlopModel:    p.FlopModel,
	}
}
