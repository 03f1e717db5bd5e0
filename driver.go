// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/blas"

	"github.com/LynnColeArt/gemmbench/compute"
)

// Driver runs the timed GEMM loop for one Config against one backend.
type Driver struct {
	cfg     Config
	backend compute.Backend

	log     zerolog.Logger
	out     io.Writer
	pool    *BufferPool
	now     func() time.Time
	results *ResultsLog
	monitor CounterMonitor
	tol     ToleranceConfig
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithOutput sets where the report text is written. The default discards it.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithPool shares a BufferPool between drivers.
func WithPool(p *BufferPool) Option {
	return func(d *Driver) { d.pool = p }
}

// WithClock replaces time.Now for the round timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithResultsLog appends every report to l.
func WithResultsLog(l *ResultsLog) Option {
	return func(d *Driver) { d.results = l }
}

// WithCounterMonitor replaces the platform counter monitor used when
// Config.Counters is set.
func WithCounterMonitor(m CounterMonitor) Option {
	return func(d *Driver) { d.monitor = m }
}

// WithTolerance sets the verification tolerance.
func WithTolerance(tol ToleranceConfig) Option {
	return func(d *Driver) { d.tol = tol }
}

// NewDriver validates cfg and binds it to backend.
func NewDriver(cfg Config, backend compute.Backend, opts ...Option) (*Driver, error) {
	if backend == nil {
		return nil, NewInvalidArgError("NewDriver", "backend is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:     cfg,
		backend: backend,
		log:     zerolog.Nop(),
		out:     io.Discard,
		now:     time.Now,
		tol:     DefaultTolerance(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.pool == nil {
		d.pool = NewBufferPool()
	}
	if cfg.Counters && d.monitor == nil {
		d.monitor = NewCounterMonitor()
	}
	return d, nil
}

// Run configures the backend, prepares the operands and times Rounds
// multiplies. The context is checked between rounds; a multiply in flight
// always completes. Operands are released on every return path.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	cfg := d.cfg
	m, n, k := cfg.Dims.M, cfg.Dims.N, cfg.Dims.K
	log := d.log.With().
		Str("backend", d.backend.Name()).
		Int("threads", cfg.Threads).
		Stringer("dims", cfg.Dims).
		Logger()

	d.backend.SetNumThreads(cfg.Threads)

	ws, err := NewWorkspace(d.pool, cfg.Dims)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Error().Err(err).Msg("failed to release operands")
		}
	}()

	rnd := NewGenerator()
	alpha, beta := Scales(rnd, cfg.RandomScales)
	Fill(rnd, ws.A, ws.B, ws.C)
	log.Debug().Float64("alpha", alpha).Float64("beta", beta).Msg("operands initialized")

	report := &Report{
		Backend:   d.backend.Name(),
		Threads:   cfg.Threads,
		Dims:      cfg.Dims,
		Alpha:     alpha,
		Beta:      beta,
		Rounds:    Rounds,
		FlopModel: cfg.FlopModel,
		CPU:       CPUInfo(),
	}

	if cfg.Verify {
		res, err := VerifyBackend(d.backend, ws, cfg.Dims, alpha, beta, d.tol)
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, NewNumericalError("Verify", res.String())
		}
		log.Info().Float64("checksum", res.Checksum).Msg("result matches reference")
		report.Verified = true
	}

	var flusher *cacheFlusher
	if cfg.ColdCache {
		flusher = newCacheFlusher(FlushSize)
	}
	monitor := d.monitor
	var counters PerfCounters

	if cfg.Verbose {
		writeHeader(d.out, cfg.Threads, cfg.Dims)
	}

	var total int64
	for round := 0; round < Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, NewExecutionError("Run",
				fmt.Sprintf("stopped after %d of %d rounds", round, Rounds), err)
		}
		if flusher != nil {
			flusher.Flush()
		}
		counting := false
		if monitor != nil {
			if err := monitor.Start(); err != nil {
				log.Warn().Err(err).Msg("hardware counters unavailable, continuing without them")
				monitor = nil
			} else {
				counting = true
			}
		}

		start := d.now()
		err := d.backend.Dgemm(compute.ColMajor, blas.NoTrans, blas.NoTrans, m, n, k,
			alpha, ws.A, m, ws.B, k, beta, ws.C, m)
		finish := d.now()

		if counting {
			counters.Add(monitor.Stop())
		}
		if err != nil {
			return nil, NewExecutionError("Run", d.backend.Name()+" rejected arguments", err)
		}

		micros := finish.Sub(start).Microseconds()
		total += micros
		log.Debug().Int("round", round).Int64("us", micros).Msg("round complete")
		if cfg.Verbose {
			writeRound(d.out, round, micros)
		}
	}

	report.TotalMicros = total
	report.AverageMicros = total / Rounds
	report.FLOPs = cfg.FlopModel.Count(cfg.Dims)
	report.GFLOPS = GFLOPS(cfg.FlopModel, cfg.Dims, report.AverageMicros)
	if !counters.Empty() {
		report.Counters = &counters
	}
	report.Timestamp = time.Now()

	if cfg.Verbose {
		writeDetail(d.out, report)
	}
	if err := WriteSummary(d.out, report); err != nil {
		return nil, NewExecutionError("Run", "failed to write report", err)
	}

	if d.results != nil {
		if err := d.results.Append(*report); err != nil {
			log.Error().Err(err).Str("file", d.results.Path()).Msg("failed to append to results log")
		}
	}

	inUse, peak := d.pool.Stats()
	log.Info().
		Float64("gflops", report.GFLOPS).
		Int64("average_us", report.AverageMicros).
		Int64("pool_bytes", inUse).
		Int64("pool_peak_bytes", peak).
		Msg("run complete")
	return report, nil
}
