// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gemmbench times repeated double-precision matrix multiplies and
// reports the achieved GFLOPs/s.
//
//	gemmbench [flags] <THREAD_NUM> <M> <N> <K>
//	gemmbench -preset serial|parallel8 [flags] <M> <N> <K>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/gemmbench"
	"github.com/LynnColeArt/gemmbench/compute"
)

// onExit registers process exit hooks.
var onExit = atexit.Register

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	onExit(stop)
	atexit.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gemmbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		presetName   = fs.String("preset", gemmbench.PresetThreads.Name, "Run preset: threads, serial or parallel8")
		backendName  = fs.String("backend", compute.GonumName, "GEMM backend ("+strings.Join(compute.Names(), ", ")+")")
		verbose      = fs.Bool("v", false, "Print every round (overrides the preset)")
		randomScales = fs.Bool("random-scales", false, "Draw random alpha and beta (overrides the preset)")
		flops        = fs.String("flops", "", "Operation count model: standard or accumulate (overrides the preset)")
		verify       = fs.Bool("verify", false, "Check one untimed multiply against the reference GEMM")
		cold         = fs.Bool("cold", false, "Evict CPU caches before every round")
		counters     = fs.Bool("counters", false, "Collect hardware performance counters (linux)")
		logDir       = fs.String("log-dir", "", "Append the report to a results log in this directory")
		session      = fs.String("session", "gemmbench", "Results log session name")
		summary      = fs.Bool("summary", false, "Print the results log summary after the run")
		logLevel     = fs.String("log-level", "warn", "Diagnostic log level")
		showVersion  = fs.Bool("version", false, "Print the version and exit")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *showVersion {
		version, sum := gemmbench.Version()
		if version == "" {
			version = "(devel)"
		}
		fmt.Fprintf(stdout, "gemmbench %s %s\n", version, sum)
		return 0
	}

	logger, err := newLogger(stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "gemmbench: %v\n", err)
		return 1
	}

	preset, ok := gemmbench.Presets[*presetName]
	if !ok {
		logger.Error().Str("preset", *presetName).Msg("unknown preset")
		return 1
	}

	cfg, err := parseArgs(preset, fs.Args())
	if err != nil {
		var gerr *gemmbench.Error
		if errors.As(err, &gerr) && gerr.Type == gemmbench.ErrTypeUsage {
			fmt.Fprintln(stdout, gerr.Message)
			return 1
		}
		logger.Error().Err(err).Msg("invalid arguments")
		return 1
	}

	var overrideErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Verbose = *verbose
		case "random-scales":
			cfg.RandomScales = *randomScales
		case "flops":
			cfg.FlopModel, overrideErr = gemmbench.ParseFlopModel(*flops)
		}
	})
	if overrideErr != nil {
		logger.Error().Err(overrideErr).Msg("invalid flag")
		return 1
	}
	cfg.Verify = *verify
	cfg.ColdCache = *cold
	cfg.Counters = *counters

	backend, err := compute.Lookup(*backendName)
	if err != nil {
		err = gemmbench.NewNotImplementedError("Lookup",
			fmt.Sprintf("backend %q is not available (have %s)", *backendName, strings.Join(compute.Names(), ", ")), err)
		logger.Error().Err(err).Msg("cannot select backend")
		return 1
	}

	opts := []gemmbench.Option{
		gemmbench.WithOutput(stdout),
		gemmbench.WithLogger(logger),
	}
	var results *gemmbench.ResultsLog
	if *logDir != "" {
		results, err = gemmbench.OpenResultsLog(*logDir, *session)
		if err != nil {
			logger.Error().Err(err).Msg("cannot open results log")
			return 1
		}
		closeResults := func() {
			if err := results.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close results log")
			}
		}
		// Close is idempotent, so the exit hook and the deferred close may both run.
		onExit(closeResults)
		defer closeResults()
		opts = append(opts, gemmbench.WithResultsLog(results))
	}

	d, err := gemmbench.NewDriver(cfg, backend, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	logger.Debug().
		Str("preset", preset.Name).
		Str("backend", backend.Name()).
		Str("cpu", gemmbench.CPUInfo()).
		Msg("starting benchmark")

	if _, err := d.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("benchmark failed")
		return 1
	}

	if *summary && results != nil {
		if err := gemmbench.PrintSummary(stdout, results.Path()); err != nil {
			logger.Error().Err(err).Msg("failed to print summary")
			return 1
		}
	}
	return 0
}

// usage is the message printed when the positional arguments are wrong.
func usage(p gemmbench.Preset) string {
	if p.ThreadsFromArgs() {
		return "Input error, ./mm <THREAD_NUM> M N K"
	}
	return "Input error, ./mm M N K"
}

// parseArgs turns the positional arguments into a Config for p. Presets
// that take the thread count need exactly four arguments; the others need
// at least three and ignore the rest.
func parseArgs(p gemmbench.Preset, args []string) (gemmbench.Config, error) {
	want := 3
	if p.ThreadsFromArgs() {
		if len(args) != 4 {
			return gemmbench.Config{}, gemmbench.NewUsageError("Args", usage(p))
		}
		want = 4
	} else if len(args) < 3 {
		return gemmbench.Config{}, gemmbench.NewUsageError("Args", usage(p))
	}

	vals := make([]int, want)
	for i := range vals {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return gemmbench.Config{}, gemmbench.NewUsageError("Args", usage(p))
		}
		vals[i] = v
	}

	threads := 0
	if p.ThreadsFromArgs() {
		threads, vals = vals[0], vals[1:]
	}
	return p.Config(threads, gemmbench.Dims{M: vals[0], N: vals[1], K: vals[2]}), nil
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: w != os.Stderr}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
