// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command compare compares a results log against a baseline log
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/gemmbench"
)

// Comparison statuses
const (
	StatusPass    = "PASS"
	StatusSlower  = "SLOWER"
	StatusFaster  = "FASTER"
	StatusMissing = "MISSING"
)

type ComparisonResult struct {
	Key    string
	Status string

	BaselineGFLOPS float64
	CurrentGFLOPS  float64
	SpeedupFactor  float64

	Message string
}

func main() {
	atexit.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		baselineFile = fs.String("baseline", "baseline.json", "Baseline results log")
		currentFile  = fs.String("current", "", "Current results log (default: latest log in -log-dir)")
		logDir       = fs.String("log-dir", "benchmark_logs", "Directory searched when -current is not set")
		perfRegress  = fs.Float64("perf-regress", 1.1, "Performance regression threshold (1.1 = 10% slower)")
		perfImprove  = fs.Float64("perf-improve", 1.2, "Improvement threshold (1.2 = 20% faster)")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).With().Timestamp().Logger()

	if *perfRegress < 1 || *perfImprove < 1 {
		logger.Error().Float64("perf-regress", *perfRegress).Float64("perf-improve", *perfImprove).
			Msg("thresholds must be at least 1")
		return 1
	}

	baseline, err := gemmbench.LoadReports(*baselineFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load baseline")
		return 1
	}

	if *currentFile == "" {
		*currentFile, err = gemmbench.LatestLog(*logDir)
		if err != nil {
			logger.Error().Err(err).Msg("no current results")
			return 1
		}
	}
	current, err := gemmbench.LoadReports(*currentFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load current results")
		return 1
	}

	comparisons := compareResults(baseline, current, *perfRegress, *perfImprove)
	printSummary(stdout, comparisons)

	for _, comp := range comparisons {
		if comp.Status == StatusMissing {
			return 1
		}
	}
	return 0
}

// compareResults matches reports by backend, threads, shape and flop
// model. When a log holds several reports for one key the last one wins.
func compareResults(baseline, current []gemmbench.Report, perfRegress, perfImprove float64) []ComparisonResult {
	currentMap := make(map[string]gemmbench.Report, len(current))
	for _, r := range current {
		currentMap[r.Key()] = r
	}

	comparisons := make([]ComparisonResult, 0, len(baseline))
	seen := make(map[string]bool, len(baseline))
	for i := len(baseline) - 1; i >= 0; i-- {
		base := baseline[i]
		key := base.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		comp := ComparisonResult{
			Key:            key,
			BaselineGFLOPS: base.GFLOPS,
		}

		curr, exists := currentMap[key]
		if !exists {
			comp.Status = StatusMissing
			comp.Message = "Missing in current results"
			comparisons = append(comparisons, comp)
			continue
		}

		comp.CurrentGFLOPS = curr.GFLOPS
		if base.GFLOPS <= 0 {
			// No ratio exists against an empty baseline.
			comp.Status = StatusPass
			comp.Message = "Baseline has no throughput"
			comparisons = append(comparisons, comp)
			continue
		}
		comp.SpeedupFactor = curr.GFLOPS / base.GFLOPS

		switch {
		case comp.SpeedupFactor < 1.0/perfRegress:
			comp.Status = StatusSlower
			comp.Message = "Performance regression: no throughput"
			if comp.SpeedupFactor > 0 {
				comp.Message = fmt.Sprintf("Performance regression: %.2fx slower", 1.0/comp.SpeedupFactor)
			}
		case comp.SpeedupFactor > perfImprove:
			comp.Status = StatusFaster
			comp.Message = fmt.Sprintf("Performance improvement: %.2fx faster", comp.SpeedupFactor)
		default:
			comp.Status = StatusPass
		}
		comparisons = append(comparisons, comp)
	}

	// Restore log order.
	for i, j := 0, len(comparisons)-1; i < j; i, j = i+1, j-1 {
		comparisons[i], comparisons[j] = comparisons[j], comparisons[i]
	}
	return comparisons
}

func printSummary(w io.Writer, comparisons []ComparisonResult) {
	fmt.Fprintln(w, "=== GEMM Benchmark Comparison ===")
	fmt.Fprintln(w)

	statusCount := make(map[string]int)
	for _, comp := range comparisons {
		statusCount[comp.Status]++
	}

	fmt.Fprintf(w, "Total entries: %d\n", len(comparisons))
	for _, s := range []string{StatusPass, StatusSlower, StatusFaster, StatusMissing} {
		fmt.Fprintf(w, "  %-8s %d\n", s+":", statusCount[s])
	}
	fmt.Fprintln(w)

	if statusCount[StatusMissing] > 0 {
		fmt.Fprintln(w, "MISSING:")
		for _, comp := range comparisons {
			if comp.Status == StatusMissing {
				fmt.Fprintf(w, "  %s: %s\n", comp.Key, comp.Message)
			}
		}
		fmt.Fprintln(w)
	}

	if statusCount[StatusSlower] > 0 || statusCount[StatusFaster] > 0 {
		fmt.Fprintln(w, "PERFORMANCE CHANGES:")
		for _, comp := range comparisons {
			if comp.Status == StatusSlower || comp.Status == StatusFaster {
				fmt.Fprintf(w, "  %s: %s (%.3f -> %.3f GFLOPs/s)\n",
					comp.Key, comp.Message, comp.BaselineGFLOPS, comp.CurrentGFLOPS)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "DETAILED RESULTS:")
	fmt.Fprintf(w, "%-40s %-7s %10s %10s %8s\n", "Benchmark", "Status", "Baseline", "Current", "Speedup")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, comp := range comparisons {
		fmt.Fprintf(w, "%-40s %-7s %10.3f %10.3f %8.2f\n",
			comp.Key, comp.Status, comp.BaselineGFLOPS, comp.CurrentGFLOPS, comp.SpeedupFactor)
	}
}
