// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ResultsLog collects the reports of one session in a JSON file.
// The whole file is rewritten on every append so a crash loses at most
// the run in flight.
type ResultsLog struct {
	mu      sync.Mutex
	path    string
	reports []Report
	closed  bool
}

// OpenResultsLog creates dir if needed and starts a new session file named
// <session>_<YYYYMMDD_HHMMSS>.json.
func OpenResultsLog(dir, session string) (*ResultsLog, error) {
	if session == "" {
		return nil, NewInvalidArgError("OpenResultsLog", "session name is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	l := &ResultsLog{
		path:    filepath.Join(dir, fmt.Sprintf("%s_%s.json", session, timestamp)),
		reports: []Report{},
	}
	if err := l.flush(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the session file.
func (l *ResultsLog) Path() string { return l.path }

// Append records r and writes the session file.
func (l *ResultsLog) Append(r Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.New("results log is closed")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	l.reports = append(l.reports, r)
	return l.flush()
}

// Close writes the session file a final time. Later appends fail.
func (l *ResultsLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.flush()
}

func (l *ResultsLog) flush() error {
	data, err := json.MarshalIndent(l.reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}

// LatestLog returns the most recently modified session file in dir.
func LatestLog(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no log files found in %s", dir)
	}

	var latest string
	var latestTime time.Time
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = file
			latestTime = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no readable log files found in %s", dir)
	}
	return latest, nil
}

// LoadReports reads a session file.
func LoadReports(file string) ([]Report, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var reports []Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return reports, nil
}

// PrintSummary writes a table of the reports in file.
func PrintSummary(w io.Writer, file string) error {
	reports, err := LoadReports(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nBenchmark Summary from %s:\n", filepath.Base(file))
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "%-10s %7s %-22s %-10s %10s %12s\n",
		"Backend", "Threads", "Dims", "Model", "Avg (us)", "GFLOPs/s")
	fmt.Fprintln(w, strings.Repeat("-", 78))

	best := 0.0
	for _, r := range reports {
		fmt.Fprintf(w, "%-10s %7d %-22s %-10s %10d %12.3f\n",
			r.Backend, r.Threads, fmt.Sprintf("%dx%dx%d", r.Dims.M, r.Dims.N, r.Dims.K),
			r.FlopModel, r.AverageMicros, r.GFLOPS)
		best = max(best, r.GFLOPS)
	}

	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "Total: %d | Best: %.3f GFLOPs/s\n", len(reports), best)
	return nil
}
