// Package scan implements the Scan Orchestrator: it resolves a target
// directory, runs the seven analyzers, and assembles the final report
// (spec.md §4.10). Per spec.md §5's explicit invitation to parallelize,
// the analyzers run concurrently, fanned out with sync.WaitGroup and
// per-analyzer panic/error isolation so one analyzer's failure never
// aborts the scan, mirroring the isolate-and-log idiom in the teacher's
// detection.Engine.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/credscan"
	"github.com/clawscan/clawscan/internal/injection"
	"github.com/clawscan/clawscan/internal/netscan"
	"github.com/clawscan/clawscan/internal/obfuscation"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/risk"
	"github.com/clawscan/clawscan/internal/scriptscan"
	"github.com/clawscan/clawscan/internal/skillmd"
	"github.com/clawscan/clawscan/internal/typosquat"
	"github.com/clawscan/clawscan/internal/walker"
)

// analyzerFunc is the common shape every analyzer is adapted to for the
// orchestrator's fan-out loop.
type analyzerFunc func(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error)

// analyzerEntry names one analyzer and its adapted function.
type analyzerEntry struct {
	name string
	fn   analyzerFunc
}

// AnalyzerNames returns the names of every analyzer the orchestrator runs,
// in the fixed order spec.md §4.10 specifies. Used by callers (e.g. the
// trust-store fast path) that need to report analyzers as skipped without
// running Scan.
func AnalyzerNames() []string {
	entries := analyzerEntries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func analyzerEntries() []analyzerEntry {
	return []analyzerEntry{
		{skillmd.Name, skillmd.Analyze},
		{scriptscan.Name, scriptscan.Analyze},
		{netscan.Name, netscan.Analyze},
		{credscan.Name, credscan.Analyze},
		{obfuscation.Name, obfuscation.Analyze},
		{typosquat.Name, typosquat.Analyze},
		{injection.Name, func(root string, _ *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
			return injection.Analyze(root, logger)
		}},
	}
}

// ProgressFunc receives one event per analyzer as it starts and finishes,
// letting a caller stream live progress (e.g. over the progress package's
// WebSocket hub) while a scan is still running.
type ProgressFunc func(analyzer, event, status string, findings int, elapsedMs int64)

// Options configures one Scan beyond its required target/catalog/logger,
// covering the pieces of internal/config.Config a scan actually consumes:
// the File Walker's size cap and extra extension globs (WalkerConfig),
// live progress events (ProgressConfig), and the Risk Aggregator's
// CLI-wrapper vocabulary extension (CLIWrapperConfig). The zero value
// runs a scan with every built-in default.
type Options struct {
	OnProgress                ProgressFunc
	ExtraCLIWrapperIndicators []string
	WalkerMaxFileSizeBytes    int64
	WalkerExtraEnvGlobs       []string
}

// Scan resolves target, runs every analyzer concurrently, and returns the
// assembled report. target must be a directory (either the skill root
// itself or a pre-materialized temp root prepared by the caller); an
// invalid target surfaces as an error before any analyzer runs, per
// spec.md §7.
func Scan(ctx context.Context, target string, cat *catalog.Catalog, logger *slog.Logger) (report.Report, error) {
	return ScanWithOptions(ctx, target, cat, logger, Options{})
}

// ScanWithProgress behaves like Scan but additionally invokes onProgress
// (if non-nil) as each analyzer starts and completes, and forwards
// extraCLIWrapperIndicators to risk.Aggregate to augment (never replace)
// its built-in CLI-wrapper vocabulary.
func ScanWithProgress(ctx context.Context, target string, cat *catalog.Catalog, logger *slog.Logger, onProgress ProgressFunc, extraCLIWrapperIndicators ...string) (report.Report, error) {
	return ScanWithOptions(ctx, target, cat, logger, Options{
		OnProgress:                onProgress,
		ExtraCLIWrapperIndicators: extraCLIWrapperIndicators,
	})
}

// ScanWithOptions behaves like Scan but accepts the full Options set.
// onProgress may be called concurrently from multiple analyzer
// goroutines and must be safe for that.
func ScanWithOptions(ctx context.Context, target string, cat *catalog.Catalog, logger *slog.Logger, opts Options) (report.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scan.Scan")

	root, err := resolveTarget(target)
	if err != nil {
		return report.Report{}, err
	}

	maxFileSize := opts.WalkerMaxFileSizeBytes
	if maxFileSize <= 0 {
		maxFileSize = walker.DefaultMaxFileSize
	}
	walker.Configure(maxFileSize, opts.WalkerExtraEnvGlobs)

	onProgress := opts.OnProgress
	entries := analyzerEntries()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		findings  []report.Finding
		analyzers = make([]report.AnalyzerResult, len(entries))
	)

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry analyzerEntry) {
			defer wg.Done()
			if onProgress != nil {
				onProgress(entry.name, "analyzer_start", "", 0, 0)
			}
			result, fs := runAnalyzer(entry, root, cat, logger)
			mu.Lock()
			analyzers[i] = result
			findings = append(findings, fs...)
			mu.Unlock()
			if onProgress != nil {
				onProgress(entry.name, "analyzer_done", string(result.Status), result.Findings, result.ElapsedMs)
			}
		}(i, entry)
	}
	wg.Wait()

	manifestText := readManifestBestEffort(root)
	riskResult := risk.Aggregate(findings, manifestText, logger, opts.ExtraCLIWrapperIndicators...)

	if onProgress != nil {
		onProgress("", "scan_done", string(riskResult.Level), len(findings), 0)
	}

	return report.Report{
		Target:    target,
		Path:      root,
		Timestamp: time.Now().UTC(),
		Findings:  findings,
		Analyzers: analyzers,
		Summary:   report.Summarize(findings),
		Risk:      riskResult,
	}, nil
}

// runAnalyzer invokes one analyzer with panic recovery, timing capture,
// and error isolation: a failing or panicking analyzer contributes zero
// findings and a status:error result but never aborts the scan.
func runAnalyzer(entry analyzerEntry, root string, cat *catalog.Catalog, logger *slog.Logger) (report.AnalyzerResult, []report.Finding) {
	start := time.Now()
	result := report.AnalyzerResult{Name: entry.name}

	var findings []report.Finding
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("analyzer panicked: %v", r)
			}
		}()
		var runErr error
		findings, runErr = entry.fn(root, cat, logger)
		return runErr
	}()

	result.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("analyzer failed", "analyzer", entry.name, "error", err)
		result.Status = report.StatusError
		result.Error = err.Error()
		return result, nil
	}

	result.Status = report.StatusOK
	result.Findings = len(findings)
	return result, findings
}

// resolveTarget validates that target is an existing directory and
// returns its absolute path. This is the only error path that propagates
// to the caller before any analyzer runs (spec.md §7).
func resolveTarget(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("invalid scan target %q: %w", target, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("invalid scan target %q: not a directory", target)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("invalid scan target %q: %w", target, err)
	}
	return abs, nil
}

func readManifestBestEffort(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "SKILL.md"))
	if err != nil {
		return ""
	}
	return string(data)
}
