// Package scriptscan implements the Script Analyzer: it applies
// execution-pattern rules to script files and flags oversize files,
// unusual interpreters, and extension-less executables (spec.md §4.5).
package scriptscan

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/ruleengine"
	"github.com/clawscan/clawscan/internal/walker"
)

// Name identifies this analyzer in report.Finding.Analyzer and
// report.AnalyzerResult.Name.
const Name = "script"

var shebangPattern = regexp.MustCompile(`^#!\s*\S*/(?:env\s+)?(\w+)`)

var unusualInterpreters = map[string]bool{
	"perl":  true,
	"ruby":  true,
	"php":   true,
	"lua":   true,
	"tclsh": true,
}

// Analyze walks root for script-extension files, applies the execution
// rule group, and adds the shebang/large-file heuristics.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scriptscan.Analyze")

	matched, oversized, err := walker.WalkDetailed(root, walker.ScriptExtensions)
	if err != nil {
		return nil, err
	}

	var findings []report.Finding

	for _, f := range oversized {
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityWarning,
			File:     f.RelPath,
			Message:  "file exceeds the per-file size cap and was not scanned",
			RuleID:   "largeFile",
		})
	}

	for _, f := range matched {
		content, err := walker.ReadCapped(f.AbsPath)
		if err != nil {
			logger.Debug("skipping unreadable script file", "path", f.RelPath, "error", err)
			continue
		}
		text := string(content)

		findings = append(findings, ruleengine.Apply(Name, cat.Execution, f.RelPath, text)...)
		findings = append(findings, shebangFindings(f.RelPath, text)...)
	}

	// Extension-less files only get the shebang heuristics.
	all, err := walker.Walk(root, []string{""})
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if filepath.Ext(f.RelPath) != "" {
			continue
		}
		if content, err := walker.ReadCapped(f.AbsPath); err == nil {
			findings = append(findings, shebangFindings(f.RelPath, string(content))...)
		}
	}

	return findings, nil
}

func shebangFindings(relPath, content string) []report.Finding {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 {
		return nil
	}
	m := shebangPattern.FindStringSubmatch(lines[0])
	if m == nil {
		return nil
	}
	interpreter := strings.ToLower(m[1])

	var findings []report.Finding
	if unusualInterpreters[interpreter] {
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityInfo,
			File:     relPath,
			Line:     report.IntPtr(1),
			Message:  "unusual interpreter for a skill script: " + interpreter,
			RuleID:   "unusualInterpreter",
		})
	}
	if filepath.Ext(relPath) == "" {
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityInfo,
			File:     relPath,
			Line:     report.IntPtr(1),
			Message:  "shebanged file has no extension",
			RuleID:   "noExtension",
		})
	}
	return findings
}
