// Package ruleengine applies a table of compiled rules to a file's text,
// line by line, producing report.Finding values. This is the hot path
// shared by the Script, Network, Credentials, and Obfuscation analyzers
// (spec.md §4.2); every rule/file combination reuses the pre-compiled
// regex from internal/catalog rather than compiling per line.
package ruleengine

import (
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/report"
)

// MaxMatchLen is the cap applied to the trimmed match snippet attached to
// a Finding.
const MaxMatchLen = 120

// Apply runs every rule in rules against content, split by "\n" (line
// splitting is LF-based; a trailing CR is left attached to the line, per
// spec.md §4.2). analyzer names the emitting analyzer. Multiple rules may
// fire on the same line; each produces its own Finding.
func Apply(analyzer string, rules []catalog.Rule, relPath, content string) []report.Finding {
	lines := strings.Split(content, "\n")
	var findings []report.Finding

	for _, rule := range rules {
		for i, line := range lines {
			if !rule.Regex.MatchString(line) {
				continue
			}
			match := rule.Regex.FindString(line)
			lineNo := i + 1
			findings = append(findings, report.Finding{
				Analyzer: analyzer,
				Severity: rule.Severity,
				File:     relPath,
				Line:     report.IntPtr(lineNo),
				Message:  rule.Description,
				RuleID:   rule.ID,
				Match:    TruncateMatch(match, MaxMatchLen),
			})
		}
	}
	return findings
}

// TruncateMatch trims whitespace from s and truncates it to maxLen
// characters, appending "..." when truncated.
func TruncateMatch(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
