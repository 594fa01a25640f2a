// Package obfuscation implements the Obfuscation Analyzer: long-line,
// hex-identifier, and known-obfuscator-signature heuristics layered on
// top of the obfuscation regex rule group (spec.md §4.5).
package obfuscation

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

// Name identifies this analyzer.
const Name = "obfuscation"

// LongLineThreshold is the character count above which a line triggers a
// longLine finding (skipped for .json files).
const LongLineThreshold = 500

// HexIdentThreshold is the number of `_0x...` identifier occurrences in a
// file above which a jsObfuscator finding fires. 3 occurrences: no
// finding; 4: finding (spec.md §8).
const HexIdentThreshold = 3

var hexIdentPattern = regexp.MustCompile(`_0x[0-9a-f]+`)

var obfuscatorSignatures = []string{
	"javascript-obfuscator",
	"JSFuck",
	"jjencode",
	"aaencode",
	"pyarmor",
	"pyobfuscate",
}

// Analyze walks root for broad-set files and applies the obfuscation
// rule group plus the long-line/hex-identifier/signature heuristics.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "obfuscation.Analyze")

	files, err := walker.Walk(root, walker.BroadExtensions())
	if err != nil {
		return nil, err
	}

	var findings []report.Finding
	for _, f := range files {
		content, err := walker.ReadCapped(f.AbsPath)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", f.RelPath, "error", err)
			continue
		}
		text := string(content)

		findings = append(findings, ruleengine.Apply(Name, cat.Obfuscation, f.RelPath, text)...)
		findings = append(findings, longLineFinding(f.RelPath, text))
		findings = append(findings, hexIdentifierFinding(f.RelPath, text))
		findings = append(findings, signatureFindings(f.RelPath, text)...)
	}
	// findings may contain nil-valued slots from the helpers above when no
	// finding applies; compact them out.
	return compact(findings), nil
}

func compact(findings []report.Finding) []report.Finding {
	out := findings[:0]
	for _, f := range findings {
		if f.RuleID == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func longLineFinding(relPath, content string) report.Finding {
	if strings.EqualFold(filepath.Ext(relPath), ".json") {
		return report.Finding{}
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if len(line) > LongLineThreshold {
			return report.Finding{
				Analyzer: Name,
				Severity: report.SeverityWarning,
				File:     relPath,
				Line:     report.IntPtr(i + 1),
				Message:  "unusually long line, possibly obfuscated or minified",
				RuleID:   "longLine",
			}
		}
	}
	return report.Finding{}
}

func hexIdentifierFinding(relPath, content string) report.Finding {
	matches := hexIdentPattern.FindAllStringIndex(content, -1)
	if len(matches) <= HexIdentThreshold {
		return report.Finding{}
	}
	lineNo := 1 + strings.Count(content[:matches[0][0]], "\n")
	return report.Finding{
		Analyzer: Name,
		Severity: report.SeverityCritical,
		File:     relPath,
		Line:     report.IntPtr(lineNo),
		Message:  "repeated hex-style identifiers suggest JavaScript obfuscation",
		RuleID:   "jsObfuscator",
	}
}

func signatureFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		for _, sig := range obfuscatorSignatures {
			if strings.Contains(line, sig) {
				findings = append(findings, report.Finding{
					Analyzer: Name,
					Severity: report.SeverityCritical,
					File:     relPath,
					Line:     report.IntPtr(i + 1),
					Message:  "reference to known obfuscation tool: " + sig,
					RuleID:   "obfuscationTool",
					Match:    ruleengine.TruncateMatch(line, ruleengine.MaxMatchLen),
				})
			}
		}
	}
	return findings
}
