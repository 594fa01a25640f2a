// Package credscan implements the Credentials Analyzer: high-entropy
// secret heuristics layered on top of the credentials regex rule group
// (spec.md §4.5).
package credscan

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/ruleengine"
	"github.com/clawscan/clawscan/internal/walker"
)

// Name identifies this analyzer.
const Name = "credentials"

// MaxSnippetLen is the truncation length for secret-heuristic match
// snippets, shorter than ruleengine.MaxMatchLen to avoid echoing whole
// secrets into a report.
const MaxSnippetLen = 40

var (
	quotedBase64 = regexp.MustCompile(`["']([A-Za-z0-9+/]{40,}={0,2})["']`)
	quotedHex    = regexp.MustCompile(`["']([0-9a-fA-F]{32,})["']`)
	// passwordAssignment matches `password = "value"` style assignments
	// (also token/secret/apikey spellings), but not CLI flag mentions like
	// "--password" used as a bare option name.
	passwordAssignment = regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*["']([^"']{8,})["']`)
	cliFlagMention      = regexp.MustCompile(`(?i)--(password|passwd|secret|api[_-]?key|token)\b`)
)

// Analyze walks root for broad-set files and applies the credentials
// rule group plus the base64/hex/password-assignment heuristics.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "credscan.Analyze")

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

		findings = append(findings, ruleengine.Apply(Name, cat.Credentials, f.RelPath, text)...)
		findings = append(findings, entropyFindings(f.RelPath, text)...)
	}
	return findings, nil
}

func entropyFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		lineNo := i + 1

		if m := quotedBase64.FindStringSubmatch(line); m != nil {
			findings = append(findings, secretFinding(relPath, lineNo, m[1], "highEntropyBase64", "quoted base64-looking string of 40+ characters"))
		}
		if m := quotedHex.FindStringSubmatch(line); m != nil {
			findings = append(findings, secretFinding(relPath, lineNo, m[1], "highEntropyHex", "quoted hex-looking string of 32+ characters"))
		}
		if cliFlagMention.MatchString(line) {
			continue
		}
		if m := passwordAssignment.FindStringSubmatch(line); m != nil {
			findings = append(findings, secretFinding(relPath, lineNo, m[2], "hardcodedSecret", "hardcoded "+strings.ToLower(m[1])+" assignment"))
		}
	}
	return findings
}

func secretFinding(relPath string, lineNo int, match, ruleID, desc string) report.Finding {
	return report.Finding{
		Analyzer: Name,
		Severity: report.SeverityWarning,
		File:     relPath,
		Line:     report.IntPtr(lineNo),
		Message:  desc,
		RuleID:   ruleID,
		Match:    ruleengine.TruncateMatch(match, MaxSnippetLen),
	}
}
