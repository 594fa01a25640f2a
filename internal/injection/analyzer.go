// Package injection implements the Prompt-Injection Analyzer: regex
// rules over prose plus structural checks for invisible characters,
// hidden HTML comments, markdown abuse, and emphatic all-caps
// instructions (spec.md §4.7).
package injection

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/walker"
)

// Name identifies this analyzer.
const Name = "promptInjection"

// MaxReadBytes equals the walker's default per-file cap. Analyze does not
// read it: files are read through the walker, whose configured cap
// (walker.MaxFileSize) skips any larger file.
const MaxReadBytes = 1 << 20

var docExtensions = []string{".md", ".txt"}

// Analyze scans every .md/.txt file under root (ignoring node_modules and
// .git), SKILL.md first, applying the regex rule set and the structural
// heuristics to each.
func Analyze(root string, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "injection.Analyze")

	files, err := walker.Walk(root, docExtensions)
	if err != nil {
		return nil, err
	}
	orderSkillMdFirst(files)

	var findings []report.Finding
	for _, f := range files {
		content, err := walker.ReadCapped(f.AbsPath)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", f.RelPath, "error", err)
			continue
		}
		text := string(content)

		findings = append(findings, regexFindings(f.RelPath, text)...)
		findings = append(findings, invisibleCharFindings(f.RelPath, text)...)
		findings = append(findings, hiddenCommentFindings(f.RelPath, text)...)
		findings = append(findings, markdownAbuseFindings(f.RelPath, text)...)
		findings = append(findings, emphasisInjectionFindings(f.RelPath, text)...)
	}
	return findings, nil
}

func orderSkillMdFirst(files []walker.File) {
	sort.SliceStable(files, func(i, j int) bool {
		return isSkillMd(files[i].RelPath) && !isSkillMd(files[j].RelPath)
	})
}

func isSkillMd(relPath string) bool {
	return strings.EqualFold(filepath.Base(relPath), "SKILL.md") && !strings.Contains(relPath, "/")
}

// regexFindings applies every injectionRule to content, line by line. Each
// rule fires at most once per line but may fire on multiple lines.
func regexFindings(relPath, content string) []report.Finding {
	lines := strings.Split(content, "\n")
	var findings []report.Finding

	for _, rule := range injectionRules {
		for i, line := range lines {
			if !rule.regex.MatchString(line) {
				continue
			}
			match := rule.regex.FindString(line)
			findings = append(findings, report.Finding{
				Analyzer: Name,
				Severity: rule.severity,
				File:     relPath,
				Line:     report.IntPtr(i + 1),
				Message:  rule.message,
				RuleID:   rule.id,
				Match:    truncate(match, 120),
			})
		}
	}
	return findings
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
