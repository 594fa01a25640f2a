// Package skillmd implements the SKILL.md Analyzer: it applies the
// skillMd rule group to the manifest, invokes the code-block sub-pipeline,
// and flags a too-short manifest or an excessive external-link count
// (spec.md §4.4).
package skillmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/codeblock"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/ruleengine"
)

// Name identifies this analyzer.
const Name = "skillMd"

// ShortContentThreshold is the trimmed-manifest character count below
// which a shortContent warning fires.
const ShortContentThreshold = 50

// ManyURLsThreshold is the external-URL count above which a manyUrls
// warning fires.
const ManyURLsThreshold = 5

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// platformAllowlist holds hosts that don't count toward the external-URL
// heuristic: links to the platform's own docs/spec are expected in every
// manifest and shouldn't themselves look suspicious.
var platformAllowlist = []string{
	"docs.anthropic.com",
	"modelcontextprotocol.io",
	"github.com/anthropics",
}

// Analyze reads <root>/SKILL.md and runs the rule group, code-block
// sub-pipeline, and the shortContent/manyUrls heuristics. A missing
// manifest yields a single info Finding rather than an error.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "skillmd.Analyze")

	path := filepath.Join(root, "SKILL.md")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []report.Finding{{
			Analyzer: Name,
			Severity: report.SeverityInfo,
			File:     "SKILL.md",
			Message:  "No SKILL.md found — skill may be incomplete",
			RuleID:   "missingManifest",
		}}, nil
	}
	if err != nil {
		return nil, err
	}
	content := string(data)

	var findings []report.Finding
	findings = append(findings, ruleengine.Apply(Name, cat.SkillMD, "SKILL.md", content)...)
	findings = append(findings, codeblock.Run(content, cat, logger)...)

	if len(strings.TrimSpace(content)) < ShortContentThreshold {
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityWarning,
			File:     "SKILL.md",
			Message:  "manifest content is unusually short",
			RuleID:   "shortContent",
		})
	}

	if n := countExternalURLs(content); n > ManyURLsThreshold {
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityWarning,
			File:     "SKILL.md",
			Message:  "manifest references an unusually large number of external URLs",
			RuleID:   "manyUrls",
		})
	}

	return findings, nil
}

func countExternalURLs(content string) int {
	count := 0
	for _, raw := range urlPattern.FindAllString(content, -1) {
		if isPlatformURL(raw) {
			continue
		}
		count++
	}
	return count
}

func isPlatformURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, host := range platformAllowlist {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}
