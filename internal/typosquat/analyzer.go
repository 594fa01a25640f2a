// Package typosquat implements the Typosquat Analyzer: it compares a
// skill's declared name against a list of popular names using edit
// distance, character-substitution tricks, separator stripping, and
// affix detection (spec.md §4.6).
package typosquat

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/report"
)

// Name identifies this analyzer.
const Name = "typosquat"

var headingPattern = regexp.MustCompile(`^#\s+(.+)$`)

var substitutionPairs = []struct{ from, to string }{
	{"1", "l"}, {"l", "1"},
	{"0", "o"}, {"o", "0"},
	{"i", "l"}, {"l", "i"},
	{"rn", "m"},
	{"vv", "w"},
}

// Analyze determines the skill's declared name and compares it against
// cat.PopularNames using the four heuristics from spec.md §4.6.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "typosquat.Analyze")

	name := declaredName(root)
	base := normalizeName(filepath.Base(root))

	if inList(name, cat.Whitelist) || inList(base, cat.Whitelist) {
		return nil, nil
	}

	var findings []report.Finding
	for _, popular := range cat.PopularNames {
		popular = normalizeName(popular)
		if popular == "" || popular == name {
			continue
		}
		findings = append(findings, checkAgainst(name, popular)...)
	}
	return findings, nil
}

// declaredName reads the first "# Heading" from SKILL.md, lowercased with
// spaces turned into hyphens, falling back to the skill directory's
// basename if no heading is found (spec.md §9 Open Question (b): this
// fallback is a known, unmitigated evasion vector).
func declaredName(root string) string {
	f, err := os.Open(filepath.Join(root, "SKILL.md"))
	if err != nil {
		return normalizeName(filepath.Base(root))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := headingPattern.FindStringSubmatch(scanner.Text()); m != nil {
			return normalizeName(m[1])
		}
	}
	return normalizeName(filepath.Base(root))
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}

func inList(name string, list []string) bool {
	for _, item := range list {
		if normalizeName(item) == name {
			return true
		}
	}
	return false
}

func checkAgainst(name, popular string) []report.Finding {
	var findings []report.Finding

	if f, ok := levenshteinFinding(name, popular); ok {
		findings = append(findings, f)
	}
	if f, ok := substitutionFinding(name, popular); ok {
		findings = append(findings, f)
	}
	if f, ok := separatorStrippingFinding(name, popular); ok {
		findings = append(findings, f)
	}
	if f, ok := affixFinding(name, popular); ok {
		findings = append(findings, f)
	}
	return findings
}

func levenshteinFinding(name, popular string) (report.Finding, bool) {
	dist := levenshtein(name, popular)
	if (dist == 1 || dist == 2) && max(len(name), len(popular)) >= 4 {
		return report.Finding{
			Analyzer: Name,
			Severity: report.SeverityWarning,
			File:     "SKILL.md",
			Message:  "skill name '" + name + "' is suspiciously close to popular skill '" + popular + "'",
			RuleID:   "levenshteinClose",
		}, true
	}
	return report.Finding{}, false
}

func substitutionFinding(name, popular string) (report.Finding, bool) {
	for _, pair := range substitutionPairs {
		if !strings.Contains(name, pair.from) {
			continue
		}
		candidate := strings.ReplaceAll(name, pair.from, pair.to)
		if candidate == popular {
			return typosquatFinding(name, popular, "character substitution"), true
		}
	}
	return report.Finding{}, false
}

func separatorStrippingFinding(name, popular string) (report.Finding, bool) {
	strip := func(s string) string {
		s = strings.ReplaceAll(s, "-", "")
		return strings.ReplaceAll(s, "_", "")
	}
	strippedName, strippedPopular := strip(name), strip(popular)
	if strippedName == strippedPopular && name != popular {
		return typosquatFinding(name, popular, "separator stripping"), true
	}
	return report.Finding{}, false
}

func affixFinding(name, popular string) (report.Finding, bool) {
	if name == popular {
		return report.Finding{}, false
	}
	if strings.Contains(name, popular) && len(name) <= len(popular)+5 {
		return typosquatFinding(name, popular, "affix addition"), true
	}
	return report.Finding{}, false
}

func typosquatFinding(name, popular, technique string) report.Finding {
	return report.Finding{
		Analyzer: Name,
		Severity: report.SeverityCritical,
		File:     "SKILL.md",
		Message:  "skill name '" + name + "' appears to typosquat '" + popular + "' (" + technique + ")",
		RuleID:   "typosquatPattern",
	}
}

// levenshtein computes the full edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
