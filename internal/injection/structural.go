package injection

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/clawscan/clawscan/internal/report"
)

// invisibleChar names one member of the fixed set of Unicode characters
// that the Prompt-Injection Analyzer treats as suspicious when found in a
// skill's prose (spec.md §4.7). At most one finding per type per file is
// emitted, at the first offending line.
type invisibleChar struct {
	name string
	r    rune
}

var invisibleChars = []invisibleChar{
	{"zero-width space", '​'},
	{"zero-width non-joiner", '‌'},
	{"zero-width joiner", '‍'},
	{"word joiner", '⁠'},
	{"byte order mark", '\uFEFF'},
	{"invisible separator", '⁣'},
	{"invisible times", '⁢'},
	{"invisible plus", '⁤'},
	{"left-to-right mark", '‎'},
	{"right-to-left mark", '‏'},
	{"left-to-right override", '‭'},
	{"right-to-left override", '‮'},
}

const (
	tagCharStart = 0xE0001
	tagCharEnd   = 0xE007F
)

func invisibleCharFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")

	found := make(map[string]bool)
	for lineNo, line := range lines {
		for _, ic := range invisibleChars {
			if found[ic.name] {
				continue
			}
			if strings.ContainsRune(line, ic.r) {
				found[ic.name] = true
				findings = append(findings, invisibleCharFinding(relPath, lineNo+1, ic.name))
			}
		}
		if !found["tag character"] {
			for _, r := range line {
				if r >= tagCharStart && r <= tagCharEnd {
					found["tag character"] = true
					findings = append(findings, invisibleCharFinding(relPath, lineNo+1, "tag character"))
					break
				}
			}
		}
	}
	return findings
}

func invisibleCharFinding(relPath string, lineNo int, name string) report.Finding {
	return report.Finding{
		Analyzer: Name,
		Severity: report.SeverityCritical,
		File:     relPath,
		Line:     report.IntPtr(lineNo),
		Message:  "invisible or bidi-control character detected: " + name,
		RuleID:   "invisibleChars",
	}
}

var htmlCommentPattern = regexp.MustCompile(`(?s)<!--(.*?)-->`)

var suspicionPredicates = regexp.MustCompile(
	`(?i)\bexecute\b|\brun\b|\boverride\b|\bignore\b|\b(?:hidden|real|actual|true)\s+(?:instructions?|purpose|task)\b|\bdo\s+not\s+(?:tell|show|reveal)\b|\b(?:password|credential|api\s*key|secret)\b`,
)

// hiddenCommentFindings flags HTML comments whose body is long enough and
// whose text matches a suspicion predicate — i.e. comments that carry
// instructions meant to be invisible in rendered markdown.
func hiddenCommentFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	for _, loc := range htmlCommentPattern.FindAllStringSubmatchIndex(content, -1) {
		body := content[loc[2]:loc[3]]
		if len(strings.TrimSpace(body)) < 15 {
			continue
		}
		if !suspicionPredicates.MatchString(body) {
			continue
		}
		lineNo := 1 + strings.Count(content[:loc[0]], "\n")
		findings = append(findings, report.Finding{
			Analyzer: Name,
			Severity: report.SeverityCritical,
			File:     relPath,
			Line:     report.IntPtr(lineNo),
			Message:  "hidden HTML comment carries suspicious instructions",
			RuleID:   "hiddenComment",
		})
	}
	return findings
}

var (
	mdImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	mdLinkPattern  = regexp.MustCompile(`\[[^\]]*\]\(([^)]+)\)`)
)

// markdownAbuseFindings checks per-line for data-URI images, oversize alt
// text, and javascript: links.
func markdownAbuseFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		lineNo := i + 1
		for _, m := range mdImagePattern.FindAllStringSubmatch(line, -1) {
			alt, target := m[1], m[2]
			if strings.HasPrefix(strings.TrimSpace(target), "data:") {
				findings = append(findings, report.Finding{
					Analyzer: Name, Severity: report.SeverityWarning, File: relPath,
					Line: report.IntPtr(lineNo), Message: "markdown image uses an inline data: URI",
					RuleID: "dataUriMarkdown",
				})
			}
			if len(alt) > 200 {
				findings = append(findings, report.Finding{
					Analyzer: Name, Severity: report.SeverityWarning, File: relPath,
					Line: report.IntPtr(lineNo), Message: "markdown image alt text is unusually long",
					RuleID: "longAltText",
				})
			}
		}
		for _, m := range mdLinkPattern.FindAllStringSubmatch(line, -1) {
			if strings.HasPrefix(strings.TrimSpace(m[1]), "javascript:") {
				findings = append(findings, report.Finding{
					Analyzer: Name, Severity: report.SeverityCritical, File: relPath,
					Line: report.IntPtr(lineNo), Message: "markdown link uses a javascript: target",
					RuleID: "jsProtocolLink",
				})
			}
		}
	}
	return findings
}

var instructionalWord = regexp.MustCompile(
	`\b(?:IGNORE|OVERRIDE|MUST|ALWAYS|NEVER|IMPORTANT|CRITICAL|EXECUTE|SEND|FOLLOW|OBEY|COMPLY|DO|NOT|FORGET|DISREGARD)\b`,
)

// emphasisInjectionFindings flags a line carrying a run of 4+ all-caps
// tokens (3+ letters each) alongside an instructional word — the
// "emphatic ALL-CAPS" heuristic.
func emphasisInjectionFindings(relPath, content string) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if !instructionalWord.MatchString(line) {
			continue
		}
		if longestAllCapsRun(line) >= 4 {
			findings = append(findings, report.Finding{
				Analyzer: Name,
				Severity: report.SeverityWarning,
				File:     relPath,
				Line:     report.IntPtr(i + 1),
				Message:  "line uses emphatic all-caps instructional language",
				RuleID:   "emphasisInjection",
			})
		}
	}
	return findings
}

// longestAllCapsRun returns the longest run of consecutive whitespace-
// separated tokens in line that are each all-caps with 3+ letters.
func longestAllCapsRun(line string) int {
	best, run := 0, 0
	for _, tok := range strings.Fields(line) {
		if isAllCapsToken(tok) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func isAllCapsToken(tok string) bool {
	letters := 0
	for _, r := range tok {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 3
}
