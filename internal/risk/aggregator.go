// Package risk implements the Risk Aggregator: a two-stage score (linear
// per-finding weights, then combination bonuses over the set of rule IDs
// present) that produces the final verdict for a scan (spec.md §4.9).
//
// Stage B's combination-bonus table is expressed as compiled CEL
// expressions rather than a hand-coded if-chain (spec.md §4.11), mirroring
// the teacher's compile-once-evaluate-many policy engine. The numeric
// outcome is identical to the fixed table spec.md specifies.
package risk

import (
	"log/slog"
	"strings"

	"github.com/clawscan/clawscan/internal/report"
)

// Weights are the Stage-A per-finding-severity point values.
const (
	weightCritical = 10
	weightWarning  = 2
	weightInfo     = 0
)

const (
	thresholdDangerous = 50
	thresholdWarning   = 20
)

// cliWrapperIndicators are the phrases counted when detecting whether a
// manifest describes a CLI-wrapper tool (spec.md §4.9). Two or more
// distinct indicators found in the manifest text mark the skill as a CLI
// tool, halving the Stage-A subtotal.
var cliWrapperIndicators = []string{
	"cli", "command-line", "command line", "wrapper", "terminal",
	"shell command", "executes", "runs command", "run command", "spawns",
	"child_process", "subprocess", "exec(", "execsync", "spawn(",
	"tool that", "tool for", "curl", "calls the",
}

// Aggregate computes the final Risk verdict from every Finding produced by
// a scan and the raw SKILL.md manifest text (used for CLI-wrapper
// detection). extraIndicators, if given, augments the built-in
// CLI-wrapper vocabulary (spec.md §4.9's fixed list is always active
// regardless) — an operator's clawscan.yaml can extend it as new CLI-tool
// phrasing shows up in the wild, but never replace it.
func Aggregate(findings []report.Finding, manifestText string, logger *slog.Logger, extraIndicators ...string) report.Risk {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "risk.Aggregate")

	stageA := linearSubtotal(findings)
	if isCLIWrapper(manifestText, extraIndicators) {
		stageA /= 2
	}

	evaluator, err := newBonusEvaluator()
	var stageB int
	if err != nil {
		logger.Warn("failed to build combination-bonus evaluator, skipping Stage B", "error", err)
	} else {
		stageB, err = evaluator.evaluate(deriveRuleset(findings))
		if err != nil {
			logger.Warn("combination-bonus evaluation failed, skipping Stage B", "error", err)
			stageB = 0
		}
	}

	score := stageA + stageB
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return report.Risk{
		Score: score,
		Level: level(score),
		Label: label(score),
		Emoji: emoji(score),
	}
}

func linearSubtotal(findings []report.Finding) int {
	total := 0
	for _, f := range findings {
		switch f.Severity {
		case report.SeverityCritical:
			total += weightCritical
		case report.SeverityWarning:
			total += weightWarning
		default:
			total += weightInfo
		}
	}
	return total
}

// isCLIWrapper counts distinct indicator phrases present in the
// lowercased manifest text; two or more distinct matches mark the skill
// as a CLI-wrapper tool. extra is checked in addition to the built-in
// list, never in place of it.
func isCLIWrapper(manifestText string, extra []string) bool {
	lower := strings.ToLower(manifestText)
	distinct := 0
	seen := make(map[string]bool)
	for _, ind := range append(append([]string(nil), cliWrapperIndicators...), extra...) {
		ind = strings.ToLower(ind)
		if ind == "" || seen[ind] {
			continue
		}
		seen[ind] = true
		if strings.Contains(lower, ind) {
			distinct++
			if distinct >= 2 {
				return true
			}
		}
	}
	return false
}

func level(score int) report.RiskLevel {
	switch {
	case score >= thresholdDangerous:
		return report.LevelDangerous
	case score >= thresholdWarning:
		return report.LevelWarning
	default:
		return report.LevelSafe
	}
}

func label(score int) string {
	switch level(score) {
	case report.LevelDangerous:
		return "DANGEROUS"
	case report.LevelWarning:
		return "WARNING"
	default:
		return "SAFE"
	}
}

func emoji(score int) string {
	switch level(score) {
	case report.LevelDangerous:
		return "🔴"
	case report.LevelWarning:
		return "🟡"
	default:
		return "🟢"
	}
}
