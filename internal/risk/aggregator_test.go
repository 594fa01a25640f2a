package risk

import (
	"testing"

	"github.com/clawscan/clawscan/internal/report"
)

func TestAggregate_EmptyFindingsIsSafeZero(t *testing.T) {
	r := Aggregate(nil, "", nil)
	if r.Score != 0 {
		t.Errorf("expected score 0, got %d", r.Score)
	}
	if r.Level != report.LevelSafe {
		t.Errorf("expected safe level, got %s", r.Level)
	}
}

func TestAggregate_ShortContentWarningScoresTwoSafe(t *testing.T) {
	findings := []report.Finding{
		{Analyzer: "skillMd", Severity: report.SeverityWarning, File: "SKILL.md", RuleID: "shortContent"},
	}
	r := Aggregate(findings, "", nil)
	if r.Score != 2 {
		t.Errorf("expected score 2, got %d", r.Score)
	}
	if r.Level != report.LevelSafe {
		t.Errorf("expected safe level, got %s", r.Level)
	}
}

func TestAggregate_DownloadExecuteToBlocklistedIPIsDangerous(t *testing.T) {
	findings := []report.Finding{
		{Analyzer: "script", Severity: report.SeverityCritical, File: "payload.sh", RuleID: "downloadExecute"},
		{Analyzer: "network", Severity: report.SeverityCritical, File: "payload.sh", RuleID: "blocklistedIP"},
	}
	r := Aggregate(findings, "", nil)
	// Stage A: 2 critical * 10 = 20. Stage B: downloadExecute(+50) + blocklistedIP(+30) = 80.
	if r.Score != 100 {
		t.Errorf("expected score clamped to 100, got %d", r.Score)
	}
	if r.Level != report.LevelDangerous {
		t.Errorf("expected dangerous level, got %s", r.Level)
	}
	if r.Label != "DANGEROUS" || r.Emoji != "🔴" {
		t.Errorf("expected DANGEROUS/🔴, got %s/%s", r.Label, r.Emoji)
	}
}

func TestAggregate_CLIWrapperHalvesStageAOnly(t *testing.T) {
	findings := []report.Finding{
		{Analyzer: "script", Severity: report.SeverityCritical, File: "a.sh", RuleID: "reverseShell"},
	}
	manifest := "This is a cli wrapper. It spawns a child_process to run commands."
	r := Aggregate(findings, manifest, nil)
	// Stage A: 1 critical * 10 = 10, halved to 5. Stage B: reverseShell +60 (unaffected by halving).
	if r.Score != 65 {
		t.Errorf("expected score 65 (halved Stage A + full Stage B), got %d", r.Score)
	}
}

func TestAggregate_TyposquatViaSubstitutionScoresLowSafe(t *testing.T) {
	findings := []report.Finding{
		{Analyzer: "typosquat", Severity: report.SeverityCritical, File: "SKILL.md", RuleID: "typosquatPattern"},
	}
	r := Aggregate(findings, "", nil)
	// Stage A: 1 critical * 10 = 10. Stage B: 0 (typosquatPattern has no combination bonus).
	if r.Score != 10 {
		t.Errorf("expected score 10, got %d", r.Score)
	}
	if r.Level != report.LevelSafe {
		t.Errorf("expected safe level, got %s", r.Level)
	}
}

func TestAggregate_PromptInjectionCombinationBonus(t *testing.T) {
	findings := []report.Finding{
		{Analyzer: "promptInjection", Severity: report.SeverityCritical, File: "SKILL.md", RuleID: "roleHijack"},
		{Analyzer: "promptInjection", Severity: report.SeverityCritical, File: "SKILL.md", RuleID: "dataExfilPrompt"},
	}
	r := Aggregate(findings, "", nil)
	// Stage A: 2 critical * 10 = 20. Stage B: promptInjection(+50) + dataExfilPrompt(+50) + combo(+20) = 120 -> clamp path.
	if r.Score != 100 {
		t.Errorf("expected score clamped to 100, got %d", r.Score)
	}
}
