// Package report defines the data model shared by every analyzer and the
// scan orchestrator: findings, per-analyzer results, and the final scan
// report. Keeping these types in their own package (instead of alongside
// the orchestrator) lets every analyzer package depend on the data model
// without importing the orchestrator that depends on them.
package report

import "time"

// Severity classifies how serious a Finding or Rule is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities for comparison (critical > warning > info).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Finding is a single flagged observation tied to a rule, file, and line.
// Findings are created only by analyzers; the only exception is the
// code-block sub-pipeline, which rewrites File/Line/Message on findings it
// produced from extracted blocks.
type Finding struct {
	Analyzer string   `json:"analyzer"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"` // relative to skill root, never absolute
	Line     *int     `json:"line,omitempty"`
	Message  string   `json:"message"`
	RuleID   string   `json:"ruleId"`
	Match    string   `json:"match,omitempty"` // trimmed; longer matches cut to 120 chars (40 for secrets) plus "..."
}

// AnalyzerStatus records whether an analyzer completed cleanly.
type AnalyzerStatus string

const (
	StatusOK      AnalyzerStatus = "ok"
	StatusError   AnalyzerStatus = "error"
	StatusSkipped AnalyzerStatus = "skipped"
)

// AnalyzerResult summarizes one analyzer's run within a scan.
type AnalyzerResult struct {
	Name      string         `json:"name"`
	Findings  int            `json:"findings"`
	ElapsedMs int64          `json:"elapsedMs"`
	Status    AnalyzerStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// Summary tallies findings by severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// RiskLevel is the final verdict bucket, a pure function of Risk.Score.
type RiskLevel string

const (
	LevelSafe      RiskLevel = "safe"
	LevelWarning   RiskLevel = "warning"
	LevelDangerous RiskLevel = "dangerous"
)

// Risk is the aggregated score and verdict for a scan.
type Risk struct {
	Score int       `json:"score"` // 0..100
	Level RiskLevel `json:"level"`
	Label string    `json:"label"`
	Emoji string    `json:"emoji"`
}

// Report is the final output of a scan.
type Report struct {
	Target    string           `json:"target"` // original input as supplied by the caller
	Path      string           `json:"path"`   // resolved root
	Timestamp time.Time        `json:"timestamp"`
	Findings  []Finding        `json:"findings"`
	Analyzers []AnalyzerResult `json:"analyzers"`
	Summary   Summary          `json:"summary"`
	Risk      Risk             `json:"risk"`
}

// Summarize computes a Summary from a finding slice.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warning++
		default:
			s.Info++
		}
	}
	return s
}

// IntPtr is a small helper for constructing *int line numbers without a
// local variable at every call site.
func IntPtr(n int) *int {
	return &n
}
