package injection

import (
	"regexp"

	"github.com/clawscan/clawscan/internal/report"
)

// injectionRule is a compiled prompt-injection regex rule with a fixed
// severity, independent of the external catalog (these patterns are
// specific to markdown/text prose, not code, so they live alongside the
// analyzer rather than in patterns.json).
type injectionRule struct {
	id       string
	regex    *regexp.Regexp
	severity report.Severity
	message  string
}

var injectionRules = []injectionRule{
	{
		id:       "roleHijack",
		regex:    regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(?:a|an|the)\b|\bact\s+as\s+(?:a|an|the)\s+\w+\s+with\s+no\s+restrictions\b|\bpretend\s+(?:you|to)\s+(?:are|be)\b`),
		severity: report.SeverityCritical,
		message:  "prose attempts to hijack the assistant's role",
	},
	{
		id:       "instructionOverride",
		regex:    regexp.MustCompile(`(?i)\bignore\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\s+instructions\b|\bdisregard\s+(?:the\s+)?(?:system|previous)\s+prompt\b|\boverride\s+(?:your|the)\s+(?:instructions|guidelines|rules)\b`),
		severity: report.SeverityCritical,
		message:  "prose attempts to override prior instructions",
	},
	{
		id:       "authoritySpoofing",
		regex:    regexp.MustCompile(`(?i)\bas\s+(?:your|the)\s+(?:administrator|developer|system\s+operator)\b|\bthis\s+is\s+an?\s+(?:official|authorized)\s+(?:override|directive)\b`),
		severity: report.SeverityCritical,
		message:  "prose spoofs an authority figure to justify following embedded instructions",
	},
	{
		id:       "dataExfilPrompt",
		regex:    regexp.MustCompile(`(?i)\bsend\b.{0,60}\bto\s+https?://|\bexfiltrate\b|\bpost\s+(?:the\s+)?(?:conversation|history|data)\s+to\s+https?://`),
		severity: report.SeverityCritical,
		message:  "prose instructs exfiltration of conversation or credential data",
	},
	{
		id:       "privEscalation",
		regex:    regexp.MustCompile(`(?i)\bgrant\s+(?:yourself|full|admin)\s+(?:access|permissions|privileges)\b|\benable\s+(?:developer|debug|god)\s+mode\b|\bbypass\s+(?:safety|content)\s+(?:checks|filters)\b`),
		severity: report.SeverityCritical,
		message:  "prose requests elevated privileges or a safety-bypass mode",
	},
	{
		id:       "steganoInstructions",
		regex:    regexp.MustCompile(`(?i)\bhidden\s+instructions?\s+(?:below|follow|encoded)\b|\bdecode\s+the\s+following\s+(?:base64|hex)\s+and\s+execute\b`),
		severity: report.SeverityCritical,
		message:  "prose references steganographically hidden instructions",
	},
	{
		id:       "conversationManip",
		regex:    regexp.MustCompile(`(?i)\bforget\s+(?:everything|all)\s+(?:you\s+)?(?:know|were\s+told)\b|\bthis\s+conversation\s+never\s+happened\b|\bfrom\s+now\s+on\s+you\s+(?:must|will)\s+(?:always|never)\b`),
		severity: report.SeverityCritical,
		message:  "prose attempts to manipulate the assistant's conversational state",
	},
	{
		id:       "encodingEvasion",
		regex:    regexp.MustCompile(`(?i)\bdecode\s+(?:this|the\s+following)\s+base64\b|\brot13\s*\(|\bunicode\s+escape\s+the\s+following\b`),
		severity: report.SeverityWarning,
		message:  "prose asks the assistant to decode an encoded payload before acting on it",
	},
	{
		id:       "outputManipulation",
		regex:    regexp.MustCompile(`(?i)\brespond\s+only\s+with\b.{0,30}\bno\s+other\s+text\b|\bdo\s+not\s+mention\s+this\s+(?:instruction|prompt)\s+in\s+your\s+(?:reply|response)\b`),
		severity: report.SeverityWarning,
		message:  "prose attempts to constrain or hide the assistant's own output",
	},
	{
		id:       "toolAbuse",
		regex:    regexp.MustCompile(`(?i)\bcall\s+(?:the\s+)?(?:shell|exec|file[_\s]?write)\s+tool\s+(?:with|to)\b|\buse\s+(?:your|the)\s+file\s+access\s+tool\s+to\s+(?:read|write|delete)\b`),
		severity: report.SeverityWarning,
		message:  "prose instructs misuse of an available tool capability",
	},
}
