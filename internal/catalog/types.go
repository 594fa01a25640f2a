// Package catalog loads the external rule and blocklist data files that
// drive the pattern-based analyzers (patterns.json, blocklist.json). The
// catalog is treated as process-lifetime immutable data once loaded: rules
// are compiled once at load time and reused across every scan, matching
// the teacher's compile-once-evaluate-many idiom in policy.CELEvaluator.
package catalog

import (
	"regexp"

	"github.com/clawscan/clawscan/internal/report"
)

// Category groups rules by the analyzer that consumes them.
type Category string

const (
	CategorySkillMD     Category = "skillMd"
	CategoryExecution   Category = "execution"
	CategoryNetwork     Category = "network"
	CategoryCredentials Category = "credentials"
	CategoryObfuscation Category = "obfuscation"
)

// RawRule is the on-disk shape of a single rule entry in patterns.json.
type RawRule struct {
	ID          string          `json:"id"`
	Pattern     string          `json:"pattern"`
	Severity    report.Severity `json:"severity"`
	Description string          `json:"description"`
}

// RawPatterns is the on-disk shape of patterns.json: rules grouped by
// category.
type RawPatterns struct {
	SkillMD     []RawRule `json:"skillMd"`
	Execution   []RawRule `json:"execution"`
	Network     []RawRule `json:"network"`
	Credentials []RawRule `json:"credentials"`
	Obfuscation []RawRule `json:"obfuscation"`
}

// Rule is a compiled, ready-to-evaluate rule. Immutable after load.
type Rule struct {
	ID          string
	Regex       *regexp.Regexp
	Severity    report.Severity
	Description string
}

// RawBlocklist is the on-disk shape of blocklist.json.
type RawBlocklist struct {
	Domains               []string `json:"domains"`
	IPs                   []string `json:"ips"` // literal IPv4 or CIDR
	SuspiciousTLDs        []string `json:"suspiciousTlds"`
	DiscordWebhookPattern string   `json:"discordWebhookPattern"`
	TelegramBotPattern    string   `json:"telegramBotPattern"`
	SlackWebhookPattern   string   `json:"slackWebhookPattern"`
}

// Blocklist is the compiled, ready-to-evaluate blocklist. Immutable after
// load.
type Blocklist struct {
	Domains         []string
	IPs             []string
	SuspiciousTLDs  []string
	DiscordWebhook  *regexp.Regexp
	TelegramBot     *regexp.Regexp
	SlackWebhook    *regexp.Regexp
}

// Catalog bundles the compiled rule groups and blocklist consumed by the
// pattern-based analyzers.
type Catalog struct {
	SkillMD     []Rule
	Execution   []Rule
	Network     []Rule
	Credentials []Rule
	Obfuscation []Rule
	Blocklist   Blocklist
	// PopularNames is the list of well-known skill names the Typosquat
	// Analyzer compares a skill's declared name against. It is not part of
	// patterns.json/blocklist.json (spec.md §3 lists only the five rule
	// categories and the blocklist as catalog data); it ships as a small
	// built-in default, which a non-empty list in an optional third file,
	// popularnames.json, replaces.
	PopularNames []string
	// Whitelist is the set of skill names the Typosquat Analyzer never
	// flags, regardless of edit distance to a popular name.
	Whitelist []string
}
