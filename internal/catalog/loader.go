package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

// defaultPopularNames is the built-in seed list for the Typosquat Analyzer,
// used when no popularnames.json is present next to the catalog files.
// Mirrors the teacher's skill.defaultSuspiciousPatterns fallback idiom:
// ship a sane default, let an operator override it with real data.
func defaultPopularNames() []string {
	return []string{
		"github", "gitlab", "slack", "discord", "telegram", "notion",
		"linear", "jira", "figma", "stripe", "aws", "gcp", "azure",
		"docker", "kubernetes", "postgres", "mysql", "redis", "mongodb",
		"openai", "anthropic", "google", "microsoft", "salesforce",
		"web-search", "code-review", "file-manager", "email-assistant",
	}
}

// Load reads patterns.json and blocklist.json from the given paths and
// compiles them into a Catalog. popularNamesPath may be empty, in which
// case the built-in default list is used. Each rule must carry a pattern,
// severity, and description; a rule missing any of these, or one whose
// pattern fails to compile, is skipped with a warning rather than failing
// the whole load — a single bad rule in a large hand-edited JSON file
// should not take an entire analyzer offline.
func Load(patternsPath, blocklistPath, popularNamesPath string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog.Load")

	patternsData, err := os.ReadFile(patternsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns catalog %s: %w", patternsPath, err)
	}
	var raw RawPatterns
	if err := json.Unmarshal(patternsData, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse patterns catalog %s: %w", patternsPath, err)
	}

	blocklistData, err := os.ReadFile(blocklistPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist catalog %s: %w", blocklistPath, err)
	}
	var rawBL RawBlocklist
	if err := json.Unmarshal(blocklistData, &rawBL); err != nil {
		return nil, fmt.Errorf("failed to parse blocklist catalog %s: %w", blocklistPath, err)
	}

	cat := &Catalog{
		SkillMD:     compileGroup(raw.SkillMD, logger),
		Execution:   compileGroup(raw.Execution, logger),
		Network:     compileGroup(raw.Network, logger),
		Credentials: compileGroup(raw.Credentials, logger),
		Obfuscation: compileGroup(raw.Obfuscation, logger),
		Blocklist:   compileBlocklist(rawBL, logger),
	}

	cat.PopularNames = defaultPopularNames()
	if popularNamesPath != "" {
		if data, err := os.ReadFile(popularNamesPath); err == nil {
			var names struct {
				PopularNames []string `json:"popularNames"`
				Whitelist    []string `json:"whitelist"`
			}
			if err := json.Unmarshal(data, &names); err != nil {
				logger.Warn("failed to parse popular-names catalog, using built-in default", "path", popularNamesPath, "error", err)
			} else {
				if len(names.PopularNames) > 0 {
					cat.PopularNames = names.PopularNames
				}
				cat.Whitelist = names.Whitelist
			}
		}
	}

	return cat, nil
}

func compileGroup(raws []RawRule, logger *slog.Logger) []Rule {
	rules := make([]Rule, 0, len(raws))
	for _, r := range raws {
		if r.ID == "" || r.Pattern == "" || r.Severity == "" || r.Description == "" {
			logger.Warn("skipping malformed rule missing required field", "id", r.ID)
			continue
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			logger.Warn("skipping rule with invalid regex", "id", r.ID, "error", err)
			continue
		}
		rules = append(rules, Rule{
			ID:          r.ID,
			Regex:       re,
			Severity:    r.Severity,
			Description: r.Description,
		})
	}
	return rules
}

func compileBlocklist(raw RawBlocklist, logger *slog.Logger) Blocklist {
	bl := Blocklist{
		Domains:        raw.Domains,
		IPs:            raw.IPs,
		SuspiciousTLDs: raw.SuspiciousTLDs,
	}
	bl.DiscordWebhook = compileOptional(raw.DiscordWebhookPattern, `discord(app)?\.com/api/webhooks/\d+/[\w-]+`, logger)
	bl.TelegramBot = compileOptional(raw.TelegramBotPattern, `api\.telegram\.org/bot\d+:[\w-]+`, logger)
	bl.SlackWebhook = compileOptional(raw.SlackWebhookPattern, `hooks\.slack\.com/services/[\w/-]+`, logger)
	return bl
}

func compileOptional(pattern, fallback string, logger *slog.Logger) *regexp.Regexp {
	if pattern == "" {
		pattern = fallback
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		logger.Warn("invalid webhook pattern in blocklist catalog, using built-in default", "pattern", pattern, "error", err)
		re = regexp.MustCompile("(?i)" + fallback)
	}
	return re
}
