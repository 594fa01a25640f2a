// Package netscan implements the Network Analyzer: domain/IP/webhook/TLD
// rules using the blocklist and IP/CIDR matcher, on top of the shared
// execution/network regex rule group (spec.md §4.5).
package netscan

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/netmatch"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/ruleengine"
	"github.com/clawscan/clawscan/internal/walker"
)

// Name identifies this analyzer.
const Name = "network"

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// Analyze walks root for broad-set files and applies the network rule
// group plus the domain/IP/webhook/TLD heuristics.
func Analyze(root string, cat *catalog.Catalog, logger *slog.Logger) ([]report.Finding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "netscan.Analyze")

	files, err := walker.Walk(root, walker.BroadExtensions())
	if err != nil {
		return nil, err
	}

	var findings []report.Finding
	for _, f := range files {
		content, err := walker.ReadCapped(f.AbsPath)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", f.RelPath, "error", err)
			continue
		}
		text := string(content)

		findings = append(findings, ruleengine.Apply(Name, cat.Network, f.RelPath, text)...)
		findings = append(findings, scanLines(f.RelPath, text, cat.Blocklist)...)
	}
	return findings, nil
}

func scanLines(relPath, content string, bl catalog.Blocklist) []report.Finding {
	var findings []report.Finding
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		lineNo := i + 1

		findings = append(findings, blocklistedDomainFindings(relPath, lineNo, line, bl.Domains)...)
		findings = append(findings, blocklistedIPFindings(relPath, lineNo, line, bl.IPs)...)
		findings = append(findings, webhookFindings(relPath, lineNo, line, bl)...)
		findings = append(findings, suspiciousTLDFindings(relPath, lineNo, line, bl.SuspiciousTLDs)...)
	}
	return findings
}

func blocklistedDomainFindings(relPath string, lineNo int, line string, domains []string) []report.Finding {
	lower := strings.ToLower(line)
	var findings []report.Finding
	for _, d := range domains {
		if d == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(d)) {
			findings = append(findings, report.Finding{
				Analyzer: Name,
				Severity: report.SeverityCritical,
				File:     relPath,
				Line:     report.IntPtr(lineNo),
				Message:  "reference to blocklisted domain: " + d,
				RuleID:   "blocklistedDomain",
				Match:    ruleengine.TruncateMatch(line, ruleengine.MaxMatchLen),
			})
		}
	}
	return findings
}

func blocklistedIPFindings(relPath string, lineNo int, line string, ips []string) []report.Finding {
	var findings []report.Finding
	candidates := netmatch.ExtractIPv4(line)
	for _, ip := range candidates {
		for _, entry := range ips {
			if netmatch.MatchesEntry(ip, entry) {
				findings = append(findings, report.Finding{
					Analyzer: Name,
					Severity: report.SeverityCritical,
					File:     relPath,
					Line:     report.IntPtr(lineNo),
					Message:  "reference to blocklisted IP: " + ip,
					RuleID:   "blocklistedIP",
					Match:    ruleengine.TruncateMatch(line, ruleengine.MaxMatchLen),
				})
				break
			}
		}
	}
	return findings
}

func webhookFindings(relPath string, lineNo int, line string, bl catalog.Blocklist) []report.Finding {
	var findings []report.Finding
	if bl.DiscordWebhook != nil && bl.DiscordWebhook.MatchString(line) {
		findings = append(findings, webhookFinding(relPath, lineNo, line, "discordWebhook", report.SeverityCritical))
	}
	if bl.TelegramBot != nil && bl.TelegramBot.MatchString(line) {
		findings = append(findings, webhookFinding(relPath, lineNo, line, "telegramBot", report.SeverityCritical))
	}
	if bl.SlackWebhook != nil && bl.SlackWebhook.MatchString(line) {
		findings = append(findings, webhookFinding(relPath, lineNo, line, "slackWebhook", report.SeverityWarning))
	}
	return findings
}

func webhookFinding(relPath string, lineNo int, line, ruleID string, sev report.Severity) report.Finding {
	return report.Finding{
		Analyzer: Name,
		Severity: sev,
		File:     relPath,
		Line:     report.IntPtr(lineNo),
		Message:  "webhook URL detected: " + ruleID,
		RuleID:   ruleID,
		Match:    ruleengine.TruncateMatch(line, ruleengine.MaxMatchLen),
	}
}

func suspiciousTLDFindings(relPath string, lineNo int, line string, tlds []string) []report.Finding {
	if len(tlds) == 0 {
		return nil
	}
	var findings []report.Finding
	for _, raw := range urlPattern.FindAllString(line, -1) {
		u, err := url.Parse(raw)
		if err != nil {
			continue // URL parsing failures are swallowed per spec.md §4.5.
		}
		host := strings.ToLower(u.Hostname())
		for _, tld := range tlds {
			tld = strings.ToLower(tld)
			if !strings.HasPrefix(tld, ".") {
				tld = "." + tld
			}
			if strings.HasSuffix(host, tld) {
				findings = append(findings, report.Finding{
					Analyzer: Name,
					Severity: report.SeverityWarning,
					File:     relPath,
					Line:     report.IntPtr(lineNo),
					Message:  "URL host uses a suspicious TLD: " + host,
					RuleID:   "suspiciousTld",
					Match:    ruleengine.TruncateMatch(raw, ruleengine.MaxMatchLen),
				})
				break
			}
		}
	}
	return findings
}
