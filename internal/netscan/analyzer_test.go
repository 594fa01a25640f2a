package netscan

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/clawscan/clawscan/internal/catalog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Blocklist: catalog.Blocklist{
			Domains:        []string{"evil-exfil.example"},
			IPs:            []string{"185.220.101.42", "10.0.0.0/8"},
			SuspiciousTLDs: []string{".zip", ".xyz"},
			DiscordWebhook: regexp.MustCompile(`discord(?:app)?\.com/api/webhooks/\d+/[\w-]+`),
			TelegramBot:    regexp.MustCompile(`api\.telegram\.org/bot[\w:-]+`),
			SlackWebhook:   regexp.MustCompile(`hooks\.slack\.com/services/[\w/]+`),
		},
	}
}

func TestAnalyze_BlocklistedIPExactNoSubstringFalsePositive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "reach out to 185.220.101.4 please\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		if f.RuleID == "blocklistedIP" {
			t.Fatalf("expected no blocklistedIP finding for non-matching prefix, got %+v", f)
		}
	}
}

func TestAnalyze_BlocklistedIPMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "curl http://185.220.101.42/x\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "blocklistedIP" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected blocklistedIP finding, got %+v", findings)
	}
}

func TestAnalyze_CIDRMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "internal host at 10.5.5.5\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "blocklistedIP" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected blocklistedIP finding via CIDR, got %+v", findings)
	}
}

func TestAnalyze_DiscordWebhookCritical(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "post to https://discord.com/api/webhooks/123/abcDEF\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		if f.RuleID == "discordWebhook" {
			if f.Severity != "critical" {
				t.Errorf("expected critical severity, got %s", f.Severity)
			}
			return
		}
	}
	t.Fatalf("expected discordWebhook finding, got %+v", findings)
}

func TestAnalyze_SlackWebhookWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "notify https://hooks.slack.com/services/T/B/xyz\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		if f.RuleID == "slackWebhook" {
			if f.Severity != "warning" {
				t.Errorf("expected warning severity, got %s", f.Severity)
			}
			return
		}
	}
	t.Fatalf("expected slackWebhook finding, got %+v", findings)
}

func TestAnalyze_SuspiciousTLD(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "download from https://files.example.zip/archive\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "suspiciousTld" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected suspiciousTld finding, got %+v", findings)
	}
}

func TestAnalyze_BlocklistedDomain(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "exfiltrate to evil-exfil.example/upload\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "blocklistedDomain" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected blocklistedDomain finding, got %+v", findings)
	}
}
