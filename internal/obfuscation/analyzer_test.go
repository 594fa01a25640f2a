package obfuscation

import (
	"os"
	"path/filepath"
	"strings"
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

func TestAnalyze_LongLineSkippedForJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.json"), `{"x":"`+strings.Repeat("a", 600)+`"}`)
	writeFile(t, filepath.Join(root, "script.js"), strings.Repeat("a", 600)+"\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	jsonFlagged, jsFlagged := false, false
	for _, f := range findings {
		if f.RuleID == "longLine" {
			if f.File == "data.json" {
				jsonFlagged = true
			}
			if f.File == "script.js" {
				jsFlagged = true
			}
		}
	}
	if jsonFlagged {
		t.Error("expected .json files to be skipped for longLine")
	}
	if !jsFlagged {
		t.Error("expected .js file to trigger longLine")
	}
}

func TestAnalyze_HexIdentifierThreshold(t *testing.T) {
	rootBelow := t.TempDir()
	writeFile(t, filepath.Join(rootBelow, "a.js"), "var _0x1a2b, _0x3c4d, _0x5e6f;\n")
	below, err := Analyze(rootBelow, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range below {
		if f.RuleID == "jsObfuscator" {
			t.Fatalf("did not expect jsObfuscator at 3 occurrences, got %+v", f)
		}
	}

	rootAt := t.TempDir()
	writeFile(t, filepath.Join(rootAt, "a.js"), "var _0x1a2b, _0x3c4d, _0x5e6f, _0x7890;\n")
	at, err := Analyze(rootAt, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range at {
		if f.RuleID == "jsObfuscator" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected jsObfuscator at 4 occurrences, got %+v", at)
	}
}

func TestAnalyze_ObfuscationToolSignature(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bundle.js"), "// bundled with javascript-obfuscator v4\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "obfuscationTool" && f.Severity == "critical" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected obfuscationTool finding, got %+v", findings)
	}
}
