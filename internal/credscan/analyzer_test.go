package credscan

import (
	"os"
	"path/filepath"
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

func TestAnalyze_QuotedBase64(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yaml"), `key: "QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVoxMjM0NTY3ODk="`+"\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "highEntropyBase64" {
			found = true
			// Snippets are cut to MaxSnippetLen (40) characters plus "...".
			want := "QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVoxMjM0..."
			if f.Match != want {
				t.Errorf("expected match truncated to 40 chars plus \"...\", got %q", f.Match)
			}
		}
	}
	if !found {
		t.Fatalf("expected highEntropyBase64 finding, got %+v", findings)
	}
}

func TestAnalyze_QuotedHex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yaml"), `token: "0123456789abcdef0123456789abcdef"`+"\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "highEntropyHex" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected highEntropyHex finding, got %+v", findings)
	}
}

func TestAnalyze_PasswordAssignment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yaml"), `password = "sup3rSecret"`+"\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range findings {
		if f.RuleID == "hardcodedSecret" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hardcodedSecret finding, got %+v", findings)
	}
}

func TestAnalyze_CLIFlagMentionExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "Run the tool with --password to set credentials.\n")

	findings, err := Analyze(root, &catalog.Catalog{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		if f.RuleID == "hardcodedSecret" {
			t.Fatalf("did not expect hardcodedSecret for CLI flag mention, got %+v", f)
		}
	}
}
