package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_LoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "clawscan.yaml")

	yamlContent := `
catalog:
  patterns_file: ./custom/patterns.json
  blocklist_file: ./custom/blocklist.json
  watch: false

walker:
  max_file_size_bytes: 2097152

trust:
  enabled: true
  db_path: ./trust.db

log_level: debug
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	loader := NewLoader()
	if err := loader.Load(configPath); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cfg := loader.Get()
	if cfg.Catalog.PatternsFile != "./custom/patterns.json" {
		t.Errorf("Catalog.PatternsFile = %q, want ./custom/patterns.json", cfg.Catalog.PatternsFile)
	}
	if cfg.Catalog.Watch {
		t.Error("Catalog.Watch = true, want false")
	}
	if cfg.Walker.MaxFileSizeBytes != 2097152 {
		t.Errorf("Walker.MaxFileSizeBytes = %d, want 2097152", cfg.Walker.MaxFileSizeBytes)
	}
	if !cfg.Trust.Enabled {
		t.Error("Trust.Enabled = false, want true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoader_DefaultConfig(t *testing.T) {
	loader := NewLoader()
	cfg := loader.Get()

	if cfg.Walker.MaxFileSizeBytes != 1<<20 {
		t.Errorf("default Walker.MaxFileSizeBytes = %d, want %d", cfg.Walker.MaxFileSizeBytes, 1<<20)
	}
	if !cfg.Catalog.Watch {
		t.Error("default Catalog.Watch = false, want true")
	}
	if cfg.Trust.Enabled {
		t.Error("default Trust.Enabled = true, want false")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoader_LoadNonExistentFile(t *testing.T) {
	loader := NewLoader()
	if err := loader.Load("/nonexistent/path/to/config.yaml"); err == nil {
		t.Error("Load() with nonexistent file should return error")
	}
}

func TestLoader_LoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(configPath, []byte(`{{{invalid yaml`), 0o644); err != nil {
		t.Fatalf("failed to write bad config: %v", err)
	}

	loader := NewLoader()
	if err := loader.Load(configPath); err == nil {
		t.Error("Load() with invalid YAML should return error")
	}
}

func TestLoader_FilePath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "clawscan.yaml")
	if err := os.WriteFile(configPath, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	if loader.FilePath() != "" {
		t.Errorf("FilePath() before Load() = %q, want empty", loader.FilePath())
	}

	if err := loader.Load(configPath); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if loader.FilePath() != configPath {
		t.Errorf("FilePath() = %q, want %q", loader.FilePath(), configPath)
	}
}

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "clawscan.yaml")

	if err := os.WriteFile(configPath, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	if err := loader.Load(configPath); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loader.Get().LogLevel != "warn" {
		t.Errorf("initial LogLevel = %q, want warn", loader.Get().LogLevel)
	}

	if err := os.WriteFile(configPath, []byte("log_level: error\n"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if err := loader.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if loader.Get().LogLevel != "error" {
		t.Errorf("reloaded LogLevel = %q, want error", loader.Get().LogLevel)
	}
}

func TestLoader_ReloadWithoutLoad(t *testing.T) {
	loader := NewLoader()
	if err := loader.Reload(); err == nil {
		t.Error("Reload() without prior Load() should return error")
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	os.Setenv("TEST_CS_LEVEL", "debug")
	defer os.Unsetenv("TEST_CS_LEVEL")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "log_level: ${TEST_CS_LEVEL}", "log_level: debug"},
		{"undefined variable", "value: ${UNDEFINED_TEST_VAR_XYZ}", "value: "},
		{"default value syntax", "value: ${UNDEFINED_TEST_VAR_XYZ:-fallback}", "value: fallback"},
		{"default not used when set", "log_level: ${TEST_CS_LEVEL:-info}", "log_level: debug"},
		{"no env vars", "log_level: info", "log_level: info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "clawscan.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error: %v", err)
	}

	loader := NewLoader()
	if err := loader.Load(configPath); err != nil {
		t.Fatalf("generated config is not valid YAML: %v", err)
	}
	if loader.Get().LogLevel != "info" {
		t.Errorf("generated config LogLevel = %q, want info", loader.Get().LogLevel)
	}
}
