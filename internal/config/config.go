// Package config defines ClawScan's YAML configuration surface: catalog
// file locations, walker size limits, and the optional trust-store and
// progress-broadcaster services. Ambient concern, carried the way the
// teacher's internal/config does it (yaml.v3, DefaultConfig for
// zero-config startup).
package config

import "time"

// Config is the top-level ClawScan configuration.
type Config struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Walker     WalkerConfig     `yaml:"walker"`
	Trust      TrustConfig      `yaml:"trust"`
	Progress   ProgressConfig   `yaml:"progress"`
	CLIWrapper CLIWrapperConfig `yaml:"cli_wrapper"`
	LogLevel   string           `yaml:"log_level"`
}

// CLIWrapperConfig lets an operator extend the Risk Aggregator's
// CLI-wrapper indicator vocabulary (spec.md §4.9 fixes the built-in
// list; ExtraIndicators only adds to it, never replaces it).
type CLIWrapperConfig struct {
	ExtraIndicators []string `yaml:"extra_indicators"`
}

// CatalogConfig points at the on-disk rule catalog files (opaque input to
// the core, per spec.md §6) and controls hot-reload behavior.
type CatalogConfig struct {
	PatternsFile     string `yaml:"patterns_file"`
	BlocklistFile    string `yaml:"blocklist_file"`
	PopularNamesFile string `yaml:"popular_names_file"`
	Watch            bool   `yaml:"watch"`
}

// WalkerConfig controls the File Walker's size cap and extension sets.
// The defaults match spec.md §4.1 exactly; overriding them changes
// coverage, not correctness.
type WalkerConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes"`
	ExtraEnvGlobs    []string `yaml:"extra_env_globs"`
}

// TrustConfig controls the optional SQLite-backed trust store of
// previously-vetted skill-archive hashes. This is a fast-path skip for
// re-scanning unchanged, already-approved skills — it stores only
// (hash, note, added_at) tuples, never Finding or Report data, so it does
// not violate spec.md's "no persistent finding storage" non-goal.
type TrustConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// ProgressConfig controls the optional WebSocket scan-progress
// broadcaster. It serves only already-connected local clients and
// performs no outbound queries, so it does not violate spec.md's
// "no network queries to reputation services" non-goal. The `clawscan
// scan --progress-addr` flag, when given, overrides Addr and forces the
// broadcaster on regardless of Enabled.
type ProgressConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults for zero-config
// startup, mirroring the teacher's config.DefaultConfig idiom.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			PatternsFile:     "./configs/patterns.json",
			BlocklistFile:    "./configs/blocklist.json",
			PopularNamesFile: "./configs/popularnames.json",
			Watch:            true,
		},
		Walker: WalkerConfig{
			MaxFileSizeBytes: 1 << 20,
		},
		Trust: TrustConfig{
			Enabled: false,
			DBPath:  "./clawscan-trust.db",
		},
		Progress: ProgressConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6790",
		},
		LogLevel: "info",
	}
}

// ReloadDebounce is a debounce interval for catalog reloads. catalog.Watcher
// does not read it: it reloads on every write or create event for a
// catalog file, with no delay.
const ReloadDebounce = 200 * time.Millisecond
