package config

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file into a Config, supporting reload and
// ${VAR}/${VAR:-default} environment-variable substitution before
// parsing, mirroring the teacher's config-loading idiom.
type Loader struct {
	mu       sync.RWMutex
	cfg      *Config
	filePath string
}

// NewLoader returns a Loader initialized with DefaultConfig until Load is
// called.
func NewLoader() *Loader {
	return &Loader{cfg: DefaultConfig()}
}

// Load reads path, substitutes environment variables, and parses the
// result as YAML into a Config, replacing the current one.
func (l *Loader) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.filePath = path
	l.mu.Unlock()
	return nil
}

// Reload re-reads the previously loaded file. It returns an error if Load
// has not been called yet.
func (l *Loader) Reload() error {
	l.mu.RLock()
	path := l.filePath
	l.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("config: Reload called before Load")
	}
	return l.Load(path)
}

// Get returns the currently loaded Config.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// FilePath returns the path most recently passed to Load, or "" if Load
// has not been called yet.
func (l *Loader) FilePath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filePath
}

// GenerateDefault writes DefaultConfig to path as YAML, for `clawscan
// init` bootstrapping.
func GenerateDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write default config %s: %w", path, err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default} references in s
// against the process environment, before the result is parsed as YAML.
func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}
