// Package walker enumerates files under a skill root filtered by extension
// globs and ignore rules, enforcing a per-file size cap. Grounded on the
// filepath.Walk directory-skip idiom used throughout the retrieval pack
// (e.g. other_examples' clawshield scanner skips node_modules/.git/vendor
// the same way).
package walker

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxFileSize is the per-file size cap in bytes used when no
// override has been configured. Files larger than the active limit are
// skipped silently by Walk; callers that need to flag oversize files (the
// Script Analyzer) use WalkDetailed, which returns them separately.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

var limits = struct {
	mu              sync.RWMutex
	maxFileSize     int64
	extraExtensions []string
}{maxFileSize: DefaultMaxFileSize}

// Configure overrides the walker's per-file size cap and adds extra
// extension globs to BroadExtensions, per internal/config's
// WalkerConfig (max_file_size_bytes, extra_env_globs). A maxFileSizeBytes
// of 0 or less leaves the current cap unchanged. Safe for concurrent Analyze
// calls: readers take limits.mu.RLock in MaxFileSize/BroadExtensions.
func Configure(maxFileSizeBytes int64, extraExtensions []string) {
	limits.mu.Lock()
	defer limits.mu.Unlock()
	if maxFileSizeBytes > 0 {
		limits.maxFileSize = maxFileSizeBytes
	}
	limits.extraExtensions = append([]string(nil), extraExtensions...)
}

// MaxFileSize returns the currently configured per-file size cap.
func MaxFileSize() int64 {
	limits.mu.RLock()
	defer limits.mu.RUnlock()
	return limits.maxFileSize
}

// ScriptExtensions is the extension set used by the Script Analyzer.
var ScriptExtensions = []string{
	".js", ".mjs", ".cjs", ".py", ".sh", ".bash", ".rb", ".pl", ".ps1", ".bat", ".cmd",
}

// BroadExtensions returns ScriptExtensions plus config/doc formats, used
// by the Network, Credentials, Obfuscation, and SKILL.md-auxiliary
// analyzers, extended with any extra globs set via Configure.
func BroadExtensions() []string {
	base := append(append([]string{}, ScriptExtensions...),
		".md", ".json", ".yaml", ".yml", ".toml", ".cfg", ".ini", ".env*",
	)
	limits.mu.RLock()
	defer limits.mu.RUnlock()
	return append(base, limits.extraExtensions...)
}

var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// File describes one matched file relative to the skill root.
type File struct {
	// RelPath is the path relative to root, using forward slashes.
	RelPath string
	// AbsPath is the absolute filesystem path.
	AbsPath string
	// Size is the file's size in bytes, as reported by the initial stat.
	Size int64
}

// Walk returns the deduplicated set of files under root whose name matches
// one of exts (case-insensitive, ".env*" style prefix globs supported via
// a trailing "*"). Directories, and anything under a node_modules/ or .git/
// path component, are excluded. Files over MaxFileSize are skipped
// silently. I/O errors on a single file skip that file without failing the
// walk.
func Walk(root string, exts []string) ([]File, error) {
	matched, _, err := WalkDetailed(root, exts)
	return matched, err
}

// WalkDetailed behaves like Walk but also returns the set of extension-
// matching files that were excluded solely for exceeding MaxFileSize. The
// Script Analyzer needs this second list to emit its own largeFile
// finding (spec.md §4.5); every other analyzer just calls Walk and ignores
// oversize files the same way the walker does by default.
func WalkDetailed(root string, exts []string) (matched []File, oversized []File, err error) {
	seen := make(map[string]bool)
	maxSize := MaxFileSize()

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Skip the offending entry, keep walking the rest of the tree.
			return nil
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchesAny(d.Name(), exts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hasIgnoredComponent(rel) {
			return nil
		}
		if seen[rel] {
			return nil
		}
		seen[rel] = true

		f := File{RelPath: rel, AbsPath: path, Size: info.Size()}
		if info.Size() > maxSize {
			oversized = append(oversized, f)
			return nil
		}
		matched = append(matched, f)
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return matched, oversized, nil
}

func hasIgnoredComponent(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	return false
}

func matchesAny(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if strings.HasSuffix(ext, "*") {
			if strings.HasPrefix(lower, strings.TrimSuffix(ext, "*")) {
				return true
			}
			continue
		}
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ReadCapped reads a file's content, returning at most MaxFileSize bytes.
// Used by analyzers that need the raw content rather than just the file
// listing (e.g. the Prompt-Injection Analyzer).
func ReadCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if maxSize := MaxFileSize(); size > maxSize {
		size = maxSize
	}
	buf := make([]byte, size)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}
