// Package codeblock implements the Code-Block Sub-pipeline: it extracts
// fenced code blocks from SKILL.md, materializes each as a temp file, runs
// the Script/Network/Credentials/Obfuscation analyzers against that temp
// directory, and rewrites the resulting findings to point back at
// SKILL.md's own line numbers (spec.md §4.8).
package codeblock

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/credscan"
	"github.com/clawscan/clawscan/internal/netscan"
	"github.com/clawscan/clawscan/internal/obfuscation"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/scriptscan"
)

var fencePattern = regexp.MustCompile("^```")

// block records one fenced code block extracted from a manifest, along
// with the 1-based line (within the manifest) of its first code line.
type block struct {
	code      string
	startLine int
}

// Run extracts fenced code blocks from manifestContent (SKILL.md's raw
// text), writes each into its own file inside a uniquely-named temp
// directory, and runs the code analyzers against it. Every resulting
// Finding is rewritten so File is "SKILL.md" and Line refers back to the
// manifest, prefixed with "[In code block] " in Message. The temp
// directory is removed on every exit path; sub-analyzer failures are
// swallowed (they don't fail the SKILL.md Analyzer).
func Run(manifestContent string, cat *catalog.Catalog, logger *slog.Logger) []report.Finding {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "codeblock.Run")

	blocks := extractBlocks(manifestContent)
	if len(blocks) == 0 {
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "clawscan-blocks-"+ulid.Make().String())
	if err != nil {
		logger.Warn("failed to create temp dir for code-block scan", "error", err)
		return nil
	}
	defer os.RemoveAll(tmpDir)

	names := make([]string, len(blocks))
	for i, b := range blocks {
		name := blockFileName(i)
		names[i] = name
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(b.code), 0o600); err != nil {
			logger.Warn("failed to write code-block temp file", "index", i, "error", err)
		}
	}

	var raw []report.Finding
	raw = append(raw, runAnalyzer(logger, "script", func() ([]report.Finding, error) {
		return scriptscan.Analyze(tmpDir, cat, logger)
	})...)
	raw = append(raw, runAnalyzer(logger, "network", func() ([]report.Finding, error) {
		return netscan.Analyze(tmpDir, cat, logger)
	})...)
	raw = append(raw, runAnalyzer(logger, "credentials", func() ([]report.Finding, error) {
		return credscan.Analyze(tmpDir, cat, logger)
	})...)
	raw = append(raw, runAnalyzer(logger, "obfuscation", func() ([]report.Finding, error) {
		return obfuscation.Analyze(tmpDir, cat, logger)
	})...)

	return rewriteFindings(raw, blocks, names)
}

func runAnalyzer(logger *slog.Logger, name string, fn func() ([]report.Finding, error)) []report.Finding {
	findings, err := fn()
	if err != nil {
		logger.Warn("code-block sub-analyzer failed", "analyzer", name, "error", err)
		return nil
	}
	return findings
}

func blockFileName(i int) string {
	return "block_" + itoa(i) + ".sh"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// rewriteFindings maps each raw Finding's file (a block_<i>.sh temp name)
// back to SKILL.md, and its line back to the manifest's coordinate space.
func rewriteFindings(raw []report.Finding, blocks []block, names []string) []report.Finding {
	indexByName := make(map[string]int, len(names))
	for i, n := range names {
		indexByName[n] = i
	}

	out := make([]report.Finding, len(raw))
	for i, f := range raw {
		rewritten := f
		rewritten.File = "SKILL.md"
		rewritten.Message = "[In code block] " + f.Message

		idx, ok := indexByName[f.File]
		if ok && f.Line != nil {
			mapped := blocks[idx].startLine + *f.Line - 1
			rewritten.Line = report.IntPtr(mapped)
		} else {
			rewritten.Line = nil
		}
		out[i] = rewritten
	}
	return out
}

// extractBlocks scans manifestContent for fenced ``` code blocks, in
// order, recording each block's code and the 1-based manifest line of its
// first code line (the line after the opening fence).
func extractBlocks(manifestContent string) []block {
	lines := strings.Split(manifestContent, "\n")
	var blocks []block

	inBlock := false
	var current strings.Builder
	startLine := 0

	for i, line := range lines {
		if fencePattern.MatchString(strings.TrimSpace(line)) {
			if !inBlock {
				inBlock = true
				current.Reset()
				startLine = i + 2 // line after the opening fence, 1-based
				continue
			}
			inBlock = false
			blocks = append(blocks, block{code: current.String(), startLine: startLine})
			continue
		}
		if inBlock {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	return blocks
}
