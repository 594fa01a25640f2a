package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawscan/clawscan/internal/catalog"
	"github.com/clawscan/clawscan/internal/config"
	"github.com/clawscan/clawscan/internal/progress"
	"github.com/clawscan/clawscan/internal/report"
	"github.com/clawscan/clawscan/internal/scan"
	"github.com/clawscan/clawscan/internal/trust"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes follow a scanner-verdict convention: 0 for a safe skill, 1
// for warning, 2 for dangerous, 3 for a scan that could not complete.
const (
	exitSafe      = 0
	exitWarning   = 1
	exitDangerous = 2
	exitScanError = 3
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clawscan",
		Short: "Pre-install security scanner for agent skills",
		Long:  "ClawScan — inspect a skill directory before you install it.\nWalks the skill's files, matches them against known-bad patterns, and prints a risk verdict.",
	}

	var configFile string
	var jsonOut bool
	var progressAddr string

	scanCmd := &cobra.Command{
		Use:   "scan [skill-directory]",
		Short: "Scan a skill directory and print a risk report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args[0], configFile, jsonOut, progressAddr)
		},
	}
	scanCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./clawscan.yaml)")
	scanCmd.Flags().BoolVar(&jsonOut, "json", true, "Print the report as JSON")
	scanCmd.Flags().StringVar(&progressAddr, "progress-addr", "", "Serve live scan-progress over WebSocket at this address while scanning (e.g. 127.0.0.1:6790)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter clawscan.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(configFile)
		},
	}
	initCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to write the config file (default: ./clawscan.yaml)")

	trustCmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the local trust store of vetted skill-archive hashes",
	}

	var trustDBPath string
	trustAddCmd := &cobra.Command{
		Use:   "add [hash]",
		Short: "Mark a skill-archive hash as vetted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, _ := cmd.Flags().GetString("note")
			dir, _ := cmd.Flags().GetString("dir")
			hash := ""
			if len(args) == 1 {
				hash = args[0]
			}
			if hash == "" && dir == "" {
				return fmt.Errorf("trust add requires either a hash argument or --dir")
			}
			if hash == "" {
				h, err := trust.HashDir(dir)
				if err != nil {
					return err
				}
				hash = h
			}
			return runTrustAdd(trustDBPath, hash, note)
		},
	}
	trustAddCmd.Flags().String("note", "", "Optional note describing why this hash is trusted")
	trustAddCmd.Flags().String("dir", "", "Hash and trust a skill directory instead of passing a hash directly")

	trustListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all vetted hashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrustList(trustDBPath)
		},
	}
	trustCmd.PersistentFlags().StringVar(&trustDBPath, "db", "./clawscan-trust.db", "Path to the trust database")
	trustCmd.AddCommand(trustAddCmd, trustListCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ClawScan %s (%s)\n", version, commit)
		},
	}

	rootCmd.AddCommand(scanCmd, initCmd, trustCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitScanError)
	}
}

// loadCatalog loads the rule catalog per cfg.Catalog. Watch only matters
// to a process that scans more than once per catalog load (a future
// daemon mode); a one-shot scan reads the catalog once regardless, but
// still goes through the watcher so cfg.Catalog.Watch behaves the same
// way here as it would there. The returned closer stops the watcher.
func loadCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, func(), error) {
	if !cfg.Catalog.Watch {
		cat, err := catalog.Load(cfg.Catalog.PatternsFile, cfg.Catalog.BlocklistFile, cfg.Catalog.PopularNamesFile, logger)
		return cat, func() {}, err
	}
	w, err := catalog.NewWatcher(cfg.Catalog.PatternsFile, cfg.Catalog.BlocklistFile, cfg.Catalog.PopularNamesFile, logger)
	if err != nil {
		return nil, func() {}, err
	}
	return w.Current(), w.Stop, nil
}

func loadConfig(configFile string) *config.Config {
	loader := config.NewLoader()
	if configFile == "" {
		if _, err := os.Stat("./clawscan.yaml"); err == nil {
			configFile = "./clawscan.yaml"
		}
	}
	if configFile != "" {
		if err := loader.Load(configFile); err != nil {
			slog.Warn("failed to load config, using defaults", "path", configFile, "error", err)
		}
	}
	return loader.Get()
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func runScan(target, configFile string, jsonOut bool, progressAddr string) error {
	cfg := loadConfig(configFile)
	logger := newLogger(cfg.LogLevel)

	cat, closeCatalog, err := loadCatalog(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load rule catalog: %v\n", err)
		os.Exit(exitScanError)
	}
	defer closeCatalog()

	if cfg.Trust.Enabled {
		if rep, ok := trustedSkipReport(cfg.Trust.DBPath, target, logger); ok {
			printReport(rep, jsonOut)
			os.Exit(exitCodeFor(rep.Risk.Level))
		}
	}

	// --progress-addr overrides cfg.Progress when given explicitly;
	// otherwise the broadcaster follows cfg.Progress.Enabled/Addr.
	addr := progressAddr
	if addr == "" && cfg.Progress.Enabled {
		addr = cfg.Progress.Addr
	}

	var hub *progress.Hub
	if addr != "" {
		hub = progress.NewHub(logger, false)
		mux := http.NewServeMux()
		mux.HandleFunc("/progress", hub.HandleWebSocket)
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("progress server failed", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
		logger.Info("serving live scan progress", "addr", addr, "path", "/progress")
	}

	var onProgress scan.ProgressFunc
	if hub != nil {
		onProgress = func(analyzer, event, status string, findings int, elapsedMs int64) {
			hub.Broadcast(progress.Event{
				Type:      event,
				Analyzer:  analyzer,
				Status:    status,
				Findings:  findings,
				ElapsedMs: elapsedMs,
			})
		}
	}

	rep, err := scan.ScanWithOptions(context.Background(), target, cat, logger, scan.Options{
		OnProgress:                onProgress,
		ExtraCLIWrapperIndicators: cfg.CLIWrapper.ExtraIndicators,
		WalkerMaxFileSizeBytes:    cfg.Walker.MaxFileSizeBytes,
		WalkerExtraEnvGlobs:       cfg.Walker.ExtraEnvGlobs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(exitScanError)
	}

	printReport(rep, jsonOut)
	os.Exit(exitCodeFor(rep.Risk.Level))
	return nil
}

// trustedSkipReport checks target's content hash against the trust store
// and, on a hit, builds the skipped-analysis Report the fast path
// produces: no findings, every analyzer marked status:skipped, and the
// trivially-safe verdict a zero-finding scan would compute anyway. It
// never fabricates a score for findings it didn't look for.
func trustedSkipReport(dbPath, target string, logger *slog.Logger) (report.Report, bool) {
	hash, err := trust.HashDir(target)
	if err != nil {
		logger.Warn("failed to hash scan target for trust lookup, running full scan", "error", err)
		return report.Report{}, false
	}

	store, err := trust.Open(dbPath)
	if err != nil {
		logger.Warn("failed to open trust store, running full scan", "error", err)
		return report.Report{}, false
	}
	defer func() { _ = store.Close() }()

	entry, ok, err := store.Get(hash)
	if err != nil {
		logger.Warn("trust store lookup failed, running full scan", "error", err)
		return report.Report{}, false
	}
	if !ok {
		return report.Report{}, false
	}

	logger.Info("skipping scan, target matches a trusted hash", "hash", hash, "note", entry.Note, "trustedAt", entry.AddedAt)

	names := scan.AnalyzerNames()
	analyzers := make([]report.AnalyzerResult, len(names))
	for i, name := range names {
		analyzers[i] = report.AnalyzerResult{Name: name, Status: report.StatusSkipped}
	}

	return report.Report{
		Target:    target,
		Path:      target,
		Timestamp: time.Now().UTC(),
		Findings:  nil,
		Analyzers: analyzers,
		Summary:   report.Summarize(nil),
		Risk:      report.Risk{Score: 0, Level: report.LevelSafe, Label: "SAFE", Emoji: "🟢"},
	}, true
}

func printReport(rep report.Report, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
		return
	}
	fmt.Printf("%s %s (%d/100)\n", rep.Risk.Emoji, rep.Risk.Label, rep.Risk.Score)
	fmt.Printf("%d findings (%d critical, %d warning, %d info)\n",
		rep.Summary.Total, rep.Summary.Critical, rep.Summary.Warning, rep.Summary.Info)
	for _, f := range rep.Findings {
		line := ""
		if f.Line != nil {
			line = fmt.Sprintf(":%d", *f.Line)
		}
		fmt.Printf("  [%s] %s%s — %s\n", strings.ToUpper(string(f.Severity)), f.File, line, f.Message)
	}
}

func exitCodeFor(level report.RiskLevel) int {
	switch level {
	case report.LevelDangerous:
		return exitDangerous
	case report.LevelWarning:
		return exitWarning
	default:
		return exitSafe
	}
}

func runInit(configFile string) error {
	if configFile == "" {
		configFile = "./clawscan.yaml"
	}
	if err := config.GenerateDefault(configFile); err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}
	fmt.Printf("Wrote %s\n", configFile)
	return nil
}

func runTrustAdd(dbPath, hash, note string) error {
	store, err := trust.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Add(hash, note); err != nil {
		return err
	}
	fmt.Printf("Trusted %s\n", hash)
	return nil
}

func runTrustList(dbPath string) error {
	store, err := trust.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No trusted hashes.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.Hash, e.AddedAt.Format("2006-01-02T15:04:05Z"), e.Note)
	}
	return nil
}
