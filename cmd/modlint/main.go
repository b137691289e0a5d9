package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/orchestrator"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/rules"
	"github.com/codewithboateng/modlint/internal/rulesdsl"
	"github.com/codewithboateng/modlint/internal/shared"
	"github.com/codewithboateng/modlint/internal/storage"
	"github.com/codewithboateng/modlint/internal/xref"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	// a missing .env is fine
	_ = godotenv.Load()

	switch os.Args[1] {
	case "analyze":
		analyzeCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	case "order":
		orderCmd(os.Args[2:])
	case "graph":
		graphCmd(os.Args[2:])
	case "rule":
		ruleCmd(os.Args[2:])
	case "rules":
		rulesCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "watch":
		watchCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "useradd":
		useraddCmd(os.Args[2:])
	case "version":
		fmt.Println("modlint IR:", ir.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `modlint – Bannerlord module XML dependency and validation checker

Usage:
  modlint analyze --path <ModuleData> [--out ./reports] [--db ./modlint.db] [--config ./modlint.yaml] [--rules pack.yaml] [--strict]
  modlint check   --file <doc.xml> [--root <ModuleData>]
  modlint order   --path <ModuleData>
  modlint graph   --path <ModuleData> [--dot graph.dot]
  modlint rule    --path <ModuleData> --id <RULE-ID>
  modlint rules   [--rules pack.yaml]
  modlint report  --run <run-id> [--out ./reports]
  modlint diff    --base <run-id> --head <run-id> [--out ./reports]
  modlint watch   --path <ModuleData> [--out ./reports]
  modlint serve   [--addr :8080] [--path <ModuleData>]
  modlint useradd --username <name> --password <pw> [--role admin|viewer]
  modlint version
`)
}

// setup loads config and installs the logger. Config errors are fatal.
func setup(configPath string) (shared.Config, *slog.Logger) {
	cfg, err := shared.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return cfg, shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
}

// buildRegistry clones the built-in rules and adds the configured packs
// plus any given on the command line.
func buildRegistry(cfg shared.Config, extra string) (*rules.Registry, []string, error) {
	reg := rules.Default.Clone()
	packs := append([]string(nil), cfg.Rules.Packs...)
	for _, p := range strings.Split(extra, ",") {
		if p = strings.TrimSpace(p); p != "" {
			packs = append(packs, p)
		}
	}
	for _, p := range packs {
		n, err := rulesdsl.LoadAndRegister(p, reg)
		if err != nil {
			return nil, nil, fmt.Errorf("rule pack %s: %w", p, err)
		}
		slog.Debug("rule pack loaded", "path", p, "rules", n)
	}
	return reg, packs, nil
}

func buildOrchestrator(cfg shared.Config, extraPacks string, logger *slog.Logger, rec orchestrator.Recorder) (*orchestrator.Orchestrator, error) {
	reg, packs, err := buildRegistry(cfg, extraPacks)
	if err != nil {
		return nil, err
	}
	eng := rules.NewEngine(reg, rules.NewSettings(cfg.Rules.SeverityThreshold, cfg.Rules.Disabled, cfg.Rules.Categories))
	eng.Logger = logger
	return orchestrator.New(eng, xref.NewDefault(), orchestrator.Options{
		Parser: parser.Options{
			Include: cfg.Corpus.Include,
			Exclude: cfg.Corpus.Exclude,
			Workers: cfg.Corpus.Workers,
			Logger:  logger,
		},
		Workers:   cfg.Corpus.Workers,
		CacheSize: cfg.Cache.Contexts,
		RulePacks: packs,
		Logger:    logger,
		Recorder:  rec,
	})
}

func openDB(dsn string) *storage.DB {
	db, err := storage.OpenSQLite(dsn)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	return db
}

// corpusPath resolves --path against corpus.sources.
func corpusPath(flagPath string, cfg shared.Config, cmd string) string {
	if flagPath == "" && len(cfg.Corpus.Sources) > 0 {
		flagPath = cfg.Corpus.Sources[0]
	}
	if flagPath == "" {
		fmt.Fprintf(os.Stderr, "%s: --path (or corpus.sources in config) is required\n", cmd)
		os.Exit(2)
	}
	return flagPath
}

// fatalRun reports a run-aborting error; a missing corpus is a usage error.
func fatalRun(cmd string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
	if errors.Is(err, parser.ErrInputNotFound) {
		os.Exit(2)
	}
	os.Exit(1)
}

func printSummary(r *ir.Report, elapsed time.Duration) {
	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Printf("Run %s: %s (%d documents, %d errors, %d warnings, %d cycles, %d missing) in %s\n",
		r.ID, status, r.Totals.Files, r.Totals.Errors, r.Totals.Warnings, r.Totals.Cycles, r.Totals.Missing,
		elapsed.Round(time.Millisecond))
	for _, is := range r.Issues {
		fmt.Println("  -", is)
	}
	for _, s := range r.Suggestions {
		fmt.Printf("  [%s] %s: %s\n", s.Priority, s.Category, s.Description)
		for _, st := range s.Steps {
			fmt.Println("      ", st)
		}
	}
}
