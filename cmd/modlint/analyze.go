package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codewithboateng/modlint/internal/depgraph"
	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/orchestrator"
	"github.com/codewithboateng/modlint/internal/reporting"
	"github.com/codewithboateng/modlint/internal/storage"
)

func analyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Module data directory")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	strict := fs.Bool("strict", false, "Exit 1 when the module is invalid")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)

	// precedence: flags > env > config > defaults
	root := corpusPath(*inPath, cfg, "analyze")
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	o, err := buildOrchestrator(cfg, *packs, logger, nil)
	if err != nil {
		fatalRun("analyze", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	r, err := o.RunModule(ctx, root)
	if err != nil {
		fatalRun("analyze", err)
	}

	db := openDB(*dbPath)
	defer db.Close()
	if err := persist(db, r); err != nil {
		slog.Error("db save run error", "err", err)
		os.Exit(1)
	}
	paths, err := writeReports(r, *outDir, cfg.Reporting.Formats)
	if err != nil {
		slog.Error("write reports error", "err", err)
		os.Exit(1)
	}
	slog.Info("analyze complete", "run", r.ID, "valid", r.Valid, "reports", paths, "db", filepath.Clean(*dbPath))

	printSummary(r, time.Since(start))
	for _, p := range paths {
		fmt.Println("  report:", p)
	}
	if *strict && !r.Valid {
		os.Exit(1)
	}
}

// persist applies active waivers, then stores the run.
func persist(db *storage.DB, r *ir.Report) error {
	ws, err := db.ListWaivers(true)
	if err != nil {
		return err
	}
	if n := orchestrator.ApplyWaivers(r, ws); n > 0 {
		slog.Info("findings waived", "run", r.ID, "count", n)
	}
	return db.SaveRun(r)
}

func writeReports(r *ir.Report, outDir string, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = []string{"json", "html"}
	}
	var paths []string
	for _, f := range formats {
		var p string
		var err error
		switch f {
		case "json":
			p, err = reporting.WriteJSON(r.ID, outDir, r)
		case "html":
			p, err = reporting.WriteHTML(r.ID, outDir, r)
		case "dot":
			p, err = reporting.WriteDOT(r.ID, outDir, r)
		default:
			slog.Warn("unknown report format", "format", f)
			continue
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	file := fs.String("file", "", "Document to validate")
	root := fs.String("root", "", "Module data directory (default: the document's directory)")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "check: --file is required")
		os.Exit(2)
	}
	o, err := buildOrchestrator(cfg, *packs, logger, nil)
	if err != nil {
		fatalRun("check", err)
	}
	fr, err := o.RunFile(context.Background(), *file, *root)
	if err != nil {
		fatalRun("check", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(fr)
	if !fr.Valid {
		os.Exit(1)
	}
}

func orderCmd(args []string) {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Module data directory")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	root := corpusPath(*inPath, cfg, "order")
	o, err := buildOrchestrator(cfg, "", logger, nil)
	if err != nil {
		fatalRun("order", err)
	}
	order, cycles, err := o.LoadOrder(context.Background(), root)
	if err != nil {
		fatalRun("order", err)
	}
	for i, id := range order.Order {
		fmt.Printf("%3d  %s\n", i+1, id)
	}
	if len(order.Excluded) > 0 {
		fmt.Println("excluded (no safe order until cycles are resolved):")
		for _, id := range order.Excluded {
			fmt.Println("     ", id)
		}
		for _, c := range cycles {
			fmt.Println("  cycle:", c.Description)
		}
		os.Exit(1)
	}
}

func graphCmd(args []string) {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Module data directory")
	dotPath := fs.String("dot", "", "Write Graphviz DOT here instead of stdout")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	root := corpusPath(*inPath, cfg, "graph")
	o, err := buildOrchestrator(cfg, "", logger, nil)
	if err != nil {
		fatalRun("graph", err)
	}
	res, err := o.DependencyGraph(context.Background(), root)
	if err != nil {
		fatalRun("graph", err)
	}

	r := &ir.Report{Edges: res.Graph.Edges(), Cycles: depgraph.FindCycles(res.Graph)}
	for _, e := range res.Extractions {
		r.Files = append(r.Files, ir.FileResult{Document: e.ID, Path: e.Path, Valid: e.Err == nil && len(e.Missing) == 0})
	}

	out := os.Stdout
	if *dotPath != "" {
		f, err := os.Create(*dotPath)
		if err != nil {
			fatalRun("graph", err)
		}
		defer f.Close()
		out = f
	}
	if err := reporting.DOT(out, r); err != nil {
		fatalRun("graph", err)
	}
}

func ruleCmd(args []string) {
	fs := flag.NewFlagSet("rule", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Module data directory")
	id := fs.String("id", "", "Rule ID")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	root := corpusPath(*inPath, cfg, "rule")
	if *id == "" {
		fmt.Fprintln(os.Stderr, "rule: --id is required")
		os.Exit(2)
	}
	o, err := buildOrchestrator(cfg, *packs, logger, nil)
	if err != nil {
		fatalRun("rule", err)
	}
	r, err := o.RunRule(context.Background(), root, *id)
	if err != nil {
		fatalRun("rule", err)
	}
	for _, f := range r.AllFindings() {
		fmt.Printf("%-7s %s %s: %s\n", f.Severity, f.Document, f.Element, f.Message)
	}
	for _, f := range r.Files {
		for _, e := range f.Errors {
			fmt.Printf("FAULT   %s: %s\n", f.Document, e)
		}
	}
	fmt.Printf("%s: %d documents, %d errors, %d warnings\n", *id, r.Totals.Files, r.Totals.Errors, r.Totals.Warnings)
}

func rulesCmd(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	_ = fs.Parse(args)

	cfg, _ := setup(*configPath)
	reg, _, err := buildRegistry(cfg, *packs)
	if err != nil {
		fatalRun("rules", err)
	}
	for _, e := range reg.List() {
		fmt.Printf("%-34s %-16s %-8s %s\n", e.Rule.ID, e.Category, e.Rule.DefaultSeverity, e.Rule.Summary)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	runID := fs.String("run", "", "Run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := setup(*configPath)
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *runID == "" {
		fmt.Fprintln(os.Stderr, "report: --run is required")
		os.Exit(2)
	}

	db := openDB(*dbPath)
	defer db.Close()
	run, err := db.LoadRun(*runID)
	if err != nil {
		slog.Error("load run error", "err", err)
		os.Exit(1)
	}
	paths, err := writeReports(&run, *outDir, cfg.Reporting.Formats)
	if err != nil {
		slog.Error("write reports error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Report OK\n  Run: %s\n", run.ID)
	for _, p := range paths {
		fmt.Println("  ", p)
	}
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := setup(*configPath)
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db := openDB(*dbPath)
	defer db.Close()

	br, err := db.LoadRun(*base)
	if err != nil {
		slog.Error("load base run error", "err", err)
		os.Exit(1)
	}
	hr, err := db.LoadRun(*head)
	if err != nil {
		slog.Error("load head run error", "err", err)
		os.Exit(1)
	}
	path, err := reporting.WriteDiffJSON(*outDir, &br, &hr)
	if err != nil {
		slog.Error("write diff error", "err", err)
		os.Exit(1)
	}
	d := reporting.Compare(&br, &hr)
	fmt.Printf("Diff OK\n  %s\n  new=%d removed=%d changed=%d cycles+%d/-%d\n", path,
		d.Summary.NewCount, d.Summary.RemovedCount, d.Summary.ChangedCount,
		len(d.Cycles.Introduced), len(d.Cycles.Resolved))
}
