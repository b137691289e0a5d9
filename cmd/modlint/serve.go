package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codewithboateng/modlint/internal/api"
	"github.com/codewithboateng/modlint/internal/metrics"
	"github.com/codewithboateng/modlint/internal/orchestrator"
	"github.com/codewithboateng/modlint/internal/reporting"
	"github.com/codewithboateng/modlint/internal/security"
	"github.com/codewithboateng/modlint/internal/storage"
	"github.com/codewithboateng/modlint/internal/watch"
)

func watchCmd(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Module data directory")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path (empty: do not persist)")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	root := corpusPath(*inPath, cfg, "watch")
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}

	o, err := buildOrchestrator(cfg, *packs, logger, nil)
	if err != nil {
		fatalRun("watch", err)
	}
	var db *storage.DB
	if *dbPath != "" {
		db = openDB(*dbPath)
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// an unusable root aborts before watching
	if err := rerun(ctx, o, db, root, *outDir); err != nil {
		fatalRun("watch", err)
	}

	if err := watchLoop(ctx, o, db, root, *outDir, cfg.Watch.DebounceMS, logger); err != nil {
		fatalRun("watch", err)
	}
	logger.Info("watch stopped")
}

// watchLoop revalidates root after every debounced batch of changes until
// ctx is done.
func watchLoop(ctx context.Context, o *orchestrator.Orchestrator, db *storage.DB, root, outDir string, debounceMS int, logger *slog.Logger) error {
	w, err := watch.New(root, watch.Options{
		Debounce: time.Duration(debounceMS) * time.Millisecond,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	for changed := range w.Batches() {
		logger.Info("corpus changed", "files", len(changed))
		o.Invalidate(root)
		if err := rerun(ctx, o, db, root, outDir); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("revalidation failed", "err", err)
		}
	}
	return nil
}

func rerun(ctx context.Context, o *orchestrator.Orchestrator, db *storage.DB, root, outDir string) error {
	start := time.Now()
	r, err := o.RunModule(ctx, root)
	if err != nil {
		return err
	}
	if db != nil {
		if err := persist(db, r); err != nil {
			slog.Error("db save run error", "err", err)
		}
	}
	if _, err := reporting.WriteJSON(r.ID, outDir, r); err != nil {
		slog.Error("write report error", "err", err)
	}
	printSummary(r, time.Since(start))
	return nil
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	packs := fs.String("rules", "", "Comma-separated YAML rule packs")
	inPath := fs.String("path", "", "Also validate and watch this module data directory")
	outDir := fs.String("out", "", "Output directory for reports written by --path")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath)
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *addr == "" {
		*addr = cfg.API.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	reg, _, err := buildRegistry(cfg, *packs)
	if err != nil {
		fatalRun("serve", err)
	}

	db := openDB(*dbPath)
	defer db.Close()

	m := metrics.New(true)
	s := &api.Server{
		DB:              db,
		UserStore:       db,
		Rules:           reg,
		Metrics:         m.Handler(),
		Logger:          logger,
		AllowedOrigins:  cfg.API.AllowedOrigins,
		SessionDuration: time.Duration(cfg.API.SessionHours) * time.Hour,
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if *inPath != "" {
		o, err := buildOrchestrator(cfg, *packs, logger, m)
		if err != nil {
			fatalRun("serve", err)
		}
		go func() {
			if err := rerun(ctx, o, db, *inPath, *outDir); err != nil {
				logger.Error("initial validation failed", "err", err)
				return
			}
			if err := watchLoop(ctx, o, db, *inPath, *outDir, cfg.Watch.DebounceMS, logger); err != nil {
				logger.Error("watch failed", "err", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("api server error", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "err", err)
	}
	logger.Info("api stopped")
}

func useraddCmd(args []string) {
	fs := flag.NewFlagSet("useradd", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	dbPath := fs.String("db", "", "SQLite database path")
	username := fs.String("username", "", "Login name")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "admin|viewer")
	_ = fs.Parse(args)

	cfg, _ := setup(*configPath)
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *username == "" {
		fmt.Fprintln(os.Stderr, "useradd: --username is required")
		os.Exit(2)
	}
	r, err := storage.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "useradd:", err)
		os.Exit(2)
	}
	hash, err := security.HashPassword(*password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "useradd:", err)
		os.Exit(2)
	}

	db := openDB(*dbPath)
	defer db.Close()
	id, err := db.CreateUser(*username, hash, r)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	name := storage.NormalizeUsername(*username)
	_ = db.LogAudit(name, "useradd", "", map[string]any{"role": r})
	fmt.Printf("User %s created (id %d, role %s)\n", name, id, r)
}
