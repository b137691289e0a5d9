package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/modlint/internal/depgraph"
	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/rules"
	"github.com/codewithboateng/modlint/internal/xref"
)

// Findings raised by the orchestrator itself rather than by a registered rule.
const (
	RuleMissingDependency = "DEPENDENCY-MISSING"
	RuleDocumentParse     = "DOCUMENT-PARSE"
)

// Recorder observes completed runs. The metrics package implements it.
type Recorder interface {
	ObserveRun(r *ir.Report, elapsed time.Duration)
}

type Options struct {
	Parser    parser.Options
	Workers   int // rule evaluation pool; 0 = GOMAXPROCS
	CacheSize int // module states kept for RunFile; 0 = 8
	RulePacks []string
	Logger    *slog.Logger
	Recorder  Recorder
}

// Orchestrator drives parsing, graph analysis and rule evaluation over a
// corpus and assembles the report.
type Orchestrator struct {
	engine    *rules.Engine
	extractor *xref.Extractor
	opts      Options
	logger    *slog.Logger
	states    *lru.Cache[string, *moduleState]
}

// moduleState is everything derived from one parse of a corpus root.
type moduleState struct {
	corpus *parser.Corpus
	diags  parser.Diagnostics
	deps   *depgraph.Result
	vc     *rules.Context
}

func New(engine *rules.Engine, extractor *xref.Extractor, opts Options) (*Orchestrator, error) {
	if engine == nil {
		engine = rules.NewEngine(nil, rules.DefaultSettings())
	}
	if extractor == nil {
		extractor = xref.NewDefault()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Parser.Logger == nil {
		opts.Parser.Logger = logger
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 8
	}
	states, err := lru.New[string, *moduleState](size)
	if err != nil {
		return nil, fmt.Errorf("module cache: %w", err)
	}
	return &Orchestrator{engine: engine, extractor: extractor, opts: opts, logger: logger, states: states}, nil
}

func (o *Orchestrator) Engine() *rules.Engine { return o.engine }

// Invalidate drops the cached state of a corpus root.
func (o *Orchestrator) Invalidate(root string) {
	o.states.Remove(cacheKey(root))
}

func cacheKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

// load parses root and builds its graph and validation context, replacing
// any cached state.
func (o *Orchestrator) load(ctx context.Context, root string) (*moduleState, error) {
	if err := parser.CheckRoot(root); err != nil {
		return nil, err
	}
	corpus, diags, err := parser.Parse(ctx, root, o.opts.Parser)
	if err != nil {
		return nil, err
	}
	for _, w := range diags.Warnings {
		o.logger.Warn("corpus warning", "root", root, "warning", w)
	}
	b := depgraph.Builder{Extractor: o.extractor, Workers: o.opts.Parser.Workers, Logger: o.logger}
	deps, err := b.Build(ctx, corpus)
	if err != nil {
		return nil, err
	}
	st := &moduleState{
		corpus: corpus,
		diags:  diags,
		deps:   deps,
		vc:     rules.Collect(corpus, o.engine.Category, o.logger),
	}
	o.states.Add(cacheKey(root), st)
	return st, nil
}

// cached returns the cached state of root, loading it on a miss.
func (o *Orchestrator) cached(ctx context.Context, root string) (*moduleState, error) {
	if st, ok := o.states.Get(cacheKey(root)); ok {
		return st, nil
	}
	return o.load(ctx, root)
}

type evalResult struct {
	findings []ir.Finding
	errs     []error
}

// RunModule validates every document under root. Only a missing root or a
// cancelled context is returned as an error; everything else is reported.
func (o *Orchestrator) RunModule(ctx context.Context, root string) (*ir.Report, error) {
	start := time.Now()
	st, err := o.load(ctx, root)
	if err != nil {
		return nil, err
	}
	g := st.deps.Graph
	cycles := depgraph.FindCycles(g)
	order := depgraph.Plan(g)

	evals, err := o.evaluateAll(ctx, st)
	if err != nil {
		return nil, err
	}

	r := o.newReport(st.corpus.Root)
	r.Edges = g.Edges()
	r.Cycles = cycles
	r.LoadOrder = order
	r.Files = make([]ir.FileResult, len(st.corpus.Docs))
	for i, d := range st.corpus.Docs {
		ex := st.deps.Extractions[i]
		fr := o.fileResult(d, ex.Deps, ex.Missing, func(dep string) []ir.Origin { return g.Origins(d.ID, dep) })
		appendEval(&fr, evals[i])
		r.Files[i] = fr
	}
	Finalize(r)

	elapsed := time.Since(start)
	if o.opts.Recorder != nil {
		o.opts.Recorder.ObserveRun(r, elapsed)
	}
	o.logger.Info("run complete",
		"run", r.ID,
		"root", r.Source,
		"files", r.Totals.Files,
		"errors", r.Totals.Errors,
		"warnings", r.Totals.Warnings,
		"cycles", r.Totals.Cycles,
		"elapsed", elapsed,
	)
	return r, nil
}

// evaluateAll runs the rule engine over every document with a bounded pool.
// Results are indexed by corpus position so the merge is order independent.
func (o *Orchestrator) evaluateAll(ctx context.Context, st *moduleState) ([]evalResult, error) {
	out := make([]evalResult, len(st.corpus.Docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(o.opts.Workers))
	for i, d := range st.corpus.Docs {
		if d.Err != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fs, errs := o.engine.Evaluate(d, st.vc)
			out[i] = evalResult{findings: fs, errs: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) newReport(root string) *ir.Report {
	s := o.engine.Settings
	th := s.SeverityThreshold
	if th == "" {
		th = ir.SeverityInfo
	}
	return &ir.Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    root,
		IRVersion: ir.Version,
		Context: ir.Context{
			RuleSeverityThreshold: string(th),
			DisabledRules:         s.DisabledList(),
			RulePacks:             o.opts.RulePacks,
		},
	}
}

// fileResult fills dependency lists and the orchestrator's own findings for
// one document. origins reports how a missing dependency was inferred.
func (o *Orchestrator) fileResult(d *parser.Document, deps xref.Result, missing []string, origins func(string) []ir.Origin) ir.FileResult {
	fr := ir.FileResult{
		Document: d.ID,
		Path:     d.Path,
		Category: o.engine.Category(d.ID),
		Dependencies: ir.Dependencies{
			Predefined: deps.Predefined,
			Content:    deps.Content,
			Schema:     deps.Schema,
			All:        deps.All,
			Missing:    missing,
		},
	}
	if d.Err != nil {
		fr.Errors = append(fr.Errors, d.Err.Error())
		o.addFinding(&fr, ir.Finding{
			RuleID:     RuleDocumentParse,
			Severity:   ir.SeverityError,
			Message:    d.Err.Error(),
			Suggestion: "fix the XML syntax of " + filepath.Base(d.Path),
			Evidence:   filepath.Base(d.Path),
		})
	}
	for _, dep := range missing {
		org := origins(dep)
		o.addFinding(&fr, ir.Finding{
			Element:    dep,
			RuleID:     RuleMissingDependency,
			Severity:   depgraph.MissingSeverity(org),
			Message:    fmt.Sprintf("%s depends on %s, which is not in the corpus (%s)", d.ID, dep, joinOrigins(org)),
			Suggestion: fmt.Sprintf("create missing file %s.xml or remove the reference", dep),
			Evidence:   "dependency=" + dep,
		})
	}
	return fr
}

func (o *Orchestrator) addFinding(fr *ir.FileResult, f ir.Finding) {
	if !o.engine.Settings.Keeps(f.RuleID, f.Severity) {
		return
	}
	f.Document = fr.Document
	f.ID = rules.FindingID(f.RuleID, f.Document, f.Element, f.Evidence, 0)
	fr.Findings = append(fr.Findings, f)
}

func appendEval(fr *ir.FileResult, ev evalResult) {
	fr.Findings = append(fr.Findings, ev.findings...)
	for _, err := range ev.errs {
		fr.Errors = append(fr.Errors, err.Error())
	}
	ir.SortFindings(fr.Findings)
}

// Finalize recounts the report and derives its summary lines and suggestions.
// Call it again whenever findings are removed after a run, e.g. by waivers.
func Finalize(r *ir.Report) {
	r.Recount()
	r.Issues = issues(r)
	r.Suggestions = suggestions(r)
}

func joinOrigins(origins []ir.Origin) string {
	if len(origins) == 0 {
		return "unknown origin"
	}
	names := make([]string, len(origins))
	for i, o := range origins {
		names[i] = strings.ToLower(string(o))
	}
	return strings.Join(names, ", ")
}

func workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
