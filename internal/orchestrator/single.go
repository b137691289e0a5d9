package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codewithboateng/modlint/internal/depgraph"
	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/rules"
)

// RunFile validates one document against the module it belongs to. root
// defaults to the document's directory. The module's context is reused from
// the cache when present; the document itself is always re-read.
func (o *Orchestrator) RunFile(ctx context.Context, path, root string) (*ir.FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &parser.InputError{Path: path, Reason: "does not exist"}
	}
	if info.IsDir() {
		return nil, &parser.InputError{Path: path, Reason: "is a directory"}
	}
	if root == "" {
		root = filepath.Dir(path)
	}
	st, err := o.cached(ctx, root)
	if err != nil {
		return nil, err
	}

	d := parser.ParseFile(path)
	deps := o.extractor.Extract(d)
	var missing []string
	for _, dep := range deps.All {
		if !st.corpus.Has(dep) {
			missing = append(missing, dep)
		}
	}
	fr := o.fileResult(d, deps, missing, deps.Origins)
	if d.Err == nil {
		fs, errs := o.engine.Evaluate(d, st.vc)
		appendEval(&fr, evalResult{findings: fs, errs: errs})
	}

	r := ir.Report{Files: []ir.FileResult{fr}}
	r.Recount()
	return &r.Files[0], nil
}

// RunRule evaluates a single rule over every document it applies to.
func (o *Orchestrator) RunRule(ctx context.Context, root, ruleID string) (*ir.Report, error) {
	if _, ok := o.engine.Registry.Get(ruleID); !ok {
		return nil, fmt.Errorf("%w: %s", rules.ErrUnknownRule, ruleID)
	}
	st, err := o.load(ctx, root)
	if err != nil {
		return nil, err
	}
	r := o.newReport(st.corpus.Root)
	for _, d := range st.corpus.Docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fs, errs, ok := o.engine.EvaluateRule(ruleID, d, st.vc)
		if !ok {
			continue
		}
		fr := ir.FileResult{Document: d.ID, Path: d.Path, Category: o.engine.Category(d.ID)}
		appendEval(&fr, evalResult{findings: fs, errs: errs})
		r.Files = append(r.Files, fr)
	}
	Finalize(r)
	return r, nil
}

// LoadOrder plans a load order for root and returns the cycles that
// excluded documents from it.
func (o *Orchestrator) LoadOrder(ctx context.Context, root string) (ir.LoadOrder, []ir.Cycle, error) {
	st, err := o.load(ctx, root)
	if err != nil {
		return ir.LoadOrder{}, nil, err
	}
	return depgraph.Plan(st.deps.Graph), depgraph.FindCycles(st.deps.Graph), nil
}

func (o *Orchestrator) DependencyGraph(ctx context.Context, root string) (*depgraph.Result, error) {
	st, err := o.load(ctx, root)
	if err != nil {
		return nil, err
	}
	return st.deps, nil
}
