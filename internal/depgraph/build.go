package depgraph

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/xref"
)

// Extraction is the per-document outcome of building the graph.
type Extraction struct {
	ID      string
	Path    string
	Deps    xref.Result
	Missing []string
	Err     error // parse failure; such documents contribute no edges
}

type Result struct {
	Graph       *Graph
	Extractions []Extraction // same order as the corpus
}

func (r *Result) Extraction(id string) (Extraction, bool) {
	for _, e := range r.Extractions {
		if e.ID == id {
			return e, true
		}
	}
	return Extraction{}, false
}

type Builder struct {
	Extractor *xref.Extractor
	Workers   int
	Logger    *slog.Logger
}

// Build extracts references from every document concurrently, then joins
// before assembling the graph. Only context cancellation is returned.
func (b *Builder) Build(ctx context.Context, corpus *parser.Corpus) (*Result, error) {
	ex := b.Extractor
	if ex == nil {
		ex = xref.NewDefault()
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := b.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	results := make([]xref.Result, len(corpus.Docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i, d := range corpus.Docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ex.Extract(d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := NewGraph(corpus.IDs()...)
	out := &Result{Graph: graph, Extractions: make([]Extraction, len(corpus.Docs))}
	for i, d := range corpus.Docs {
		r := results[i]
		for _, dep := range r.All {
			graph.AddEdge(d.ID, dep, r.Origins(dep)...)
		}
		out.Extractions[i] = Extraction{ID: d.ID, Path: d.Path, Deps: r, Err: d.Err}
	}
	for i := range out.Extractions {
		e := &out.Extractions[i]
		e.Missing = graph.Missing(e.ID)
		if len(e.Missing) > 0 {
			logger.Debug("missing dependencies", "document", e.ID, "missing", e.Missing)
		}
	}
	return out, nil
}

// MissingSeverity grades a missing dependency by how it was inferred:
// declared couplings are errors, content guesses only warnings.
func MissingSeverity(origins []ir.Origin) ir.Severity {
	for _, o := range origins {
		if o == ir.OriginPredefined || o == ir.OriginSchema {
			return ir.SeverityError
		}
	}
	return ir.SeverityWarning
}
