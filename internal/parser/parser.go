package parser

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

var DefaultInclude = []string{"**/*.xml"}

type Options struct {
	Include []string // doublestar globs relative to the root; empty = DefaultInclude
	Exclude []string
	Workers int // 0 = GOMAXPROCS
	Logger  *slog.Logger
}

type Diagnostics struct {
	Warnings []string
}

// Corpus is the flat, id-sorted document list of one run.
type Corpus struct {
	Root string
	Docs []*Document
	byID map[string]*Document
}

func NewCorpus(root string, docs []*Document) (*Corpus, Diagnostics) {
	var diags Diagnostics
	sorted := append([]*Document(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Path < sorted[j].Path
	})
	c := &Corpus{Root: root, byID: make(map[string]*Document, len(sorted))}
	for _, d := range sorted {
		if prev, ok := c.byID[d.ID]; ok {
			diags.Warnings = append(diags.Warnings,
				fmt.Sprintf("duplicate document id %q: %s ignored, keeping %s", d.ID, d.Path, prev.Path))
			continue
		}
		c.byID[d.ID] = d
		c.Docs = append(c.Docs, d)
	}
	return c, diags
}

func (c *Corpus) Get(id string) (*Document, bool) {
	d, ok := c.byID[id]
	return d, ok
}

func (c *Corpus) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Corpus) IDs() []string {
	out := make([]string, len(c.Docs))
	for i, d := range c.Docs {
		out[i] = d.ID
	}
	return out
}

// CheckRoot returns an *InputError when root is not an existing directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return &InputError{Path: root, Reason: "does not exist"}
		}
		return &InputError{Path: root, Reason: err.Error()}
	}
	if !info.IsDir() {
		return &InputError{Path: root, Reason: "not a directory"}
	}
	return nil
}

// Enumerate lists every document path under root accepted by the include
// and exclude globs, in lexical order.
func Enumerate(root string, opts Options) ([]string, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob %q", p)
		}
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtree: skip rather than abort the corpus
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matchAny(include, rel) && !matchAny(opts.Exclude, rel) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Parse enumerates and parses a corpus with a bounded worker pool.
// Only a missing root or a cancelled context is returned as an error;
// a document that fails to parse carries its ParseError instead.
func Parse(ctx context.Context, root string, opts Options) (*Corpus, Diagnostics, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := Enumerate(root, opts)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	docs := make([]*Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(opts.Workers))
	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i] = ParseFile(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Diagnostics{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Diagnostics{}, err
	}

	corpus, diags := NewCorpus(filepath.Clean(root), docs)
	for _, d := range corpus.Docs {
		if d.Err != nil {
			logger.Warn("document parse failed", "document", d.ID, "path", d.Path, "err", d.Err)
		}
	}
	if len(corpus.Docs) == 0 {
		diags.Warnings = append(diags.Warnings, "no configuration documents found under "+root)
	}
	return corpus, diags, nil
}

func workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
