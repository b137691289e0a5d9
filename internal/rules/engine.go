package rules

import (
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

// Engine evaluates a registry's rules against documents. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	Registry *Registry
	Settings Settings
	Logger   *slog.Logger
}

func NewEngine(reg *Registry, s Settings) *Engine {
	if reg == nil {
		reg = Default
	}
	return &Engine{Registry: reg, Settings: s}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) Category(docID string) string { return e.Settings.Category(docID) }

// ApplicableRules returns the enabled rules for a document id.
func (e *Engine) ApplicableRules(docID string) []Rule {
	var out []Rule
	for _, r := range e.Registry.ApplicableRules(e.Category(docID)) {
		if e.Settings.enabled(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate runs every applicable rule. Rule faults are returned as
// *EvalError values next to the findings of the rules that succeeded.
// A document that failed to parse yields only its parse error.
func (e *Engine) Evaluate(doc *parser.Document, vc *Context) ([]ir.Finding, []error) {
	rs := e.ApplicableRules(doc.ID)
	return e.evaluate(doc, vc, rs, coverage(rs))
}

// EvaluateRule runs one rule against doc if it applies to the document's
// category. Attribute coverage still comes from every applicable rule, so the
// result matches that rule's share of a full Evaluate.
func (e *Engine) EvaluateRule(ruleID string, doc *parser.Document, vc *Context) ([]ir.Finding, []error, bool) {
	rs := e.ApplicableRules(doc.ID)
	for _, r := range rs {
		if r.ID == normID(ruleID) {
			fs, errs := e.evaluate(doc, vc, []Rule{r}, coverage(rs))
			return fs, errs, true
		}
	}
	return nil, nil, false
}

func (e *Engine) evaluate(doc *parser.Document, vc *Context, rs []Rule, covered map[string]bool) ([]ir.Finding, []error) {
	if doc.Err != nil {
		return nil, []error{doc.Err}
	}
	if vc == nil {
		vc = NewContext()
	}
	in := Input{Doc: doc, Context: vc, Category: e.Category(doc.ID), covered: covered}

	var all []ir.Finding
	var errs []error
	seen := map[string]int{}
	for _, r := range rs {
		fs, err := safeEval(r, in)
		if err != nil {
			ee := &EvalError{RuleID: r.ID, Document: doc.ID, Err: err}
			e.logger().Warn("rule evaluation failed", "rule", r.ID, "document", doc.ID, "err", err)
			errs = append(errs, ee)
			continue
		}
		for _, f := range fs {
			if f.RuleID == "" {
				f.RuleID = r.ID
			}
			if f.Severity == "" {
				f.Severity = r.DefaultSeverity
			}
			if !e.Settings.severityOK(f.Severity) {
				continue
			}
			f.Document = doc.ID
			if f.ID == "" {
				k := f.RuleID + "|" + f.Element + "|" + f.Evidence
				f.ID = FindingID(f.RuleID, doc.ID, f.Element, f.Evidence, seen[k])
				seen[k]++
			}
			all = append(all, f)
		}
	}
	ir.SortFindings(all)
	return all, errs
}

func safeEval(r Rule, in Input) (fs []ir.Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			fs = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Eval(in)
}

func coverage(rs []Rule) map[string]bool {
	out := map[string]bool{}
	for _, r := range rs {
		for _, t := range r.Targets {
			out[t.key()] = true
		}
	}
	return out
}

// FindingID is stable across runs for the same rule, document, element and
// evidence; idx separates otherwise identical findings.
func FindingID(ruleID, doc, element, evidence string, idx int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d", ruleID, doc, element, evidence, idx)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}
