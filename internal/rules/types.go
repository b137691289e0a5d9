package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

// Wildcard is the category whose rules apply to every document.
const Wildcard = "*"

// Rule represents a single validation rule executed over one document.
type Rule struct {
	ID              string
	Summary         string
	Family          string // identity|enum|range|sweep|reference|pattern
	DefaultSeverity ir.Severity
	Docs            string
	// Targets lists the element/attribute pairs the rule checks, so the
	// generic sweep can skip them.
	Targets []Target
	// Eval inspects the document and returns findings. Returning an error or
	// panicking drops this rule's findings for the document only.
	Eval func(in Input) ([]ir.Finding, error)
}

type Target struct {
	Element string
	Attr    string
}

func (t Target) key() string {
	return t.Element + "@" + strings.ToLower(t.Attr)
}

// Input is what a rule sees for one evaluation.
type Input struct {
	Doc      *parser.Document
	Context  *Context
	Category string
	covered  map[string]bool
}

// Covered reports whether a category-specific rule already checks attr on element.
func (in Input) Covered(element, attr string) bool {
	return in.covered[Target{Element: element, Attr: attr}.key()]
}

// EvalError records a rule that faulted on a document.
type EvalError struct {
	RuleID   string
	Document string
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("rule %s failed on %s: %v", e.RuleID, e.Document, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
