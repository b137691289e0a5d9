package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

// RangeSpec declares a numeric bound on one attribute of some elements.
// Unparsable values count as out of range.
type RangeSpec struct {
	ID         string
	Summary    string
	Elements   []string
	Attr       string
	Min, Max   float64 // use math.Inf for an open side
	Integer    bool
	Severity   ir.Severity
	LabelAttr  string // attribute naming the element in messages; default id
	Suggestion string
}

func RangeRule(s RangeSpec) Rule {
	return Rule{
		ID:              s.ID,
		Summary:         s.Summary,
		Family:          "range",
		DefaultSeverity: s.Severity,
		Targets:         targets(s.Elements, s.Attr),
		Eval: func(in Input) ([]ir.Finding, error) {
			var out []ir.Finding
			err := eachAttr(in.Doc, s.Elements, s.Attr, func(n *xmlquery.Node, raw string) {
				v, ok := parseNumber(raw, s.Integer)
				if ok && v >= s.Min && v <= s.Max {
					return
				}
				label := labelOf(n, s.LabelAttr)
				out = append(out, ir.Finding{
					Element:    label,
					Severity:   s.Severity,
					Message:    fmt.Sprintf("%s %s: %s %q is outside %s", n.Data, label, s.Attr, raw, describeBounds(s.Min, s.Max)),
					Suggestion: orDefault(s.Suggestion, fmt.Sprintf("set %s within %s", s.Attr, describeBounds(s.Min, s.Max))),
					Evidence:   s.Attr + "=" + raw,
				})
			})
			return out, err
		},
	}
}

// EnumSpec restricts an attribute to a fixed set of values (case-sensitive).
type EnumSpec struct {
	ID         string
	Summary    string
	Elements   []string
	Attr       string
	Allowed    []string
	Severity   ir.Severity
	LabelAttr  string
	Suggestion string
}

func EnumRule(s EnumSpec) Rule {
	allowed := make(map[string]bool, len(s.Allowed))
	for _, v := range s.Allowed {
		allowed[v] = true
	}
	return Rule{
		ID:              s.ID,
		Summary:         s.Summary,
		Family:          "enum",
		DefaultSeverity: s.Severity,
		Targets:         targets(s.Elements, s.Attr),
		Eval: func(in Input) ([]ir.Finding, error) {
			var out []ir.Finding
			err := eachAttr(in.Doc, s.Elements, s.Attr, func(n *xmlquery.Node, raw string) {
				if allowed[strings.TrimSpace(raw)] {
					return
				}
				label := labelOf(n, s.LabelAttr)
				out = append(out, ir.Finding{
					Element:    label,
					Severity:   s.Severity,
					Message:    fmt.Sprintf("%s %s: %s %q is not an allowed value", n.Data, label, s.Attr, raw),
					Suggestion: orDefault(s.Suggestion, "use one of: "+strings.Join(s.Allowed, ", ")),
					Evidence:   s.Attr + "=" + raw,
				})
			})
			return out, err
		},
	}
}

// PatternSpec requires an attribute to match a regular expression.
type PatternSpec struct {
	ID         string
	Summary    string
	Elements   []string
	Attr       string
	Pattern    *regexp.Regexp
	Severity   ir.Severity
	LabelAttr  string
	Suggestion string
}

func PatternRule(s PatternSpec) Rule {
	return Rule{
		ID:              s.ID,
		Summary:         s.Summary,
		Family:          "pattern",
		DefaultSeverity: s.Severity,
		Targets:         targets(s.Elements, s.Attr),
		Eval: func(in Input) ([]ir.Finding, error) {
			var out []ir.Finding
			err := eachAttr(in.Doc, s.Elements, s.Attr, func(n *xmlquery.Node, raw string) {
				if s.Pattern.MatchString(raw) {
					return
				}
				label := labelOf(n, s.LabelAttr)
				out = append(out, ir.Finding{
					Element:    label,
					Severity:   s.Severity,
					Message:    fmt.Sprintf("%s %s: %s %q does not match %s", n.Data, label, s.Attr, raw, s.Pattern),
					Suggestion: orDefault(s.Suggestion, "adjust "+s.Attr+" to match "+s.Pattern.String()),
					Evidence:   s.Attr + "=" + raw,
				})
			})
			return out, err
		},
	}
}

// eachAttr calls fn for every element named in elements that carries attr
// (matched case-insensitively), in document order.
func eachAttr(doc *parser.Document, elements []string, attr string, fn func(n *xmlquery.Node, raw string)) error {
	for _, el := range elements {
		nodes, err := doc.Query("descendant-or-self::" + el)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if raw, ok := parser.AttrFold(n, attr); ok {
				fn(n, raw)
			}
		}
	}
	return nil
}

func targets(elements []string, attr string) []Target {
	out := make([]Target, 0, len(elements))
	for _, el := range elements {
		out = append(out, Target{Element: el, Attr: attr})
	}
	return out
}

func parseNumber(raw string, integer bool) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if integer {
		n, err := strconv.ParseInt(raw, 10, 64)
		return float64(n), err == nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func describeBounds(min, max float64) string {
	switch {
	case math.IsInf(max, 1) && math.IsInf(min, -1):
		return "any value"
	case math.IsInf(max, 1):
		return ">= " + formatNumber(min)
	case math.IsInf(min, -1):
		return "<= " + formatNumber(max)
	}
	return formatNumber(min) + "-" + formatNumber(max)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func labelOf(n *xmlquery.Node, attr string) string {
	if attr != "" && attr != "id" {
		if v := parser.Attr(n, attr); v != "" {
			return v
		}
	}
	return parser.ElementLabel(n)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func normID(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }
