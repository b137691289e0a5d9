package rulesdsl

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/rules"
)

type dslPack struct {
	Rules []dslRule `yaml:"rules"`
}

type dslRule struct {
	ID         string   `yaml:"id"`
	Category   string   `yaml:"category"` // document category; default "*"
	Summary    string   `yaml:"summary"`
	Kind       string   `yaml:"kind"`     // range|enum|pattern
	Severity   string   `yaml:"severity"` // INFO|WARNING|ERROR
	Elements   []string `yaml:"elements"`
	Attr       string   `yaml:"attr"`
	LabelAttr  string   `yaml:"label_attr"`
	Suggestion string   `yaml:"suggestion"`

	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Integer bool     `yaml:"integer"`

	Allowed []string `yaml:"allowed"`

	Pattern string `yaml:"pattern"`
}

// LoadAndRegister compiles a YAML rule pack into reg. Rules compiled before
// a failing entry stay registered; the count says how many.
func LoadAndRegister(path string, reg *rules.Registry) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rules pack: %w", err)
	}
	return Register(b, reg)
}

func Register(data []byte, reg *rules.Registry) (int, error) {
	var pack dslPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return 0, fmt.Errorf("parse yaml: %w", err)
	}
	var n int
	for _, r := range pack.Rules {
		rule, err := compile(r)
		if err != nil {
			return n, fmt.Errorf("compile rule %q: %w", r.ID, err)
		}
		if err := reg.Register(r.Category, rule); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func compile(r dslRule) (rules.Rule, error) {
	if r.ID == "" || r.Kind == "" || r.Attr == "" || len(r.Elements) == 0 {
		return rules.Rule{}, fmt.Errorf("missing required fields (id/kind/attr/elements)")
	}
	sev := ir.SeverityWarning
	if r.Severity != "" {
		sev = ir.ParseSeverity(r.Severity)
	}
	switch strings.ToLower(r.Kind) {
	case "range":
		if r.Min == nil && r.Max == nil {
			return rules.Rule{}, fmt.Errorf("range rule needs min or max")
		}
		min, max := math.Inf(-1), math.Inf(1)
		if r.Min != nil {
			min = *r.Min
		}
		if r.Max != nil {
			max = *r.Max
		}
		if min > max {
			return rules.Rule{}, fmt.Errorf("min %v greater than max %v", min, max)
		}
		return rules.RangeRule(rules.RangeSpec{
			ID: r.ID, Summary: r.Summary, Elements: r.Elements, Attr: r.Attr,
			Min: min, Max: max, Integer: r.Integer, Severity: sev,
			LabelAttr: r.LabelAttr, Suggestion: r.Suggestion,
		}), nil
	case "enum":
		if len(r.Allowed) == 0 {
			return rules.Rule{}, fmt.Errorf("enum rule needs allowed values")
		}
		return rules.EnumRule(rules.EnumSpec{
			ID: r.ID, Summary: r.Summary, Elements: r.Elements, Attr: r.Attr,
			Allowed: r.Allowed, Severity: sev, LabelAttr: r.LabelAttr, Suggestion: r.Suggestion,
		}), nil
	case "pattern":
		re, err := regexp.Compile(r.Pattern)
		if err != nil || r.Pattern == "" {
			return rules.Rule{}, fmt.Errorf("pattern: %v", err)
		}
		return rules.PatternRule(rules.PatternSpec{
			ID: r.ID, Summary: r.Summary, Elements: r.Elements, Attr: r.Attr,
			Pattern: re, Severity: sev, LabelAttr: r.LabelAttr, Suggestion: r.Suggestion,
		}), nil
	}
	return rules.Rule{}, fmt.Errorf("unknown kind %q", r.Kind)
}
