package xref

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

// Result lists a document's inferred dependencies per strategy; every list
// is sorted and free of duplicates and of the document's own id.
type Result struct {
	Predefined []string
	Content    []string
	Schema     []string
	All        []string
}

// Origins reports which strategies produced dep.
func (r Result) Origins(dep string) []ir.Origin {
	var out []ir.Origin
	if contains(r.Predefined, dep) {
		out = append(out, ir.OriginPredefined)
	}
	if contains(r.Content, dep) {
		out = append(out, ir.OriginContent)
	}
	if contains(r.Schema, dep) {
		out = append(out, ir.OriginSchema)
	}
	return out
}

type Extractor struct {
	tables Tables
}

func New(t Tables) *Extractor {
	return &Extractor{tables: t.Clone()}
}

func NewDefault() *Extractor {
	return &Extractor{tables: defaultTables.Clone()}
}

func (e *Extractor) Tables() Tables { return e.tables.Clone() }

// Extract never fails: a document that did not parse yields an empty Result
// and query errors drop only the affected pattern.
func (e *Extractor) Extract(doc *parser.Document) Result {
	if doc == nil || doc.Err != nil || doc.Root == nil {
		return Result{}
	}
	r := Result{
		Predefined: e.predefined(doc),
		Content:    e.content(doc),
		Schema:     e.schema(doc),
	}
	r.All = union(doc.ID, r.Predefined, r.Content, r.Schema)
	return r
}

func (e *Extractor) predefined(doc *parser.Document) []string {
	return union(doc.ID, e.tables.Predefined[doc.ID])
}

func (e *Extractor) content(doc *parser.Document) []string {
	var found []string
	for _, attr := range e.tables.RefAttrs {
		vals, err := doc.AttrValues(attr)
		if err != nil {
			continue
		}
		for _, v := range vals {
			if dep := e.tables.Infer(v); dep != "" {
				found = append(found, dep)
			}
		}
	}
	for _, el := range e.tables.RefElements {
		nodes, err := doc.Query(fmt.Sprintf("descendant-or-self::%s[@id]", el))
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if dep := e.tables.Infer(parser.Attr(n, "id")); dep != "" {
				found = append(found, dep)
			}
		}
	}
	for el, dep := range e.tables.Markers {
		nodes, err := doc.Query("descendant-or-self::" + el)
		if err == nil && len(nodes) > 0 {
			found = append(found, dep)
		}
	}
	return union(doc.ID, found)
}

func (e *Extractor) schema(doc *parser.Document) []string {
	var found []string
	for _, tok := range strings.Fields(parser.Attr(doc.Root, "schemaLocation")) {
		if strings.HasSuffix(strings.ToLower(tok), ".xsd") {
			found = append(found, schemaBase(tok))
		}
	}
	if loc := strings.TrimSpace(parser.Attr(doc.Root, "noNamespaceSchemaLocation")); loc != "" {
		found = append(found, schemaBase(loc))
	}
	return union(doc.ID, found)
}

func schemaBase(loc string) string {
	loc = strings.ReplaceAll(loc, "\\", "/")
	base := path.Base(loc)
	return strings.TrimSuffix(base, path.Ext(base))
}

func union(self string, lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range lists {
		for _, v := range l {
			if v == "" || v == "." || v == self {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	i := sort.SearchStrings(list, v)
	return i < len(list) && list[i] == v
}
