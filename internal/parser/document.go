package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Document is one parsed configuration file. The tree is shared read-only
// by every analysis step and must not be mutated.
type Document struct {
	ID   string
	Path string
	Root *xmlquery.Node // root element; nil when Err is set
	Err  error
}

// BaseID is the file name without its extension.
func BaseID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFile reads and parses one document. Failures are stored on the
// returned Document as a *ParseError.
func ParseFile(path string) *Document {
	d := &Document{ID: BaseID(path), Path: path}
	f, err := os.Open(path)
	if err != nil {
		d.Err = &ParseError{Path: path, Err: err}
		return d
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		d.Err = &ParseError{Path: path, Err: err}
		return d
	}
	root := rootElement(doc)
	if root == nil {
		d.Err = &ParseError{Path: path, Err: errors.New("no root element")}
		return d
	}
	d.Root = root
	return d
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// Query evaluates an XPath expression against the document root.
// No match yields an empty slice; a malformed document or expression yields an error.
func (d *Document) Query(expr string) ([]*xmlquery.Node, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	if d.Root == nil {
		return nil, &ParseError{Path: d.Path, Err: errors.New("document not loaded")}
	}
	nodes, err := xmlquery.QueryAll(d.Root, expr)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", expr, err)
	}
	return nodes, nil
}

// Elements returns every element (root included) carrying attribute name.
func (d *Document) Elements(name string) ([]*xmlquery.Node, error) {
	return d.Query(fmt.Sprintf("descendant-or-self::*[@%s]", name))
}

// AttrValues returns the non-empty values of attribute name anywhere in the document.
func (d *Document) AttrValues(name string) ([]string, error) {
	nodes, err := d.Elements(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if v := strings.TrimSpace(Attr(n, name)); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// Attr returns the value of the attribute whose local name is name,
// ignoring any namespace prefix.
func Attr(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present, even if empty.
func HasAttr(n *xmlquery.Node, name string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// ElementLabel names an element for findings: its id, else the parent's id.
func ElementLabel(n *xmlquery.Node) string {
	if n == nil {
		return "Unknown"
	}
	if id := Attr(n, "id"); id != "" {
		return id
	}
	if p := n.Parent; p != nil && p.Type == xmlquery.ElementNode {
		if id := Attr(p, "id"); id != "" {
			return id
		}
	}
	return "Unknown"
}

// AttrFold is Attr with a case-insensitive name match.
func AttrFold(n *xmlquery.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}
