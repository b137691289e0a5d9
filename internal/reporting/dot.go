package reporting

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
)

// DOT renders the dependency graph in Graphviz syntax. Edges point from a
// document to its dependency; missing targets are dashed, cycle edges red.
func DOT(w io.Writer, r *ir.Report) error {
	bw := bufio.NewWriter(w)
	inCycle := map[string]bool{}
	for _, c := range r.Cycles {
		for i, n := range c.Nodes {
			inCycle[n+"\x00"+c.Nodes[(i+1)%len(c.Nodes)]] = true
		}
	}
	invalid := map[string]bool{}
	for _, f := range r.Files {
		if !f.Valid {
			invalid[f.Document] = true
		}
	}

	fmt.Fprintln(bw, "digraph dependencies {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box, fontname=\"Helvetica\"];")
	for _, f := range r.Files {
		attrs := ""
		if invalid[f.Document] {
			attrs = " [color=orange]"
		}
		fmt.Fprintf(bw, "  %s%s;\n", quote(f.Document), attrs)
	}
	missing := map[string]bool{}
	for _, e := range r.Edges {
		if e.Missing && !missing[e.To] {
			missing[e.To] = true
			fmt.Fprintf(bw, "  %s [style=dashed, color=gray];\n", quote(e.To))
		}
	}
	for _, e := range r.Edges {
		var attrs []string
		if len(e.Origins) > 0 {
			labels := make([]string, len(e.Origins))
			for i, o := range e.Origins {
				labels[i] = strings.ToLower(string(o))
			}
			attrs = append(attrs, "label="+quote(strings.Join(labels, ",")))
		}
		if e.Missing {
			attrs = append(attrs, "style=dashed")
		}
		if inCycle[e.From+"\x00"+e.To] {
			attrs = append(attrs, "color=red")
		}
		fmt.Fprintf(bw, "  %s -> %s", quote(e.From), quote(e.To))
		if len(attrs) > 0 {
			fmt.Fprintf(bw, " [%s]", strings.Join(attrs, ", "))
		}
		fmt.Fprintln(bw, ";")
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func WriteDOT(runID, outDir string, r *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".dot")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return path, DOT(f, r)
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// quote renders s as a DOT double-quoted string.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
