package output

import (
	"fmt"
	"strings"
)

type DOTGenerator struct {
	report Report
}

func NewDOTGenerator(r Report) *DOTGenerator {
	return &DOTGenerator{report: r}
}

func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  nodesep=0.6;\n\n")

	root := d.report.Package
	direct := d.report.direct()
	for _, id := range d.report.members() {
		switch {
		case id == root:
			buf.WriteString(fmt.Sprintf("  %q [fillcolor=\"lightsteelblue\", style=\"rounded,filled,bold\"];\n", id))
		case d.report.Graph != nil && !d.report.Graph.Contains(id):
			// Referenced but never declared.
			buf.WriteString(fmt.Sprintf("  %q [fillcolor=\"gainsboro\", style=\"rounded,filled,dashed\", color=\"grey\"];\n", id))
		default:
			buf.WriteString(fmt.Sprintf("  %q;\n", id))
		}
	}
	buf.WriteString("\n")

	for _, e := range d.report.edges() {
		if e.from == root && direct[e.to] {
			buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"forestgreen\", penwidth=1.8];\n", e.from, e.to))
			continue
		}
		buf.WriteString(fmt.Sprintf("  %q -> %q;\n", e.from, e.to))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
