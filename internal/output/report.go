package output

import (
	"fmt"
	"sort"
	"strings"

	"depgraph/internal/core/errors"
	"depgraph/internal/engine/graph"
)

type Format string

const (
	FormatText    Format = "text"
	FormatTSV     Format = "tsv"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
	FormatJSON    Format = "json"
)

// Formats lists every renderable format.
func Formats() []Format {
	return []Format{FormatText, FormatTSV, FormatDOT, FormatMermaid, FormatJSON}
}

// Report is a resolved closure plus the graph it came from, which the
// graph-shaped formats use to draw edges inside the closure.
type Report struct {
	Package      graph.PackageID
	Dependencies []graph.PackageID
	Graph        graph.Model
}

// Render dispatches to the generator for format.
func Render(format Format, r Report) (string, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatText, "":
		return NewTextGenerator(r).Generate()
	case FormatTSV:
		return NewTSVGenerator(r).Generate()
	case FormatDOT:
		return NewDOTGenerator(r).Generate()
	case FormatMermaid:
		return NewMermaidGenerator(r).Generate()
	case FormatJSON:
		return NewJSONGenerator(r).Generate()
	default:
		return "", errors.New(errors.CodeValidationError, fmt.Sprintf("unsupported output format %q", format))
	}
}

// members is the closure plus the root, root first, the rest sorted.
func (r Report) members() []graph.PackageID {
	out := make([]graph.PackageID, 0, len(r.Dependencies)+1)
	out = append(out, r.Package)
	for _, dep := range r.sorted() {
		if dep != r.Package {
			out = append(out, dep)
		}
	}
	return out
}

func (r Report) sorted() []graph.PackageID {
	deps := append([]graph.PackageID(nil), r.Dependencies...)
	sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	return deps
}

// direct is the set of the root's own declared dependencies.
func (r Report) direct() map[graph.PackageID]bool {
	set := make(map[graph.PackageID]bool)
	if r.Graph == nil {
		return set
	}
	for _, dep := range r.Graph.DependenciesOf(r.Package) {
		set[dep] = true
	}
	return set
}

type edge struct {
	from, to graph.PackageID
}

// edges lists distinct edges between closure members in member order.
func (r Report) edges() []edge {
	if r.Graph == nil {
		return nil
	}
	var out []edge
	for _, from := range r.members() {
		seen := make(map[graph.PackageID]bool)
		for _, to := range r.Graph.DependenciesOf(from) {
			if seen[to] {
				continue
			}
			seen[to] = true
			out = append(out, edge{from: from, to: to})
		}
	}
	return out
}
