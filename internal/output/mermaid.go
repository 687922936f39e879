package output

import (
	"fmt"
	"strings"
	"unicode"

	"depgraph/internal/engine/graph"
)

type MermaidGenerator struct {
	report Report
}

func NewMermaidGenerator(r Report) *MermaidGenerator {
	return &MermaidGenerator{report: r}
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	members := m.report.members()
	ids := makeMermaidIDs(members)

	for _, id := range members {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[id], escapeMermaidLabel(string(id))))
	}
	for _, e := range m.report.edges() {
		b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[e.from], ids[e.to]))
	}

	b.WriteString("  classDef root fill:#dbe8f6,stroke:#2b5d8a,stroke-width:2px;\n")
	b.WriteString(fmt.Sprintf("  class %s root\n", ids[m.report.Package]))

	if m.report.Graph != nil {
		var leaves []string
		for _, id := range members[1:] {
			if !m.report.Graph.Contains(id) {
				leaves = append(leaves, ids[id])
			}
		}
		if len(leaves) > 0 {
			b.WriteString("  classDef undeclared fill:#eeeeee,stroke:#999999,stroke-dasharray:4 2;\n")
			b.WriteString(fmt.Sprintf("  class %s undeclared\n", strings.Join(leaves, ",")))
		}
	}

	return b.String(), nil
}

func sanitizeMermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "p"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "p_" + out
	}
	return out
}

// makeMermaidIDs keeps ids unique when distinct names sanitize alike.
func makeMermaidIDs(names []graph.PackageID) map[graph.PackageID]string {
	ids := make(map[graph.PackageID]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(string(name))
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
