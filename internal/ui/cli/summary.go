package cli

import (
	"fmt"
	"strings"

	"depgraph/internal/core/ports"
	"depgraph/internal/data/history"
	"depgraph/internal/engine/graph"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// renderGraphSummary prints the loaded graph size, the most depended-on
// packages and any registry packages that could not be fetched.
func renderGraphSummary(s ports.GraphSummary) string {
	var b strings.Builder
	b.WriteString(statusStyle.Render(fmt.Sprintf("Graph %s: %d packages, %d edges", s.Source, s.Nodes, s.Edges)))
	b.WriteString("\n")

	top := make([]string, 0, len(s.TopFanIn))
	for _, m := range s.TopFanIn {
		top = append(top, fmt.Sprintf("%s (%d)", m.ID, m.FanIn))
	}
	if len(top) > 0 {
		b.WriteString(statusStyle.Render("Most depended on: " + strings.Join(top, ", ")))
		b.WriteString("\n")
	}

	if len(s.Missing) > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Not found in registry (%d): %s", len(s.Missing), strings.Join(s.Missing, ", "))))
		b.WriteString("\n")
	}
	if s.Truncated {
		b.WriteString(errorStyle.Render("Registry crawl stopped at the configured depth or package limit"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSummary(res ports.ResolveResult, persisted *ports.PersistResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Dependencies of package %s", res.Package)))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(fmt.Sprintf("(%d total, %d direct)", len(res.Dependencies), res.Direct)))
	b.WriteString("\n")
	for _, dep := range res.Dependencies {
		fmt.Fprintf(&b, "  - %s\n", dep)
	}
	if len(res.Dependencies) == 0 {
		b.WriteString(statusStyle.Render("  no dependencies"))
		b.WriteString("\n")
	}

	if persisted != nil {
		line := fmt.Sprintf("Wrote %s output to %s", persisted.Format, persisted.OutputPath)
		if persisted.CommitHash != "" {
			line += fmt.Sprintf(" (commit %s)", persisted.CommitHash)
		}
		b.WriteString(statusStyle.Render(line))
		b.WriteString("\n")
		if persisted.MarkdownPath != "" {
			b.WriteString(statusStyle.Render("Updated diagram in " + persisted.MarkdownPath))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderCycles(cycles [][]string, total int) string {
	if total == 0 {
		return countStyle.Render("No dependency cycles found.") + "\n"
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("Dependency cycles (%d):", total)))
	b.WriteString("\n")
	for _, cycle := range cycles {
		fmt.Fprintf(&b, "  %s\n", strings.Join(cycle, " -> "))
	}
	if total > len(cycles) {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  ... %d more", total-len(cycles))))
		b.WriteString("\n")
	}
	return b.String()
}

func renderChain(chain []string) string {
	return titleStyle.Render("Chain:") + " " + strings.Join(chain, " -> ")
}

func renderDrift(report history.DriftReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("History for %s: %d runs", report.Package, report.Runs)))
	b.WriteString("\n")
	for _, point := range report.Points {
		line := fmt.Sprintf("  %s %-9s deps=%d (%+d)",
			point.Timestamp.Format("2006-01-02 15:04:05"),
			point.Outcome,
			point.Count,
			point.Delta,
		)
		if point.CommitHash != "" {
			line += " commit=" + point.CommitHash
		}
		if len(point.Added) > 0 {
			line += " +" + strings.Join(point.Added, ",")
		}
		if len(point.Removed) > 0 {
			line += " -" + strings.Join(point.Removed, ",")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderImpact(report graph.ImpactReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Impact of %s", report.Target)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Direct dependents (%d)\n", len(report.DirectDependents))
	for _, id := range report.DirectDependents {
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	fmt.Fprintf(&b, "Transitive dependents (%d)\n", len(report.TransitiveDependents))
	for _, id := range report.TransitiveDependents {
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	return b.String()
}
