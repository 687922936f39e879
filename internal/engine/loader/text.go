package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"depgraph/internal/engine/graph"
)

const maxLineBytes = 1 << 20

// ParseText reads one "Name: dep1, dep2" row per line. Blank lines and lines
// starting with '#' are skipped. "Name:" alone declares a package without
// dependencies.
func ParseText(r io.Reader, source string) (*graph.Graph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	b := graph.NewBuilder()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, deps, err := parseRow(line)
		if err != nil {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: "malformed row", Err: err}
		}
		if err := b.Add(name, deps...); err != nil {
			return nil, &ParseError{Source: source, Line: lineNo, Reason: "invalid row", Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: source, Line: lineNo, Reason: "read failed", Err: err}
	}

	return b.Graph(), nil
}

func parseRow(line string) (graph.PackageID, []graph.PackageID, error) {
	rawName, rawDeps, ok := strings.Cut(line, ":")
	if !ok {
		return "", nil, ErrMissingSeparator
	}
	if strings.Contains(rawDeps, ":") {
		return "", nil, ErrMultipleSeparators
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		return "", nil, fmt.Errorf("empty package name: %w", graph.ErrEmptyID)
	}

	rawDeps = strings.TrimSpace(rawDeps)
	if rawDeps == "" {
		return graph.PackageID(name), nil, nil
	}

	parts := strings.Split(rawDeps, ",")
	deps := make([]graph.PackageID, 0, len(parts))
	for i, part := range parts {
		dep := strings.TrimSpace(part)
		if dep == "" {
			return "", nil, fmt.Errorf("empty dependency at position %d of %q: %w", i+1, name, graph.ErrEmptyID)
		}
		deps = append(deps, graph.PackageID(dep))
	}
	return graph.PackageID(name), deps, nil
}
