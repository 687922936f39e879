package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"depgraph/internal/engine/graph"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DefaultFileNames are probed, in order, when a directory is given.
var DefaultFileNames = []string{"graph.txt", "graph.yaml", "graph.yml", "graph.json", "graph.toml"}

var (
	ErrNoGraphFile        = errors.New("no graph file found")
	ErrMissingSeparator   = errors.New("missing ':' separator")
	ErrMultipleSeparators = errors.New("more than one ':' separator")
	ErrTrailingData       = errors.New("unexpected data after graph document")
	ErrUnsupportedFormat  = errors.New("unsupported graph format")
)

// ParseError describes a row or document that cannot become a graph.
// Line is zero for structured formats where a row has no line number.
// Err is one of the sentinels above, a graph builder error or a decoder error.
type ParseError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.Source
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FormatFor picks a format from the file extension; anything unknown is text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatText
	}
}

func Parse(r io.Reader, format Format, source string) (*graph.Graph, error) {
	switch format {
	case FormatText, "":
		return ParseText(r, source)
	case FormatJSON:
		return ParseJSON(r, source)
	case FormatYAML:
		return ParseYAML(r, source)
	case FormatTOML:
		return ParseTOML(r, source)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

func LoadFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, FormatFor(path), path)
}

// LoadPath loads a graph file, or the first DefaultFileNames entry inside a
// directory. The resolved file path is returned alongside the graph.
func LoadPath(path string) (*graph.Graph, string, error) {
	file, err := ResolveFile(path)
	if err != nil {
		return nil, "", err
	}
	g, err := LoadFile(file)
	if err != nil {
		return nil, file, err
	}
	return g, file, nil
}

func ResolveFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(path, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s (tried %s)", ErrNoGraphFile, path, strings.Join(DefaultFileNames, ", "))
}

// buildFromMap adds rows in sorted key order so errors are deterministic.
func buildFromMap(rows map[string][]string, source string) (*graph.Graph, error) {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := graph.NewBuilder()
	for _, key := range keys {
		if err := addRow(b, key, rows[key]); err != nil {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("invalid entry %q", key), Err: err}
		}
	}
	return b.Graph(), nil
}

func addRow(b *graph.Builder, name string, deps []string) error {
	ids := make([]graph.PackageID, 0, len(deps))
	for _, dep := range deps {
		ids = append(ids, graph.PackageID(strings.TrimSpace(dep)))
	}
	return b.Add(graph.PackageID(strings.TrimSpace(name)), ids...)
}
