package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"depgraph/internal/engine/graph"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseJSON reads an object mapping package names to dependency arrays.
// The object is walked key by key so a repeated name is reported instead of
// silently replacing the earlier row. Anything after the object is an error.
func ParseJSON(r io.Reader, source string) (*graph.Graph, error) {
	dec := json.NewDecoder(r)
	decodeErr := func(err error) error {
		return &ParseError{Source: source, Reason: "decode json", Err: err}
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, decodeErr(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, decodeErr(fmt.Errorf("expected an object, got %v", tok))
	}

	b := graph.NewBuilder()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, decodeErr(err)
		}
		key, _ := tok.(string)

		var deps []string
		if err := dec.Decode(&deps); err != nil {
			return nil, decodeErr(fmt.Errorf("dependencies of %q: %w", key, err))
		}
		if err := addRow(b, key, deps); err != nil {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("invalid entry %q", key), Err: err}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, decodeErr(err)
	}

	switch _, err := dec.Token(); {
	case err == io.EOF:
	case err == nil:
		return nil, decodeErr(ErrTrailingData)
	default:
		return nil, decodeErr(fmt.Errorf("%w: %v", ErrTrailingData, err))
	}
	return b.Graph(), nil
}

// ParseYAML reads a single mapping of package names to dependency sequences.
func ParseYAML(r io.Reader, source string) (*graph.Graph, error) {
	var rows map[string][]string
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		if err == io.EOF {
			return graph.NewBuilder().Graph(), nil
		}
		return nil, &ParseError{Source: source, Reason: "decode yaml", Err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, &ParseError{Source: source, Reason: "decode yaml", Err: ErrTrailingData}
	}
	return buildFromMap(rows, source)
}

// ParseTOML reads top-level keys holding dependency arrays:
//
//	requests = ["urllib3", "idna"]
//	"charset-normalizer" = []
func ParseTOML(r io.Reader, source string) (*graph.Graph, error) {
	var rows map[string][]string
	if _, err := toml.NewDecoder(r).Decode(&rows); err != nil {
		return nil, &ParseError{Source: source, Reason: "decode toml", Err: err}
	}
	return buildFromMap(rows, source)
}
