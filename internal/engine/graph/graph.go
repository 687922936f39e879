// # internal/engine/graph/graph.go
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// PackageID names a node in a dependency graph. Comparison is exact and
// case-sensitive; loaders own any normalization.
type PackageID string

func (id PackageID) String() string { return string(id) }

// Model is the read-only view the resolver needs.
type Model interface {
	Contains(id PackageID) bool
	DependenciesOf(id PackageID) []PackageID
}

var (
	ErrEmptyID       = errors.New("package identifier must not be empty")
	ErrDuplicateNode = errors.New("package declared more than once")
)

// Graph is an immutable adjacency list. Dependencies keep declaration order
// and duplicates. Targets that are not keys are leaves.
type Graph struct {
	adjacency map[PackageID][]PackageID
	edges     int
}

var _ Model = (*Graph)(nil)

// New copies adjacency into a Graph, rejecting empty identifiers.
func New(adjacency map[PackageID][]PackageID) (*Graph, error) {
	b := NewBuilder()
	keys := make([]PackageID, 0, len(adjacency))
	for id := range adjacency {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, id := range keys {
		if err := b.Add(id, adjacency[id]...); err != nil {
			return nil, err
		}
	}
	return b.Graph(), nil
}

// MustNew is New for fixtures known to be well-formed.
func MustNew(adjacency map[PackageID][]PackageID) *Graph {
	g, err := New(adjacency)
	if err != nil {
		panic(err)
	}
	return g
}

// FromStrings builds a graph from plain string adjacency.
func FromStrings(adjacency map[string][]string) (*Graph, error) {
	converted := make(map[PackageID][]PackageID, len(adjacency))
	for name, deps := range adjacency {
		ids := make([]PackageID, len(deps))
		for i, dep := range deps {
			ids[i] = PackageID(dep)
		}
		converted[PackageID(name)] = ids
	}
	return New(converted)
}

func (g *Graph) Contains(id PackageID) bool {
	if g == nil {
		return false
	}
	_, ok := g.adjacency[id]
	return ok
}

// DependenciesOf returns a copy of the declared dependencies of id, or nil
// when id is not a key.
func (g *Graph) DependenciesOf(id PackageID) []PackageID {
	if g == nil {
		return nil
	}
	return slices.Clone(g.adjacency[id])
}

// Nodes returns the declared keys in sorted order.
func (g *Graph) Nodes() []PackageID {
	if g == nil {
		return nil
	}
	nodes := make([]PackageID, 0, len(g.adjacency))
	for id := range g.adjacency {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.adjacency)
}

func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.edges
}

// Adjacency returns a deep copy keyed by plain strings, for serialization.
func (g *Graph) Adjacency() map[string][]string {
	out := make(map[string][]string, g.Len())
	if g == nil {
		return out
	}
	for id, deps := range g.adjacency {
		names := make([]string, len(deps))
		for i, dep := range deps {
			names[i] = string(dep)
		}
		out[string(id)] = names
	}
	return out
}

// Filter returns a new graph without the nodes rejected by keep. Edges to
// rejected nodes are dropped as well.
func (g *Graph) Filter(keep func(PackageID) bool) *Graph {
	b := NewBuilder()
	for _, id := range g.Nodes() {
		if !keep(id) {
			continue
		}
		deps := make([]PackageID, 0, len(g.adjacency[id]))
		for _, dep := range g.adjacency[id] {
			if keep(dep) {
				deps = append(deps, dep)
			}
		}
		// Keys come from an existing graph, so Add cannot fail here.
		_ = b.Add(id, deps...)
	}
	return b.Graph()
}

func (g *Graph) String() string {
	var sb strings.Builder
	for _, id := range g.Nodes() {
		deps := g.adjacency[id]
		names := make([]string, len(deps))
		for i, dep := range deps {
			names[i] = string(dep)
		}
		fmt.Fprintf(&sb, "%s: %s\n", id, strings.Join(names, ", "))
	}
	return sb.String()
}

// Builder accumulates rows for a Graph. It is not safe for concurrent use.
type Builder struct {
	adjacency map[PackageID][]PackageID
	edges     int
	built     bool
}

func NewBuilder() *Builder {
	return &Builder{adjacency: make(map[PackageID][]PackageID)}
}

// Add declares id with its direct dependencies. Declaring the same id twice
// or using an empty identifier anywhere in the row is an error.
func (b *Builder) Add(id PackageID, deps ...PackageID) error {
	if b.built {
		return errors.New("builder already produced a graph")
	}
	if id == "" {
		return ErrEmptyID
	}
	if _, exists := b.adjacency[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	for i, dep := range deps {
		if dep == "" {
			return fmt.Errorf("%w: dependency %d of %q", ErrEmptyID, i+1, id)
		}
	}
	b.adjacency[id] = slices.Clone(deps)
	b.edges += len(deps)
	return nil
}

func (b *Builder) Has(id PackageID) bool {
	_, ok := b.adjacency[id]
	return ok
}

// Graph finalizes the builder. Further Add calls fail.
func (b *Builder) Graph() *Graph {
	b.built = true
	return &Graph{adjacency: b.adjacency, edges: b.edges}
}
