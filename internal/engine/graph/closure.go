package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("package not found in graph")
	ErrCycle    = errors.New("dependency cycle detected")
)

// NotFoundError reports a start package that is not a key of the graph.
type NotFoundError struct {
	ID PackageID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("package %q not found in graph", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CycleError reports the package that was reached again while it was still
// being expanded. Path holds the loop, starting and ending at ID.
type CycleError struct {
	ID   PackageID
	Path []PackageID
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("dependency cycle detected at %q", e.ID)
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("dependency cycle detected at %q: %s", e.ID, strings.Join(parts, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// DependencySet is the unordered result of a resolution.
type DependencySet map[PackageID]struct{}

func (s DependencySet) Contains(id PackageID) bool {
	_, ok := s[id]
	return ok
}

func (s DependencySet) Len() int { return len(s) }

func (s DependencySet) Sorted() []PackageID {
	out := make([]PackageID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats describes the work done by one resolution.
type Stats struct {
	Expanded int // nodes whose dependency list was walked
	Edges    int // dependency edges followed
	MaxDepth int // longest path from the start, in edges
}

type frameKind uint8

const (
	frameEnter frameKind = iota
	frameLeave
)

type frame struct {
	kind  frameKind
	id    PackageID
	depth int
	edge  bool // entered through a dependency edge, not as the start
}

// traversalState belongs to a single Resolve call.
type traversalState struct {
	visited   map[PackageID]bool
	onStack   map[PackageID]bool
	path      []PackageID
	collected DependencySet
	stats     Stats
}

func newTraversalState() *traversalState {
	return &traversalState{
		visited:   make(map[PackageID]bool),
		onStack:   make(map[PackageID]bool),
		collected: make(DependencySet),
	}
}

// Resolve returns every package reachable from start through one or more
// dependency edges. Unknown dependencies are leaves; an unknown start is a
// *NotFoundError. Reaching a package that is still being expanded aborts the
// walk with a *CycleError and no partial result.
func Resolve(g Model, start PackageID) (DependencySet, error) {
	deps, _, err := ResolveWithStats(g, start)
	return deps, err
}

// ResolveWithStats is Resolve plus traversal counters.
func ResolveWithStats(g Model, start PackageID) (DependencySet, Stats, error) {
	if g == nil || !g.Contains(start) {
		return nil, Stats{}, &NotFoundError{ID: start}
	}

	st := newTraversalState()
	stack := []frame{{kind: frameEnter, id: start}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.kind == frameLeave {
			st.onStack[f.id] = false
			st.path = st.path[:len(st.path)-1]
			continue
		}

		if f.edge {
			st.collected[f.id] = struct{}{}
			st.stats.Edges++
		}
		if st.onStack[f.id] {
			return nil, st.stats, &CycleError{ID: f.id, Path: st.loopTo(f.id)}
		}
		if st.visited[f.id] {
			continue
		}

		st.visited[f.id] = true
		st.onStack[f.id] = true
		st.path = append(st.path, f.id)
		st.stats.Expanded++
		if f.depth > st.stats.MaxDepth {
			st.stats.MaxDepth = f.depth
		}

		stack = append(stack, frame{kind: frameLeave, id: f.id})
		deps := g.DependenciesOf(f.id)
		// Reverse push so the first declared dependency is expanded first.
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, frame{kind: frameEnter, id: deps[i], depth: f.depth + 1, edge: true})
		}
	}

	return st.collected, st.stats, nil
}

func (st *traversalState) loopTo(id PackageID) []PackageID {
	for i, p := range st.path {
		if p == id {
			loop := make([]PackageID, 0, len(st.path)-i+1)
			loop = append(loop, st.path[i:]...)
			return append(loop, id)
		}
	}
	return []PackageID{id}
}
