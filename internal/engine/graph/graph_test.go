// # internal/engine/graph/graph_test.go
package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestGraph_Reads(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{
		"app": {"lib", "log", "lib"},
		"lib": {},
	})

	if !g.Contains("app") || !g.Contains("lib") {
		t.Fatal("expected declared keys to be contained")
	}
	if g.Contains("log") {
		t.Error("expected undeclared dependency to be absent from keys")
	}
	if got := g.DependenciesOf("app"); !reflect.DeepEqual(got, []PackageID{"lib", "log", "lib"}) {
		t.Errorf("expected declaration order with duplicates, got %v", got)
	}
	if got := g.DependenciesOf("missing"); len(got) != 0 {
		t.Errorf("expected no dependencies for unknown id, got %v", got)
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Len())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}
	if got := g.Nodes(); !reflect.DeepEqual(got, []PackageID{"app", "lib"}) {
		t.Errorf("unexpected nodes %v", got)
	}
}

func TestGraph_DependenciesOfReturnsCopy(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{"a": {"b"}})

	deps := g.DependenciesOf("a")
	deps[0] = "mutated"

	if got := g.DependenciesOf("a"); got[0] != "b" {
		t.Fatalf("graph was mutated through returned slice: %v", got)
	}
}

func TestGraph_NewCopiesInput(t *testing.T) {
	input := map[PackageID][]PackageID{"a": {"b"}}
	g := MustNew(input)

	input["a"][0] = "changed"
	input["c"] = nil

	if g.Contains("c") {
		t.Error("graph should not observe keys added after construction")
	}
	if got := g.DependenciesOf("a"); got[0] != "b" {
		t.Errorf("graph should not observe mutated input, got %v", got)
	}
}

func TestBuilder_RejectsMalformedRows(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("", "x"); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID for empty key, got %v", err)
	}
	if err := b.Add("a", "b", ""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID for empty dependency, got %v", err)
	}
	if err := b.Add("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Add("a"); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}
	if !b.Has("a") {
		t.Error("expected builder to report declared id")
	}

	g := b.Graph()
	if g.Len() != 1 {
		t.Errorf("expected 1 node, got %d", g.Len())
	}
	if err := b.Add("later"); err == nil {
		t.Error("expected Add after Graph to fail")
	}
}

func TestFromStrings(t *testing.T) {
	g, err := FromStrings(map[string][]string{"A": {"B", "C"}, "B": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Contains("A") || !g.Contains("B") {
		t.Fatal("expected both keys")
	}

	if _, err := FromStrings(map[string][]string{"": {"B"}}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestGraph_Filter(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{
		"app":    {"lib", "pytest", "log"},
		"lib":    {"pytest"},
		"pytest": {"pluggy"},
	})

	filtered := g.Filter(func(id PackageID) bool { return id != "pytest" })

	if filtered.Contains("pytest") {
		t.Error("expected pytest to be removed")
	}
	if got := filtered.DependenciesOf("app"); !reflect.DeepEqual(got, []PackageID{"lib", "log"}) {
		t.Errorf("unexpected app deps %v", got)
	}
	if got := filtered.DependenciesOf("lib"); len(got) != 0 {
		t.Errorf("expected lib to have no deps, got %v", got)
	}
	if g.Len() != 3 {
		t.Error("filter must not modify the source graph")
	}
}

func TestGraph_AdjacencyAndString(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{"b": {}, "a": {"b", "c"}})

	adj := g.Adjacency()
	if !reflect.DeepEqual(adj["a"], []string{"b", "c"}) {
		t.Errorf("unexpected adjacency %v", adj)
	}

	want := "a: b, c\nb: \n"
	if got := g.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGraph_NilReceiver(t *testing.T) {
	var g *Graph
	if g.Contains("a") || g.Len() != 0 || g.EdgeCount() != 0 || g.Nodes() != nil {
		t.Error("nil graph should behave as empty")
	}
}

func TestComputeNodeMetrics(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{
		"a": {"b", "c", "c"},
		"b": {"c"},
		"c": {},
	})

	metrics := g.ComputeNodeMetrics()
	if metrics["a"].FanOut != 2 {
		t.Errorf("expected a fan-out 2, got %d", metrics["a"].FanOut)
	}
	if metrics["c"].FanIn != 2 {
		t.Errorf("expected c fan-in 2, got %d", metrics["c"].FanIn)
	}
	if !metrics["c"].Leaf || metrics["a"].Leaf {
		t.Errorf("unexpected leaf flags: %+v", metrics)
	}

	top := g.TopFanIn(1)
	if len(top) != 1 || top[0].ID != "c" {
		t.Errorf("expected c to be most depended on, got %+v", top)
	}
	if g.TopFanIn(0) != nil {
		t.Error("expected nil for n <= 0")
	}
}

func TestAnalyzeImpact(t *testing.T) {
	g := MustNew(map[PackageID][]PackageID{
		"app":  {"web", "cli"},
		"web":  {"http"},
		"cli":  {"http"},
		"http": {"urllib3"},
	})

	report, err := g.AnalyzeImpact("urllib3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(report.DirectDependents, []PackageID{"http"}) {
		t.Errorf("unexpected direct dependents %v", report.DirectDependents)
	}
	if !reflect.DeepEqual(report.TransitiveDependents, []PackageID{"app", "cli", "web"}) {
		t.Errorf("unexpected transitive dependents %v", report.TransitiveDependents)
	}

	if _, err := g.AnalyzeImpact("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
