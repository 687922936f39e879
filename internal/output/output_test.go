package output

import (
	"encoding/json"
	"strings"
	"testing"

	"depgraph/internal/core/errors"
	"depgraph/internal/engine/graph"
)

func diamondReport(t *testing.T) Report {
	t.Helper()
	g := graph.MustNew(map[graph.PackageID][]graph.PackageID{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D", "ext-lib"},
		"D": {},
	})
	deps, err := graph.Resolve(g, "A")
	if err != nil {
		t.Fatal(err)
	}
	return Report{Package: "A", Dependencies: deps.Sorted(), Graph: g}
}

func TestTextGenerator(t *testing.T) {
	out, err := NewTextGenerator(diamondReport(t)).Generate()
	if err != nil {
		t.Fatal(err)
	}
	want := "Dependencies of package A:\nB\nC\nD\next-lib\n"
	if out != want {
		t.Errorf("unexpected text output:\n%q\nwant\n%q", out, want)
	}
}

func TestTextGenerator_EmptyClosure(t *testing.T) {
	out, err := NewTextGenerator(Report{Package: "D"}).Generate()
	if err != nil {
		t.Fatal(err)
	}
	if out != "Dependencies of package D:\n" {
		t.Errorf("unexpected output for leaf: %q", out)
	}
}

func TestTSVGenerator(t *testing.T) {
	tsv, err := NewTSVGenerator(diamondReport(t)).Generate()
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(tsv), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines in TSV, got %d", len(lines))
	}
	if lines[0] != "Package\tDependency\tDirect" {
		t.Errorf("Unexpected TSV header: %s", lines[0])
	}
	if lines[1] != "A\tB\ttrue" {
		t.Errorf("Unexpected TSV line: %s", lines[1])
	}
	if lines[3] != "A\tD\tfalse" {
		t.Errorf("Unexpected TSV line: %s", lines[3])
	}
}

func TestDOTGenerator(t *testing.T) {
	dot, err := NewDOTGenerator(diamondReport(t)).Generate()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(dot, "digraph dependencies") {
		t.Error("DOT output missing digraph header")
	}
	if !strings.Contains(dot, `"A" -> "B" [color="forestgreen"`) {
		t.Error("DOT output missing highlighted direct edge A -> B")
	}
	if !strings.Contains(dot, `"B" -> "D";`) {
		t.Error("DOT output missing edge B -> D")
	}
	if !strings.Contains(dot, `"ext-lib" [fillcolor="gainsboro"`) {
		t.Error("DOT output should mark undeclared packages")
	}
	if strings.Count(dot, `-> "D"`) != 2 {
		t.Errorf("expected two edges into D, got:\n%s", dot)
	}
}

func TestMermaidGenerator(t *testing.T) {
	out, err := NewMermaidGenerator(diamondReport(t)).Generate()
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"flowchart LR\n",
		"  A[\"A\"]\n",
		"  ext_lib[\"ext-lib\"]\n",
		"  A --> B\n",
		"  C --> ext_lib\n",
		"  class A root\n",
		"  class ext_lib undeclared\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid output missing %q:\n%s", want, out)
		}
	}
}

func TestMakeMermaidIDs_Collisions(t *testing.T) {
	ids := makeMermaidIDs([]graph.PackageID{"zope.interface", "zope-interface", "1password"})
	if ids["zope.interface"] != "zope_interface" || ids["zope-interface"] != "zope_interface_2" {
		t.Errorf("unexpected collision handling: %v", ids)
	}
	if ids["1password"] != "p_1password" {
		t.Errorf("expected digit-leading ids to be prefixed, got %q", ids["1password"])
	}
}

func TestJSONGenerator(t *testing.T) {
	out, err := NewJSONGenerator(diamondReport(t)).Generate()
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Package      string              `json:"package"`
		Count        int                 `json:"count"`
		Direct       []string            `json:"direct"`
		Dependencies []string            `json:"dependencies"`
		Edges        map[string][]string `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Package != "A" || doc.Count != 4 {
		t.Errorf("unexpected header fields: %+v", doc)
	}
	if strings.Join(doc.Direct, ",") != "B,C" {
		t.Errorf("unexpected direct deps: %v", doc.Direct)
	}
	if strings.Join(doc.Edges["C"], ",") != "D,ext-lib" {
		t.Errorf("unexpected edges for C: %v", doc.Edges["C"])
	}
}

func TestRender(t *testing.T) {
	r := diamondReport(t)
	for _, format := range Formats() {
		out, err := Render(format, r)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if out == "" {
			t.Errorf("%s: empty output", format)
		}
	}

	if _, err := Render(Format("TSV"), r); err != nil {
		t.Errorf("format names should be case-insensitive: %v", err)
	}

	_, err := Render(Format("plantuml"), r)
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Errorf("expected validation error, got %v", err)
	}
}
