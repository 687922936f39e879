package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depgraph/internal/core/errors"
	"depgraph/internal/engine/graph"
)

type fixture struct {
	dir    string
	config string
	graph  string
	output string
}

func newFixture(t *testing.T, graphText string, extra string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		config: filepath.Join(dir, "depgraph.toml"),
		graph:  filepath.Join(dir, "graph.txt"),
		output: filepath.Join(dir, "full_dependencies.txt"),
	}
	if err := os.WriteFile(f.graph, []byte(graphText), 0o644); err != nil {
		t.Fatal(err)
	}
	content := fmt.Sprintf(`[package]
name = "A"

[repository]
url = "https://pypi.org/pypi"
test_mode = true
local_path = %q

[output]
file = %q
%s`, f.graph, f.output, extra)
	if err := os.WriteFile(f.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const sampleGraph = "A: B, C\nB: C, D\nC: D\nD:\n"

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "depgraph v"+versionString) {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := [][]string{
		{"-no-such-flag"},
		{"-cycles", "-why", "D"},
		{"-since", "2024-01-01"},
		{"-history", "-since", "yesterday"},
		{"stray"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, _, _ := runCLI(t, args...)
			if code != exitUsage {
				t.Fatalf("expected exit %d, got %d", exitUsage, code)
			}
		})
	}
}

func TestRun_ResolvesAndWritesOutput(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	code, out, errOut := runCLI(t, "-c", f.config)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, errOut)
	}
	for _, want := range []string{"4 packages, 5 edges", "Most depended on: C (2), D (2)", "Dependencies of package A", "(3 total, 2 direct)", "- B", "- C", "- D"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "Dependencies of package A:\nB\nC\nD\n" {
		t.Fatalf("unexpected output file: %q", got)
	}
}

func TestRun_FlagOverrides(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	other := filepath.Join(f.dir, "other.yaml")
	if err := os.WriteFile(other, []byte("X: [Y]\nY: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(f.dir, "deps.json")

	code, _, errOut := runCLI(t, "-config", f.config, "-graph", other, "-package", "X", "-format", "JSON", "-out", out)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, errOut)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"package": "X"`) {
		t.Fatalf("unexpected json output: %s", data)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFixture(t, sampleGraph, "")
		code, _, errOut := runCLI(t, "-c", f.config, "-package", "Z")
		if code != exitNotFound {
			t.Fatalf("expected exit %d, got %d", exitNotFound, code)
		}
		if !strings.Contains(errOut, "Z") {
			t.Fatalf("expected package in error, got %q", errOut)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		f := newFixture(t, "A: B\nB: A\n", "")
		code, _, errOut := runCLI(t, "-c", f.config)
		if code != exitCycle {
			t.Fatalf("expected exit %d, got %d", exitCycle, code)
		}
		if !strings.Contains(errOut, "dependency cycle") {
			t.Fatalf("expected cycle message, got %q", errOut)
		}
		if _, err := os.Stat(f.output); !os.IsNotExist(err) {
			t.Fatalf("output file must not be written on failure, stat err=%v", err)
		}
	})

	t.Run("missing config", func(t *testing.T) {
		code, _, _ := runCLI(t, "-c", filepath.Join(t.TempDir(), "absent.toml"))
		if code != exitFailure {
			t.Fatalf("expected exit %d, got %d", exitFailure, code)
		}
	})

	t.Run("missing graph override", func(t *testing.T) {
		f := newFixture(t, sampleGraph, "")
		code, _, _ := runCLI(t, "-c", f.config, "-graph", filepath.Join(f.dir, "absent.txt"))
		if code != exitFailure {
			t.Fatalf("expected exit %d, got %d", exitFailure, code)
		}
	})
}

func TestRun_Cycles(t *testing.T) {
	f := newFixture(t, "A: B\nB: C\nC: A\n", "")
	code, out, _ := runCLI(t, "-c", f.config, "-cycles")
	if code != exitCycle {
		t.Fatalf("expected exit %d, got %d", exitCycle, code)
	}
	if !strings.Contains(out, "Dependency cycles (1)") {
		t.Fatalf("unexpected output: %s", out)
	}

	f = newFixture(t, sampleGraph, "")
	code, out, _ = runCLI(t, "-c", f.config, "-cycles")
	if code != exitOK || !strings.Contains(out, "No dependency cycles") {
		t.Fatalf("unexpected result %d: %s", code, out)
	}
}

func TestRun_Why(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	code, out, _ := runCLI(t, "-c", f.config, "-why", "D")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "A -> B -> D") {
		t.Fatalf("unexpected chain: %s", out)
	}

	code, _, _ = runCLI(t, "-c", f.config, "-package", "D", "-why", "A")
	if code != exitFailure {
		t.Fatalf("expected exit %d for a missing chain, got %d", exitFailure, code)
	}
}

func TestRun_Impact(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	code, out, _ := runCLI(t, "-c", f.config, "-impact", "D")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"Impact of D", "Direct dependents (2)", "Transitive dependents (1)", "  - A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	code, _, _ = runCLI(t, "-c", f.config, "-impact", "nope")
	if code != exitNotFound {
		t.Fatalf("expected exit %d, got %d", exitNotFound, code)
	}
}

func TestRun_ShowConfig(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	code, out, _ := runCLI(t, "-c", f.config, "-show-config", "-package", "B")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "=== Configuration ===") || !strings.Contains(out, "package.name: B") {
		t.Fatalf("unexpected config display: %s", out)
	}
	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Fatal("show-config must not resolve")
	}
}

func TestRun_History(t *testing.T) {
	f := newFixture(t, sampleGraph, "")
	extra := fmt.Sprintf("\n[history]\nenabled = true\npath = %q\n", filepath.Join(t.TempDir(), "history.db"))
	if err := appendFile(f.config, extra); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		code, out, errOut := runCLI(t, "-c", f.config, "-history")
		if code != exitOK {
			t.Fatalf("run %d: expected exit 0, got %d (stderr: %s)", i, code, errOut)
		}
		if !strings.Contains(out, fmt.Sprintf("History for A: %d runs", i+1)) {
			t.Fatalf("run %d: unexpected history output: %s", i, out)
		}
	}
}

func TestRun_WatchRequiresTestMode(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "depgraph.toml")
	content := `[package]
name = "requests"

[repository]
url = "https://pypi.org/pypi"
test_mode = false
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "-c", cfgPath, "-watch")
	if code != exitUsage {
		t.Fatalf("expected exit %d, got %d", exitUsage, code)
	}
	if !strings.Contains(errOut, "test mode") {
		t.Fatalf("unexpected error: %s", errOut)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"canceled", context.Canceled, exitInterrupted},
		{"aborted", errPromptAborted, exitInterrupted},
		{"cycle", errors.Wrap(&graph.CycleError{ID: "A"}, errors.CodeCycle, "cycle"), exitCycle},
		{"not found", errors.Wrap(&graph.NotFoundError{ID: "A"}, errors.CodeNotFound, "missing"), exitNotFound},
		{"missing file", errors.New(errors.CodeNotFound, "no graph file"), exitFailure},
		{"other", fmt.Errorf("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseSince(t *testing.T) {
	if ts, err := parseSince(""); err != nil || !ts.IsZero() {
		t.Fatalf("empty since: %v %v", ts, err)
	}
	ts, err := parseSince("2024-03-01")
	if err != nil || ts.Year() != 2024 || ts.Month() != 3 {
		t.Fatalf("date since: %v %v", ts, err)
	}
	if _, err := parseSince("2024-03-01T10:00:00+02:00"); err != nil {
		t.Fatalf("rfc3339 since: %v", err)
	}
	if _, err := parseSince("last week"); err == nil {
		t.Fatal("expected error")
	}
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
