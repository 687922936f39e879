package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depgraph/internal/core/config"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(t *testing.T, m tea.Model, text string) tea.Model {
	t.Helper()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func press(m tea.Model, keyType tea.KeyType) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: keyType})
	return m
}

func TestPromptModel_FileFlow(t *testing.T) {
	graphPath := filepath.Join(t.TempDir(), "graph.txt")
	if err := os.WriteFile(graphPath, []byte("A: B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Package:    config.Package{Name: "requests"},
		Repository: config.Repository{URL: "https://pypi.org/pypi"},
	}
	var m tea.Model = newPromptModel(cfg)
	if state := m.(promptModel); state.choice != 1 {
		t.Fatalf("live config should preselect repo, got choice %d", state.choice)
	}

	m = press(m, tea.KeyTab)
	m = press(m, tea.KeyEnter)
	state := m.(promptModel)
	if state.step != stepPath || !state.answers.testMode {
		t.Fatalf("expected path step in file mode, got step=%d testMode=%v", state.step, state.answers.testMode)
	}

	m = press(m, tea.KeyEnter)
	if state := m.(promptModel); state.errMsg == "" || state.step != stepPath {
		t.Fatal("expected empty path to be rejected")
	}

	m = typeText(t, m, graphPath)
	m = press(m, tea.KeyEnter)
	state = m.(promptModel)
	if state.step != stepPackage {
		t.Fatalf("expected package step, got %d (err %q)", state.step, state.errMsg)
	}
	if state.input.Value() != "requests" {
		t.Fatalf("expected package default, got %q", state.input.Value())
	}

	state.input.SetValue("")
	m = typeText(t, state, "A")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = m.(promptModel)
	if state.step != stepDone || cmd == nil {
		t.Fatalf("expected prompt to finish, got step %d", state.step)
	}

	state.answers.apply(cfg)
	if !cfg.Repository.TestMode || cfg.Repository.LocalPath != graphPath || cfg.Package.Name != "A" {
		t.Fatalf("answers not applied: %+v", cfg.Repository)
	}
}

func TestPromptModel_RepoFlowAndAbort(t *testing.T) {
	cfg := &config.Config{Package: config.Package{Name: "flask"}}
	var m tea.Model = newPromptModel(cfg)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	state := m.(promptModel)
	if state.step != stepPackage || state.answers.testMode {
		t.Fatalf("expected package step in repo mode, got step=%d", state.step)
	}
	if !strings.Contains(state.View(), "Package to analyze") {
		t.Fatalf("unexpected view: %s", state.View())
	}

	m = press(m, tea.KeyEsc)
	if !m.(promptModel).aborted {
		t.Fatal("expected esc to abort")
	}
}

func TestPromptModel_RejectsMissingPath(t *testing.T) {
	cfg := &config.Config{Repository: config.Repository{TestMode: true}}
	var m tea.Model = newPromptModel(cfg)
	m = press(m, tea.KeyEnter)
	m = typeText(t, m, filepath.Join(t.TempDir(), "absent.txt"))
	m = press(m, tea.KeyEnter)

	state := m.(promptModel)
	if state.step != stepPath || !strings.Contains(state.errMsg, "cannot read") {
		t.Fatalf("expected missing path error, got step=%d err=%q", state.step, state.errMsg)
	}
}
