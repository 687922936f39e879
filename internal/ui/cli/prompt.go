package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"depgraph/internal/core/config"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var errPromptAborted = stderrors.New("prompt aborted")

type promptStep int

const (
	stepSource promptStep = iota
	stepPath
	stepPackage
	stepDone
)

var sourceChoices = []struct {
	key, label string
}{
	{"file", "file  - read a local graph file"},
	{"repo", "repo  - crawl the package registry"},
}

type promptAnswers struct {
	testMode  bool
	localPath string
	pkg       string
}

func (a promptAnswers) apply(cfg *config.Config) {
	cfg.Repository.TestMode = a.testMode
	if a.testMode {
		cfg.Repository.LocalPath = a.localPath
	}
	cfg.Package.Name = a.pkg
}

type promptModel struct {
	step        promptStep
	choice      int
	input       textinput.Model
	answers     promptAnswers
	defaultPath string
	defaultPkg  string
	errMsg      string
	aborted     bool
}

func newPromptModel(cfg *config.Config) promptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 512

	m := promptModel{
		input:       ti,
		defaultPath: cfg.Repository.LocalPath,
		defaultPkg:  cfg.Package.Name,
	}
	if !cfg.Repository.TestMode {
		m.choice = 1
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}

	if m.step == stepSource {
		return m.updateSource(key)
	}

	if key.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	value := strings.TrimSpace(m.input.Value())
	switch m.step {
	case stepPath:
		if value == "" {
			m.errMsg = "graph path must not be empty"
			return m, nil
		}
		if _, err := os.Stat(value); err != nil {
			m.errMsg = fmt.Sprintf("cannot read %s", value)
			return m, nil
		}
		m.answers.localPath = value
		return m.enter(stepPackage, m.defaultPkg)
	case stepPackage:
		if value == "" {
			m.errMsg = "package name must not be empty"
			return m, nil
		}
		m.answers.pkg = value
		m.step = stepDone
		return m, tea.Quit
	}
	return m, nil
}

func (m promptModel) updateSource(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k", "down", "j", "tab":
		m.choice = (m.choice + 1) % len(sourceChoices)
		return m, nil
	case "f":
		m.choice = 0
	case "r":
		m.choice = 1
	case "enter":
	default:
		return m, nil
	}

	m.answers.testMode = sourceChoices[m.choice].key == "file"
	if m.answers.testMode {
		return m.enter(stepPath, m.defaultPath)
	}
	return m.enter(stepPackage, m.defaultPkg)
}

func (m promptModel) enter(step promptStep, value string) (tea.Model, tea.Cmd) {
	m.step = step
	m.errMsg = ""
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m promptModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("depgraph"))
	b.WriteString("\n\n")

	switch m.step {
	case stepSource:
		b.WriteString("Where should the graph come from?\n")
		for i, choice := range sourceChoices {
			cursor := "  "
			if i == m.choice {
				cursor = countStyle.Render("> ")
			}
			b.WriteString(cursor + choice.label + "\n")
		}
	case stepPath:
		b.WriteString("Path to the graph file:\n")
		b.WriteString(m.input.View() + "\n")
	case stepPackage:
		b.WriteString("Package to analyze:\n")
		b.WriteString(m.input.View() + "\n")
	case stepDone:
		return ""
	}

	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString("\n" + statusStyle.Render("enter to confirm, esc to cancel") + "\n")
	return b.String()
}

func runPrompt(cfg *config.Config) (promptAnswers, error) {
	p := tea.NewProgram(newPromptModel(cfg), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return promptAnswers{}, err
	}
	m, ok := final.(promptModel)
	if !ok || m.aborted || m.step != stepDone {
		return promptAnswers{}, errPromptAborted
	}
	return m.answers, nil
}
