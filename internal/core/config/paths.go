package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	LocalPath    string
	OutputFile   string
	OutputDir    string
	HistoryPath  string
	MarkdownFile string
	StateDir     string
}

// ResolvePaths makes every configured path absolute against cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	output := ResolveRelative(cwd, cfg.Output.File)
	resolved := ResolvedPaths{
		OutputFile:  output,
		OutputDir:   filepath.Dir(output),
		HistoryPath: ResolveRelative(cwd, cfg.History.Path),
		StateDir:    StateDir(),
	}
	if cfg.Output.Markdown != "" {
		resolved.MarkdownFile = ResolveRelative(cwd, cfg.Output.Markdown)
	}
	if cfg.Repository.TestMode {
		resolved.LocalPath = ResolveRelative(cwd, cfg.Repository.LocalPath)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// StateDir is $XDG_STATE_HOME/depgraph, falling back to ~/.local/state/depgraph.
func StateDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "depgraph")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "depgraph")
	}
	return filepath.Join(os.TempDir(), "depgraph")
}
