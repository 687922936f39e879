package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	apperrors "depgraph/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_TestMode(t *testing.T) {
	graphFile := filepath.Join(t.TempDir(), "graph.txt")
	require.NoError(t, os.WriteFile(graphFile, []byte("A: B\n"), 0o644))

	path := writeConfig(t, `
[package]
name = "A"

[repository]
url = "https://pypi.org/pypi"
test_mode = true
local_path = "`+filepath.ToSlash(graphFile)+`"

[registry]
timeout = "5s"
max_depth = 3

[exclude]
packages = ["pytest*", "types-*"]

[output]
format = "TSV"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "A", cfg.Package.Name)
	assert.True(t, cfg.Repository.TestMode)
	assert.Equal(t, 5*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 3, cfg.Registry.MaxDepth)
	assert.Equal(t, 8, cfg.Registry.Concurrency)
	assert.Equal(t, DefaultOutputFile, cfg.Output.File)
	assert.Equal(t, "tsv", cfg.Output.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, DefaultMarkdownMarker, cfg.Output.MarkdownMarker)
	assert.Empty(t, cfg.Output.Markdown)
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_LiveMode(t *testing.T) {
	path := writeConfig(t, `
[package]
name = "requests"

[repository]
url = "https://pypi.org/pypi"
test_mode = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Repository.TestMode)
	assert.Empty(t, cfg.Repository.LocalPath)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{
			name:    "syntax",
			content: "[package\nname = 1",
			want:    ErrConfigFile,
		},
		{
			name:    "missing package name",
			content: "[repository]\nurl = \"x\"\ntest_mode = false\n",
			want:    ErrPackageName,
		},
		{
			name:    "non-string package name",
			content: "[package]\nname = 42\n[repository]\nurl = \"x\"\ntest_mode = false\n",
			want:    ErrPackageName,
		},
		{
			name:    "missing repository",
			content: "[package]\nname = \"A\"\n",
			want:    ErrRepositoryURL,
		},
		{
			name:    "empty url",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"\"\ntest_mode = false\n",
			want:    ErrRepositoryURL,
		},
		{
			name:    "missing test mode",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"https://pypi.org/pypi\"\n",
			want:    ErrTestMode,
		},
		{
			name:    "string test mode",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"https://pypi.org/pypi\"\ntest_mode = \"yes\"\n",
			want:    ErrTestMode,
		},
		{
			name:    "missing local path",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"x\"\ntest_mode = true\n",
			want:    ErrLocalPath,
		},
		{
			name:    "nonexistent local path",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"x\"\ntest_mode = true\nlocal_path = \"/definitely/not/here\"\n",
			want:    ErrLocalPath,
		},
		{
			name:    "live mode needs http url",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"ftp://example.com\"\ntest_mode = false\n",
			want:    ErrRepositoryURL,
		},
		{
			name:    "unknown output format",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"https://pypi.org/pypi\"\ntest_mode = false\n[output]\nformat = \"xml\"\n",
			want:    ErrInvalidValue,
		},
		{
			name:    "bad glob",
			content: "[package]\nname = \"A\"\n[repository]\nurl = \"https://pypi.org/pypi\"\ntest_mode = false\n[exclude]\npackages = [\"[abc\"]\n",
			want:    ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeConfig), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrConfigFile)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DEPGRAPH_PACKAGE_NAME", "flask")
	t.Setenv("DEPGRAPH_REGISTRY_TIMEOUT", "2s")
	t.Setenv("DEPGRAPH_REGISTRY_MAX_DEPTH", "not-a-number")
	t.Setenv("DEPGRAPH_HISTORY_ENABLED", "TRUE")

	path := writeConfig(t, `
[package]
name = "requests"

[registry]
max_depth = 4

[repository]
url = "https://pypi.org/pypi"
test_mode = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flask", cfg.Package.Name)
	assert.Equal(t, 2*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 4, cfg.Registry.MaxDepth, "unparseable overrides are ignored")
	assert.True(t, cfg.History.Enabled)
}

func TestDisplay(t *testing.T) {
	cfg := &Config{
		Package:    Package{Name: "A"},
		Repository: Repository{URL: "https://pypi.org/pypi"},
	}
	applyDefaults(cfg)

	var buf bytes.Buffer
	require.NoError(t, cfg.Display(&buf))
	out := buf.String()

	assert.Contains(t, out, "package.name: A\n")
	assert.Contains(t, out, "repository.test_mode: false\n")
	assert.Contains(t, out, "repository.local_path: not used\n")
	assert.Contains(t, out, "output.file: full_dependencies.txt\n")
	assert.Contains(t, out, "output.markdown: disabled\n")
	assert.Contains(t, out, "registry.burst: 1\n")
	assert.Contains(t, out, "registry.cache_size: 1024\n")
	assert.Contains(t, out, "output.commit_message: Update resolved dependencies\n")
	assert.Contains(t, out, "observability.metrics_address: disabled\n")
	assert.Contains(t, out, "observability.service_name: depgraph\n")
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		if strings.HasPrefix(line, "===") {
			continue
		}
		assert.Contains(t, line, ": ")
	}
}

func TestParameters_CoverEveryKey(t *testing.T) {
	// Keys folded into another displayed parameter.
	folded := map[string]string{
		"output.markdown_marker": "output.markdown",
		"history.enabled":        "history",
		"history.path":           "history",
	}

	shown := make(map[string]bool)
	for _, p := range (&Config{}).Parameters() {
		shown[p.Key] = true
	}

	root := reflect.TypeOf(Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		name := section.Tag.Get("toml")
		if name == "" || name == "-" || section.Type.Kind() != reflect.Struct {
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			key := name + "." + section.Type.Field(j).Tag.Get("toml")
			if alias, ok := folded[key]; ok {
				key = alias
			}
			assert.True(t, shown[key], "parameter %s is not displayed", key)
		}
	}
}

func TestDiscover(t *testing.T) {
	p, err := Discover("custom.toml")
	require.NoError(t, err)
	assert.Equal(t, "custom.toml", p)

	dir := t.TempDir()
	t.Chdir(dir)

	_, err = Discover("")
	assert.ErrorIs(t, err, ErrConfigFile)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data", "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFallbackFile), nil, 0o644))
	p, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackFile, p)
}

func TestResolvePaths(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	cfg := &Config{
		Repository: Repository{TestMode: true, LocalPath: "graphs/graph.txt"},
		Output:     Output{File: "out/deps.txt", Markdown: "README.md"},
		History:    History{Path: "/abs/history.db"},
	}

	paths, err := ResolvePaths(cfg, "/work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/work/graphs/graph.txt"), paths.LocalPath)
	assert.Equal(t, filepath.Clean("/work/out/deps.txt"), paths.OutputFile)
	assert.Equal(t, filepath.Clean("/work/out"), paths.OutputDir)
	assert.Equal(t, filepath.Clean("/abs/history.db"), paths.HistoryPath)
	assert.Equal(t, filepath.Clean("/work/README.md"), paths.MarkdownFile)
	assert.Equal(t, filepath.Join("/state", "depgraph"), paths.StateDir)

	_, err = ResolvePaths(cfg, " ")
	assert.Error(t, err)
}
