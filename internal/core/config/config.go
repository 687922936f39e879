package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFile         = "depgraph.toml"
	DefaultFallbackFile = "data/config/depgraph.toml"
	DefaultOutputFile   = "full_dependencies.txt"
	DefaultHistoryPath  = "data/database/history.db"
	DefaultRegistryURL  = "https://pypi.org/pypi"

	DefaultMarkdownMarker = "dependencies"
)

// Config is the decoded depgraph.toml.
type Config struct {
	Package       Package       `toml:"package"`
	Repository    Repository    `toml:"repository"`
	Registry      Registry      `toml:"registry"`
	Exclude       Exclude       `toml:"exclude"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`

	// Source is the file the config was loaded from.
	Source string `toml:"-"`
}

type Package struct {
	Name string `toml:"name" validate:"required"`
}

// Repository selects where the graph comes from. With TestMode set the graph
// is read from LocalPath; otherwise URL is the registry base URL.
type Repository struct {
	URL       string `toml:"url" validate:"required"`
	TestMode  bool   `toml:"test_mode"`
	LocalPath string `toml:"local_path" validate:"required_if=TestMode true"`
}

type Registry struct {
	Timeout       time.Duration `toml:"timeout" validate:"gte=0"`
	RateLimit     float64       `toml:"rate_limit" validate:"gte=0"`
	Burst         int           `toml:"burst" validate:"gte=0"`
	MaxDepth      int           `toml:"max_depth" validate:"gte=0"`
	MaxPackages   int           `toml:"max_packages" validate:"gte=0"`
	Concurrency   int           `toml:"concurrency" validate:"gte=1,lte=64"`
	IncludeExtras bool          `toml:"include_extras"`
	CacheSize     int           `toml:"cache_size" validate:"gte=0"`
}

type Exclude struct {
	Packages []string `toml:"packages" validate:"dive,required,glob"`
}

type Output struct {
	File          string `toml:"file" validate:"required"`
	Format        string `toml:"format" validate:"oneof=text tsv dot mermaid json"`
	Commit        bool   `toml:"commit"`
	CommitMessage string `toml:"commit_message"`

	// Markdown, when set, receives a mermaid diagram of the closure between
	// <!-- depgraph:MARKER:start --> and <!-- depgraph:MARKER:end --> lines.
	Markdown       string `toml:"markdown"`
	MarkdownMarker string `toml:"markdown_marker"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path" validate:"required_if=Enabled true"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address" validate:"omitempty,hostname_port"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	OTLPInsecure   bool   `toml:"otlp_insecure"`
	ServiceName    string `toml:"service_name"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce" validate:"gte=0"`
}

// Parameter is one displayed key/value pair.
type Parameter struct {
	Key   string
	Value string
}

// Parameters lists every effective setting in display order.
func (c *Config) Parameters() []Parameter {
	localPath := "not used"
	if c.Repository.TestMode {
		localPath = c.Repository.LocalPath
	}
	markdown := "disabled"
	if c.Output.Markdown != "" {
		markdown = c.Output.Markdown + " (" + c.Output.MarkdownMarker + ")"
	}
	history := "disabled"
	if c.History.Enabled {
		history = c.History.Path
	}
	metrics := "disabled"
	if c.Observability.MetricsAddress != "" {
		metrics = c.Observability.MetricsAddress
	}
	otlp := "disabled"
	if c.Observability.OTLPEndpoint != "" {
		otlp = c.Observability.OTLPEndpoint
	}

	return []Parameter{
		{"package.name", c.Package.Name},
		{"repository.url", c.Repository.URL},
		{"repository.test_mode", strconv.FormatBool(c.Repository.TestMode)},
		{"repository.local_path", localPath},
		{"registry.timeout", c.Registry.Timeout.String()},
		{"registry.rate_limit", strconv.FormatFloat(c.Registry.RateLimit, 'g', -1, 64)},
		{"registry.burst", strconv.Itoa(c.Registry.Burst)},
		{"registry.max_depth", strconv.Itoa(c.Registry.MaxDepth)},
		{"registry.max_packages", strconv.Itoa(c.Registry.MaxPackages)},
		{"registry.concurrency", strconv.Itoa(c.Registry.Concurrency)},
		{"registry.include_extras", strconv.FormatBool(c.Registry.IncludeExtras)},
		{"registry.cache_size", strconv.Itoa(c.Registry.CacheSize)},
		{"exclude.packages", "[" + strings.Join(c.Exclude.Packages, ", ") + "]"},
		{"output.file", c.Output.File},
		{"output.format", c.Output.Format},
		{"output.commit", strconv.FormatBool(c.Output.Commit)},
		{"output.commit_message", c.Output.CommitMessage},
		{"output.markdown", markdown},
		{"history", history},
		{"observability.metrics_address", metrics},
		{"observability.otlp_endpoint", otlp},
		{"observability.otlp_insecure", strconv.FormatBool(c.Observability.OTLPInsecure)},
		{"observability.service_name", c.Observability.ServiceName},
		{"watch.debounce", c.Watch.Debounce.String()},
	}
}

// Display writes every parameter as a "key: value" line.
func (c *Config) Display(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "=== Configuration ==="); err != nil {
		return err
	}
	for _, p := range c.Parameters() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", p.Key, p.Value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "=====================")
	return err
}
