package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Discover returns the explicit path when given, otherwise the first of
// DefaultFile and DefaultFallbackFile that exists.
func Discover(path string) (string, error) {
	if p := strings.TrimSpace(path); p != "" {
		return p, nil
	}
	for _, candidate := range []string{DefaultFile, DefaultFallbackFile} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", wrapConfig(fmt.Errorf("%w: none of %s, %s found", ErrConfigFile, DefaultFile, DefaultFallbackFile))
}

// Load reads, defaults, overrides from the environment and validates a
// config file. Every failure carries one of the Err* sentinels.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, wrapConfig(fmt.Errorf("%w: config file not found: %s", ErrConfigFile, path))
		}
		return nil, wrapConfig(fmt.Errorf("%w: %v", ErrConfigFile, err))
	}
	return Parse(data, path)
}

func Parse(data []byte, source string) (*Config, error) {
	var raw map[string]any
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, wrapConfig(fmt.Errorf("%w: parse %s: %v", ErrConfigFile, source, err))
	}
	if err := validateRaw(raw); err != nil {
		return nil, wrapConfig(err)
	}

	var cfg Config
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return nil, wrapConfig(fmt.Errorf("%w: decode %s: %v", ErrConfigFile, source, err))
	}
	cfg.Source = source

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Registry.Timeout <= 0 {
		cfg.Registry.Timeout = 15 * time.Second
	}
	if cfg.Registry.Concurrency == 0 {
		cfg.Registry.Concurrency = 8
	}
	if cfg.Registry.CacheSize == 0 {
		cfg.Registry.CacheSize = 1024
	}
	if cfg.Registry.Burst == 0 {
		cfg.Registry.Burst = 1
	}

	if strings.TrimSpace(cfg.Output.File) == "" {
		cfg.Output.File = DefaultOutputFile
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if strings.TrimSpace(cfg.Output.CommitMessage) == "" {
		cfg.Output.CommitMessage = "Update resolved dependencies"
	}
	if strings.TrimSpace(cfg.Output.MarkdownMarker) == "" {
		cfg.Output.MarkdownMarker = DefaultMarkdownMarker
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = DefaultHistoryPath
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "depgraph"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.Package.Name = strings.TrimSpace(cfg.Package.Name)
	cfg.Repository.URL = strings.TrimSpace(cfg.Repository.URL)
	cfg.Repository.LocalPath = strings.TrimSpace(cfg.Repository.LocalPath)
	cfg.Output.File = strings.TrimSpace(cfg.Output.File)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Markdown = strings.TrimSpace(cfg.Output.Markdown)
	cfg.Output.MarkdownMarker = strings.TrimSpace(cfg.Output.MarkdownMarker)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	for i, pattern := range cfg.Exclude.Packages {
		cfg.Exclude.Packages[i] = strings.TrimSpace(pattern)
	}
}
