package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DEPGRAPH_[SECTION]_[KEY] (e.g., DEPGRAPH_REGISTRY_TIMEOUT).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Package.Name, "DEPGRAPH_PACKAGE_NAME")

	// Repository
	setEnvString(&cfg.Repository.URL, "DEPGRAPH_REPOSITORY_URL")
	setEnvBool(&cfg.Repository.TestMode, "DEPGRAPH_REPOSITORY_TEST_MODE")
	setEnvString(&cfg.Repository.LocalPath, "DEPGRAPH_REPOSITORY_LOCAL_PATH")

	// Registry
	setEnvDuration(&cfg.Registry.Timeout, "DEPGRAPH_REGISTRY_TIMEOUT")
	setEnvFloat64(&cfg.Registry.RateLimit, "DEPGRAPH_REGISTRY_RATE_LIMIT")
	setEnvInt(&cfg.Registry.Burst, "DEPGRAPH_REGISTRY_BURST")
	setEnvInt(&cfg.Registry.MaxDepth, "DEPGRAPH_REGISTRY_MAX_DEPTH")
	setEnvInt(&cfg.Registry.MaxPackages, "DEPGRAPH_REGISTRY_MAX_PACKAGES")
	setEnvInt(&cfg.Registry.Concurrency, "DEPGRAPH_REGISTRY_CONCURRENCY")
	setEnvBool(&cfg.Registry.IncludeExtras, "DEPGRAPH_REGISTRY_INCLUDE_EXTRAS")
	setEnvInt(&cfg.Registry.CacheSize, "DEPGRAPH_REGISTRY_CACHE_SIZE")

	// Output
	setEnvString(&cfg.Output.File, "DEPGRAPH_OUTPUT_FILE")
	setEnvString(&cfg.Output.Format, "DEPGRAPH_OUTPUT_FORMAT")
	setEnvBool(&cfg.Output.Commit, "DEPGRAPH_OUTPUT_COMMIT")
	setEnvString(&cfg.Output.Markdown, "DEPGRAPH_OUTPUT_MARKDOWN")

	// History
	setEnvBool(&cfg.History.Enabled, "DEPGRAPH_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "DEPGRAPH_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "DEPGRAPH_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DEPGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "DEPGRAPH_OBSERVABILITY_OTLP_INSECURE")
	setEnvString(&cfg.Observability.ServiceName, "DEPGRAPH_OBSERVABILITY_SERVICE_NAME")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DEPGRAPH_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
