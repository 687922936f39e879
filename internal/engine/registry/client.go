package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"depgraph/internal/core/errors"
	"depgraph/internal/shared/observability"
	"depgraph/internal/shared/util"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultBaseURL   = "https://pypi.org/pypi"
	DefaultTimeout   = 15 * time.Second
	DefaultCacheSize = 1024
	userAgent        = "depgraph"
)

// Metadata is the subset of the registry JSON document the crawler needs.
type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	RequiresDist []string `json:"requires_dist"`
}

type metadataDocument struct {
	Info Metadata `json:"info"`
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	CacheSize int
}

// Client fetches package metadata from a PyPI compatible JSON API with
// caching, per-host rate limiting and connection pooling.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    *lru.Cache[string, *Metadata]
	limiters *util.LimiterRegistry
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid registry url")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Metadata](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create metadata cache")
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL:  base,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		cache:    cache,
		limiters: util.NewLimiterRegistry(opts.RateLimit, opts.Burst, 10*time.Minute),
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metadata returns the latest release metadata for name. A 404 maps to
// NOT_FOUND; any other failure is UPSTREAM_ERROR.
func (c *Client) Metadata(ctx context.Context, name string) (*Metadata, error) {
	if cached, ok := c.cache.Get(name); ok {
		observability.RegistryCacheHitsTotal.Inc()
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(name))
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid package name")
	}
	if err := c.limiters.Get(u.Host).Wait(ctx, 1); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build registry request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.RegistryRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RegistryRequestsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeUpstream, "registry request failed"),
			errors.CtxURL, endpoint)
	}
	defer resp.Body.Close()
	observability.RegistryRequestsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()

	slog.Debug("registry response", "package", name, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.AddContext(
			errors.New(errors.CodeNotFound, fmt.Sprintf("package %q not found in registry", name)),
			errors.CtxPackage, name)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.AddContext(
			errors.New(errors.CodeUpstream, fmt.Sprintf("registry returned status %d for %s", resp.StatusCode, name)),
			errors.CtxStatus, resp.StatusCode)
	}

	var doc metadataDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeUpstream, "decode registry response"),
			errors.CtxPackage, name)
	}
	if doc.Info.Name == "" {
		doc.Info.Name = name
	}

	meta := &doc.Info
	c.cache.Add(name, meta)
	return meta, nil
}

// Close releases background resources.
func (c *Client) Close() {
	c.limiters.Stop()
	c.http.CloseIdleConnections()
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
