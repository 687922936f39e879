package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"depgraph/internal/core/config"
	"depgraph/internal/core/errors"
	"depgraph/internal/core/ports"
	"depgraph/internal/data/history"
	"depgraph/internal/engine/graph"
	"depgraph/internal/engine/loader"
	"depgraph/internal/engine/registry"
	"depgraph/internal/shared/observability"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	history  ports.HistoryStore
	builder  ports.GraphBuilder
	closers  []func() error
	excludes []glob.Glob

	mu       sync.RWMutex
	graph    *graph.Graph
	source   string
	loadedAt time.Time
	crawl    registry.CrawlStats
}

// crawlReporter is implemented by builders that describe their last build.
type crawlReporter interface {
	Stats() registry.CrawlStats
}

type Option func(*App)

// WithHistory replaces the sqlite store opened from config.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// WithGraphBuilder replaces the registry crawler used in live mode.
func WithGraphBuilder(b ports.GraphBuilder) Option {
	return func(a *App) { a.builder = b }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfig, "config is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve working directory")
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "resolve paths")
	}

	excludes, err := compileGlobs(cfg.Exclude.Packages)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Paths: paths, excludes: excludes}
	for _, opt := range opts {
		opt(a)
	}

	if a.history == nil && cfg.History.Enabled {
		store, err := history.Open(paths.HistoryPath)
		if stderrors.Is(err, history.ErrCorrupt) {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeConfig, "history database is corrupt; remove it or set history.enabled = false"),
				errors.CtxPath, paths.HistoryPath)
		}
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "open history store"),
				errors.CtxPath, paths.HistoryPath)
		}
		a.history = store
	}
	if a.history != nil {
		a.closers = append(a.closers, a.history.Close)
	}

	if a.builder == nil && !cfg.Repository.TestMode {
		client, err := registry.NewClient(registry.Options{
			BaseURL:   cfg.Repository.URL,
			Timeout:   cfg.Registry.Timeout,
			RateLimit: cfg.Registry.RateLimit,
			Burst:     cfg.Registry.Burst,
			CacheSize: cfg.Registry.CacheSize,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		a.builder = registry.NewCrawler(client, registry.CrawlOptions{
			MaxDepth:      cfg.Registry.MaxDepth,
			MaxPackages:   cfg.Registry.MaxPackages,
			Concurrency:   cfg.Registry.Concurrency,
			IncludeExtras: cfg.Registry.IncludeExtras,
		})
	}

	return a, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeConfig, fmt.Sprintf("invalid exclude pattern %q", pattern)),
				errors.CtxOperation, "compile exclude")
		}
		out = append(out, g)
	}
	return out, nil
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Graph returns the most recently loaded graph, or nil.
func (a *App) Graph() *graph.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

// LoadGraph reads the local graph in test mode or crawls the registry in
// live mode, drops excluded packages and makes the result current.
func (a *App) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.LoadGraph",
		trace.WithAttributes(attribute.Bool("test_mode", a.Config.Repository.TestMode)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		g      *graph.Graph
		source string
		kind   string
		crawl  registry.CrawlStats
		err    error
	)
	if a.Config.Repository.TestMode {
		kind = "file"
		g, source, err = loader.LoadPath(a.Paths.LocalPath)
		if err != nil {
			return nil, classifyLoadError(err, a.Paths.LocalPath)
		}
	} else {
		kind = "registry"
		source = a.Config.Repository.URL
		if a.builder == nil {
			return nil, errors.New(errors.CodeConfig, "no graph builder configured for live mode")
		}
		g, err = a.builder.Build(ctx, a.Config.Package.Name)
		if err != nil {
			return nil, err
		}
		if r, ok := a.builder.(crawlReporter); ok {
			crawl = r.Stats()
			if len(crawl.Missing) > 0 || crawl.Truncated {
				slog.Warn("registry crawl incomplete", "missing", crawl.Missing, "truncated", crawl.Truncated)
			}
		}
	}

	if len(a.excludes) > 0 {
		before := g.Len()
		g = g.Filter(func(id graph.PackageID) bool { return !a.isExcluded(id) })
		slog.Debug("applied exclude patterns", "patterns", len(a.excludes), "dropped", before-g.Len())
	}

	observability.GraphLoadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	observability.GraphNodes.Set(float64(g.Len()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	span.SetAttributes(attribute.Int("graph.nodes", g.Len()), attribute.Int("graph.edges", g.EdgeCount()))

	slog.Info("graph loaded", "source", source, "nodes", g.Len(), "edges", g.EdgeCount(), "duration", time.Since(start))

	a.mu.Lock()
	a.graph = g
	a.source = source
	a.loadedAt = time.Now().UTC()
	a.crawl = crawl
	a.mu.Unlock()

	return g, nil
}

func (a *App) isExcluded(id graph.PackageID) bool {
	for _, g := range a.excludes {
		if g.Match(string(id)) {
			return true
		}
	}
	return false
}

func classifyLoadError(err error, path string) error {
	var code errors.ErrorCode
	var perr *loader.ParseError
	switch {
	case stderrors.Is(err, os.ErrNotExist), stderrors.Is(err, loader.ErrNoGraphFile):
		code = errors.CodeNotFound
	case stderrors.As(err, &perr):
		code = errors.CodeValidationError
	default:
		code = errors.CodeInternal
	}
	return errors.AddContext(errors.Wrap(err, code, "load graph"), errors.CtxPath, path)
}

// currentGraph returns the loaded graph, loading it on first use.
func (a *App) currentGraph(ctx context.Context) (*graph.Graph, string, error) {
	a.mu.RLock()
	g, source := a.graph, a.source
	a.mu.RUnlock()
	if g != nil {
		return g, source, nil
	}
	g, err := a.LoadGraph(ctx)
	if err != nil {
		return nil, "", err
	}
	a.mu.RLock()
	source = a.source
	a.mu.RUnlock()
	return g, source, nil
}

// startID maps a requested package name to a graph id. Registry graphs use
// normalized names; file graphs are matched exactly.
func (a *App) startID(name string) graph.PackageID {
	if name == "" {
		name = a.Config.Package.Name
	}
	if a.Config.Repository.TestMode {
		return graph.PackageID(name)
	}
	return graph.PackageID(registry.NormalizeName(name))
}
