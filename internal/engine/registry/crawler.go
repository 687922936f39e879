package registry

import (
	"context"
	"log/slog"

	"depgraph/internal/core/errors"
	"depgraph/internal/engine/graph"
	"depgraph/internal/shared/util"

	"golang.org/x/sync/errgroup"
)

// MetadataSource is satisfied by *Client and by test fakes.
type MetadataSource interface {
	Metadata(ctx context.Context, name string) (*Metadata, error)
}

type CrawlOptions struct {
	// MaxDepth bounds how many levels below the root are expanded; 0 means no limit.
	MaxDepth int
	// MaxPackages bounds how many distinct packages are fetched; 0 means no limit.
	MaxPackages int
	// Concurrency bounds in-flight requests per level.
	Concurrency   int
	IncludeExtras bool
}

type CrawlStats struct {
	Fetched   int
	Missing   []string
	Truncated bool
}

type Crawler struct {
	source MetadataSource
	opts   CrawlOptions
	stats  CrawlStats
}

func NewCrawler(source MetadataSource, opts CrawlOptions) *Crawler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	return &Crawler{source: source, opts: opts}
}

// Stats describes the most recent Build.
func (c *Crawler) Stats() CrawlStats {
	return c.stats
}

type fetchResult struct {
	deps    []string
	missing bool
}

// Build fetches root and its requirements breadth first, one level at a
// time, and returns the discovered graph. Names are PEP 503 normalized.
// Packages cut off by MaxDepth or MaxPackages stay in their parents'
// dependency lists but are not keys, so they resolve as leaves.
func (c *Crawler) Build(ctx context.Context, root string) (*graph.Graph, error) {
	rootName := NormalizeName(root)
	if rootName == "" {
		return nil, errors.New(errors.CodeValidationError, "package name is empty")
	}

	c.stats = CrawlStats{}
	adjacency := make(map[string][]string)
	seen := map[string]bool{rootName: true}
	level := []string{rootName}

	for depth := 0; len(level) > 0; depth++ {
		if c.opts.MaxDepth > 0 && depth > c.opts.MaxDepth {
			c.stats.Truncated = true
			break
		}

		results, err := c.fetchLevel(ctx, level, rootName)
		if err != nil {
			return nil, err
		}

		var next []string
		for i, name := range level {
			res := results[i]
			if res.missing {
				c.stats.Missing = append(c.stats.Missing, name)
				continue
			}
			c.stats.Fetched++
			adjacency[name] = res.deps
			for _, dep := range res.deps {
				if seen[dep] {
					continue
				}
				if c.opts.MaxPackages > 0 && len(seen) >= c.opts.MaxPackages {
					c.stats.Truncated = true
					continue
				}
				seen[dep] = true
				next = append(next, dep)
			}
		}
		level = next
	}

	b := graph.NewBuilder()
	for _, name := range util.SortedStringKeys(adjacency) {
		deps := make([]graph.PackageID, 0, len(adjacency[name]))
		for _, dep := range adjacency[name] {
			deps = append(deps, graph.PackageID(dep))
		}
		if err := b.Add(graph.PackageID(name), deps...); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "assemble crawled graph")
		}
	}
	return b.Graph(), nil
}

func (c *Crawler) fetchLevel(ctx context.Context, level []string, root string) ([]fetchResult, error) {
	results := make([]fetchResult, len(level))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, name := range level {
		g.Go(func() error {
			meta, err := c.source.Metadata(gctx, name)
			if err != nil {
				if name != root && errors.IsCode(err, errors.CodeNotFound) {
					slog.Warn("dependency not found in registry, treating as leaf", "package", name)
					results[i] = fetchResult{missing: true}
					return nil
				}
				return err
			}
			results[i] = fetchResult{deps: c.requirements(name, meta)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// requirements turns requires_dist into a deduplicated list of normalized
// names in declaration order. Self references are dropped.
func (c *Crawler) requirements(name string, meta *Metadata) []string {
	var deps []string
	dup := make(map[string]bool)
	for _, raw := range meta.RequiresDist {
		req, err := ParseRequirement(raw)
		if err != nil {
			slog.Debug("skipping unparseable requirement", "package", name, "requirement", raw, "error", err)
			continue
		}
		if req.IsExtra() && !c.opts.IncludeExtras {
			continue
		}
		dep := NormalizeName(req.Name)
		if dep == name || dup[dep] {
			continue
		}
		dup[dep] = true
		deps = append(deps, dep)
	}
	return deps
}
