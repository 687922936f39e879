package ports

import (
	"context"
	"time"

	"depgraph/internal/data/history"
	"depgraph/internal/engine/graph"
)

// HistoryStore abstracts resolution persistence for drift reports.
type HistoryStore interface {
	SaveResolution(ctx context.Context, r history.Resolution) (string, error)
	LoadResolutions(ctx context.Context, pkg string, since time.Time) ([]history.Resolution, error)
	Latest(ctx context.Context, pkg string) (history.Resolution, bool, error)
	Close() error
}

// GraphBuilder produces a graph rooted at a package, e.g. a registry crawl.
type GraphBuilder interface {
	Build(ctx context.Context, root string) (*graph.Graph, error)
}

// GraphSummary describes the currently loaded graph.
type GraphSummary struct {
	Source   string
	Nodes    int
	Edges    int
	LoadedAt time.Time
	TopFanIn []graph.NodeMetrics
	// Missing lists registry packages that returned 404 and became leaves.
	Missing []string
	// Truncated is set when a registry crawl stopped at its depth or package limit.
	Truncated bool
}

// ResolveRequest names the start package; empty means the configured one.
type ResolveRequest struct {
	Package string
}

// ResolveResult is a successful closure computation.
type ResolveResult struct {
	RunID        string
	Package      graph.PackageID
	Dependencies []graph.PackageID
	Direct       int
	Stats        graph.Stats
	Graph        *graph.Graph
	Source       string
	Duration     time.Duration
	Timestamp    time.Time
}

// PersistResult reports where a result was written.
type PersistResult struct {
	OutputPath   string
	Format       string
	RunID        string
	CommitHash   string
	MarkdownPath string
}

// WatchUpdate is emitted after each debounced reload.
type WatchUpdate struct {
	Changed []string
	Result  *ResolveResult
	Persist *PersistResult
	Err     error
}

// ResolutionService is the driving port used by the CLI.
type ResolutionService interface {
	LoadGraph(ctx context.Context) (GraphSummary, error)
	Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error)
	Persist(ctx context.Context, res ResolveResult) (PersistResult, error)
	DetectCycles(ctx context.Context, limit int) ([][]string, int, error)
	TraceChain(ctx context.Context, from, to string) ([]string, error)
	AnalyzeImpact(ctx context.Context, pkg string) (graph.ImpactReport, error)
	History(ctx context.Context, pkg string, since time.Time) (history.DriftReport, error)
	Watch(ctx context.Context, handler func(WatchUpdate)) error
}
