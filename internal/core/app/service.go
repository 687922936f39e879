package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"depgraph/internal/core/errors"
	"depgraph/internal/core/ports"
	"depgraph/internal/data/history"
	"depgraph/internal/data/vcs"
	"depgraph/internal/engine/graph"
	"depgraph/internal/output"
	"depgraph/internal/shared/observability"
	"depgraph/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const topFanInLimit = 5

type resolutionService struct {
	app *App
}

var _ ports.ResolutionService = (*resolutionService)(nil)

func NewResolutionService(app *App) ports.ResolutionService {
	return &resolutionService{app: app}
}

func (a *App) ResolutionService() ports.ResolutionService {
	return NewResolutionService(a)
}

func (s *resolutionService) LoadGraph(ctx context.Context) (ports.GraphSummary, error) {
	g, err := s.app.LoadGraph(ctx)
	if err != nil {
		return ports.GraphSummary{}, err
	}
	s.app.mu.RLock()
	source, loadedAt, crawl := s.app.source, s.app.loadedAt, s.app.crawl
	s.app.mu.RUnlock()
	return ports.GraphSummary{
		Source:    source,
		Nodes:     g.Len(),
		Edges:     g.EdgeCount(),
		LoadedAt:  loadedAt,
		TopFanIn:  g.TopFanIn(topFanInLimit),
		Missing:   append([]string(nil), crawl.Missing...),
		Truncated: crawl.Truncated,
	}, nil
}

// Resolve computes the closure of the requested package. Failed runs are
// recorded in history when it is enabled; successful runs are recorded by
// Persist.
func (s *resolutionService) Resolve(ctx context.Context, req ports.ResolveRequest) (ports.ResolveResult, error) {
	start := s.app.startID(strings.TrimSpace(req.Package))
	ctx, span := observability.Tracer.Start(ctx, "resolutionService.Resolve",
		trace.WithAttributes(attribute.String("package", start.String())))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.ResolveResult{}, err
	}
	if start == "" {
		return ports.ResolveResult{}, errors.New(errors.CodeValidationError, "package name is empty")
	}

	g, source, err := s.app.currentGraph(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load graph")
		return ports.ResolveResult{}, err
	}

	began := time.Now()
	deps, stats, err := graph.ResolveWithStats(g, start)
	elapsed := time.Since(began)
	observability.ResolutionDuration.Observe(elapsed.Seconds())

	runID := uuid.NewString()
	if err != nil {
		outcome, domainErr := classifyResolveError(err, start)
		observability.ResolutionsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(domainErr)
		span.SetStatus(codes.Error, outcome)
		slog.Warn("resolution failed", "package", start, "outcome", outcome, "error", err)
		s.recordFailure(ctx, runID, start, source, outcome, err, g, elapsed)
		return ports.ResolveResult{}, domainErr
	}
	// Resolve itself is not cancellable; a deadline that passed meanwhile
	// still wins.
	if err := ctx.Err(); err != nil {
		return ports.ResolveResult{}, err
	}

	observability.ResolutionsTotal.WithLabelValues(observability.OutcomeOK).Inc()
	observability.ResolvedDependencies.Set(float64(deps.Len()))
	span.SetAttributes(attribute.Int("dependencies", deps.Len()), attribute.Int("expanded", stats.Expanded))

	direct := make(map[graph.PackageID]bool)
	for _, dep := range g.DependenciesOf(start) {
		direct[dep] = true
	}

	slog.Info("resolution complete",
		"package", start,
		"dependencies", deps.Len(),
		"direct", len(direct),
		"max_depth", stats.MaxDepth,
		"duration", elapsed,
	)

	return ports.ResolveResult{
		RunID:        runID,
		Package:      start,
		Dependencies: deps.Sorted(),
		Direct:       len(direct),
		Stats:        stats,
		Graph:        g,
		Source:       source,
		Duration:     elapsed,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func classifyResolveError(err error, start graph.PackageID) (string, error) {
	var cycle *graph.CycleError
	switch {
	case stderrors.As(err, &cycle):
		wrapped := errors.Wrap(err, errors.CodeCycle, "dependency cycle")
		return observability.OutcomeCycle, errors.AddContext(wrapped, errors.CtxPackage, cycle.ID.String())
	case stderrors.Is(err, graph.ErrNotFound):
		wrapped := errors.Wrap(err, errors.CodeNotFound, "unknown start package")
		return observability.OutcomeNotFound, errors.AddContext(wrapped, errors.CtxPackage, start.String())
	default:
		return observability.OutcomeError, errors.Wrap(err, errors.CodeInternal, "resolve dependencies")
	}
}

func (s *resolutionService) recordFailure(ctx context.Context, runID string, start graph.PackageID, source, outcome string, err error, g *graph.Graph, elapsed time.Duration) {
	if s.app.history == nil {
		return
	}
	run := history.Resolution{
		RunID:     runID,
		Package:   start.String(),
		Source:    source,
		Outcome:   outcome,
		NodeCount: g.Len(),
		EdgeCount: g.EdgeCount(),
		Duration:  elapsed,
	}
	var cycle *graph.CycleError
	if stderrors.As(err, &cycle) {
		run.CycleNode = cycle.ID.String()
	}
	if _, saveErr := s.app.history.SaveResolution(ctx, run); saveErr != nil {
		observability.HistoryWritesTotal.WithLabelValues("error").Inc()
		slog.Warn("failed to record resolution", "package", start, "error", saveErr)
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("ok").Inc()
}

// Persist renders the result in the configured format, writes the output
// file, records history and optionally commits the output file.
func (s *resolutionService) Persist(ctx context.Context, res ports.ResolveResult) (ports.PersistResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolutionService.Persist")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.PersistResult{}, err
	}

	cfg := s.app.Config
	format := output.Format(cfg.Output.Format)
	report := output.Report{Package: res.Package, Dependencies: res.Dependencies}
	if res.Graph != nil {
		report.Graph = res.Graph
	}
	content, err := output.Render(format, report)
	if err != nil {
		return ports.PersistResult{}, err
	}

	path := s.app.Paths.OutputFile
	if err := util.WriteStringAtomic(path, content, 0o644); err != nil {
		return ports.PersistResult{}, errors.AddContext(
			errors.Wrap(err, errors.CodeInternal, "write output file"),
			errors.CtxPath, path)
	}
	slog.Info("output written", "path", path, "format", format, "dependencies", len(res.Dependencies))

	result := ports.PersistResult{OutputPath: path, Format: string(format), RunID: res.RunID}

	if md := s.app.Paths.MarkdownFile; md != "" {
		diagram, err := output.MarkdownDiagram(report)
		if err == nil {
			err = output.InjectDiagram(md, cfg.Output.MarkdownMarker, diagram)
		}
		if err != nil {
			return result, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "update markdown diagram"),
				errors.CtxPath, md)
		}
		slog.Info("markdown diagram updated", "path", md, "marker", cfg.Output.MarkdownMarker)
		result.MarkdownPath = md
	}

	if cfg.Output.Commit {
		hash, err := vcs.CommitFile(ctx, path, cfg.Output.CommitMessage)
		if err != nil {
			return result, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "commit output file"),
				errors.CtxPath, path)
		}
		if hash != "" {
			slog.Info("output committed", "path", path, "commit", hash)
		}
		result.CommitHash = hash
	}

	if s.app.history != nil {
		commitHash, commitTime := vcs.ResolveMetadata(ctx, s.app.Paths.OutputDir)
		deps := make([]string, 0, len(res.Dependencies))
		for _, dep := range res.Dependencies {
			deps = append(deps, dep.String())
		}
		nodes, edges := 0, 0
		if res.Graph != nil {
			nodes, edges = res.Graph.Len(), res.Graph.EdgeCount()
		}
		runID, err := s.app.history.SaveResolution(ctx, history.Resolution{
			RunID:           res.RunID,
			Package:         res.Package.String(),
			Source:          res.Source,
			Outcome:         history.OutcomeOK,
			Dependencies:    deps,
			NodeCount:       nodes,
			EdgeCount:       edges,
			Duration:        res.Duration,
			Timestamp:       res.Timestamp,
			CommitHash:      commitHash,
			CommitTimestamp: commitTime,
		})
		if err != nil {
			observability.HistoryWritesTotal.WithLabelValues("error").Inc()
			return result, errors.Wrap(err, errors.CodeInternal, "record resolution")
		}
		observability.HistoryWritesTotal.WithLabelValues("ok").Inc()
		result.RunID = runID
	}

	return result, nil
}

func (s *resolutionService) DetectCycles(ctx context.Context, limit int) ([][]string, int, error) {
	g, _, err := s.app.currentGraph(ctx)
	if err != nil {
		return nil, 0, err
	}
	cycles := g.DetectCycles()
	count := len(cycles)
	if limit > 0 && len(cycles) > limit {
		cycles = cycles[:limit]
	}
	out := make([][]string, 0, len(cycles))
	for _, cycle := range cycles {
		out = append(out, idsToStrings(cycle))
	}
	return out, count, nil
}

func (s *resolutionService) TraceChain(ctx context.Context, from, to string) ([]string, error) {
	g, _, err := s.app.currentGraph(ctx)
	if err != nil {
		return nil, err
	}
	fromID, toID := s.app.startID(from), s.app.startID(to)
	if !g.Contains(fromID) {
		return nil, errors.AddContext(
			errors.Wrap(&graph.NotFoundError{ID: fromID}, errors.CodeNotFound, "unknown start package"),
			errors.CtxPackage, fromID.String())
	}
	chain, ok := g.FindChain(fromID, toID)
	if !ok {
		err := errors.New(errors.CodeNotFound, fmt.Sprintf("%s does not depend on %s", fromID, toID))
		err = errors.AddContext(err, "from", fromID.String())
		return nil, errors.AddContext(err, "to", toID.String())
	}
	return idsToStrings(chain), nil
}

func (s *resolutionService) AnalyzeImpact(ctx context.Context, pkg string) (graph.ImpactReport, error) {
	g, _, err := s.app.currentGraph(ctx)
	if err != nil {
		return graph.ImpactReport{}, err
	}
	id := s.app.startID(pkg)
	report, err := g.AnalyzeImpact(id)
	if err != nil {
		return graph.ImpactReport{}, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "impact analysis"),
			errors.CtxPackage, id.String())
	}
	return report, nil
}

func (s *resolutionService) History(ctx context.Context, pkg string, since time.Time) (history.DriftReport, error) {
	if err := ctx.Err(); err != nil {
		return history.DriftReport{}, err
	}
	if s.app.history == nil {
		return history.DriftReport{}, errors.New(errors.CodeConfig, "history is disabled; set [history] enabled = true")
	}
	id := s.app.startID(pkg)
	runs, err := s.app.history.LoadResolutions(ctx, id.String(), since)
	if err != nil {
		return history.DriftReport{}, errors.Wrap(err, errors.CodeInternal, "load history")
	}
	report, err := history.BuildDriftReport(id.String(), runs)
	if err != nil {
		return history.DriftReport{}, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "no history"),
			errors.CtxPackage, id.String())
	}
	return report, nil
}

func idsToStrings(ids []graph.PackageID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
