package cli

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "depgraph/internal/core/app"
	"depgraph/internal/core/config"
	"depgraph/internal/core/errors"
	"depgraph/internal/core/ports"
	"depgraph/internal/engine/graph"
	"depgraph/internal/shared/observability"

	"github.com/joho/godotenv"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitCycle       = 3
	exitNotFound    = 4
	exitInterrupted = 130
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "depgraph v%s\n", versionString)
		return exitOK
	}

	cleanupLogs := configureLogging(stderr, opts.interactive, opts.verbose)
	defer cleanupLogs()

	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitFailure
	}

	if opts.interactive {
		answers, err := runPrompt(cfg)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return exitCode(err)
		}
		answers.apply(cfg)
	}

	if err := applyOverrides(opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitFailure
	}
	if opts.watch && !cfg.Repository.TestMode {
		fmt.Fprintln(stderr, "-watch requires test mode (repository.test_mode = true or -graph)")
		return exitUsage
	}

	if opts.showConfig {
		if err := cfg.Display(stdout); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return exitFailure
		}
		return exitOK
	}

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		Insecure:    cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitFailure
	}
	defer app.Close()

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		server := observability.NewServer(addr, coreapp.NewHealthService(app))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start metrics server", "addr", addr, "error", err)
			return exitFailure
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	svc := app.ResolutionService()
	switch {
	case opts.cycles:
		return runCycles(ctx, svc, stdout, stderr)
	case opts.why != "":
		return runWhy(ctx, svc, opts.pkg, opts.why, stdout, stderr)
	case opts.impact != "":
		return runImpact(ctx, svc, opts.impact, stdout, stderr)
	}

	code := resolveAndPersist(ctx, svc, opts.pkg, stdout, stderr)
	if code != exitOK {
		return code
	}

	if opts.history {
		if code := printHistory(ctx, svc, opts, cfg.Package.Name, stdout, stderr); code != exitOK {
			return code
		}
	}

	if opts.watch {
		return runWatch(ctx, svc, stdout, stderr)
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	file, err := config.Discover(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", file)
	return cfg, nil
}

// applyOverrides folds command line flags into the loaded config and
// validates the result again.
func applyOverrides(opts cliOptions, cfg *config.Config) error {
	if p := strings.TrimSpace(opts.pkg); p != "" {
		cfg.Package.Name = p
	}
	if p := strings.TrimSpace(opts.graphPath); p != "" {
		cfg.Repository.TestMode = true
		cfg.Repository.LocalPath = p
	}
	if f := strings.TrimSpace(opts.format); f != "" {
		cfg.Output.Format = strings.ToLower(f)
	}
	if p := strings.TrimSpace(opts.outPath); p != "" {
		cfg.Output.File = p
	}
	if opts.commit {
		cfg.Output.Commit = true
	}
	if opts.history {
		cfg.History.Enabled = true
		if strings.TrimSpace(cfg.History.Path) == "" {
			cfg.History.Path = config.DefaultHistoryPath
		}
	}
	return config.Validate(cfg)
}

func resolveAndPersist(ctx context.Context, svc ports.ResolutionService, pkg string, stdout, stderr io.Writer) int {
	summary, err := svc.LoadGraph(ctx)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	fmt.Fprint(stdout, renderGraphSummary(summary))

	res, err := svc.Resolve(ctx, ports.ResolveRequest{Package: pkg})
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	persisted, err := svc.Persist(ctx, res)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	fmt.Fprint(stdout, renderSummary(res, &persisted))
	return exitOK
}

func runCycles(ctx context.Context, svc ports.ResolutionService, stdout, stderr io.Writer) int {
	cycles, total, err := svc.DetectCycles(ctx, 0)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	fmt.Fprint(stdout, renderCycles(cycles, total))
	if total > 0 {
		return exitCycle
	}
	return exitOK
}

func runWhy(ctx context.Context, svc ports.ResolutionService, from, to string, stdout, stderr io.Writer) int {
	chain, err := svc.TraceChain(ctx, from, to)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	fmt.Fprintln(stdout, renderChain(chain))
	return exitOK
}

func runImpact(ctx context.Context, svc ports.ResolutionService, pkg string, stdout, stderr io.Writer) int {
	report, err := svc.AnalyzeImpact(ctx, pkg)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitCode(err)
	}
	fmt.Fprint(stdout, renderImpact(report))
	return exitOK
}

func printHistory(ctx context.Context, svc ports.ResolutionService, opts cliOptions, fallback string, stdout, stderr io.Writer) int {
	since, _ := parseSince(opts.since)
	pkg := opts.pkg
	if strings.TrimSpace(pkg) == "" {
		pkg = fallback
	}
	report, err := svc.History(ctx, pkg, since)
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitFailure
	}
	fmt.Fprint(stdout, renderDrift(report))
	return exitOK
}

func runWatch(ctx context.Context, svc ports.ResolutionService, stdout, stderr io.Writer) int {
	err := svc.Watch(ctx, func(update ports.WatchUpdate) {
		if update.Err != nil {
			fmt.Fprintln(stderr, renderError(update.Err))
			return
		}
		if update.Result != nil {
			fmt.Fprint(stdout, renderSummary(*update.Result, update.Persist))
		}
	})
	if err != nil {
		fmt.Fprintln(stderr, renderError(err))
		return exitFailure
	}
	return exitInterrupted
}

// exitCode maps an error to the documented process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, errPromptAborted):
		return exitInterrupted
	case stderrors.Is(err, graph.ErrCycle):
		return exitCycle
	case stderrors.Is(err, graph.ErrNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("-since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func renderError(err error) string {
	var de *errors.DomainError
	if stderrors.As(err, &de) && de.Code == errors.CodeCycle {
		var cycle *graph.CycleError
		if stderrors.As(err, &cycle) {
			return errorStyle.Render("dependency cycle: ") + cycle.Error()
		}
	}
	return errorStyle.Render("error: ") + err.Error()
}

func configureLogging(stderr io.Writer, interactive, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if interactive {
		logPath := filepath.Join(config.StateDir(), "depgraph.log")
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel})))
	return closeFn
}
