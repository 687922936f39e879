package app

import (
	"context"
	"log/slog"

	"depgraph/internal/core/errors"
	"depgraph/internal/core/ports"
	"depgraph/internal/core/watcher"
)

var watchExcludeDirs = []string{".git", "**/.git"}

// Watch re-resolves and persists whenever the local graph changes, until ctx
// is done. Only available in test mode; a registry has nothing to watch.
func (s *resolutionService) Watch(ctx context.Context, handler func(ports.WatchUpdate)) error {
	if !s.app.Config.Repository.TestMode {
		return errors.New(errors.CodeConfig, "watch requires repository.test_mode = true")
	}
	if handler == nil {
		return errors.New(errors.CodeValidationError, "watch handler is required")
	}

	w, err := watcher.NewWatcher(
		s.app.Config.Watch.Debounce,
		watchExcludeDirs,
		nil,
		func(changed []string) { s.handleChanges(ctx, changed, handler) },
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create watcher")
	}
	defer w.Close()

	w.Ignore(s.app.Paths.OutputFile, s.app.Paths.HistoryPath)
	if err := w.Watch([]string{s.app.Paths.LocalPath}); err != nil {
		return errors.AddContext(
			errors.Wrap(err, errors.CodeInternal, "watch graph"),
			errors.CtxPath, s.app.Paths.LocalPath)
	}
	slog.Info("watching for graph changes", "path", s.app.Paths.LocalPath, "debounce", s.app.Config.Watch.Debounce)

	<-ctx.Done()
	return nil
}

func (s *resolutionService) handleChanges(ctx context.Context, changed []string, handler func(ports.WatchUpdate)) {
	if ctx.Err() != nil {
		return
	}
	slog.Info("graph changed", "files", changed)
	update := ports.WatchUpdate{Changed: changed}

	if _, err := s.app.LoadGraph(ctx); err != nil {
		update.Err = err
		handler(update)
		return
	}
	res, err := s.Resolve(ctx, ports.ResolveRequest{})
	if err != nil {
		update.Err = err
		handler(update)
		return
	}
	update.Result = &res

	persisted, err := s.Persist(ctx, res)
	if err != nil {
		update.Err = err
	} else {
		update.Persist = &persisted
	}
	handler(update)
}
