package app

import (
	"context"
	"fmt"
	"time"

	"depgraph/internal/shared/observability"
)

// HealthService reports readiness for the metrics server's /health endpoint.
type HealthService struct {
	app *App
}

var _ observability.HealthChecker = (*HealthService)(nil)

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if g := s.app.Graph(); g == nil {
		status.Status = "degraded"
		status.Components["graph"] = "not loaded"
	} else {
		status.Components["graph"] = fmt.Sprintf("ok (%d packages, %d edges)", g.Len(), g.EdgeCount())
	}

	s.app.mu.RLock()
	source := s.app.source
	s.app.mu.RUnlock()
	if source != "" {
		status.Components["source"] = source
	}

	switch {
	case s.app.history != nil:
		status.Components["history"] = "ok"
	case s.app.Config.History.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	if ctx.Err() != nil {
		status.Status = "degraded"
	}
	return status
}
