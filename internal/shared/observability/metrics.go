package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ResolutionsTotal.
const (
	OutcomeOK       = "ok"
	OutcomeCycle    = "cycle"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics definitions
var (
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depgraph_resolutions_total",
		Help: "Total number of transitive dependency resolutions by outcome.",
	}, []string{"outcome"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depgraph_resolution_seconds",
		Help:    "Time spent computing a transitive closure.",
		Buckets: prometheus.DefBuckets,
	})

	ResolvedDependencies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgraph_resolved_dependencies",
		Help: "Size of the most recent successful dependency closure.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgraph_graph_nodes_total",
		Help: "Total number of declared nodes in the loaded dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgraph_graph_edges_total",
		Help: "Total number of edges in the loaded dependency graph.",
	})

	GraphLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depgraph_graph_load_seconds",
		Help:    "Time spent building a dependency graph, by source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	RegistryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depgraph_registry_requests_total",
		Help: "Total number of package registry requests by HTTP status class.",
	}, []string{"status"})

	RegistryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgraph_registry_cache_hits_total",
		Help: "Total number of registry metadata lookups served from cache.",
	})

	RegistryRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depgraph_registry_request_seconds",
		Help:    "Latency of package registry requests.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depgraph_history_writes_total",
		Help: "Total number of history rows written, by result.",
	}, []string{"result"})
)
