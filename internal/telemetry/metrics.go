// Package telemetry holds the process's Prometheus collectors and
// structured-logger construction, grounded on the teacher's shared
// telemetry package. Of the collectors below, only HTTPRequestDuration has
// a call site (internal/httpserver's Metrics middleware); the others are
// registered by NewRegistry but nothing in the tree updates them.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency, labeled by method,
// route pattern and status code.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ticketrag",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// LLMCallsTotal counts every llmrouter.Router.Generate call, by use case,
// provider and outcome (ok, fallback, error).
var LLMCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Total number of LLM generate calls.",
	},
	[]string{"use_case", "provider", "outcome"},
)

// LLMCallDuration tracks per-use-case LLM call latency.
var LLMCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ticketrag",
		Subsystem: "llm",
		Name:      "call_duration_seconds",
		Help:      "LLM generate call duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
	},
	[]string{"use_case"},
)

// LLMCacheHitsTotal counts llmrouter.Cache hits and misses by use case.
var LLMCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "llm",
		Name:      "cache_hits_total",
		Help:      "Total number of LLM response cache lookups, by hit/miss.",
	},
	[]string{"use_case", "result"},
)

// IngestObjectsProcessedTotal counts objects the ingest orchestrator has
// finished processing, by tenant, object type and terminal state.
var IngestObjectsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "ingest",
		Name:      "objects_processed_total",
		Help:      "Total number of objects processed by the ingest orchestrator.",
	},
	[]string{"tenant_id", "object_type", "state"},
)

// IngestJobDuration tracks whole-job wall-clock duration by trigger type.
var IngestJobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ticketrag",
		Subsystem: "ingest",
		Name:      "job_duration_seconds",
		Help:      "Ingest job duration in seconds.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	},
	[]string{"trigger"},
)

// SearchRequestsTotal counts internal/search.Engine.Search calls by
// intent and whether the fallback path was used.
var SearchRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Total number of hybrid search requests.",
	},
	[]string{"intent", "used_fallback"},
)

// SearchResultsEmptyTotal counts searches that would have returned zero
// hits before prevent_empty kept the best one.
var SearchResultsEmptyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "search",
		Name:      "results_empty_total",
		Help:      "Total number of searches that fell below the quality threshold entirely.",
	},
	[]string{"tenant_id"},
)

// EmbeddingCacheHitsTotal counts internal/embed.Embedder cache lookups.
var EmbeddingCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ticketrag",
		Subsystem: "embed",
		Name:      "cache_hits_total",
		Help:      "Total number of embedding cache lookups, by hit/miss.",
	},
	[]string{"result"},
)

// All returns every ticketrag-specific collector for registration,
// mirroring the teacher's telemetry.All() convention.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		LLMCallsTotal,
		LLMCallDuration,
		LLMCacheHitsTotal,
		IngestObjectsProcessedTotal,
		IngestJobDuration,
		SearchRequestsTotal,
		SearchResultsEmptyTotal,
		EmbeddingCacheHitsTotal,
	}
}

// NewRegistry builds a Prometheus registry carrying the Go/process
// collectors plus every collector in All().
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
