// Package observability holds the Prometheus instrumentation for the
// retrieval engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts processed queries by terminal status
	// ("ok" or "generation_error").
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserver_queries_total",
		Help: "Total queries processed, labelled by outcome.",
	}, []string{"status"})

	// ToolInvocationsTotal counts tool executions by tool name and
	// outcome.
	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserver_tool_invocations_total",
		Help: "Total tool executions requested by the reasoning service.",
	}, []string{"tool", "status"})

	// DocumentsIngestedTotal counts course documents ingested since
	// startup, labelled by outcome ("indexed", "skipped", "failed").
	DocumentsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragserver_documents_ingested_total",
		Help: "Course documents processed by the ingestion loader.",
	}, []string{"status"})

	// QueryDuration observes end-to-end query latency in seconds.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragserver_query_duration_seconds",
		Help:    "End-to-end query latency.",
		Buckets: prometheus.DefBuckets,
	})

	// SearchDuration observes content-index search latency in seconds.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragserver_search_duration_seconds",
		Help:    "Vector search latency.",
		Buckets: prometheus.DefBuckets,
	})
)
