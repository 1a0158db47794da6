// Package metrics provides Prometheus observability metrics for the
// service-call analytics API and its ingestion side.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory registers metrics to our custom Registry directly
var factory = promauto.With(Registry)

// RequestsTotal counts API requests by route and status class.
var RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "service_calls",
	Name:      "requests_total",
	Help:      "Total HTTP requests handled, labeled by route and status class",
}, []string{"route", "status"})

// IngestRunsTotal counts completed ingestion runs by outcome.
var IngestRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "service_calls",
	Name:      "ingest_runs_total",
	Help:      "Total ingestion runs, labeled by outcome (ok or error)",
}, []string{"outcome"})

// IngestRowsTotal counts rows written to the store by ingestion.
var IngestRowsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "service_calls",
	Name:      "ingest_rows_total",
	Help:      "Total new or updated rows written by ingestion runs",
})

// MetadataRecomputes counts filter-metadata cache recomputations.
var MetadataRecomputes = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "service_calls",
	Name:      "metadata_recomputes_total",
	Help:      "Times the filter metadata cache was recomputed after invalidation or cold start",
})
