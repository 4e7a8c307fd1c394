package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheralerts_readings_ingested_total",
			Help: "Total number of weather readings processed by the ingest service",
		},
		[]string{"status"}, // status: stored, rejected, failed
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheralerts_validation_errors_total",
			Help: "Total number of reading messages dropped by validation",
		},
		[]string{"reason"},
	)

	// Evaluation metrics
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheralerts_alerts_generated_total",
			Help: "Total number of alerts created by the evaluation engine",
		},
		[]string{"severity"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatheralerts_alerts_suppressed_total",
			Help: "Total number of rule matches suppressed by the dedup window",
		},
	)

	EvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatheralerts_evaluation_errors_total",
			Help: "Total number of per-rule evaluation failures",
		},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatheralerts_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one reading against all rules",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Collector metrics
	CollectorFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheralerts_collector_fetches_total",
			Help: "Total number of upstream weather API fetches",
		},
		[]string{"city", "status"}, // status: success, failed
	)

	// Kafka metrics
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheralerts_messages_published_total",
			Help: "Total number of messages published to the broker",
		},
		[]string{"topic", "status"},
	)
)

// Serve exposes /metrics on its own listener so every service can run it
// beside its main workload.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
