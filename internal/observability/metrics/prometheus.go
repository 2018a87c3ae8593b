// Package metrics provides Prometheus metrics for the fax bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	SubmissionsReceived *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	DocumentsRendered   prometheus.Counter
	PublishFailures     prometheus.Counter
	FaxesDispatched     prometheus.Counter
	FaxesFailed         prometheus.Counter
	PipelineDuration    prometheus.Histogram
	HostedDocuments     prometheus.Gauge
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		SubmissionsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_received_total",
			Help: "Total form submissions received",
		}, []string{"form"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_validation_failures_total",
			Help: "Total submissions rejected for missing required fields",
		}, []string{"form"}),
		DocumentsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_rendered_total",
			Help: "Total PDF documents rendered",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_publish_failures_total",
			Help: "Total submissions where every hosting strategy failed",
		}),
		FaxesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faxes_dispatched_total",
			Help: "Total faxes accepted by the provider",
		}),
		FaxesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faxes_failed_total",
			Help: "Total faxes the provider rejected or failed",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "submission_pipeline_duration_seconds",
			Help:    "End-to-end submission pipeline duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		HostedDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hosted_documents",
			Help: "Documents currently held for self-hosted serving",
		}),
	}

	prometheus.MustRegister(
		m.SubmissionsReceived,
		m.ValidationFailures,
		m.DocumentsRendered,
		m.PublishFailures,
		m.FaxesDispatched,
		m.FaxesFailed,
		m.PipelineDuration,
		m.HostedDocuments,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
