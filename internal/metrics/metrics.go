package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	WAIncomingMessages *prometheus.CounterVec
	WAOutgoingMessages *prometheus.CounterVec
	GeminiRequests     *prometheus.CounterVec
	GeminiLatency      *prometheus.HistogramVec
	GraphRequests      *prometheus.CounterVec
	GraphLatency       *prometheus.HistogramVec
	DirectoryQueries   *prometheus.CounterVec
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			WAIncomingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_incoming_messages_total",
				Help:      "Total incoming WhatsApp messages processed.",
			}, []string{"type"}),
			WAOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_outgoing_messages_total",
				Help:      "Total outgoing WhatsApp messages sent.",
			}, []string{"type"}),
			GeminiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_requests_total",
				Help:      "Total Gemini API requests by outcome.",
			}, []string{"status"}),
			GeminiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gemini_request_duration_seconds",
				Help:      "Latency distribution for Gemini API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"status"}),
			GraphRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_requests_total",
				Help:      "Total Meta Graph API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			GraphLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_request_duration_seconds",
				Help:      "Latency distribution for Meta Graph API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			DirectoryQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_queries_total",
				Help:      "Total directory store queries by operation and outcome.",
			}, []string{"operation", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.WAIncomingMessages,
			metricsInstance.WAOutgoingMessages,
			metricsInstance.GeminiRequests,
			metricsInstance.GeminiLatency,
			metricsInstance.GraphRequests,
			metricsInstance.GraphLatency,
			metricsInstance.DirectoryQueries,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
