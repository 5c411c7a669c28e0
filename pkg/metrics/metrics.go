// Package metrics provides Prometheus metrics for the APIC catalog provider.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRunsTotal tracks scheduled provider runs by outcome
	ProviderRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "provider",
			Name:      "runs_total",
			Help:      "Total number of provider runs by status",
		},
		[]string{"status"},
	)

	// ProviderRunDuration tracks provider run duration in seconds
	ProviderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "apic",
			Subsystem: "provider",
			Name:      "run_duration_seconds",
			Help:      "Duration of provider runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// MutationEntities tracks the entity count of each full-replace mutation
	MutationEntities = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "apic",
			Subsystem: "provider",
			Name:      "mutation_entities",
			Help:      "Number of entities in each full-replace mutation",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
	)

	// SourceRequestsTotal tracks requests to the management API
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "source",
			Name:      "requests_total",
			Help:      "Total number of requests to the management API",
		},
		[]string{"method", "status_code"},
	)

	// SourceRequestDuration tracks management API request duration
	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apic",
			Subsystem: "source",
			Name:      "request_duration_seconds",
			Help:      "Duration of management API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// TokenRefreshesTotal tracks token refresh operations per instance
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Total number of token refresh operations",
		},
		[]string{"instance", "status"},
	)

	// EntitiesSynthesizedTotal tracks synthesized entities by kind
	EntitiesSynthesizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "synth",
			Name:      "entities_total",
			Help:      "Total number of synthesized entities by kind",
		},
		[]string{"kind"},
	)

	// RelationsEmittedTotal tracks derived relations by type
	RelationsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "relations",
			Name:      "emitted_total",
			Help:      "Total number of derived relations emitted by type",
		},
		[]string{"type"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apic",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordProviderRun records a provider run outcome
func RecordProviderRun(status string, durationSeconds float64) {
	ProviderRunsTotal.WithLabelValues(status).Inc()
	ProviderRunDuration.Observe(durationSeconds)
}

// RecordSourceRequest records a management API request
func RecordSourceRequest(method, statusCode string, durationSeconds float64) {
	SourceRequestsTotal.WithLabelValues(method, statusCode).Inc()
	SourceRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordTokenRefresh records a token refresh operation
func RecordTokenRefresh(instance, status string) {
	TokenRefreshesTotal.WithLabelValues(instance, status).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
