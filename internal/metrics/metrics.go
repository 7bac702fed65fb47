// Package metrics provides Prometheus metrics for estate-archive.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsProcessed tracks documents through the pipeline by type and outcome
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total number of processed documents by type and outcome",
		},
		[]string{"document_type", "outcome"},
	)

	// MatchResults tracks registry match decisions
	MatchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "match",
			Name:      "results_total",
			Help:      "Total number of registry match decisions by status",
		},
		[]string{"status"},
	)

	// MatchAttempts tracks how many candidate combinations a match needed
	MatchAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "estate_archive",
			Subsystem: "match",
			Name:      "attempts",
			Help:      "Number of candidate attempts per match",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	// ReviewQueued tracks review queue entries by reason
	ReviewQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "review",
			Name:      "queued_total",
			Help:      "Total number of documents sent to manual review by reason",
		},
		[]string{"reason"},
	)

	// StageDuration tracks per-document stage duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "estate_archive",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of per-document stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"stage"},
	)

	// QueueJobsInFlight tracks jobs currently being processed
	QueueJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "estate_archive",
			Subsystem: "queue",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently being processed",
		},
	)

	// QueueJobsProcessed tracks jobs processed from the queue
	QueueJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of jobs processed from the queue",
		},
		[]string{"status"},
	)

	// OCRRuns tracks text extraction by method
	OCRRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "ocr",
			Name:      "runs_total",
			Help:      "Total number of text extractions by method and status",
		},
		[]string{"method", "status"},
	)

	// SinkWrites tracks result deliveries per sink
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of result writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "estate_archive",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estate_archive",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)
)

// Outcome labels for DocumentsProcessed.
const (
	OutcomeAccepted = "accepted"
	OutcomeReview   = "review"
	OutcomeFailed   = "failed"
)

// Status labels shared by queue, sink, OCR and Kafka counters.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RecordDocument records the pipeline outcome of one document
func RecordDocument(documentType, outcome, matchStatus, reviewReason string, attempts int) {
	DocumentsProcessed.WithLabelValues(documentType, outcome).Inc()
	if matchStatus != "" {
		MatchResults.WithLabelValues(matchStatus).Inc()
		MatchAttempts.Observe(float64(attempts))
	}
	if reviewReason != "" {
		ReviewQueued.WithLabelValues(reviewReason).Inc()
	}
}

// RecordStage records the duration of one per-document stage
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordQueueJob records a queue job processing metric
func RecordQueueJob(status string) {
	QueueJobsProcessed.WithLabelValues(status).Inc()
}

// RecordOCR records a text extraction
func RecordOCR(method, status string) {
	OCRRuns.WithLabelValues(method, status).Inc()
}

// RecordSinkWrite records a result delivery to one sink
func RecordSinkWrite(sink, status string) {
	SinkWrites.WithLabelValues(sink, status).Inc()
}

// RecordKafkaPublish records a Kafka publish
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordQuery records a database query duration
func RecordQuery(operation string, durationSeconds float64) {
	DatabaseQueryDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordHTTPRequest records an inbound HTTP request
func RecordHTTPRequest(method, route, statusCode string) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
}
