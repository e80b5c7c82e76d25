package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the session service
type Metrics struct {
	// Connection metrics
	ActiveConnections    prometheus.Gauge
	Events               *prometheus.CounterVec
	HeartbeatDisconnects prometheus.Counter

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted *prometheus.CounterVec
	ChunksReceived    prometheus.Counter
	ChunkSize         prometheus.Histogram

	// Pipeline metrics
	ActiveFinalizers    prometheus.Gauge
	FinalizeDuration    prometheus.Histogram
	StageFailures       *prometheus.CounterVec
	DegradedAggregation prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_active_connections",
			Help: "Current number of open websocket connections",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_events_total",
			Help: "Client events handled, by event name and result",
		}, []string{"event", "result"}),
		HeartbeatDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_heartbeat_disconnects_total",
			Help: "Connections closed by the liveness sweep",
		}),

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_sessions_started_total",
			Help: "Total number of sessions created",
		}),
		SessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_sessions_completed_total",
			Help: "Sessions that reached completed, by outcome",
		}, []string{"outcome"}),
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_chunks_received_total",
			Help: "Total number of audio chunks stored",
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_chunk_size_bytes",
			Help:    "Size of uploaded audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		ActiveFinalizers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_active_finalizers",
			Help: "Finalize sequences currently running",
		}),
		FinalizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_finalize_duration_seconds",
			Help:    "Time from end-of-recording to completed",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_pipeline_stage_failures_total",
			Help: "Finalize stage failures, by stage",
		}, []string{"stage"}),
		DegradedAggregation: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_aggregation_degraded_total",
			Help: "Aggregations that fell back to raw byte concatenation",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Outcomes recorded by RecordSessionCompleted.
const (
	OutcomeSummarized = "summarized"
	OutcomeFallback   = "fallback"
	OutcomeForced     = "forced"
)

// Stages recorded by RecordStageFailure.
const (
	StageList       = "list"
	StageAggregate  = "aggregate"
	StageStability  = "stability"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StagePersist    = "persist"
)

// RecordEvent counts one handled client event
func (m *Metrics) RecordEvent(event string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Events.WithLabelValues(event, result).Inc()
}

// RecordChunk records a stored audio chunk
func (m *Metrics) RecordChunk(sizeBytes int) {
	m.ChunksReceived.Inc()
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordSessionCompleted records the end of a finalize sequence
func (m *Metrics) RecordSessionCompleted(outcome string, durationSeconds float64) {
	m.SessionsCompleted.WithLabelValues(outcome).Inc()
	m.FinalizeDuration.Observe(durationSeconds)
}

// RecordStageFailure increments the failure counter of a finalize stage
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
