package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mnemo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MemoryStoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_memory_stores_total",
			Help: "Memory store attempts by outcome (stored, duplicate).",
		},
		[]string{"outcome"},
	)

	MemorySearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_memory_searches_total",
			Help: "Similarity searches by source kind.",
		},
		[]string{"source"},
	)

	CaptureDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_capture_decisions_total",
			Help: "Capture classifier decisions (accepted, rejected).",
		},
		[]string{"decision"},
	)

	EmbeddingCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_embedding_calls_total",
			Help: "Calls to the embedding provider by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	ContextHitsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mnemo_context_hits_returned",
			Help:    "Number of hits returned per unified context search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MemoryStoresTotal,
		MemorySearchesTotal,
		CaptureDecisionsTotal,
		EmbeddingCallsTotal,
		ContextHitsReturned,
	)
}
