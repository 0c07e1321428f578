package api

import (
	"net/http"
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/qa"
	"github.com/poiesic/policyrag/rerank"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server. Each instance owns
// its registry so several servers can coexist in a process.
type Metrics struct {
	registry           *prometheus.Registry
	queries            *prometheus.CounterVec
	generationFailures prometheus.Counter
	retrievedChunks    prometheus.Histogram
	ingestedChunks     prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

// NewMetrics registers the policyrag collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policyrag_queries_total",
			Help: "Answered queries by answer origin.",
		}, []string{"origin"}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "policyrag_generation_failures_total",
			Help: "Generator calls that failed, timed out or produced unusable output.",
		}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "policyrag_retrieved_chunks",
			Help:    "Chunks returned by retrieval per query.",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}),
		ingestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "policyrag_ingested_chunks_total",
			Help: "Chunks stored by document uploads.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "policyrag_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.queries,
		m.generationFailures,
		m.retrievedChunks,
		m.ingestedChunks,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, statusLabel(status)).Observe(elapsed.Seconds())
}

// ObserveIngest counts chunks stored by an upload.
func (m *Metrics) ObserveIngest(chunks int) {
	m.ingestedChunks.Add(float64(chunks))
}

// Monitor returns a qa.Monitor feeding the query collectors.
func (m *Metrics) Monitor() qa.Monitor {
	return &queryMonitor{metrics: m}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// queryMonitor is stateless and shared by all requests.
type queryMonitor struct {
	metrics *Metrics
}

func (q *queryMonitor) Start(string) {}

func (q *queryMonitor) AfterExpansion(string) {}

func (q *queryMonitor) AfterRetrieval(chunks []core.ScoredChunk) {
	q.metrics.retrievedChunks.Observe(float64(len(chunks)))
}

func (q *queryMonitor) AfterRerank(rerank.Result) {}

func (q *queryMonitor) GenerationFailed(error) {
	q.metrics.generationFailures.Inc()
}

func (q *queryMonitor) Finish(answer *core.Answer) {
	q.metrics.queries.WithLabelValues(string(answer.Origin)).Inc()
}
