// Package metrics exposes Prometheus collectors for sessions, AI calls and HTTP traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interview"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	sessionTransitions *prometheus.CounterVec
	questionsIssued    *prometheus.CounterVec
	aiCalls            *prometheus.CounterVec
	aiLatency          *prometheus.HistogramVec
	aiRetries          *prometheus.CounterVec
	reportFallbacks    prometheus.Counter
	rateLimited        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		sessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions by target status",
		}, []string{"status"}),
		questionsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_issued_total",
			Help:      "Questions issued by kind",
		}, []string{"kind"}),
		aiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "AI collaborator calls by operation and outcome",
		}, []string{"op", "outcome"}),
		aiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "Duration of AI collaborator calls including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"op"}),
		aiRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_retries_total",
			Help:      "Retried LLM attempts by model tier",
		}, []string{"tier"}),
		reportFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_fallbacks_total",
			Help:      "Results built locally because the report AI failed",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"path"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// SessionTransition counts a move into status.
func (m *Metrics) SessionTransition(status string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(status).Inc()
}

// QuestionIssued counts an issued question.
func (m *Metrics) QuestionIssued(followUp bool) {
	if m == nil {
		return
	}
	kind := "primary"
	if followUp {
		kind = "follow_up"
	}
	m.questionsIssued.WithLabelValues(kind).Inc()
}

// AICall records one collaborator call.
func (m *Metrics) AICall(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiCalls.WithLabelValues(op, outcome).Inc()
	m.aiLatency.WithLabelValues(op).Observe(d.Seconds())
}

// AIRetry counts a retried LLM attempt.
func (m *Metrics) AIRetry(tier string) {
	if m == nil {
		return
	}
	m.aiRetries.WithLabelValues(tier).Inc()
}

// ReportFallback counts a locally built result.
func (m *Metrics) ReportFallback() {
	if m == nil {
		return
	}
	m.reportFallbacks.Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(rec.status)
		m.httpRequests.WithLabelValues(r.Method, path, status).Inc()
		m.httpLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
