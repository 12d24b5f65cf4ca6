package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/code-context-engine/internal/core/domain"
)

const namespace = "cce"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	packetsTotal            *prometheus.CounterVec
	pipelineDuration        *prometheus.HistogramVec
	contextTokens           *prometheus.HistogramVec
	chunksUsed              *prometheus.HistogramVec
	finalK                  *prometheus.HistogramVec
	droppedTotal            *prometheus.CounterVec
	scoringDegradedTotal    *prometheus.CounterVec
	breakerState            *prometheus.GaugeVec
	breakerTransitionsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	packetsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "packets_total",
			Help:      "Total context packets built by status.",
		},
		[]string{"service", "status"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Context pipeline duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	contextTokens := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "context_tokens",
			Help:      "Estimated tokens of assembled context per successful packet.",
			Buckets:   []float64{100, 250, 500, 1000, 1500, 2000, 2500, 3000},
		},
		[]string{"service"},
	)
	chunksUsed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_used",
			Help:      "Distribution of blocks used per successful packet.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	finalK := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "final_k",
			Help:      "Cutoff chosen by the expansion policy.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"service"},
	)
	droppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidates_dropped_total",
			Help:      "Candidates dropped during assembly by reason.",
		},
		[]string{"service", "reason"},
	)
	scoringDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "scoring_degraded_total",
			Help:      "Packets built with similarity-only ranking because relevance scoring failed.",
		},
		[]string{"service"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)
	breakerTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by operation and target state.",
		},
		[]string{"service", "operation", "to"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		packetsTotal,
		pipelineDuration,
		contextTokens,
		chunksUsed,
		finalK,
		droppedTotal,
		scoringDegradedTotal,
		breakerState,
		breakerTransitionsTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		service:                 service,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		packetsTotal:            packetsTotal,
		pipelineDuration:        pipelineDuration,
		contextTokens:           contextTokens,
		chunksUsed:              chunksUsed,
		finalK:                  finalK,
		droppedTotal:            droppedTotal,
		scoringDegradedTotal:    scoringDegradedTotal,
		breakerState:            breakerState,
		breakerTransitionsTotal: breakerTransitionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case path == "/v1/context/last":
		return path
	case strings.HasPrefix(path, "/v1/context/"):
		return "/v1/context/{packet_id}"
	default:
		return path
	}
}

// ObservePacket records one finished pipeline run.
func (m *HTTPServerMetrics) ObservePacket(packet *domain.ContextPacket, duration time.Duration) {
	if packet == nil {
		return
	}
	status := string(packet.Status)
	if status == "" {
		status = "unknown"
	}
	m.packetsTotal.WithLabelValues(m.service, status).Inc()
	m.pipelineDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())

	diag := packet.Diagnostics
	if diag.ScoringDegraded {
		m.scoringDegradedTotal.WithLabelValues(m.service).Inc()
	}
	if diag.CandidatesDroppedBudget > 0 {
		m.droppedTotal.WithLabelValues(m.service, "budget").Add(float64(diag.CandidatesDroppedBudget))
	}
	if diag.CandidatesDroppedShort > 0 {
		m.droppedTotal.WithLabelValues(m.service, "short").Add(float64(diag.CandidatesDroppedShort))
	}
	if packet.Status != domain.PacketStatusSuccess {
		return
	}
	m.contextTokens.WithLabelValues(m.service).Observe(float64(packet.TokensContext))
	m.chunksUsed.WithLabelValues(m.service).Observe(float64(packet.ChunksUsed))
	if diag.FinalK > 0 {
		m.finalK.WithLabelValues(m.service).Observe(float64(diag.FinalK))
	}
}

// RecordBreakerState matches resilience.StateObserver.
func (m *HTTPServerMetrics) RecordBreakerState(operation, _, to string) {
	m.breakerState.WithLabelValues(m.service, operation).Set(breakerStateValue(to))
	m.breakerTransitionsTotal.WithLabelValues(m.service, operation, to).Inc()
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
