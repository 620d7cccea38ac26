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
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	stageDuration       *prometheus.HistogramVec
	guidesTotal         *prometheus.CounterVec
	pomodoroTransitions *prometheus.CounterVec
	pomodoroActive      prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "study",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "study",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected before reaching a handler, by reason.",
		},
		[]string{"service", "reason"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "study",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Study pipeline stage duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "stage", "status"},
	)
	guidesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "pipeline",
			Name:      "guides_total",
			Help:      "Study guides finished by terminal status.",
		},
		[]string{"service", "status"},
	)
	pomodoroTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "pomodoro",
			Name:      "transitions_total",
			Help:      "Pomodoro phase transitions.",
		},
		[]string{"service", "from", "to"},
	)
	pomodoroActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "study",
			Subsystem: "pomodoro",
			Name:      "active",
			Help:      "1 while the pomodoro session is running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		stageDuration,
		guidesTotal,
		pomodoroTransitions,
		pomodoroActive,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		rejectedTotal:       rejectedTotal,
		stageDuration:       stageDuration,
		guidesTotal:         guidesTotal,
		pomodoroTransitions: pomodoroTransitions,
		pomodoroActive:      pomodoroActive,
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

// knownPaths are the fixed routes recorded under their own label.
var knownPaths = map[string]struct{}{
	"/healthz":             {},
	"/metrics":             {},
	"/pomodoro/start":      {},
	"/pomodoro/stop":       {},
	"/pomodoro/status":     {},
	"/process":             {},
	"/extract-text":        {},
	"/generate-content":    {},
	"/analyze-explanation": {},
	"/v1/jobs":             {},
}

// normalizePath folds ids into placeholders and every unrouted path into
// "other" so the label set stays bounded.
func normalizePath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	switch {
	case strings.HasPrefix(path, "/v1/guides/") && strings.Contains(path, "/artifacts/"):
		return "/v1/guides/{guide_id}/artifacts/{kind}"
	case strings.HasPrefix(path, "/v1/guides/"):
		return "/v1/guides/{guide_id}"
	case strings.HasPrefix(path, "/download/"):
		return "/download/{kind}"
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedTotal.WithLabelValues(service, reason).Inc()
}

// ObserveStage satisfies the pipeline's StageObserver.
func (m *HTTPServerMetrics) ObserveStage(service, stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(service, stage, outcome(err)).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordGuide(service, status string) {
	m.guidesTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordPomodoroTransition(service, from, to string) {
	m.pomodoroTransitions.WithLabelValues(service, from, to).Inc()
}

func (m *HTTPServerMetrics) SetPomodoroActive(active bool) {
	if active {
		m.pomodoroActive.Set(1)
		return
	}
	m.pomodoroActive.Set(0)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
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
