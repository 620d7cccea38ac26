package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobInFlight   prometheus.Gauge
	queueLag      *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	inboxTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "worker",
			Name:      "guide_jobs_total",
			Help:      "Total processed study guide jobs by status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "study",
			Subsystem: "worker",
			Name:      "guide_job_duration_seconds",
			Help:      "Study guide job duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "study",
			Subsystem: "worker",
			Name:      "guide_jobs_in_flight",
			Help:      "Number of in-flight study guide jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "study",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between guide upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
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
	inboxTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "study",
			Subsystem: "worker",
			Name:      "inbox_files_total",
			Help:      "Files picked up from the watched inbox directory by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobInFlight, queueLag, stageDuration, inboxTotal)

	return &WorkerMetrics{
		registry:      registry,
		jobTotal:      jobTotal,
		jobDuration:   jobDuration,
		jobInFlight:   jobInFlight,
		queueLag:      queueLag,
		stageDuration: stageDuration,
		inboxTotal:    inboxTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := outcome(err)
	m.jobTotal.WithLabelValues(service, status).Inc()
	m.jobDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveStage(service, stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(service, stage, outcome(err)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordInboxFile(service string, err error) {
	m.inboxTotal.WithLabelValues(service, outcome(err)).Inc()
}
