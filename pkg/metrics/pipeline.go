package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics instruments the enrichment task queue and worker loop.
type PipelineMetrics struct {
	tasksEnqueued  prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	tasksRetried   prometheus.Counter
	tasksInFlight  prometheus.Gauge
	queueDepth     *prometheus.GaugeVec
	visionDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

// NewPipelineMetrics creates Prometheus-backed pipeline metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPipelineMetrics() *PipelineMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &PipelineMetrics{
		tasksEnqueued: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "stickerd_tasks_enqueued_total",
				Help: "Total number of enrichment tasks enqueued",
			},
		),
		tasksCompleted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stickerd_tasks_completed_total",
				Help: "Total number of enrichment tasks finished by outcome",
			},
			[]string{"outcome"}, // "succeeded", "failed"
		),
		tasksRetried: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "stickerd_tasks_retried_total",
				Help: "Total number of enrichment task attempts scheduled for retry",
			},
		),
		tasksInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "stickerd_tasks_in_flight",
				Help: "Number of enrichment tasks currently being processed",
			},
		),
		queueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stickerd_task_queue_depth",
				Help: "Number of tasks per status from the last stats poll",
			},
			[]string{"status"},
		),
		visionDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stickerd_vision_call_duration_seconds",
				Help:    "Duration of vision model calls by outcome",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"}, // "ok", "error"
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "stickerd_result_cache_lookups_total",
				Help: "Total number of analysis result cache lookups by outcome",
			},
			[]string{"outcome"}, // "hit", "miss"
		),
	}
}

// RecordEnqueued records a task entering the queue.
func (m *PipelineMetrics) RecordEnqueued() {
	if m == nil {
		return
	}
	m.tasksEnqueued.Inc()
}

// RecordCompleted records a task reaching a terminal status.
func (m *PipelineMetrics) RecordCompleted(outcome string) {
	if m == nil {
		return
	}
	m.tasksCompleted.WithLabelValues(outcome).Inc()
}

// RecordRetry records a failed attempt being rescheduled.
func (m *PipelineMetrics) RecordRetry() {
	if m == nil {
		return
	}
	m.tasksRetried.Inc()
}

// TaskStarted marks a task as in flight.
func (m *PipelineMetrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

// TaskFinished marks a task as no longer in flight.
func (m *PipelineMetrics) TaskFinished() {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
}

// SetQueueDepth records the task count for one status.
func (m *PipelineMetrics) SetQueueDepth(status string, n int64) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(status).Set(float64(n))
}

// ObserveVisionCall records the duration of one vision model call.
func (m *PipelineMetrics) ObserveVisionCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.visionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
func (m *PipelineMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
