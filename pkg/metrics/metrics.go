// Package metrics provides Prometheus metrics for listing workers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirlisting_tasks_total",
			Help: "Total number of listing tasks executed",
		},
		[]string{"kind", "result"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirlisting_task_duration_seconds",
			Help:    "Listing task duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dirlisting_queue_depth",
			Help: "Number of tasks waiting in listing queues",
		},
	)

	// Load metrics
	directoriesLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dirlisting_directories_loaded_total",
			Help: "Total directory elements parsed from file listings",
		},
	)

	// Search metrics
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirlisting_searches_total",
			Help: "Total searches by outcome",
		},
		[]string{"outcome"},
	)

	// Source metrics
	sourceOpenDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirlisting_source_open_duration_seconds",
			Help:    "Time to open a listing source in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scheme"},
	)

	sourceOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirlisting_source_opens_total",
			Help: "Total listing source opens",
		},
		[]string{"scheme", "status"},
	)

	// Share index metrics
	shareQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirlisting_share_query_duration_seconds",
			Help:    "Share index query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTask records one executed listing task.
func RecordTask(kind, result string, duration time.Duration) {
	tasksTotal.WithLabelValues(kind, result).Inc()
	taskDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDirectoriesLoaded adds parsed directories.
func RecordDirectoriesLoaded(n int) {
	directoriesLoaded.Add(float64(n))
}

// RecordSearch records the outcome of a search.
func RecordSearch(outcome string) {
	searchesTotal.WithLabelValues(outcome).Inc()
}

// AddQueueDepth adjusts the number of waiting tasks by delta.
func AddQueueDepth(delta int) {
	queueDepth.Add(float64(delta))
}

// RecordSourceOpen records opening a listing source.
func RecordSourceOpen(scheme string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	sourceOpensTotal.WithLabelValues(scheme, status).Inc()
	sourceOpenDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordShareQuery records a share index query.
func RecordShareQuery(query string, duration time.Duration) {
	shareQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
