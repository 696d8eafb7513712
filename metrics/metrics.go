package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_events_ingested_total",
			Help: "Total number of events ingested",
		},
		[]string{"source"},
	)

	LinesNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_lines_normalized_total",
			Help: "Total number of lines normalized, by detected format",
		},
		[]string{"format"},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"severity"},
	)

	SweepsRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwarden_correlation_sweeps_total",
			Help: "Total number of correlation sweeps executed",
		},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_alerts_suppressed_total",
			Help: "Alert requests suppressed by cooldown deduplication",
		},
		[]string{"type"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logwarden_sweep_duration_seconds",
			Help:    "Time taken to run all detectors over a window snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logwarden_notification_failures_total",
			Help: "Total number of failed alert notification dispatches",
		},
	)

	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_sink_failures_total",
			Help: "Total number of durable sink write failures",
		},
		[]string{"kind"},
	)

	WorkerPoolActiveWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logwarden_worker_pool_active_workers",
			Help: "Number of active workers per pool",
		},
		[]string{"pool"},
	)

	WorkerPoolQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logwarden_worker_pool_queue_size",
			Help: "Queued tasks per pool",
		},
		[]string{"pool"},
	)

	WorkerPoolTasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logwarden_worker_pool_tasks_processed_total",
			Help: "Tasks processed per pool",
		},
		[]string{"pool"},
	)
)
