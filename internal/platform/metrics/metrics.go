// Package metrics defines the Prometheus instruments exposed by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler's Prometheus instruments.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsFinished  *prometheus.CounterVec
	TasksSettled  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	TaskDuration  prometheus.Histogram
}

// New registers the instruments against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "contentgen",
			Name:      "jobs_submitted_total",
			Help:      "Number of generation jobs accepted into the queue.",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentgen",
			Name:      "jobs_finished_total",
			Help:      "Number of jobs reaching a terminal status, by status.",
		}, []string{"status"}),
		TasksSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentgen",
			Name:      "tasks_settled_total",
			Help:      "Number of generation tasks settled, by outcome.",
		}, []string{"outcome"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentgen",
			Name:      "queue_depth",
			Help:      "Number of jobs currently waiting in the queue.",
		}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "contentgen",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of individual generation tasks.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}
