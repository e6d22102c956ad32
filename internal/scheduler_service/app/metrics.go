package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "scheduler",
			Name:      "jobs_processed_total",
			Help:      "Total number of jobs processed by the poller.",
		},
		[]string{"kind", "outcome"}, // outcome: completed, retried, failed
	)
	jobProcessingDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsletter",
			Subsystem: "scheduler",
			Name:      "job_processing_duration_seconds",
			Help:      "Duration of job handler execution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
