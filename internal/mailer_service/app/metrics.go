package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveryJobsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "mailer",
			Name:      "delivery_jobs_total",
			Help:      "Total number of email delivery jobs executed.",
		},
		[]string{"outcome"}, // success, partial_failure
	)
	recipientsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsletter",
			Subsystem: "mailer",
			Name:      "recipients_total",
			Help:      "Total number of per-recipient delivery outcomes.",
		},
		[]string{"outcome"}, // sent, failed
	)
)
