package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_attempts_total",
	}, []string{"kind"})
	successes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_successes_total",
	}, []string{"kind"})
	failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_failures_total",
	}, []string{"kind"})
	credentialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_credential_failures_total",
	}, []string{"kind"})
	exhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_exhausted_total",
	})
	unrecordedOrders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_unrecorded_orders_total",
	})
)
