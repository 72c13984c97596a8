package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driverpool_sessions_created_total",
		Help: "Total number of sessions successfully created.",
	})
	createRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driverpool_create_retries_total",
		Help: "Total number of retried session creation attempts.",
	})
	createFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driverpool_create_failures_total",
		Help: "Total number of session creations that exhausted all attempts.",
	})
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driverpool_active_sessions",
		Help: "Number of sessions currently registered in the pool.",
	})
	teardownTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driverpool_teardown_timeouts_total",
		Help: "Total number of session quits that exceeded the close timeout.",
	})
)
