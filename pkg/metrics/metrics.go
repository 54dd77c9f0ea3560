package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foliotrack_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// VerificationCodes counts one-time code operations by stage
	// (issued|redeemed|rejected).
	VerificationCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foliotrack_verification_codes_total",
			Help: "Total number of verification code operations",
		},
		[]string{"stage"},
	)

	// ActiveSessions tracks sessions that have been issued and not destroyed.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foliotrack_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foliotrack_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
