// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Auth metrics
	SignUps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_signups_total",
			Help: "Signup attempts by result",
		},
		[]string{"result"},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// Realtime metrics
	Handshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_handshakes_total",
			Help: "Realtime handshakes by result",
		},
		[]string{"result"}, // "user", "guest", "rejected"
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Connections currently registered for broadcast",
		},
	)

	MessagesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_broadcast_total",
			Help: "Messages persisted and broadcast",
		},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_dropped_total",
			Help: "Incoming messages dropped before broadcast",
		},
		[]string{"reason"},
	)

	SlowConsumers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_slow_consumers_total",
			Help: "Connections dropped because their send queue was full",
		},
	)
)
