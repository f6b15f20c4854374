// Package metrics provides Prometheus instrumentation for Breeze.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "breeze_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Agent gateway metrics.
var (
	ActiveAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "breeze_active_agents",
		Help: "Number of devices currently reporting as online.",
	})

	HeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_heartbeats_total",
		Help: "Total number of agent heartbeats accepted.",
	}, []string{"result"})

	CommandsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_commands_issued_total",
		Help: "Total number of device commands issued, by type.",
	}, []string{"type"})

	CommandsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_commands_completed_total",
		Help: "Total number of device commands reaching a terminal state.",
	}, []string{"status"})
)

// Job/webhook worker metrics.
var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_jobs_processed_total",
		Help: "Total number of durable jobs processed, by kind and outcome.",
	}, []string{"kind", "outcome"})

	JobQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breeze_job_queue_depth",
		Help: "Number of jobs currently pending or scheduled for retry, by kind.",
	}, []string{"kind"})

	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts, by outcome.",
	}, []string{"outcome"})
)

// Alert engine metrics.
var (
	AlertsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_alerts_triggered_total",
		Help: "Total number of alerts triggered, by severity.",
	}, []string{"severity"})

	ActiveAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "breeze_active_alerts",
		Help: "Number of alerts currently in the active or acknowledged state.",
	})
)

// Remote session metrics.
var (
	ActiveRemoteSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "breeze_active_remote_sessions",
		Help: "Number of remote sessions currently connecting or active.",
	})
)

// WebSocket metrics.
var (
	WSConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "breeze_ws_connections_active",
		Help: "Number of active WebSocket connections, by channel kind.",
	}, []string{"channel"})

	WSMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breeze_ws_messages_total",
		Help: "Total number of WebSocket messages relayed, by channel kind and direction.",
	}, []string{"channel", "direction"})
)
