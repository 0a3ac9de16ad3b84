package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envmonitor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Ingest metrics
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_readings_ingested_total",
			Help: "Readings received by the ingest path",
		},
		[]string{"status"}, // accepted, rejected, failed
	)

	SensorCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_sensor_cache_lookups_total",
			Help: "Sensor lookups served by the ingest cache",
		},
		[]string{"result"}, // hit, miss
	)

	// Alert metrics
	AlertsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "envmonitor_alerts_created_total",
			Help: "ACTIVE alerts opened by the evaluator",
		},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_alerts_suppressed_total",
			Help: "Breaches not turned into alerts because one was already ACTIVE",
		},
		[]string{"reason"}, // existing, conflict
	)

	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_alert_transitions_total",
			Help: "Alert lifecycle transitions",
		},
		[]string{"status"},
	)

	// Live channel metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "envmonitor_live_connections",
			Help: "Currently connected live viewers",
		},
	)

	LiveMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_live_messages_sent_total",
			Help: "Live events queued for delivery",
		},
		[]string{"event"},
	)

	LiveMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envmonitor_live_messages_dropped_total",
			Help: "Live events dropped because a connection buffer was full",
		},
		[]string{"event"},
	)

	LiveRelayErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "envmonitor_live_relay_errors_total",
			Help: "Redis relay publish failures that fell back to local delivery",
		},
	)
)
