package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "envmonitor_gateway"

var (
	// MessagesReceived counts MQTT messages by outcome of decoding.
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "MQTT messages received, by decode result.",
	}, []string{"result"})

	// ReadingsForwarded counts forward attempts to the monitoring service.
	ReadingsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_forwarded_total",
		Help:      "Readings forwarded to the monitoring service, by result.",
	}, []string{"result"})

	ForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "forward_duration_seconds",
		Help:      "Latency of POST /readings calls.",
		Buckets:   prometheus.DefBuckets,
	})

	BrokerConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broker_connected",
		Help:      "1 while the MQTT connection is up.",
	})
)
