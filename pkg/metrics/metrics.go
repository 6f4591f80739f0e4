package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LockCascadeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lock_cascade_duration_seconds",
			Help:    "Lock cascade duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"node_type"},
	)

	LockCascadeNodes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lock_cascade_nodes",
			Help:    "Number of nodes mutated per lock cascade",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
		[]string{"node_type"},
	)

	CompletionRecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_recompute_duration_seconds",
			Help:    "Completion aggregation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"scope"}, // scope: milestone, project
	)

	NotificationFanout = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_fanout_size",
			Help:    "Audience size per dispatched lock notification",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"node_type"},
	)

	NotificationDeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_count",
			Help: "Total notification delivery attempts",
		},
		[]string{"channel", "status"}, // status: success, failed, skipped
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
	)
)

func RecordLockCascade(nodeType string, nodes int, duration time.Duration) {
	LockCascadeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
	LockCascadeNodes.WithLabelValues(nodeType).Observe(float64(nodes))
}

func RecordRecompute(scope string, duration time.Duration) {
	CompletionRecomputeDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

func RecordNotificationFanout(nodeType string, size int) {
	NotificationFanout.WithLabelValues(nodeType).Observe(float64(size))
}

func IncrementNotificationDelivery(channel, status string) {
	NotificationDeliveryCount.WithLabelValues(channel, status).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}
