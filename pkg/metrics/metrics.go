package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	KindImmediate = "immediate"
	KindReminder  = "reminder"
)

var (
	// Push outcomes; status: sent, failed, skipped.
	PushSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_sent_total",
			Help: "Total push notifications by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	PushFailureReasons = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_failure_total",
			Help: "Push failures by kind and classified reason",
		},
		[]string{"kind", "reason"},
	)

	PushSendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_send_latency_ms",
			Help:    "Push provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"kind"},
	)

	ReminderPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_poll_duration_seconds",
			Help:    "Duration of one reminder poll cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ReminderPollSelected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_poll_selected",
			Help: "Reminders selected by the last poll cycle",
		},
	)

	RetentionDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Records deleted by the retention sweeper",
		},
		[]string{"collection"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	DBSlowQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the tracer threshold",
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

func RecordPushOutcome(kind, status string) {
	PushSentTotal.WithLabelValues(kind, status).Inc()
}

func RecordPushFailure(kind, reason string) {
	PushFailureReasons.WithLabelValues(kind, reason).Inc()
}

func RecordPushLatency(kind string, duration time.Duration) {
	PushSendLatency.WithLabelValues(kind).Observe(float64(duration.Milliseconds()))
}

func RecordPollCycle(selected int, duration time.Duration) {
	ReminderPollSelected.Set(float64(selected))
	ReminderPollDuration.Observe(duration.Seconds())
}

func AddRetentionDeleted(collection string, n int) {
	RetentionDeletedTotal.WithLabelValues(collection).Add(float64(n))
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery(operation, table string) {
	DBSlowQueryTotal.WithLabelValues(operation, table).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
