package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Webhook 通知延迟（毫秒）
	WebhookCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_call_latency_ms",
			Help:    "Outbound webhook call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	// 阶段流转计数
	StageTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_stage_transition_count",
			Help: "Total number of lead stage transitions",
		},
		[]string{"outcome"}, // outcome: committed, rolled_back, noop, rejected
	)

	// 活动完成计数
	ActivityCompletionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_completion_count",
			Help: "Total number of activity completions",
		},
		[]string{"outcome"}, // outcome: completed, chained, chain_failed, toggled
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordWebhookCallLatency 记录 webhook 调用延迟
func RecordWebhookCallLatency(endpoint, status string, duration time.Duration) {
	WebhookCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// IncrementStageTransition 增加阶段流转计数
func IncrementStageTransition(outcome string) {
	StageTransitionCount.WithLabelValues(outcome).Inc()
}

// IncrementActivityCompletion 增加活动完成计数
func IncrementActivityCompletion(outcome string) {
	ActivityCompletionCount.WithLabelValues(outcome).Inc()
}
