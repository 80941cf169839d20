// Package metrics 定义流水线的 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opsguard"

// 流水线结果标签
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

var (
	// QueueItemsTotal 出队消息数（按解析结果）
	QueueItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_items_total",
			Help:      "Total number of dequeued items by parse result.",
		},
		[]string{"result"},
	)

	// EventsTotal 事件处理结果
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_events_total",
			Help:      "Total number of events run through the pipeline by outcome.",
		},
		[]string{"result"},
	)

	// StepFailuresTotal 各步骤失败次数（含被吞掉的 index/notify 失败）
	StepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_step_failures_total",
			Help:      "Total number of pipeline step failures by step.",
		},
		[]string{"step"},
	)

	// PipelineDurationSeconds 单个事件处理耗时
	PipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent processing one event.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms ~ 10s
		},
	)

	// EventsInFlight 正在处理的事件数
	EventsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_events_in_flight",
			Help:      "Number of events currently being processed.",
		},
	)

	// RiskTierTotal 分类结果分布
	RiskTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_risk_tier_total",
			Help:      "Classified events by risk tier.",
		},
		[]string{"tier"},
	)

	// EmbeddingCacheTotal 向量缓存命中情况
	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result (hit/miss/error).",
		},
		[]string{"result"},
	)

	// NotificationFailuresTotal 通知投递失败（按通道）
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notification delivery failures by channel.",
		},
		[]string{"channel"},
	)

	// HTTPRequestsTotal API 请求数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	// HTTPRequestDurationSeconds API 请求耗时
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// WorkersRunning 运行中的 Worker（按名称）
	WorkersRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_running",
			Help:      "Pull-loop workers currently running, by worker name.",
		},
		[]string{"worker"},
	)
)

// Handler Prometheus 抓取入口
func Handler() http.Handler {
	return promhttp.Handler()
}
